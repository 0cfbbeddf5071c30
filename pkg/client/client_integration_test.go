//go:build integration

package client

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/fizzy-go/internal/testutil"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})
	return client
}

func TestIntegration_SharedRedisCache(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("/acme/boards", testutil.NewConditionalHandler(`"v1"`, `[{"id":"b1","name":"Roadmap"}]`))

	first, _ := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.Redis = redisClient })
	second, _ := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.Redis = redisClient })
	ctx := context.Background()
	var decodes int32

	_, err := Run(ctx, first, transport.Get("/boards", nil), countingDecoder[[]board](&decodes))
	require.NoError(t, err)

	boards, res, err := Execute(ctx, second, transport.Get("/boards", nil), countingDecoder[[]board](&decodes))
	require.NoError(t, err)

	assert.True(t, res.FromCache, "second client revalidates against the shared entry")
	assert.Equal(t, 1, mock.GetConditionalCount())
	assert.Equal(t, int32(2), atomic.LoadInt32(&decodes), "Redis entries are decoded from the stored body")
	require.Len(t, boards, 1)
	assert.Equal(t, "Roadmap", boards[0].Name)
}

func TestIntegration_SharedCooldown(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetSequence("/acme/boards",
		testutil.NewRateLimitResponse(3),
		testutil.NewJSONResponse(`[]`, ""),
	)
	mock.SetResponse("/acme/tags", testutil.NewJSONResponse(`[]`, ""))

	first, _ := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.Redis = redisClient })
	second, sleeper := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.Redis = redisClient })
	ctx := context.Background()

	_, err := Run(ctx, first, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)

	_, err = Run(ctx, second, transport.Get("/tags", nil), JSON[[]map[string]any]())
	require.NoError(t, err)

	delays := sleeper.Delays()
	require.Len(t, delays, 1)
	assert.Greater(t, delays[0].Seconds(), 2.0)
}
