package fizzy

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/fizzy-go/internal/testutil"
	"github.com/Sternrassler/fizzy-go/pkg/client"
)

func TestComments_Create(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetResponse("POST /acme/cards/7/comments", testutil.NewJSONResponse(
		`{"id":"m1","body":{"plain_text":"Looks good","html":"<p>Looks good</p>"}}`, ""))

	comment, err := c.Comments.Create(context.Background(), 7, "Looks good")
	require.NoError(t, err)
	assert.Equal(t, "Looks good", comment.Body.PlainText)
	assert.Equal(t, "<p>Looks good</p>", comment.Body.HTML)

	body := jsonBody(t, lastRequest(t, mock))
	assert.Equal(t, map[string]any{"body": "Looks good"}, body["comment"])
}

func TestComments_CreateRequiresBody(t *testing.T) {
	c, mock := newTestClient(t)

	_, err := c.Comments.Create(context.Background(), 7, "")
	assert.Error(t, err)
	assert.Zero(t, mock.GetRequestCount())
}

func TestComments_UpdateRefetches(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetResponse("PUT /acme/cards/7/comments/m1", testutil.NewNoContentResponse())
	mock.SetResponse("GET /acme/cards/7/comments/m1", testutil.NewJSONResponse(`{"id":"m1","body":{"plain_text":"Edited","html":"Edited"}}`, ""))

	comment, err := c.Comments.Update(context.Background(), 7, "m1", "Edited")
	require.NoError(t, err)
	assert.Equal(t, "Edited", comment.Body.PlainText)
	assert.Equal(t, 1, mock.CountRequests(http.MethodPut, "/acme/cards/7/comments/m1"))
}

func TestComments_ListAllForCards(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetHandler("/acme/cards/1/comments", testutil.NewPagedHandler(`[{"id":"a"}]`, `[{"id":"b"}]`))
	mock.SetHandler("/acme/cards/2/comments", testutil.NewPagedHandler(`[{"id":"c"}]`))

	byCard, err := c.Comments.ListAllForCards(context.Background(), []int{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNotFound)

	require.Len(t, byCard[1], 2)
	assert.Equal(t, "b", byCard[1][1].ID)
	require.Len(t, byCard[2], 1)
	_, ok := byCard[3]
	assert.False(t, ok)
}

func TestComments_ListPaginated(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetHandler("/acme/cards/1/comments", testutil.NewPagedHandler(`[{"id":"a"}]`, `[{"id":"b"}]`))
	ctx := context.Background()

	page, err := c.Comments.ListPaginated(ctx, 1)
	require.NoError(t, err)
	assert.True(t, page.HasNext)

	next, err := page.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", next.Items[0].ID)
	assert.False(t, next.HasNext)
}
