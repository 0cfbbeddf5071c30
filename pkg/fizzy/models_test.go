package fizzy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexTime(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantRaw  string
		wantTime time.Time
	}{
		{"date", `"2025-03-14"`, "2025-03-14", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"timestamp", `"2025-03-14T09:30:00Z"`, "2025-03-14T09:30:00Z", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"free form", `"someday"`, "someday", time.Time{}},
		{"empty", `""`, "", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ft FlexTime
			require.NoError(t, json.Unmarshal([]byte(tt.json), &ft))
			assert.Equal(t, tt.wantRaw, ft.Raw)
			assert.True(t, tt.wantTime.Equal(ft.Time), "time = %v, want %v", ft.Time, tt.wantTime)
		})
	}
}

func TestCard_DeferredUntil(t *testing.T) {
	var card Card
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","number":1,"title":"x","status":"deferred","deferred_until":"2025-06-01"}`), &card))
	require.NotNil(t, card.DeferredUntil)
	assert.Equal(t, 2025, card.DeferredUntil.Time.Year())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","number":1,"title":"x","status":"open","deferred_until":null}`), &card))
	assert.Nil(t, card.DeferredUntil)

	out, err := json.Marshal(FlexTime{Raw: "someday"})
	require.NoError(t, err)
	assert.JSONEq(t, `"someday"`, string(out))
}

func TestAccountSlug(t *testing.T) {
	assert.Equal(t, "897362094", Account{URL: "https://app.fizzy.do/897362094/"}.Slug())
	assert.Equal(t, "acme", Account{URL: "https://app.fizzy.do/acme"}.Slug())
	assert.Empty(t, Account{}.Slug())
}
