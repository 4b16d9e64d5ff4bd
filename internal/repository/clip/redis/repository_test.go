package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerribleTurtle/squad-sync/internal/repository/clip"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})

	return NewRepo(rc, 24*time.Hour, slog.Default())
}

func TestSetGetClip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetClip(ctx, &clip.SetClipParams{
		RoomId:        "squad",
		ClipId:        "clip-1",
		CreatedAt:     1700000000000,
		SegmentCount:  60,
		ReferenceTime: 1700000000000,
	}))

	c, err := r.GetClip(ctx, &clip.GetClipParams{RoomId: "squad", ClipId: "clip-1"})
	require.NoError(t, err)
	assert.Equal(t, "clip-1", c.Id)
	assert.Equal(t, 60, c.SegmentCount)
	assert.Equal(t, int64(1700000000000), c.ReferenceTime)
}

func TestGetClipNotFound(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.GetClip(context.Background(), &clip.GetClipParams{RoomId: "squad", ClipId: "nope"})
	assert.ErrorIs(t, err, clip.ErrClipNotFound)
}

func TestGetClipIdsOrderedByCreation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// inserted out of order on purpose
	require.NoError(t, r.SetClip(ctx, &clip.SetClipParams{RoomId: "squad", ClipId: "newer", CreatedAt: 2000}))
	require.NoError(t, r.SetClip(ctx, &clip.SetClipParams{RoomId: "squad", ClipId: "older", CreatedAt: 1000}))

	ids, err := r.GetClipIds(ctx, "squad")
	require.NoError(t, err)
	assert.Equal(t, []string{"older", "newer"}, ids)
}

func TestSetViewReplacesAuthor(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetClip(ctx, &clip.SetClipParams{RoomId: "squad", ClipId: "clip-1", CreatedAt: 1000}))

	first := clip.View{Author: "user-1", URL: "https://cdn.test/a.webm", DurationMs: 60000}
	second := clip.View{Author: "user-1", URL: "https://cdn.test/b.webm", DurationMs: 58000}
	require.NoError(t, r.SetView(ctx, &clip.SetViewParams{RoomId: "squad", ClipId: "clip-1", View: first}))
	require.NoError(t, r.SetView(ctx, &clip.SetViewParams{RoomId: "squad", ClipId: "clip-1", View: second}))

	views, err := r.GetViews(ctx, &clip.GetViewsParams{RoomId: "squad", ClipId: "clip-1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "https://cdn.test/b.webm", views[0].URL)
	assert.Equal(t, int64(58000), views[0].DurationMs)
}

func TestSetViewUnknownClip(t *testing.T) {
	r := newTestRepo(t)

	err := r.SetView(context.Background(), &clip.SetViewParams{
		RoomId: "squad",
		ClipId: "nope",
		View:   clip.View{Author: "user-1"},
	})
	assert.ErrorIs(t, err, clip.ErrClipNotFound)
}
