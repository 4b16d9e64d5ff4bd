package room

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clipRedis "github.com/TerribleTurtle/squad-sync/internal/repository/clip/redis"
	connInmemory "github.com/TerribleTurtle/squad-sync/internal/repository/connection/inmemory"
	connRedis "github.com/TerribleTurtle/squad-sync/internal/repository/connection/redis"
	roomInmemory "github.com/TerribleTurtle/squad-sync/internal/repository/room/inmemory"
)

type fakeStorage struct {
	objects  map[string]bool
	issueErr error
}

func (f *fakeStorage) IssueUploadURL(_ context.Context, key string) (string, error) {
	if f.issueErr != nil {
		return "", f.issueErr
	}
	return "https://uploads.test/" + key + "?signed=1", nil
}

func (f *fakeStorage) HeadExists(_ context.Context, key string) (bool, error) {
	return f.objects[key], nil
}

func (f *fakeStorage) ObjectURL(key string) string {
	return "https://cdn.test/" + key
}

type testEnv struct {
	service  *service
	storage  *fakeStorage
	clock    *clockwork.FakeClock
	connRepo interface {
		Add(*websocket.Conn, string) error
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})

	logger := slog.Default()
	clock := clockwork.NewFakeClock()
	storage := &fakeStorage{objects: make(map[string]bool)}

	roomRepo := roomInmemory.NewRepo()
	clipRepo := clipRedis.NewRepo(rc, 24*time.Hour, logger)
	connRepo := connInmemory.NewRepo()
	userRepo := connRedis.NewRepo(rc, 24*time.Hour, logger)

	svc := NewService(roomRepo, clipRepo, connRepo, userRepo, storage, clock, logger, &Config{
		MembersLimit: 4,
		GracePeriod:  10 * time.Second,
	})

	return &testEnv{service: svc, storage: storage, clock: clock, connRepo: connRepo}
}

func (e *testEnv) join(t *testing.T, connId, roomId, userId, displayName string) JoinRoomResponse {
	t.Helper()

	require.NoError(t, e.connRepo.Add(&websocket.Conn{}, connId))
	resp, err := e.service.JoinRoom(context.Background(), &JoinRoomParams{
		ConnId:      connId,
		RoomId:      roomId,
		UserId:      userId,
		DisplayName: displayName,
	})
	require.NoError(t, err)

	return resp
}

func TestJoinRoom(t *testing.T) {
	env := newTestEnv(t)

	resp1 := env.join(t, "conn-1", "squad", "user-1", "alice")
	assert.Equal(t, "user-1", resp1.JoinedMember.UserId)
	assert.Equal(t, "alice", resp1.JoinedMember.DisplayName)
	assert.False(t, resp1.JoinedMember.IsRecording)
	assert.Len(t, resp1.RoomState.Members, 1, "room state must contain the joiner")
	assert.Empty(t, resp1.OtherConns, "first member has nobody to notify")

	resp2 := env.join(t, "conn-2", "squad", "user-2", "bob")
	assert.Len(t, resp2.RoomState.Members, 2)
	assert.Len(t, resp2.OtherConns, 1, "member-joined goes to the other member only")
}

func TestJoinRoomFull(t *testing.T) {
	env := newTestEnv(t)

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")
	env.join(t, "conn-3", "squad", "user-3", "c")
	env.join(t, "conn-4", "squad", "user-4", "d")

	require.NoError(t, env.connRepo.Add(&websocket.Conn{}, "conn-5"))
	_, err := env.service.JoinRoom(context.Background(), &JoinRoomParams{
		ConnId: "conn-5", RoomId: "squad", UserId: "user-5", DisplayName: "e",
	})
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestRejoinIsNotCountedAgainstLimit(t *testing.T) {
	env := newTestEnv(t)

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")
	env.join(t, "conn-3", "squad", "user-3", "c")
	env.join(t, "conn-4", "squad", "user-4", "d")

	resp := env.join(t, "conn-1b", "squad", "user-1", "a")
	assert.Len(t, resp.RoomState.Members, 4, "rejoin must upsert, not add")
}

func TestLeaveRoom(t *testing.T) {
	env := newTestEnv(t)

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")

	resp, err := env.service.LeaveRoom(context.Background(), &LeaveRoomParams{ConnId: "conn-1"})
	require.NoError(t, err)
	assert.Equal(t, "squad", resp.RoomId)
	assert.Equal(t, "user-1", resp.UserId)
	assert.Len(t, resp.Conns, 1, "member-left goes to the remaining member")

	// the association is gone, a second leave resolves nothing
	_, err = env.service.LeaveRoom(context.Background(), &LeaveRoomParams{ConnId: "conn-1"})
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestDisconnectGracePeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")

	require.NoError(t, env.service.Disconnect(ctx, &DisconnectParams{ConnId: "conn-1"}))

	env.clock.Advance(9999 * time.Millisecond)
	expired, err := env.service.ExpireRemovals(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired, "no removal before the grace period elapses")

	env.clock.Advance(1 * time.Millisecond)
	expired, err = env.service.ExpireRemovals(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1, "exactly one removal at the deadline")
	assert.Equal(t, "user-1", expired[0].UserId)
	assert.Equal(t, "squad", expired[0].RoomId)
	assert.Len(t, expired[0].Conns, 1)

	// already removed, nothing left to expire
	expired, err = env.service.ExpireRemovals(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestRejoinCancelsPendingRemoval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")

	require.NoError(t, env.service.Disconnect(ctx, &DisconnectParams{ConnId: "conn-1"}))

	env.clock.Advance(9999 * time.Millisecond)
	env.join(t, "conn-1b", "squad", "user-1", "a")

	env.clock.Advance(time.Hour)
	expired, err := env.service.ExpireRemovals(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired, "rejoin inside the grace period must cancel the removal")
}

func TestTriggerClip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")

	resp, err := env.service.TriggerClip(ctx, &TriggerClipParams{ConnId: "conn-1", SegmentCount: 60})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ClipId)
	assert.Equal(t, 60, resp.SegmentCount)
	assert.Equal(t, env.clock.Now().UnixMilli(), resp.ReferenceTime)
	assert.Len(t, resp.Conns, 2, "start-clip goes to every member including the trigger's author")

	clips, err := env.service.GetRoomClips(ctx, "squad")
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, resp.ClipId, clips[0].Id)
	assert.Empty(t, clips[0].Views)
}

func TestTriggerClipNotInRoom(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.TriggerClip(context.Background(), &TriggerClipParams{ConnId: "ghost", SegmentCount: 60})
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestRequestUploadSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	trigger, err := env.service.TriggerClip(ctx, &TriggerClipParams{ConnId: "conn-1", SegmentCount: 60})
	require.NoError(t, err)

	slot, err := env.service.RequestUploadSlot(ctx, &RequestUploadSlotParams{ConnId: "conn-1", ClipId: trigger.ClipId})
	require.NoError(t, err)
	assert.Contains(t, slot.UploadURL, "rooms/squad/clips/"+trigger.ClipId+"/user-1.webm")
	assert.Equal(t, "user-1.webm", slot.Filename)

	// re-request issues a fresh url for the same key
	again, err := env.service.RequestUploadSlot(ctx, &RequestUploadSlotParams{ConnId: "conn-1", ClipId: trigger.ClipId})
	require.NoError(t, err)
	assert.Equal(t, slot.Filename, again.Filename)

	_, err = env.service.RequestUploadSlot(ctx, &RequestUploadSlotParams{ConnId: "conn-1", ClipId: "nope"})
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestCompleteUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	env.join(t, "conn-2", "squad", "user-2", "b")
	trigger, err := env.service.TriggerClip(ctx, &TriggerClipParams{ConnId: "conn-1", SegmentCount: 60})
	require.NoError(t, err)

	key := "rooms/squad/clips/" + trigger.ClipId + "/user-1.webm"
	env.storage.objects[key] = true

	resp, err := env.service.CompleteUpload(ctx, &CompleteUploadParams{
		ConnId:           "conn-1",
		ClipId:           trigger.ClipId,
		VideoStartTimeMs: 1700000000000,
		DurationMs:       60000,
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.View.Author)
	assert.Equal(t, "https://cdn.test/"+key, resp.View.URL)
	assert.Len(t, resp.Conns, 2)

	clips, err := env.service.GetRoomClips(ctx, "squad")
	require.NoError(t, err)
	require.Len(t, clips, 1)
	require.Len(t, clips[0].Views, 1)
	assert.Equal(t, int64(1700000000000), clips[0].Views[0].VideoStartTimeMs)
}

func TestCompleteUploadReplacesView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	trigger, err := env.service.TriggerClip(ctx, &TriggerClipParams{ConnId: "conn-1", SegmentCount: 60})
	require.NoError(t, err)

	key := "rooms/squad/clips/" + trigger.ClipId + "/user-1.webm"
	env.storage.objects[key] = true

	for _, durationMs := range []int64{60000, 58000} {
		_, err := env.service.CompleteUpload(ctx, &CompleteUploadParams{
			ConnId:           "conn-1",
			ClipId:           trigger.ClipId,
			VideoStartTimeMs: 1700000000000,
			DurationMs:       durationMs,
		})
		require.NoError(t, err)
	}

	clips, err := env.service.GetRoomClips(ctx, "squad")
	require.NoError(t, err)
	require.Len(t, clips, 1)
	require.Len(t, clips[0].Views, 1, "second upload replaces the first, view count does not grow")
	assert.Equal(t, int64(58000), clips[0].Views[0].DurationMs)
}

func TestCompleteUploadInvalidTimestamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	trigger, err := env.service.TriggerClip(ctx, &TriggerClipParams{ConnId: "conn-1", SegmentCount: 60})
	require.NoError(t, err)

	_, err = env.service.CompleteUpload(ctx, &CompleteUploadParams{
		ConnId:           "conn-1",
		ClipId:           trigger.ClipId,
		VideoStartTimeMs: 42, // far below the sanity floor
		DurationMs:       60000,
	})
	assert.ErrorIs(t, err, ErrInvalidTimestamp)

	clips, err := env.service.GetRoomClips(ctx, "squad")
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Empty(t, clips[0].Views, "a rejected upload must not produce a view")
}

func TestCompleteUploadVerificationFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.join(t, "conn-1", "squad", "user-1", "a")
	trigger, err := env.service.TriggerClip(ctx, &TriggerClipParams{ConnId: "conn-1", SegmentCount: 60})
	require.NoError(t, err)

	// object never uploaded
	_, err = env.service.CompleteUpload(ctx, &CompleteUploadParams{
		ConnId:           "conn-1",
		ClipId:           trigger.ClipId,
		VideoStartTimeMs: 1700000000000,
		DurationMs:       60000,
	})
	assert.ErrorIs(t, err, ErrUploadVerificationFailed)

	clips, err := env.service.GetRoomClips(ctx, "squad")
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Empty(t, clips[0].Views)
}
