package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/TerribleTurtle/squad-sync/internal/repository/clip"
)

func (r repo) SetClip(ctx context.Context, params *clip.SetClipParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	clipKey := r.getClipKey(params.RoomId, params.ClipId)
	pipe.HSet(ctx, clipKey, clip.Clip{
		Id:            params.ClipId,
		CreatedAt:     params.CreatedAt,
		SegmentCount:  params.SegmentCount,
		ReferenceTime: params.ReferenceTime,
	})
	pipe.Expire(ctx, clipKey, r.clipTTL)

	clipListKey := r.getClipListKey(params.RoomId)
	pipe.ZAdd(ctx, clipListKey, redis.Z{Score: float64(params.CreatedAt), Member: params.ClipId})
	pipe.Expire(ctx, clipListKey, r.clipTTL)

	cmds, err := pipe.Exec(ctx)
	if err := r.executePipe(cmds, err); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetClip(ctx context.Context, params *clip.GetClipParams) (clip.Clip, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	var c clip.Clip
	if err := r.rc.HGetAll(ctx, r.getClipKey(params.RoomId, params.ClipId)).Scan(&c); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return clip.Clip{}, err
	}

	if c.Id == "" {
		r.logger.DebugContext(ctx, "returned", "error", clip.ErrClipNotFound)
		return clip.Clip{}, clip.ErrClipNotFound
	}

	return c, nil
}

func (r repo) GetClipIds(ctx context.Context, roomId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id": roomId,
	})
	clipIds, err := r.rc.ZRange(ctx, r.getClipListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return clipIds, nil
}

// SetView stores the author's view as a single hash field write, so a
// re-upload from the same author replaces the previous view atomically.
func (r repo) SetView(ctx context.Context, params *clip.SetViewParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	exists, err := r.rc.Exists(ctx, r.getClipKey(params.RoomId, params.ClipId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}
	if exists == 0 {
		r.logger.DebugContext(ctx, "returned", "error", clip.ErrClipNotFound)
		return clip.ErrClipNotFound
	}

	data, err := json.Marshal(params.View)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	viewsKey := r.getViewsKey(params.RoomId, params.ClipId)
	pipe.HSet(ctx, viewsKey, params.View.Author, data)
	pipe.Expire(ctx, viewsKey, r.clipTTL)

	cmds, err := pipe.Exec(ctx)
	if err := r.executePipe(cmds, err); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetViews(ctx context.Context, params *clip.GetViewsParams) ([]clip.View, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	fields, err := r.rc.HGetAll(ctx, r.getViewsKey(params.RoomId, params.ClipId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	views := make([]clip.View, 0, len(fields))
	for _, data := range fields {
		var view clip.View
		if err := json.Unmarshal([]byte(data), &view); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		views = append(views, view)
	}

	return views, nil
}
