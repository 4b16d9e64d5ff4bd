package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TerribleTurtle/squad-sync/internal/repository/connection"
)

type repo struct {
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, ttl time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		ttl:    ttl,
		logger: logger,
	}
}

func (r repo) getConnKey(connId string) string {
	return "conn:" + connId
}

func (r repo) SetUser(ctx context.Context, params *connection.SetUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	connKey := r.getConnKey(params.ConnId)
	pipe.HSet(ctx, connKey, connection.User{
		RoomId: params.RoomId,
		UserId: params.UserId,
	})
	pipe.Expire(ctx, connKey, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetUser(ctx context.Context, connId string) (connection.User, error) {
	r.logger.DebugContext(ctx, "called", "conn_id", connId)
	var user connection.User
	if err := r.rc.HGetAll(ctx, r.getConnKey(connId)).Scan(&user); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return connection.User{}, err
	}

	if user.UserId == "" {
		r.logger.DebugContext(ctx, "returned", "error", connection.ErrNotFound)
		return connection.User{}, connection.ErrNotFound
	}

	return user, nil
}

func (r repo) RemoveUser(ctx context.Context, connId string) error {
	r.logger.DebugContext(ctx, "called", "conn_id", connId)
	res, err := r.rc.Del(ctx, r.getConnKey(connId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		return connection.ErrNotFound
	}

	return nil
}
