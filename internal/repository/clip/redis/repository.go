package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc      *redis.Client
	clipTTL time.Duration
	logger  *slog.Logger
}

func NewRepo(rc *redis.Client, clipTTL time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:      rc,
		clipTTL: clipTTL,
		logger:  logger,
	}
}

func (r repo) getClipKey(roomId, clipId string) string {
	return "room:" + roomId + ":clip:" + clipId
}

func (r repo) getViewsKey(roomId, clipId string) string {
	return "room:" + roomId + ":clip:" + clipId + ":views"
}

func (r repo) getClipListKey(roomId string) string {
	return "room:" + roomId + ":cliplist"
}

func (r repo) executePipe(cmds []redis.Cmder, err error) error {
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
