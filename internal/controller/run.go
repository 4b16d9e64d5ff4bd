package controller

import (
	"context"
	"time"
)

const removalSweepInterval = time.Second

// Run drives the background loops: the rate limiter sweep and the grace
// period sweep that finalizes removals of members who never reconnected.
func (c *controller) Run(ctx context.Context) {
	go c.limiter.Run(ctx)

	ticker := c.clock.NewTicker(removalSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			expired, err := c.roomService.ExpireRemovals(ctx)
			if err != nil {
				c.logger.InfoContext(ctx, "failed to expire removals", "error", err)
				continue
			}

			for _, e := range expired {
				if err := c.broadcast(ctx, e.Conns, &Output{
					Type: "MEMBER_LEFT",
					Payload: map[string]any{
						"user_id": e.UserId,
					},
				}); err != nil {
					c.logger.InfoContext(ctx, "failed to broadcast member left", "error", err)
				}
			}
		}
	}
}
