package controller

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/TerribleTurtle/squad-sync/pkg/ctxlogger"
	"github.com/TerribleTurtle/squad-sync/pkg/wsrouter"
)

func (c controller) wsRequestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, conn, payload)
		}
	}
}

func (c controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.InfoContext(ctx, "websocket message received", "payload", payload)

			start := c.clock.Now()

			err := next(ctx, conn, payload)

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", c.clock.Since(start).Microseconds(),
			)

			return err
		}
	}
}

// rateLimitWSMw drops messages over the action budget with a RATE_LIMITED
// error to the sender. The handler never runs for a rejected message.
func (c controller) rateLimitWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			connId := c.getConnIdFromCtx(ctx)
			messageType := wsrouter.GetMessageTypeFromCtx(ctx)

			if !c.limiter.Allow(connId, messageType) {
				c.logger.DebugContext(ctx, "rate limited", "message_type", messageType)
				if err := c.writeError(ctx, conn, "RATE_LIMITED", "too many "+messageType+" messages"); err != nil {
					c.logger.DebugContext(ctx, "failed to write error", "error", err)
				}

				return nil
			}

			return next(ctx, conn, payload)
		}
	}
}
