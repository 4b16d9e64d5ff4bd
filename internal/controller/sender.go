package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

func (c controller) writeToConn(_ context.Context, conn *websocket.Conn, output *Output) error {
	if err := conn.WriteJSON(output); err != nil {
		return fmt.Errorf("failed to write to conn: %w", err)
	}

	return nil
}

// broadcast writes to every conn, skipping the ones whose transport already
// failed. A dead conn is cleaned up by its own read loop.
func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) error {
	for _, conn := range conns {
		if err := conn.WriteJSON(output); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "error", err)
		}
	}

	return nil
}

func (c controller) writeError(ctx context.Context, conn *websocket.Conn, code, message string) error {
	return c.writeToConn(ctx, conn, &Output{
		Type: "ERROR",
		Payload: map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
