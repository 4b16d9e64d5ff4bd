package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/TerribleTurtle/squad-sync/internal/service/room"
	"github.com/TerribleTurtle/squad-sync/pkg/ctxlogger"
)

func (c controller) wsConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connId := uuid.NewString()

	ctx := context.WithValue(r.Context(), connIdCtxKey, connId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connId))

	if err := c.roomService.Connect(ctx, &room.ConnectParams{
		Conn:   conn,
		ConnId: connId,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to connect", "error", err)
		conn.Close()
		return
	}

	defer func() {
		c.limiter.RemoveConn(connId)

		// the request context is gone once the handler unwinds
		if err := c.roomService.Disconnect(context.WithoutCancel(ctx), &room.DisconnectParams{ConnId: connId}); err != nil {
			c.logger.InfoContext(ctx, "failed to disconnect", "error", err)
		}
	}()

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "conn closed", "error", err)
	}
}
