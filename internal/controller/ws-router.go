package controller

import (
	"fmt"

	"github.com/TerribleTurtle/squad-sync/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.Router {
	mux := wsrouter.New(c.logger, func(i any) error {
		if validationErrors, ok := c.validate.Validate(i); !ok {
			return fmt.Errorf("%w: %v", wsrouter.ErrInvalidPayload, validationErrors)
		}

		return nil
	})

	mux.Use(
		c.wsRequestIdWSMw(),
		c.loggerWSMw(),
		c.rateLimitWSMw(),
	)

	// membership
	wsrouter.Handle(mux, "JOIN_ROOM", c.handleJoinRoom)
	wsrouter.Handle(mux, "LEAVE_ROOM", c.handleLeaveRoom)

	// clock
	wsrouter.Handle(mux, "TIME_SYNC_REQUEST", c.handleTimeSync)

	// clips
	wsrouter.Handle(mux, "TRIGGER_CLIP", c.handleTriggerClip)
	wsrouter.Handle(mux, "REQUEST_UPLOAD_URL", c.handleRequestUploadUrl)
	wsrouter.Handle(mux, "UPLOAD_COMPLETE", c.handleUploadComplete)

	return mux
}
