package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/TerribleTurtle/squad-sync/internal/service/room"
	"github.com/TerribleTurtle/squad-sync/pkg/validator"
	"github.com/TerribleTurtle/squad-sync/pkg/wsrouter"
)

type iRoomService interface {
	Connect(context.Context, *room.ConnectParams) error
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	Disconnect(context.Context, *room.DisconnectParams) error
	ExpireRemovals(context.Context) ([]room.ExpiredMember, error)
	TriggerClip(context.Context, *room.TriggerClipParams) (room.TriggerClipResponse, error)
	RequestUploadSlot(context.Context, *room.RequestUploadSlotParams) (room.RequestUploadSlotResponse, error)
	CompleteUpload(context.Context, *room.CompleteUploadParams) (room.CompleteUploadResponse, error)
	GetRoomClips(ctx context.Context, roomId string) ([]room.Clip, error)
}

type iLimiter interface {
	Allow(connId, action string) bool
	RemoveConn(connId string)
	Run(ctx context.Context)
}

type iRandstr interface {
	GenerateRandomString(length int) string
}

type controller struct {
	roomService iRoomService
	limiter     iLimiter
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.Router
	clock       clockwork.Clock
	randstr     iRandstr
	logger      *slog.Logger
}

func NewController(roomService iRoomService, limiter iLimiter, clock clockwork.Clock, randstr iRandstr, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		limiter:     limiter,
		validate:    validator.NewValidator(),
		clock:       clock,
		randstr:     randstr,
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
