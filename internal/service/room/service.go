package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/TerribleTurtle/squad-sync/internal/repository/clip"
	"github.com/TerribleTurtle/squad-sync/internal/repository/connection"
	"github.com/TerribleTurtle/squad-sync/internal/repository/room"
)

var (
	ErrRoomFull                 = errors.New("room is full")
	ErrNotInRoom                = errors.New("not in a room")
	ErrMemberNotFound           = errors.New("member not found")
	ErrClipNotFound             = errors.New("clip not found")
	ErrInvalidTimestamp         = errors.New("invalid timestamp")
	ErrUploadSlotUnavailable    = errors.New("upload slot unavailable")
	ErrUploadVerificationFailed = errors.New("upload verification failed")
)

// minVideoStartTimeMs is the sanity floor for claimed recording start times:
// 2020-01-01T00:00:00Z. Anything below it is a corrupt client clock.
const minVideoStartTimeMs = 1577836800000

type iRoomRepo interface {
	SetMember(context.Context, *room.SetMemberParams) error
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	GetMembers(context.Context, string) ([]room.Member, error)
	GetMembersCount(context.Context, string) (int, error)
	UpdateMemberIsRecording(ctx context.Context, roomId, userId string, isRecording bool) error
	UpdateMemberConnId(ctx context.Context, roomId, userId, connId string) error
	SetRemovalDeadline(context.Context, *room.SetRemovalDeadlineParams) error
	ClearRemovalDeadline(context.Context, *room.ClearRemovalDeadlineParams) error
	PopExpiredRemovals(context.Context, time.Time) ([]room.ExpiredRemoval, error)
}

type iClipRepo interface {
	SetClip(context.Context, *clip.SetClipParams) error
	GetClip(context.Context, *clip.GetClipParams) (clip.Clip, error)
	GetClipIds(context.Context, string) ([]string, error)
	SetView(context.Context, *clip.SetViewParams) error
	GetViews(context.Context, *clip.GetViewsParams) ([]clip.View, error)
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByConn(*websocket.Conn) (string, error)
	GetConn(string) (*websocket.Conn, error)
}

type iUserRepo interface {
	SetUser(context.Context, *connection.SetUserParams) error
	GetUser(ctx context.Context, connId string) (connection.User, error)
	RemoveUser(ctx context.Context, connId string) error
}

type iStorage interface {
	IssueUploadURL(ctx context.Context, key string) (string, error)
	HeadExists(ctx context.Context, key string) (bool, error)
	ObjectURL(key string) string
}

type Config struct {
	MembersLimit int
	GracePeriod  time.Duration
}

type service struct {
	roomRepo iRoomRepo
	clipRepo iClipRepo
	connRepo iConnRepo
	userRepo iUserRepo
	storage  iStorage
	clock    clockwork.Clock
	logger   *slog.Logger

	membersLimit int
	gracePeriod  time.Duration
}

func NewService(
	roomRepo iRoomRepo,
	clipRepo iClipRepo,
	connRepo iConnRepo,
	userRepo iUserRepo,
	storage iStorage,
	clock clockwork.Clock,
	logger *slog.Logger,
	cfg *Config,
) *service {
	return &service{
		roomRepo:     roomRepo,
		clipRepo:     clipRepo,
		connRepo:     connRepo,
		userRepo:     userRepo,
		storage:      storage,
		clock:        clock,
		logger:       logger,
		membersLimit: cfg.MembersLimit,
		gracePeriod:  cfg.GracePeriod,
	}
}
