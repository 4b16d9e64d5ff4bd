package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/TerribleTurtle/squad-sync/internal/repository/connection"
	"github.com/TerribleTurtle/squad-sync/internal/repository/room"
)

type ConnectParams struct {
	Conn   *websocket.Conn
	ConnId string
}

func (s service) Connect(ctx context.Context, params *ConnectParams) error {
	if err := s.connRepo.Add(params.Conn, params.ConnId); err != nil {
		s.logger.InfoContext(ctx, "failed to add conn", "error", err)
		return err
	}

	return nil
}

type JoinRoomParams struct {
	ConnId      string
	RoomId      string
	UserId      string
	DisplayName string
}

type JoinRoomResponse struct {
	JoinedMember Member
	RoomState    RoomState
	// OtherConns are every live connection in the room except the joiner's;
	// the member-joined event goes to them only.
	OtherConns []*websocket.Conn
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	now := s.clock.Now().UnixMilli()

	existing, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
		RoomId: params.RoomId,
		UserId: params.UserId,
	})
	isRejoin := err == nil
	if err != nil && !errors.Is(err, room.ErrMemberNotFound) && !errors.Is(err, room.ErrRoomNotFound) {
		return JoinRoomResponse{}, err
	}

	joinedMember := Member{
		UserId:      params.UserId,
		DisplayName: params.DisplayName,
		LastSeen:    now,
	}

	if isRejoin {
		// a rejoin inside the grace period cancels the pending removal and
		// rebinds the member to the new connection
		if err := s.roomRepo.UpdateMemberConnId(ctx, params.RoomId, params.UserId, params.ConnId); err != nil {
			return JoinRoomResponse{}, err
		}
		if err := s.roomRepo.ClearRemovalDeadline(ctx, &room.ClearRemovalDeadlineParams{
			RoomId: params.RoomId,
			UserId: params.UserId,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to clear removal deadline", "error", err)
		}

		joinedMember.DisplayName = existing.DisplayName
		joinedMember.IsRecording = existing.IsRecording
	} else {
		count, err := s.roomRepo.GetMembersCount(ctx, params.RoomId)
		if err != nil {
			return JoinRoomResponse{}, err
		}
		if count >= s.membersLimit {
			return JoinRoomResponse{}, ErrRoomFull
		}

		if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
			RoomId:      params.RoomId,
			UserId:      params.UserId,
			DisplayName: params.DisplayName,
			ConnId:      params.ConnId,
			LastSeen:    now,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to set member", "error", err)
			return JoinRoomResponse{}, err
		}
	}

	if err := s.userRepo.SetUser(ctx, &connection.SetUserParams{
		ConnId: params.ConnId,
		RoomId: params.RoomId,
		UserId: params.UserId,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set connection user", "error", err)
		return JoinRoomResponse{}, err
	}

	members, err := s.getMembers(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	clips, err := s.getClips(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	otherConns, err := s.getConnsByRoomId(ctx, params.RoomId, params.ConnId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	return JoinRoomResponse{
		JoinedMember: joinedMember,
		RoomState: RoomState{
			Id:         params.RoomId,
			Members:    members,
			Clips:      clips,
			ServerTime: now,
		},
		OtherConns: otherConns,
	}, nil
}

type LeaveRoomParams struct {
	ConnId string
}

type LeaveRoomResponse struct {
	RoomId string
	UserId string
	Conns  []*websocket.Conn
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	user, err := s.userRepo.GetUser(ctx, params.ConnId)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return LeaveRoomResponse{}, ErrNotInRoom
		}
		return LeaveRoomResponse{}, err
	}

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		RoomId: user.RoomId,
		UserId: user.UserId,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to remove member", "error", err)
	}

	if err := s.userRepo.RemoveUser(ctx, params.ConnId); err != nil {
		s.logger.InfoContext(ctx, "failed to remove connection user", "error", err)
	}

	conns, err := s.getConnsByRoomId(ctx, user.RoomId, params.ConnId)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	return LeaveRoomResponse{
		RoomId: user.RoomId,
		UserId: user.UserId,
		Conns:  conns,
	}, nil
}

type DisconnectParams struct {
	ConnId string
}

// Disconnect handles a transport drop without an explicit leave: the member
// is kept for a grace period so a quick rejoin produces no member-left event.
func (s service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	// drop the live conn handle so broadcasts stop targeting it
	if conn, err := s.connRepo.GetConn(params.ConnId); err == nil {
		if _, err := s.connRepo.RemoveByConn(conn); err != nil {
			s.logger.DebugContext(ctx, "failed to remove conn", "error", err)
		}
	}

	user, err := s.userRepo.GetUser(ctx, params.ConnId)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			// never joined, or already left explicitly
			return nil
		}
		return err
	}

	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomId: user.RoomId, UserId: user.UserId})
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) || errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	if member.ConnId != params.ConnId {
		// the member already rejoined on a newer connection; this transport's
		// teardown must not schedule their removal
		return nil
	}

	deadline := s.clock.Now().Add(s.gracePeriod)
	if err := s.roomRepo.SetRemovalDeadline(ctx, &room.SetRemovalDeadlineParams{
		RoomId:   user.RoomId,
		UserId:   user.UserId,
		Deadline: deadline,
	}); err != nil {
		if errors.Is(err, room.ErrMemberNotFound) || errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}
		return fmt.Errorf("failed to set removal deadline: %w", err)
	}

	return nil
}

type ExpiredMember struct {
	RoomId string
	UserId string
	Conns  []*websocket.Conn
}

// ExpireRemovals removes every member whose grace period elapsed and returns
// them with the remaining live connections of their rooms.
func (s service) ExpireRemovals(ctx context.Context) ([]ExpiredMember, error) {
	expired, err := s.roomRepo.PopExpiredRemovals(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}

	result := make([]ExpiredMember, 0, len(expired))
	for _, e := range expired {
		conns, err := s.getConnsByRoomId(ctx, e.RoomId, "")
		if err != nil {
			s.logger.InfoContext(ctx, "failed to get conns by room id", "error", err)
			continue
		}

		result = append(result, ExpiredMember{
			RoomId: e.RoomId,
			UserId: e.UserId,
			Conns:  conns,
		})
	}

	return result, nil
}

func (s service) GetRoomClips(ctx context.Context, roomId string) ([]Clip, error) {
	return s.getClips(ctx, roomId)
}
