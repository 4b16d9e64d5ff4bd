package inmemory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/maps"

	"github.com/TerribleTurtle/squad-sync/internal/repository/room"
)

// roomState is one room's owned member bundle. It is created on the first
// SetMember for a room id and dropped when the last member is removed.
type roomState struct {
	members map[string]*room.Member
}

type repo struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]*roomState),
	}
}

func (r *repo) getRoom(roomId string) *roomState {
	state, ok := r.rooms[roomId]
	if !ok {
		state = &roomState{members: make(map[string]*room.Member)}
		r.rooms[roomId] = state
	}

	return state
}

func (r *repo) SetMember(_ context.Context, params *room.SetMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.getRoom(params.RoomId)
	state.members[params.UserId] = &room.Member{
		UserId:      params.UserId,
		DisplayName: params.DisplayName,
		ConnId:      params.ConnId,
		IsRecording: params.IsRecording,
		LastSeen:    params.LastSeen,
	}

	return nil
}

func (r *repo) RemoveMember(_ context.Context, params *room.RemoveMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	if _, ok := state.members[params.UserId]; !ok {
		return room.ErrMemberNotFound
	}

	delete(state.members, params.UserId)
	if len(state.members) == 0 {
		delete(r.rooms, params.RoomId)
	}

	return nil
}

func (r *repo) GetMember(_ context.Context, params *room.GetMemberParams) (room.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		return room.Member{}, room.ErrRoomNotFound
	}

	member, ok := state.members[params.UserId]
	if !ok {
		return room.Member{}, room.ErrMemberNotFound
	}

	return *member, nil
}

func (r *repo) GetMembers(_ context.Context, roomId string) ([]room.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return []room.Member{}, nil
	}

	members := make([]room.Member, 0, len(state.members))
	for _, userId := range maps.Keys(state.members) {
		members = append(members, *state.members[userId])
	}

	return members, nil
}

func (r *repo) GetMembersCount(_ context.Context, roomId string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return 0, nil
	}

	return len(state.members), nil
}

func (r *repo) UpdateMemberIsRecording(_ context.Context, roomId, userId string, isRecording bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := r.getMemberLocked(roomId, userId)
	if err != nil {
		return err
	}

	member.IsRecording = isRecording

	return nil
}

func (r *repo) UpdateMemberConnId(_ context.Context, roomId, userId, connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := r.getMemberLocked(roomId, userId)
	if err != nil {
		return err
	}

	member.ConnId = connId

	return nil
}

func (r *repo) SetRemovalDeadline(_ context.Context, params *room.SetRemovalDeadlineParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := r.getMemberLocked(params.RoomId, params.UserId)
	if err != nil {
		return err
	}

	deadline := params.Deadline
	member.RemovalDeadline = &deadline

	return nil
}

func (r *repo) ClearRemovalDeadline(_ context.Context, params *room.ClearRemovalDeadlineParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := r.getMemberLocked(params.RoomId, params.UserId)
	if err != nil {
		return err
	}

	member.RemovalDeadline = nil

	return nil
}

// PopExpiredRemovals removes every member whose deadline is at or before now
// and returns them, so a single sweep both decides and applies the removal.
func (r *repo) PopExpiredRemovals(_ context.Context, now time.Time) ([]room.ExpiredRemoval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []room.ExpiredRemoval
	for roomId, state := range r.rooms {
		for userId, member := range state.members {
			if member.RemovalDeadline == nil || member.RemovalDeadline.After(now) {
				continue
			}

			expired = append(expired, room.ExpiredRemoval{RoomId: roomId, UserId: userId})
			delete(state.members, userId)
		}

		if len(state.members) == 0 {
			delete(r.rooms, roomId)
		}
	}

	return expired, nil
}

func (r *repo) getMemberLocked(roomId, userId string) (*room.Member, error) {
	state, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	member, ok := state.members[userId]
	if !ok {
		return nil, room.ErrMemberNotFound
	}

	return member, nil
}
