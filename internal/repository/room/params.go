package room

import "time"

type SetMemberParams struct {
	RoomId      string
	UserId      string
	DisplayName string
	ConnId      string
	IsRecording bool
	LastSeen    int64
}

type RemoveMemberParams struct {
	RoomId string
	UserId string
}

type GetMemberParams struct {
	RoomId string
	UserId string
}

type SetRemovalDeadlineParams struct {
	RoomId   string
	UserId   string
	Deadline time.Time
}

type ClearRemovalDeadlineParams struct {
	RoomId string
	UserId string
}
