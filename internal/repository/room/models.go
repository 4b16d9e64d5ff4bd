package room

import "time"

type Member struct {
	UserId      string
	DisplayName string
	ConnId      string
	IsRecording bool
	LastSeen    int64
	// RemovalDeadline is set while the member's transport is gone and the
	// reconnect grace period is running. Nil means no removal is pending.
	RemovalDeadline *time.Time
}

// ExpiredRemoval identifies a member whose grace period elapsed without a rejoin.
type ExpiredRemoval struct {
	RoomId string
	UserId string
}
