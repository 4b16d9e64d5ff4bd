package connection

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// User is the durable connection -> user association. It outlives the process
// so a server restart mid-session can still resolve who a closing transport
// belonged to.
type User struct {
	RoomId string `redis:"room_id"`
	UserId string `redis:"user_id"`
}

type SetUserParams struct {
	ConnId string
	RoomId string
	UserId string
}
