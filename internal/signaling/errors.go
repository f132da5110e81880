package signaling

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrTargetUnreachable = errors.New("target not connected")
	ErrNotJoined         = errors.New("you must join a room first")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrHubStopped        = errors.New("hub stopped")
)

// Error codes carried by room-error messages so clients can branch without
// matching on the human readable text.
const (
	CodeRoomNotFound = "ROOM_NOT_FOUND"
	CodeRoomFull     = "ROOM_FULL"
	CodeInvalid      = "INVALID_MESSAGE"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return CodeRoomFull
	default:
		return CodeInvalid
	}
}
