package client

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrClosed           = errors.New("client closed")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrServer           = errors.New("signaling server error")
	ErrTimeout          = errors.New("timeout")
)

// Error records the operation that failed, what it failed with and any
// detail the server sent back.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}

// roomError maps a room-error code onto a sentinel.
func roomError(code, message string) error {
	switch code {
	case "ROOM_NOT_FOUND":
		return WrapError("join room", ErrRoomNotFound, message)
	case "ROOM_FULL":
		return WrapError("join room", ErrRoomFull, message)
	default:
		return WrapError("join room", ErrServer, message)
	}
}
