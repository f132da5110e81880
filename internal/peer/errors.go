package peer

import (
	"errors"
	"fmt"
)

var (
	ErrChannelNotOpen   = errors.New("channel not open")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("timeout")
)

// Error records the WebRTC operation that failed.
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
