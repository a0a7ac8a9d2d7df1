package schedule

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; the concrete *Error carries the message shown to callers.
var (
	ErrMissingField       = errors.New("missing field")
	ErrUnknownTimezone    = errors.New("unknown timezone")
	ErrInvalidInterval    = errors.New("invalid interval")
	ErrNotFound           = errors.New("not found")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrUsernameTaken      = errors.New("username taken")
)

// Error is a domain failure with a human-readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
