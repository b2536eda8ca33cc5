package lobby

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra detail.
var (
	ErrNotFound  = errors.New("room not found")
	ErrForbidden = errors.New("forbidden")
	ErrRoomFull  = errors.New("room is full")
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a uniqueness violation: a colliding room code or
// name at creation, or an identity that is already a player of a room.
// Detail identifies the existing holder (e.g. the room's code).
type ConflictError struct {
	Field  string
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s already exists", e.Field)
	}
	return fmt.Sprintf("%s already exists (%s)", e.Field, e.Detail)
}

// StateError reports an operation that is not valid for the room's
// current status, such as joining a room whose game already started.
type StateError struct {
	Op     string
	Status string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while room is %s", e.Op, e.Status)
}

// UpstreamError wraps a failed game-service call. The room has already
// been reverted to waiting by the time callers see it.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("game service: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
