package hive

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned when no task has the requested ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNodeNotFound is returned when no node has the requested ID.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotPending is returned when cancelling a task that already left
	// the pending queue.
	ErrNotPending = errors.New("task is not pending")

	// ErrStopped is returned by operations issued after Run has returned.
	ErrStopped = errors.New("coordinator stopped")
)

// InvariantCode identifies a violated scheduler invariant.
type InvariantCode string

const (
	InvariantIllegalTransition InvariantCode = "ILLEGAL_TRANSITION"
	InvariantUnknownTask       InvariantCode = "UNKNOWN_TASK"
	InvariantNodeOccupied      InvariantCode = "NODE_OCCUPIED"
	InvariantPoolOverflow      InvariantCode = "POOL_OVERFLOW"
)

// InvariantError is the panic value for scheduler bugs. It is never
// returned as an ordinary error.
type InvariantError struct {
	Code    InvariantCode
	Message string
	TaskID  string
	NodeID  string
}

func (e *InvariantError) Error() string {
	switch {
	case e.TaskID != "" && e.NodeID != "":
		return fmt.Sprintf("%s: %s (task=%s, node=%s)", e.Code, e.Message, e.TaskID, e.NodeID)
	case e.TaskID != "":
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.TaskID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// ValidationError reports a malformed submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
