package taskqueue

import (
	"context"
	"time"
)

// Handle identifies one outstanding delayed execution.
type Handle string

// Task is the stored unit of work: a registered function name, its string
// arguments and the earliest instant it should run.
type Task struct {
	Handle Handle    `json:"handle"`
	Name   string    `json:"name"`
	Args   []string  `json:"args"`
	ETA    time.Time `json:"eta"`
}

// HandlerFunc executes one task. Execution is at-least-once and may happen
// after the eta has passed when the queue was delayed; handlers must
// tolerate late invocation.
type HandlerFunc func(ctx context.Context, args []string) error

// Queue is the delayed-execution contract consumed by the scheduler.
//
// Cancel of an unknown or already-executed handle is a no-op, not an error:
// handles race with natural firing by design.
type Queue interface {
	Submit(ctx context.Context, name string, args []string, eta time.Time) (Handle, error)
	Cancel(ctx context.Context, handle Handle) error
}
