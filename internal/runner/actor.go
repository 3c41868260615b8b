package runner

import (
	"context"
	"time"
)

// Invocation is one request to the actor.
type Invocation struct {
	TaskID  string
	Prompt  string
	Model   string // Actor model name resolved from the tier
	WorkDir string
}

// Outcome is what the runner keeps from an actor invocation. The actor's
// free-text answer is not interpreted; its effect is read back from the
// execution record.
type Outcome struct {
	SessionID string
	Output    string
	Duration  time.Duration
}

// Actor executes a task directive. A returned error means the invocation
// itself failed (non-zero exit, timeout, reported error).
type Actor interface {
	Invoke(ctx context.Context, inv Invocation) (*Outcome, error)
}

// ActorFunc adapts a function to Actor.
type ActorFunc func(ctx context.Context, inv Invocation) (*Outcome, error)

// Invoke calls f.
func (f ActorFunc) Invoke(ctx context.Context, inv Invocation) (*Outcome, error) {
	return f(ctx, inv)
}
