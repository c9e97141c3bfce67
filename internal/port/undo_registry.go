package port

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
)

// Compensator undoes a previously committed side effect.
type Compensator interface {
	Name() string
	Compensate(ctx context.Context, state domain.RollbackState) error
}

// UndoRegistry keeps compensation state for a running process. Rollback
// invokes each registration at most once, newest first.
type UndoRegistry interface {
	Register(ctx context.Context, processID string, state domain.RollbackState, compensator string) error
	Rollback(ctx context.Context, processID string) error
	Release(ctx context.Context, processID string) error
}
