package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

// MemoryUndoRegistry keeps rollback state in process memory.
type MemoryUndoRegistry struct {
	mu           sync.Mutex
	entries      map[string][]undoRecord
	compensators map[string]port.Compensator
}

func NewMemoryUndoRegistry(compensators ...port.Compensator) *MemoryUndoRegistry {
	m := &MemoryUndoRegistry{
		entries:      make(map[string][]undoRecord),
		compensators: make(map[string]port.Compensator),
	}
	for _, c := range compensators {
		m.compensators[c.Name()] = c
	}
	return m
}

func (m *MemoryUndoRegistry) Register(ctx context.Context, processID string, state domain.RollbackState, compensator string) error {
	if _, ok := m.compensators[compensator]; !ok {
		return fmt.Errorf("unknown compensator %q", compensator)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[processID] = append(m.entries[processID], undoRecord{Compensator: compensator, State: state})
	return nil
}

func (m *MemoryUndoRegistry) Rollback(ctx context.Context, processID string) error {
	m.mu.Lock()
	records := m.entries[processID]
	delete(m.entries, processID)
	m.mu.Unlock()

	var errs []error
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		compensator, ok := m.compensators[rec.Compensator]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown compensator %q", rec.Compensator))
			continue
		}
		if err := compensator.Compensate(ctx, rec.State); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func (m *MemoryUndoRegistry) Release(ctx context.Context, processID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, processID)
	return nil
}

// Pending reports how many registrations a process still holds.
func (m *MemoryUndoRegistry) Pending(processID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[processID])
}
