package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/core/domain"
)

func newCheckout(inv *fakeInventory, extra ...Activity) (*Pipeline, *storage.MemoryUndoRegistry) {
	registry := storage.NewMemoryUndoRegistry(NewInventoryRollbackHandler(inv))
	activities := append([]Activity{NewDecrementInventoryActivity(inv)}, extra...)
	return NewPipeline(registry, zerolog.Nop(), activities...), registry
}

func TestPipeline_SuccessReleasesState(t *testing.T) {
	inv := newFakeInventory(map[int64]int{1: 10})
	pipeline, registry := newCheckout(inv)

	pc := &ProcessContext{Order: orderOf(100, domain.SkuQuantity{Sku: sku(1), Quantity: 3})}
	if err := pipeline.Run(context.Background(), pc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pc.ID == "" {
		t.Error("expected process id to be assigned")
	}
	if inv.level(1) != 7 {
		t.Errorf("expected 7, got %d", inv.level(1))
	}
	if registry.Pending(pc.ID) != 0 {
		t.Error("expected rollback state released")
	}
}

func TestPipeline_LaterFailureRollsBackDecrement(t *testing.T) {
	inv := newFakeInventory(map[int64]int{1: 10, 2: 5})
	payment := ActivityFunc{ActivityName: "payment", Fn: func(ctx context.Context, pc *ProcessContext) error {
		return errors.New("card declined")
	}}
	pipeline, registry := newCheckout(inv, payment)

	pc := &ProcessContext{ID: "p-1", Order: orderOf(100,
		domain.SkuQuantity{Sku: sku(1), Quantity: 3},
		domain.SkuQuantity{Sku: sku(2), Quantity: 2},
	)}
	err := pipeline.Run(context.Background(), pc)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "payment: ") {
		t.Errorf("expected error prefixed with activity name, got %q", err)
	}

	if inv.level(1) != 10 || inv.level(2) != 5 {
		t.Errorf("expected stock restored, got %d and %d", inv.level(1), inv.level(2))
	}
	if registry.Pending("p-1") != 0 {
		t.Error("expected state consumed by rollback")
	}
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	ran := false
	first := ActivityFunc{ActivityName: "first", Fn: func(ctx context.Context, pc *ProcessContext) error {
		return domain.InvalidArgumentf("bad")
	}}
	second := ActivityFunc{ActivityName: "second", Fn: func(ctx context.Context, pc *ProcessContext) error {
		ran = true
		return nil
	}}

	pipeline := NewPipeline(storage.NewMemoryUndoRegistry(), zerolog.Nop(), first, second)
	err := pipeline.Run(context.Background(), &ProcessContext{})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if ran {
		t.Error("second activity must not run")
	}
}

func TestPipeline_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	inv := newFakeInventory(map[int64]int{1: 10})
	pipeline, _ := newCheckout(inv)

	results := make(chan error, 25)
	for i := 0; i < 25; i++ {
		go func(i int) {
			pc := &ProcessContext{Order: orderOf(int64(i+1), domain.SkuQuantity{Sku: sku(1), Quantity: 1})}
			results <- pipeline.Run(context.Background(), pc)
		}(i)
	}

	succeeded := 0
	for i := 0; i < 25; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, domain.ErrInventoryUnavailable):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 10 {
		t.Errorf("expected 10 checkouts, got %d", succeeded)
	}
	if inv.level(1) != 0 {
		t.Errorf("expected 0 left, got %d", inv.level(1))
	}
}
