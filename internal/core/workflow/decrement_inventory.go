package workflow

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/metrics"
)

// DecrementInventoryActivity decrements available inventory at the default
// fulfillment location for every sku of the order.
type DecrementInventoryActivity struct {
	inventory       InventoryService
	maxRetries      int
	rollbackHandler string
	logger          zerolog.Logger
	metrics         *metrics.Inventory
}

type DecrementOption func(*DecrementInventoryActivity)

// WithDecrementMaxRetries overrides how many decrement calls are made before
// a concurrent modification is returned.
func WithDecrementMaxRetries(n int) DecrementOption {
	return func(a *DecrementInventoryActivity) {
		if n > 0 {
			a.maxRetries = n
		}
	}
}

// WithRollbackHandler names the compensator registered for the decrement.
// An empty name disables registration.
func WithRollbackHandler(name string) DecrementOption {
	return func(a *DecrementInventoryActivity) {
		a.rollbackHandler = name
	}
}

func WithDecrementLogger(logger zerolog.Logger) DecrementOption {
	return func(a *DecrementInventoryActivity) {
		a.logger = logger
	}
}

func WithDecrementMetrics(m *metrics.Inventory) DecrementOption {
	return func(a *DecrementInventoryActivity) {
		a.metrics = m
	}
}

func NewDecrementInventoryActivity(inventory InventoryService, opts ...DecrementOption) *DecrementInventoryActivity {
	a := &DecrementInventoryActivity{
		inventory:       inventory,
		maxRetries:      DefaultMaxRetries,
		rollbackHandler: InventoryRollbackHandlerName,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *DecrementInventoryActivity) Name() string { return "decrement_inventory" }

func (a *DecrementInventoryActivity) Execute(ctx context.Context, pc *ProcessContext) error {
	ctx, span := tracer.Start(ctx, "workflow.DecrementInventory")
	defer span.End()

	if pc.Order == nil {
		return domain.InvalidArgumentf("checkout requires an order")
	}
	span.SetAttributes(attribute.Int64("order.id", pc.Order.ID))

	location, err := a.inventory.DefaultFulfillmentLocation(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	applied, err := a.decrement(ctx, pc.Order.SkuQuantities(), location)

	// Whatever was committed is registered even when the batch failed, so a
	// pipeline rollback puts it back.
	if len(applied) > 0 && a.rollbackHandler != "" {
		state := domain.RollbackState{
			OrderID:             pc.Order.ID,
			FulfillmentLocation: location,
			Decremented:         applied,
		}
		if regErr := pc.RegisterRollback(ctx, state, a.rollbackHandler); regErr != nil {
			a.logger.Error().Err(regErr).Int64("order_id", pc.Order.ID).Msg("failed to register inventory rollback")
			err = errors.Join(err, regErr)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inventory decrement failed")
		return err
	}
	span.AddEvent("inventory decremented")
	return nil
}

// decrement retries the part of the batch not yet applied on every
// concurrent modification, up to maxRetries calls in total.
func (a *DecrementInventoryActivity) decrement(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) (domain.SkuQuantities, error) {
	var applied domain.SkuQuantities
	remaining := skus

	onRetry := func(attempt int, err error) {
		a.metrics.Retry("checkout")
		a.logger.Debug().Err(err).Int("attempt", attempt).Msg("retrying inventory decrement")
	}
	err := RetryOnConflict(a.maxRetries, onRetry, func(int) error {
		err := a.inventory.DecrementInventory(ctx, remaining, location)
		if err == nil {
			applied.Merge(remaining)
			return nil
		}
		done := domain.AppliedOf(err)
		applied.Merge(done)
		remaining = remaining.Without(done)
		return err
	})
	return applied, err
}
