package workflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/metrics"
	"github.com/rl1809/inventory/internal/port"
)

const InventoryRollbackHandlerName = "inventory"

// InventoryRollbackHandler reverses inventory changes recorded by earlier
// activities. It never fails the rollback path: anything it cannot undo is
// logged and reported for manual correction.
type InventoryRollbackHandler struct {
	inventory  InventoryService
	maxRetries int
	logger     zerolog.Logger
	alerter    port.CompensationAlerter
	metrics    *metrics.Inventory
}

type RollbackOption func(*InventoryRollbackHandler)

func WithRollbackMaxRetries(n int) RollbackOption {
	return func(h *InventoryRollbackHandler) {
		if n > 0 {
			h.maxRetries = n
		}
	}
}

func WithRollbackLogger(logger zerolog.Logger) RollbackOption {
	return func(h *InventoryRollbackHandler) {
		h.logger = logger
	}
}

func WithAlerter(alerter port.CompensationAlerter) RollbackOption {
	return func(h *InventoryRollbackHandler) {
		h.alerter = alerter
	}
}

func WithRollbackMetrics(m *metrics.Inventory) RollbackOption {
	return func(h *InventoryRollbackHandler) {
		h.metrics = m
	}
}

func NewInventoryRollbackHandler(inventory InventoryService, opts ...RollbackOption) *InventoryRollbackHandler {
	h := &InventoryRollbackHandler{
		inventory:  inventory,
		maxRetries: DefaultMaxRetries,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *InventoryRollbackHandler) Name() string { return InventoryRollbackHandlerName }

func (h *InventoryRollbackHandler) Compensate(ctx context.Context, state domain.RollbackState) error {
	if state.Empty() {
		return nil
	}
	ctx, span := tracer.Start(ctx, "workflow.compensation.Inventory")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", state.OrderID))

	if len(state.Decremented) > 0 {
		h.undo(ctx, state, state.Decremented, h.inventory.IncrementInventory, "decremented")
	}
	if len(state.Incremented) > 0 {
		h.undo(ctx, state, state.Incremented, h.inventory.DecrementInventory, "incremented")
	}
	return nil
}

type inventoryMutation func(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error

func (h *InventoryRollbackHandler) undo(ctx context.Context, state domain.RollbackState, skus domain.SkuQuantities, apply inventoryMutation, change string) {
	remaining := skus
	onRetry := func(int, error) { h.metrics.Retry("rollback") }

	err := RetryOnConflict(h.maxRetries, onRetry, func(int) error {
		err := apply(ctx, remaining, state.FulfillmentLocation)
		remaining = remaining.Without(domain.AppliedOf(err))
		return err
	})

	log := h.logger.With().Str("order_id", orderLabel(state.OrderID)).Str("change", change).Logger()
	switch {
	case err == nil:
		log.Info().Msg("inventory compensated")
		return
	case errors.Is(err, domain.ErrConcurrentModification):
		log.Error().Err(err).Int("attempts", h.maxRetries).
			Msg("inventory was changed during checkout and could not be compensated, correct it manually")
	case errors.Is(err, domain.ErrInventoryUnavailable):
		log.Error().Err(err).Msg("inventory to roll back was already gone")
	default:
		log.Error().Err(err).Msg("unexpected error while compensating inventory, correct it manually")
	}

	h.metrics.CompensationFailed()
	if h.alerter == nil {
		return
	}
	failed := state
	failed.Decremented, failed.Incremented = nil, nil
	if change == "decremented" {
		failed.Decremented = remaining
	} else {
		failed.Incremented = remaining
	}
	if alertErr := h.alerter.CompensationFailed(ctx, failed, err); alertErr != nil {
		log.Error().Err(alertErr).Msg("failed to publish compensation alert")
	}
}

func orderLabel(orderID int64) string {
	if orderID == 0 {
		return "(not known)"
	}
	return strconv.FormatInt(orderID, 10)
}
