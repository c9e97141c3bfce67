package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

var tracer = otel.Tracer("github.com/rl1809/inventory/workflow")

// InventoryService is the part of the accounting service the activities use.
type InventoryService interface {
	IsQuantityAvailable(ctx context.Context, sku domain.Sku, quantity int, location *domain.FulfillmentLocation) (bool, error)
	DecrementInventory(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error
	IncrementInventory(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error
	ReadInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation) (*domain.Inventory, error)
	DefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error)
}

// ItemRequest is an add-to-cart or update-cart request. Either SkuID or
// OrderItemID identifies the sku.
type ItemRequest struct {
	SkuID       int64 `json:"sku_id,omitempty"`
	OrderItemID int64 `json:"order_item_id,omitempty"`
	Quantity    int   `json:"quantity"`
}

// ProcessContext is passed through every activity of one pipeline run.
type ProcessContext struct {
	ID          string
	Order       *domain.Order
	ItemRequest *ItemRequest

	registry port.UndoRegistry
}

// RegisterRollback records state to be compensated if a later activity fails.
func (c *ProcessContext) RegisterRollback(ctx context.Context, state domain.RollbackState, compensator string) error {
	if c.registry == nil {
		return nil
	}
	return c.registry.Register(ctx, c.ID, state, compensator)
}

type Activity interface {
	Name() string
	Execute(ctx context.Context, pc *ProcessContext) error
}

// ActivityFunc adapts a function to an Activity.
type ActivityFunc struct {
	ActivityName string
	Fn           func(ctx context.Context, pc *ProcessContext) error
}

func (f ActivityFunc) Name() string { return f.ActivityName }

func (f ActivityFunc) Execute(ctx context.Context, pc *ProcessContext) error {
	return f.Fn(ctx, pc)
}

// Pipeline runs activities in order. When one fails, everything registered
// with the undo registry during the run is rolled back.
type Pipeline struct {
	activities []Activity
	registry   port.UndoRegistry
	logger     zerolog.Logger
}

func NewPipeline(registry port.UndoRegistry, logger zerolog.Logger, activities ...Activity) *Pipeline {
	return &Pipeline{
		activities: activities,
		registry:   registry,
		logger:     logger,
	}
}

func (p *Pipeline) Run(ctx context.Context, pc *ProcessContext) error {
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	pc.registry = p.registry

	for _, activity := range p.activities {
		if err := activity.Execute(ctx, pc); err != nil {
			p.logger.Warn().Err(err).Str("process_id", pc.ID).Str("activity", activity.Name()).Msg("activity failed, rolling back")
			if rbErr := p.registry.Rollback(ctx, pc.ID); rbErr != nil {
				p.logger.Error().Err(rbErr).Str("process_id", pc.ID).Msg("rollback failed")
			}
			return fmt.Errorf("%s: %w", activity.Name(), err)
		}
	}

	if err := p.registry.Release(ctx, pc.ID); err != nil {
		p.logger.Warn().Err(err).Str("process_id", pc.ID).Msg("failed to release rollback state")
	}
	return nil
}
