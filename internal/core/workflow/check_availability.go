package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/metrics"
	"github.com/rl1809/inventory/internal/port"
)

// CheckAvailabilityActivity blocks an add-to-cart or update-cart request
// when the default fulfillment location cannot cover it. Nothing is
// decremented here; that happens at checkout.
type CheckAvailabilityActivity struct {
	catalog   port.CatalogRepository
	inventory InventoryService
	metrics   *metrics.Inventory
}

func NewCheckAvailabilityActivity(catalog port.CatalogRepository, inventory InventoryService, m *metrics.Inventory) *CheckAvailabilityActivity {
	return &CheckAvailabilityActivity{catalog: catalog, inventory: inventory, metrics: m}
}

func (a *CheckAvailabilityActivity) Name() string { return "check_availability" }

func (a *CheckAvailabilityActivity) Execute(ctx context.Context, pc *ProcessContext) error {
	ctx, span := tracer.Start(ctx, "workflow.CheckAvailability")
	defer span.End()

	req := pc.ItemRequest
	if req == nil {
		return domain.InvalidArgumentf("availability check requires an item request")
	}

	sku, err := a.resolveSku(ctx, req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int64("sku.id", sku.ID), attribute.Int("item.quantity", req.Quantity))

	ok, err := a.inventory.IsQuantityAvailable(ctx, *sku, req.Quantity, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		a.metrics.Unavailable("availability")
		span.SetStatus(codes.Error, "inventory unavailable")
		available := 0
		if inv, err := a.inventory.ReadInventory(ctx, *sku, nil); err == nil && inv != nil {
			available = inv.QuantityAvailable
		}
		return &domain.InventoryUnavailableError{
			Message:   fmt.Sprintf("sku with id of %d does not have %d items in available inventory", sku.ID, req.Quantity),
			Available: map[int64]int{sku.ID: available},
		}
	}
	return nil
}

// resolveSku prefers the explicit sku id and otherwise takes the sku of a
// discrete order item, writing its id back onto the request.
func (a *CheckAvailabilityActivity) resolveSku(ctx context.Context, req *ItemRequest) (*domain.Sku, error) {
	if req.SkuID != 0 {
		return a.catalog.FindSkuByID(ctx, req.SkuID)
	}

	item, err := a.catalog.FindOrderItemByID(ctx, req.OrderItemID)
	if err != nil {
		return nil, err
	}
	if item.Type != domain.OrderItemTypeDiscrete || item.Sku == nil {
		return nil, fmt.Errorf("order item %d: %w", item.ID, domain.ErrSkuNotFound)
	}
	req.SkuID = item.Sku.ID
	return item.Sku, nil
}
