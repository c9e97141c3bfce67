package handler

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/workflow"
	"github.com/rl1809/inventory/internal/port"
)

// InventoryService is what the handlers need from the accounting service.
type InventoryService interface {
	ReadInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation) (*domain.Inventory, error)
	ReadInventoryForFulfillmentLocation(ctx context.Context, location domain.FulfillmentLocation) ([]domain.Inventory, error)
	ReadSkusNotAtFulfillmentLocation(ctx context.Context, location domain.FulfillmentLocation) ([]domain.Sku, error)
	AdjustInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation, delta domain.InventoryDelta) (domain.Inventory, error)
}

type Pipeline interface {
	Run(ctx context.Context, pc *workflow.ProcessContext) error
}

// Deps wires the handlers to the core.
type Deps struct {
	Catalog      port.CatalogRepository
	Inventory    InventoryService
	Availability Pipeline
	Checkout     Pipeline
	// AdjustMaxRetries bounds the calls made for one admin adjustment.
	AdjustMaxRetries int
}

type CheckAvailabilityRequest struct {
	SkuID       int64 `json:"sku_id,omitempty"`
	OrderItemID int64 `json:"order_item_id,omitempty"`
	Quantity    int   `json:"quantity"`
}

type CheckAvailabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type CheckoutItem struct {
	SkuID    int64                `json:"sku_id"`
	Type     domain.OrderItemType `json:"type,omitempty"`
	Quantity int                  `json:"quantity"`
}

type CheckoutRequest struct {
	OrderID int64          `json:"order_id"`
	Items   []CheckoutItem `json:"items"`
}

type CheckoutResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ProcessID string `json:"process_id,omitempty"`
}

type AdjustRequest struct {
	SkuID                   int64 `json:"sku_id"`
	FulfillmentLocationID   int64 `json:"fulfillment_location_id,omitempty"`
	QuantityAvailableChange int   `json:"quantity_available_change"`
	QuantityOnHandChange    int   `json:"quantity_on_hand_change"`
}

type InventoryResponse struct {
	ID                       int64  `json:"id"`
	SkuID                    int64  `json:"sku_id"`
	FulfillmentLocationID    int64  `json:"fulfillment_location_id"`
	QuantityAvailable        int    `json:"quantity_available"`
	QuantityOnHand           int    `json:"quantity_on_hand"`
	ExpectedAvailabilityDate string `json:"expected_availability_date,omitempty"`
	Version                  int64  `json:"version"`
}

func toInventoryResponse(inv domain.Inventory) InventoryResponse {
	resp := InventoryResponse{
		ID:                    inv.ID,
		SkuID:                 inv.SkuID,
		FulfillmentLocationID: inv.FulfillmentLocationID,
		QuantityAvailable:     inv.QuantityAvailable,
		QuantityOnHand:        inv.QuantityOnHand,
		Version:               inv.Version,
	}
	if inv.ExpectedAvailabilityDate != nil {
		resp.ExpectedAvailabilityDate = inv.ExpectedAvailabilityDate.Format("2006-01-02")
	}
	return resp
}

func checkAvailability(ctx context.Context, d Deps, req CheckAvailabilityRequest) error {
	if (req.SkuID == 0 && req.OrderItemID == 0) || req.Quantity <= 0 {
		return domain.InvalidArgumentf("sku_id or order_item_id and a positive quantity are required")
	}
	return d.Availability.Run(ctx, &workflow.ProcessContext{
		ItemRequest: &workflow.ItemRequest{
			SkuID:       req.SkuID,
			OrderItemID: req.OrderItemID,
			Quantity:    req.Quantity,
		},
	})
}

func checkout(ctx context.Context, d Deps, req CheckoutRequest) (string, error) {
	order, err := buildOrder(ctx, d.Catalog, req)
	if err != nil {
		return "", err
	}
	pc := &workflow.ProcessContext{Order: order}
	err = d.Checkout.Run(ctx, pc)
	return pc.ID, err
}

func buildOrder(ctx context.Context, catalog port.CatalogRepository, req CheckoutRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, domain.InvalidArgumentf("order has no items")
	}
	order := &domain.Order{ID: req.OrderID}
	for i, item := range req.Items {
		if item.SkuID == 0 || item.Quantity <= 0 {
			return nil, domain.InvalidArgumentf("item %d needs a sku_id and a positive quantity", i)
		}
		sku, err := catalog.FindSkuByID(ctx, item.SkuID)
		if err != nil {
			return nil, err
		}
		itemType := item.Type
		if itemType == "" {
			itemType = domain.OrderItemTypeDiscrete
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:       int64(i + 1),
			OrderID:  req.OrderID,
			Type:     itemType,
			Sku:      sku,
			Quantity: item.Quantity,
		})
	}
	return order, nil
}

func adjust(ctx context.Context, d Deps, req AdjustRequest) (domain.Inventory, error) {
	if req.SkuID == 0 {
		return domain.Inventory{}, domain.InvalidArgumentf("sku_id is required")
	}
	sku, err := d.Catalog.FindSkuByID(ctx, req.SkuID)
	if err != nil {
		return domain.Inventory{}, err
	}
	location, err := findLocation(ctx, d.Catalog, req.FulfillmentLocationID)
	if err != nil {
		return domain.Inventory{}, err
	}

	delta := domain.InventoryDelta{
		QuantityAvailableChange: req.QuantityAvailableChange,
		QuantityOnHandChange:    req.QuantityOnHandChange,
	}
	var result domain.Inventory
	err = workflow.RetryOnConflict(d.AdjustMaxRetries, nil, func(int) error {
		result, err = d.Inventory.AdjustInventory(ctx, *sku, location, delta)
		return err
	})
	return result, err
}

// findLocation returns nil for id 0, meaning the default location.
func findLocation(ctx context.Context, catalog port.CatalogRepository, id int64) (*domain.FulfillmentLocation, error) {
	if id == 0 {
		return nil, nil
	}
	return catalog.FindFulfillmentLocationByID(ctx, id)
}

type errorMapping struct {
	status  int
	code    codes.Code
	message string
}

// mapError translates core errors for both transports. message is empty
// when the error text itself is safe to return.
func mapError(err error) errorMapping {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return errorMapping{http.StatusBadRequest, codes.InvalidArgument, ""}
	case errors.Is(err, domain.ErrSkuNotFound),
		errors.Is(err, domain.ErrOrderItemNotFound),
		errors.Is(err, domain.ErrLocationNotFound):
		return errorMapping{http.StatusNotFound, codes.NotFound, ""}
	case errors.Is(err, domain.ErrInventoryUnavailable):
		return errorMapping{http.StatusConflict, codes.FailedPrecondition, "not enough stock"}
	case errors.Is(err, domain.ErrConcurrentModification):
		return errorMapping{http.StatusServiceUnavailable, codes.Unavailable, "too many concurrent updates, please retry"}
	case errors.Is(err, domain.ErrIllegalState):
		return errorMapping{http.StatusUnprocessableEntity, codes.FailedPrecondition, ""}
	default:
		return errorMapping{http.StatusInternalServerError, codes.Internal, "internal error"}
	}
}

func (m errorMapping) text(err error) string {
	if m.message != "" {
		return m.message
	}
	return err.Error()
}
