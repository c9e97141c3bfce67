package port

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
)

type CatalogRepository interface {
	// FindSkuByID returns domain.ErrSkuNotFound when missing.
	FindSkuByID(ctx context.Context, id int64) (*domain.Sku, error)

	// FindOrderItemByID returns domain.ErrOrderItemNotFound when missing.
	FindOrderItemByID(ctx context.Context, id int64) (*domain.OrderItem, error)

	// FindDefaultFulfillmentLocation returns nil when no location is flagged
	// as default.
	FindDefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error)

	FindFulfillmentLocationByID(ctx context.Context, id int64) (*domain.FulfillmentLocation, error)

	// FindSkusNotAtFulfillmentLocation lists skus without an inventory record
	// at the location.
	FindSkusNotAtFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Sku, error)
}
