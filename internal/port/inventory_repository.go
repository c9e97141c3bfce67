package port

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
)

type InventoryRepository interface {
	// WithTx runs fn in a transaction carried by the context passed to fn.
	// Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// ReadInventoryForUpdate locks the row until the enclosing transaction
	// ends. Returns nil when no record exists.
	ReadInventoryForUpdate(ctx context.Context, skuID, locationID int64) (*domain.Inventory, error)

	// ReadInventory is a plain read. Returns nil when no record exists.
	ReadInventory(ctx context.Context, skuID, locationID int64) (*domain.Inventory, error)

	ReadInventoryForFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Inventory, error)

	// UpdateInventory writes inv if the stored version still equals
	// inv.Version and returns the record with its new version. A stale
	// version yields domain.ErrConcurrentModification.
	UpdateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error)

	// CreateInventory inserts a new record. A duplicate (sku, location)
	// yields domain.ErrConcurrentModification.
	CreateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error)
}
