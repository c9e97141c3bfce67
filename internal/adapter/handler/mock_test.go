package handler

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/workflow"
)

type mockCatalog struct {
	skus      map[int64]*domain.Sku
	locations map[int64]*domain.FulfillmentLocation
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		skus: map[int64]*domain.Sku{
			1: {ID: 1, Active: true, InventoryType: domain.InventoryTypeBasic},
		},
		locations: map[int64]*domain.FulfillmentLocation{
			3: {ID: 3, Name: "warehouse"},
		},
	}
}

func (m *mockCatalog) FindSkuByID(ctx context.Context, id int64) (*domain.Sku, error) {
	if s, ok := m.skus[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSkuNotFound
}

func (m *mockCatalog) FindOrderItemByID(ctx context.Context, id int64) (*domain.OrderItem, error) {
	return nil, domain.ErrOrderItemNotFound
}

func (m *mockCatalog) FindDefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error) {
	return nil, nil
}

func (m *mockCatalog) FindFulfillmentLocationByID(ctx context.Context, id int64) (*domain.FulfillmentLocation, error) {
	if l, ok := m.locations[id]; ok {
		return l, nil
	}
	return nil, domain.ErrLocationNotFound
}

func (m *mockCatalog) FindSkusNotAtFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Sku, error) {
	return nil, nil
}

type mockInventory struct {
	record       *domain.Inventory
	records      []domain.Inventory
	missing      []domain.Sku
	adjustErrs   []error
	adjustCalls  int
	lastLocation *domain.FulfillmentLocation
}

func (m *mockInventory) ReadInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation) (*domain.Inventory, error) {
	m.lastLocation = location
	return m.record, nil
}

func (m *mockInventory) ReadInventoryForFulfillmentLocation(ctx context.Context, location domain.FulfillmentLocation) ([]domain.Inventory, error) {
	return m.records, nil
}

func (m *mockInventory) ReadSkusNotAtFulfillmentLocation(ctx context.Context, location domain.FulfillmentLocation) ([]domain.Sku, error) {
	return m.missing, nil
}

func (m *mockInventory) AdjustInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation, delta domain.InventoryDelta) (domain.Inventory, error) {
	m.adjustCalls++
	m.lastLocation = location
	if len(m.adjustErrs) > 0 {
		err := m.adjustErrs[0]
		m.adjustErrs = m.adjustErrs[1:]
		if err != nil {
			return domain.Inventory{}, err
		}
	}
	return domain.Inventory{
		ID:                1,
		SkuID:             sku.ID,
		QuantityAvailable: delta.QuantityAvailableChange,
		QuantityOnHand:    delta.QuantityOnHandChange,
		Version:           int64(m.adjustCalls),
	}, nil
}

// pipelineFunc lets a test script what a pipeline run does.
type pipelineFunc func(ctx context.Context, pc *workflow.ProcessContext) error

func (f pipelineFunc) Run(ctx context.Context, pc *workflow.ProcessContext) error {
	if pc.ID == "" {
		pc.ID = "process-1"
	}
	return f(ctx, pc)
}

func okPipeline() pipelineFunc {
	return func(ctx context.Context, pc *workflow.ProcessContext) error { return nil }
}

func newDeps(availability, checkout pipelineFunc) (Deps, *mockInventory) {
	inv := &mockInventory{}
	return Deps{
		Catalog:          newMockCatalog(),
		Inventory:        inv,
		Availability:     availability,
		Checkout:         checkout,
		AdjustMaxRetries: 3,
	}, inv
}
