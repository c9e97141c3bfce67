package workflow

import (
	"context"
	"sync"

	"github.com/rl1809/inventory/internal/core/domain"
)

// fakeInventory applies decrements and increments to an in-memory stock
// map. conflicts makes a sku report a lost version race that many times
// before it is applied. failFor stops the batch at a sku with that error.
type fakeInventory struct {
	mu        sync.Mutex
	stock     map[int64]int
	location  *domain.FulfillmentLocation
	conflicts map[int64]int
	failWith  error
	failFor   map[int64]error

	decrementCalls []domain.SkuQuantities
	incrementCalls []domain.SkuQuantities
}

func newFakeInventory(stock map[int64]int) *fakeInventory {
	return &fakeInventory{
		stock:     stock,
		location:  &domain.FulfillmentLocation{ID: 1, DefaultLocation: true},
		conflicts: map[int64]int{},
		failFor:   map[int64]error{},
	}
}

func (f *fakeInventory) IsQuantityAvailable(ctx context.Context, sku domain.Sku, quantity int, location *domain.FulfillmentLocation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[sku.ID] >= quantity, nil
}

func (f *fakeInventory) DecrementInventory(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrementCalls = append(f.decrementCalls, skus)
	return f.apply(skus, -1)
}

func (f *fakeInventory) IncrementInventory(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrementCalls = append(f.incrementCalls, skus)
	return f.apply(skus, 1)
}

func (f *fakeInventory) ReadInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation) (*domain.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qty, ok := f.stock[sku.ID]
	if !ok {
		return nil, nil
	}
	return &domain.Inventory{SkuID: sku.ID, FulfillmentLocationID: f.location.ID, QuantityAvailable: qty, QuantityOnHand: qty}, nil
}

func (f *fakeInventory) DefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error) {
	return f.location, nil
}

func (f *fakeInventory) apply(skus domain.SkuQuantities, sign int) error {
	if f.failWith != nil {
		return f.failWith
	}
	var applied domain.SkuQuantities
	var conflicted []int64
	unavailable := map[int64]int{}
	for _, e := range skus {
		if err := f.failFor[e.Sku.ID]; err != nil {
			return &domain.BatchError{Err: err, Applied: applied}
		}
		if f.conflicts[e.Sku.ID] > 0 {
			f.conflicts[e.Sku.ID]--
			conflicted = append(conflicted, e.Sku.ID)
			continue
		}
		if sign < 0 && f.stock[e.Sku.ID] < e.Quantity {
			unavailable[e.Sku.ID] = f.stock[e.Sku.ID]
			continue
		}
		f.stock[e.Sku.ID] += sign * e.Quantity
		applied.Add(e.Sku, e.Quantity)
	}
	if len(unavailable) > 0 {
		return &domain.InventoryUnavailableError{Available: unavailable, Applied: applied}
	}
	if len(conflicted) > 0 {
		return &domain.ConcurrentModificationError{SkuIDs: conflicted, Applied: applied}
	}
	return nil
}

func (f *fakeInventory) level(skuID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[skuID]
}

type mockCatalog struct {
	skus  map[int64]*domain.Sku
	items map[int64]*domain.OrderItem
}

func (m *mockCatalog) FindSkuByID(ctx context.Context, id int64) (*domain.Sku, error) {
	if s, ok := m.skus[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSkuNotFound
}

func (m *mockCatalog) FindOrderItemByID(ctx context.Context, id int64) (*domain.OrderItem, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, domain.ErrOrderItemNotFound
}

func (m *mockCatalog) FindDefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error) {
	return &domain.FulfillmentLocation{ID: 1, DefaultLocation: true}, nil
}

func (m *mockCatalog) FindFulfillmentLocationByID(ctx context.Context, id int64) (*domain.FulfillmentLocation, error) {
	return &domain.FulfillmentLocation{ID: id}, nil
}

func (m *mockCatalog) FindSkusNotAtFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Sku, error) {
	return nil, nil
}

type mockAlerter struct {
	mu     sync.Mutex
	states []domain.RollbackState
	causes []error
}

func (m *mockAlerter) CompensationFailed(ctx context.Context, state domain.RollbackState, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	m.causes = append(m.causes, cause)
	return nil
}

func sku(id int64) domain.Sku {
	return domain.Sku{ID: id, InventoryType: domain.InventoryTypeBasic}
}

func orderOf(id int64, lines ...domain.SkuQuantity) *domain.Order {
	o := &domain.Order{ID: id}
	for i, l := range lines {
		s := l.Sku
		o.Items = append(o.Items, domain.OrderItem{
			ID:       int64(i + 1),
			OrderID:  id,
			Type:     domain.OrderItemTypeDiscrete,
			Sku:      &s,
			Quantity: l.Quantity,
		})
	}
	return o
}
