package service

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/inventory/internal/core/domain"
)

type recordKey struct {
	skuID      int64
	locationID int64
}

// Mock InventoryRepository with version checks.
type mockInventoryRepo struct {
	mu      sync.Mutex
	records map[recordKey]domain.Inventory
	nextID  int64

	forUpdateErr   error
	forUpdateErrs  map[int64]error
	forUpdateCalls int
	// afterRead runs between a locked read and its write, outside the lock.
	afterRead func(inv domain.Inventory)
}

func newMockInventoryRepo() *mockInventoryRepo {
	return &mockInventoryRepo{records: make(map[recordKey]domain.Inventory)}
}

func (m *mockInventoryRepo) seed(skuID, locationID int64, available, onHand int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.records[recordKey{skuID, locationID}] = domain.Inventory{
		ID:                    m.nextID,
		SkuID:                 skuID,
		FulfillmentLocationID: locationID,
		QuantityAvailable:     available,
		QuantityOnHand:        onHand,
	}
}

func (m *mockInventoryRepo) get(skuID, locationID int64) (domain.Inventory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.records[recordKey{skuID, locationID}]
	return inv, ok
}

// bump simulates another writer committing a change.
func (m *mockInventoryRepo) bump(skuID, locationID int64, availableDelta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{skuID, locationID}
	inv := m.records[k]
	inv.QuantityAvailable += availableDelta
	inv.Version++
	m.records[k] = inv
}

func (m *mockInventoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockInventoryRepo) ReadInventoryForUpdate(ctx context.Context, skuID, locationID int64) (*domain.Inventory, error) {
	m.mu.Lock()
	m.forUpdateCalls++
	if m.forUpdateErr != nil {
		m.mu.Unlock()
		return nil, m.forUpdateErr
	}
	if err := m.forUpdateErrs[skuID]; err != nil {
		m.mu.Unlock()
		return nil, err
	}
	inv, ok := m.records[recordKey{skuID, locationID}]
	m.mu.Unlock()

	if !ok {
		return nil, nil
	}
	if m.afterRead != nil {
		m.afterRead(inv)
	}
	return &inv, nil
}

func (m *mockInventoryRepo) ReadInventory(ctx context.Context, skuID, locationID int64) (*domain.Inventory, error) {
	inv, ok := m.get(skuID, locationID)
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *mockInventoryRepo) ReadInventoryForFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Inventory
	for k, inv := range m.records {
		if k.locationID == locationID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockInventoryRepo) UpdateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{inv.SkuID, inv.FulfillmentLocationID}
	stored, ok := m.records[k]
	if !ok || stored.Version != inv.Version {
		return domain.Inventory{}, domain.ErrConcurrentModification
	}
	inv.Version++
	m.records[k] = inv
	return inv, nil
}

func (m *mockInventoryRepo) CreateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{inv.SkuID, inv.FulfillmentLocationID}
	if _, ok := m.records[k]; ok {
		return domain.Inventory{}, domain.ErrConcurrentModification
	}
	m.nextID++
	inv.ID = m.nextID
	inv.Version = 0
	m.records[k] = inv
	return inv, nil
}

// Mock CatalogRepository
type mockCatalog struct {
	defaultLocation *domain.FulfillmentLocation
	notAtLocation   []domain.Sku
}

func (m *mockCatalog) FindSkuByID(ctx context.Context, id int64) (*domain.Sku, error) {
	return nil, domain.ErrSkuNotFound
}

func (m *mockCatalog) FindOrderItemByID(ctx context.Context, id int64) (*domain.OrderItem, error) {
	return nil, domain.ErrOrderItemNotFound
}

func (m *mockCatalog) FindDefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error) {
	return m.defaultLocation, nil
}

func (m *mockCatalog) FindFulfillmentLocationByID(ctx context.Context, id int64) (*domain.FulfillmentLocation, error) {
	if m.defaultLocation != nil && m.defaultLocation.ID == id {
		return m.defaultLocation, nil
	}
	return nil, domain.ErrLocationNotFound
}

func (m *mockCatalog) FindSkusNotAtFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Sku, error) {
	return m.notAtLocation, nil
}
