package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/metrics"
	"github.com/rl1809/inventory/internal/port"
)

var errInsufficientStock = errors.New("insufficient stock")

type InventoryService struct {
	repo    port.InventoryRepository
	catalog port.CatalogRepository
	logger  zerolog.Logger
	metrics *metrics.Inventory
}

type Option func(*InventoryService)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *InventoryService) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Inventory) Option {
	return func(s *InventoryService) {
		s.metrics = m
	}
}

func NewInventoryService(repo port.InventoryRepository, catalog port.CatalogRepository, opts ...Option) *InventoryService {
	s := &InventoryService{
		repo:    repo,
		catalog: catalog,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsEligibleForInventoryCheck reports whether the sku's stock is tracked.
func (s *InventoryService) IsEligibleForInventoryCheck(sku domain.Sku) bool {
	return sku.ResolvedInventoryType() == domain.InventoryTypeBasic
}

// IsQuantityAvailable reports whether quantity units can be promised at the
// location, or at the default location when location is nil.
func (s *InventoryService) IsQuantityAvailable(ctx context.Context, sku domain.Sku, quantity int, location *domain.FulfillmentLocation) (bool, error) {
	if !sku.Active {
		return false, nil
	}
	if !s.IsEligibleForInventoryCheck(sku) {
		return true, nil
	}
	if quantity < 0 {
		return false, domain.InvalidArgumentf("quantity must be a positive integer, got %d", quantity)
	}

	loc, err := s.resolveLocation(ctx, location)
	if err != nil {
		return false, err
	}
	if loc == nil {
		return false, nil
	}

	inv, err := s.repo.ReadInventory(ctx, sku.ID, loc.ID)
	if err != nil {
		return false, fmt.Errorf("read inventory for sku %d: %w", sku.ID, err)
	}
	return inv != nil && inv.QuantityAvailable >= quantity, nil
}

func (s *InventoryService) DecrementInventory(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error {
	return s.decrement(ctx, skus, location, quantityAvailable)
}

func (s *InventoryService) DecrementInventoryOnHand(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error {
	return s.decrement(ctx, skus, location, quantityOnHand)
}

func (s *InventoryService) IncrementInventory(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error {
	return s.increment(ctx, skus, location, quantityAvailable)
}

func (s *InventoryService) IncrementInventoryOnHand(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation) error {
	return s.increment(ctx, skus, location, quantityOnHand)
}

// decrement commits each sku in its own transaction. Skus that succeed stay
// committed even when others in the batch are short or conflict; the
// returned error lists what was applied.
func (s *InventoryService) decrement(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation, field quantityField) error {
	if err := s.validate(skus); err != nil {
		return err
	}
	loc, err := s.resolveLocation(ctx, location)
	if err != nil {
		return err
	}

	var applied domain.SkuQuantities
	var conflicted []int64
	unavailable := make(map[int64]int)

	for _, e := range skus {
		if !s.IsEligibleForInventoryCheck(e.Sku) || e.Quantity == 0 {
			continue
		}
		if loc == nil {
			unavailable[e.Sku.ID] = 0
			continue
		}

		current, err := s.decrementOne(ctx, e, loc.ID, field)
		switch {
		case err == nil:
			applied.Add(e.Sku, e.Quantity)
		case errors.Is(err, errInsufficientStock):
			unavailable[e.Sku.ID] = current
		case errors.Is(err, domain.ErrConcurrentModification):
			s.metrics.Conflict(field.operation("decrement"))
			s.logger.Debug().Int64("sku_id", e.Sku.ID).Int64("location_id", loc.ID).Msg("inventory changed concurrently")
			conflicted = append(conflicted, e.Sku.ID)
		default:
			return &domain.BatchError{Err: fmt.Errorf("decrement sku %d: %w", e.Sku.ID, err), Applied: applied}
		}
	}

	if len(unavailable) > 0 {
		s.metrics.Unavailable(field.operation("decrement"))
		return &domain.InventoryUnavailableError{
			Message:   fmt.Sprintf("inventory is unavailable for %d skus", len(unavailable)),
			Available: unavailable,
			Applied:   applied,
		}
	}
	if len(conflicted) > 0 {
		return &domain.ConcurrentModificationError{SkuIDs: conflicted, Applied: applied}
	}
	return nil
}

func (s *InventoryService) decrementOne(ctx context.Context, e domain.SkuQuantity, locationID int64, field quantityField) (int, error) {
	var current int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.repo.ReadInventoryForUpdate(txCtx, e.Sku.ID, locationID)
		if err != nil {
			return err
		}
		if inv == nil {
			return errInsufficientStock
		}
		current = field.get(*inv)
		if current-e.Quantity < 0 {
			return errInsufficientStock
		}
		field.set(inv, current-e.Quantity)
		_, err = s.repo.UpdateInventory(txCtx, *inv)
		return err
	})
	return current, err
}

func (s *InventoryService) increment(ctx context.Context, skus domain.SkuQuantities, location *domain.FulfillmentLocation, field quantityField) error {
	if err := s.validate(skus); err != nil {
		return err
	}
	loc, err := s.resolveLocation(ctx, location)
	if err != nil {
		return err
	}
	explicit := location != nil

	var applied domain.SkuQuantities
	var conflicted []int64

	for _, e := range skus {
		if !s.IsEligibleForInventoryCheck(e.Sku) || e.Quantity == 0 {
			continue
		}
		if loc == nil {
			return &domain.IllegalStateError{Message: fmt.Sprintf("no default fulfillment location to increment sku %d", e.Sku.ID)}
		}

		err := s.incrementOne(ctx, e, loc.ID, explicit, field)
		switch {
		case err == nil:
			applied.Add(e.Sku, e.Quantity)
		case errors.Is(err, domain.ErrConcurrentModification):
			s.metrics.Conflict(field.operation("increment"))
			conflicted = append(conflicted, e.Sku.ID)
		case errors.Is(err, domain.ErrIllegalState):
			return &domain.BatchError{Err: err, Applied: applied}
		default:
			return &domain.BatchError{Err: fmt.Errorf("increment sku %d: %w", e.Sku.ID, err), Applied: applied}
		}
	}

	if len(conflicted) > 0 {
		return &domain.ConcurrentModificationError{SkuIDs: conflicted, Applied: applied}
	}
	return nil
}

func (s *InventoryService) incrementOne(ctx context.Context, e domain.SkuQuantity, locationID int64, explicit bool, field quantityField) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.repo.ReadInventoryForUpdate(txCtx, e.Sku.ID, locationID)
		if err != nil {
			return err
		}
		if inv != nil {
			field.set(inv, field.get(*inv)+e.Quantity)
			_, err = s.repo.UpdateInventory(txCtx, *inv)
			return err
		}
		if !explicit {
			return &domain.IllegalStateError{Message: fmt.Sprintf(
				"increment for the default fulfillment location found no inventory for sku %d", e.Sku.ID)}
		}
		_, err = s.repo.CreateInventory(txCtx, domain.Inventory{
			SkuID:                 e.Sku.ID,
			FulfillmentLocationID: locationID,
			QuantityAvailable:     e.Quantity,
			QuantityOnHand:        e.Quantity,
		})
		return err
	})
}

// AdjustInventory applies a manual edit to both quantities in one
// transaction. A stale read surfaces as domain.ErrConcurrentModification and
// is left to the caller to retry.
func (s *InventoryService) AdjustInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation, delta domain.InventoryDelta) (domain.Inventory, error) {
	loc, err := s.resolveLocation(ctx, location)
	if err != nil {
		return domain.Inventory{}, err
	}
	if loc == nil {
		return domain.Inventory{}, &domain.IllegalStateError{Message: "no default fulfillment location to adjust"}
	}

	var result domain.Inventory
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.repo.ReadInventoryForUpdate(txCtx, sku.ID, loc.ID)
		if err != nil {
			return err
		}
		if inv == nil {
			if location == nil {
				return &domain.IllegalStateError{Message: fmt.Sprintf("no default inventory for sku %d", sku.ID)}
			}
			inv = &domain.Inventory{SkuID: sku.ID, FulfillmentLocationID: loc.ID}
		}

		inv.QuantityAvailable += delta.QuantityAvailableChange
		inv.QuantityOnHand += delta.QuantityOnHandChange
		if err := inv.Validate(); err != nil {
			return err
		}

		if inv.ID == 0 {
			result, err = s.repo.CreateInventory(txCtx, *inv)
		} else {
			result, err = s.repo.UpdateInventory(txCtx, *inv)
		}
		return err
	})
	if errors.Is(err, domain.ErrConcurrentModification) {
		s.metrics.Conflict("adjust")
	}
	return result, err
}

func (s *InventoryService) ReadInventory(ctx context.Context, sku domain.Sku, location *domain.FulfillmentLocation) (*domain.Inventory, error) {
	loc, err := s.resolveLocation(ctx, location)
	if err != nil || loc == nil {
		return nil, err
	}
	return s.repo.ReadInventory(ctx, sku.ID, loc.ID)
}

func (s *InventoryService) ReadInventoryForFulfillmentLocation(ctx context.Context, location domain.FulfillmentLocation) ([]domain.Inventory, error) {
	return s.repo.ReadInventoryForFulfillmentLocation(ctx, location.ID)
}

func (s *InventoryService) ReadSkusNotAtFulfillmentLocation(ctx context.Context, location domain.FulfillmentLocation) ([]domain.Sku, error) {
	return s.catalog.FindSkusNotAtFulfillmentLocation(ctx, location.ID)
}

// Save persists inv directly, creating it when it has no id. A stale
// version yields domain.ErrConcurrentModification.
func (s *InventoryService) Save(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	if err := inv.Validate(); err != nil {
		return domain.Inventory{}, err
	}
	if inv.ID == 0 {
		return s.repo.CreateInventory(ctx, inv)
	}
	saved, err := s.repo.UpdateInventory(ctx, inv)
	if errors.Is(err, domain.ErrConcurrentModification) {
		s.metrics.Conflict("save")
	}
	return saved, err
}

func (s *InventoryService) DefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error) {
	return s.catalog.FindDefaultFulfillmentLocation(ctx)
}

func (s *InventoryService) validate(skus domain.SkuQuantities) error {
	for _, e := range skus {
		if !s.IsEligibleForInventoryCheck(e.Sku) {
			continue
		}
		if e.Quantity < 0 {
			return domain.InvalidArgumentf("quantity for sku %d must not be negative, got %d", e.Sku.ID, e.Quantity)
		}
	}
	return nil
}

func (s *InventoryService) resolveLocation(ctx context.Context, location *domain.FulfillmentLocation) (*domain.FulfillmentLocation, error) {
	if location != nil {
		return location, nil
	}
	loc, err := s.catalog.FindDefaultFulfillmentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("find default fulfillment location: %w", err)
	}
	return loc, nil
}

type quantityField int

const (
	quantityAvailable quantityField = iota
	quantityOnHand
)

func (f quantityField) get(inv domain.Inventory) int {
	if f == quantityOnHand {
		return inv.QuantityOnHand
	}
	return inv.QuantityAvailable
}

func (f quantityField) set(inv *domain.Inventory, v int) {
	if f == quantityOnHand {
		inv.QuantityOnHand = v
		return
	}
	inv.QuantityAvailable = v
}

func (f quantityField) operation(verb string) string {
	if f == quantityOnHand {
		return verb + "_on_hand"
	}
	return verb
}
