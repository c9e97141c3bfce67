package domain

import "time"

type Inventory struct {
	ID                       int64
	SkuID                    int64
	FulfillmentLocationID    int64
	QuantityAvailable        int
	QuantityOnHand           int
	ExpectedAvailabilityDate *time.Time
	Version                  int64 // optimistic locking
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Validate rejects quantities that must never reach the store.
func (i Inventory) Validate() error {
	if i.QuantityAvailable < 0 {
		return InvalidArgumentf("quantity available must not be negative, got %d", i.QuantityAvailable)
	}
	if i.QuantityOnHand < 0 {
		return InvalidArgumentf("quantity on hand must not be negative, got %d", i.QuantityOnHand)
	}
	return nil
}

// InventoryDelta is a manual adjustment applied to both quantity fields.
type InventoryDelta struct {
	QuantityAvailableChange int `json:"quantity_available_change"`
	QuantityOnHandChange    int `json:"quantity_on_hand_change"`
}

type FulfillmentLocation struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	PickupLocation   bool   `json:"pickup_location"`
	ShippingLocation bool   `json:"shipping_location"`
	DefaultLocation  bool   `json:"default_location"`
}
