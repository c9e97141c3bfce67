package domain

type InventoryType string

const (
	InventoryTypeUnset InventoryType = ""
	InventoryTypeNone  InventoryType = "NONE"
	InventoryTypeBasic InventoryType = "BASIC"
)

type Sku struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`

	InventoryType InventoryType `json:"inventory_type,omitempty"`
	// CategoryInventoryType is the mode of the product's default category.
	CategoryInventoryType InventoryType `json:"category_inventory_type,omitempty"`
}

// ResolvedInventoryType returns the sku's own mode, falling back to the
// category mode, falling back to unset.
func (s Sku) ResolvedInventoryType() InventoryType {
	for _, t := range []InventoryType{s.InventoryType, s.CategoryInventoryType} {
		if t != InventoryTypeUnset {
			return t
		}
	}
	return InventoryTypeUnset
}

type SkuQuantity struct {
	Sku      Sku `json:"sku"`
	Quantity int `json:"quantity"`
}

// SkuQuantities is the per-sku quantity batch handed to the inventory
// service. Add keeps one entry per sku id.
type SkuQuantities []SkuQuantity

func (q *SkuQuantities) Add(sku Sku, quantity int) {
	for i := range *q {
		if (*q)[i].Sku.ID == sku.ID {
			(*q)[i].Quantity += quantity
			return
		}
	}
	*q = append(*q, SkuQuantity{Sku: sku, Quantity: quantity})
}

// Quantity returns the requested quantity for skuID, or 0.
func (q SkuQuantities) Quantity(skuID int64) int {
	for _, e := range q {
		if e.Sku.ID == skuID {
			return e.Quantity
		}
	}
	return 0
}

// Without returns the entries of q reduced by what is in applied. Entries
// that reach zero are dropped.
func (q SkuQuantities) Without(applied SkuQuantities) SkuQuantities {
	var merged SkuQuantities
	merged.Merge(q)

	var out SkuQuantities
	for _, e := range merged {
		rest := e.Quantity - applied.Quantity(e.Sku.ID)
		if rest > 0 {
			out = append(out, SkuQuantity{Sku: e.Sku, Quantity: rest})
		}
	}
	return out
}

// Merge adds every entry of other into q.
func (q *SkuQuantities) Merge(other SkuQuantities) {
	for _, e := range other {
		q.Add(e.Sku, e.Quantity)
	}
}
