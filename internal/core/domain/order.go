package domain

type OrderItemType string

const (
	OrderItemTypeDiscrete OrderItemType = "DISCRETE"
	OrderItemTypeBundle   OrderItemType = "BUNDLE"
	OrderItemTypeOther    OrderItemType = "OTHER"
)

type Order struct {
	ID    int64       `json:"id"`
	Items []OrderItem `json:"items"`
}

type OrderItem struct {
	ID       int64         `json:"id"`
	OrderID  int64         `json:"order_id"`
	Type     OrderItemType `json:"type"`
	Sku      *Sku          `json:"sku,omitempty"`
	Quantity int           `json:"quantity"`
}

// SkuQuantities aggregates the skus an order consumes. Discrete and bundle
// items contribute their own sku; items without one are skipped.
func (o Order) SkuQuantities() SkuQuantities {
	var out SkuQuantities
	for _, item := range o.Items {
		if item.Sku == nil {
			continue
		}
		switch item.Type {
		case OrderItemTypeDiscrete, OrderItemTypeBundle:
			out.Add(*item.Sku, item.Quantity)
		}
	}
	return out
}

// RollbackState is what a compensator needs to undo an inventory change made
// while processing an order.
type RollbackState struct {
	OrderID             int64                `json:"order_id"`
	FulfillmentLocation *FulfillmentLocation `json:"fulfillment_location,omitempty"`
	Decremented         SkuQuantities        `json:"decremented,omitempty"`
	Incremented         SkuQuantities        `json:"incremented,omitempty"`
}

func (s RollbackState) Empty() bool {
	return len(s.Decremented) == 0 && len(s.Incremented) == 0
}
