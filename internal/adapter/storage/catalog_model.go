package storage

import (
	"database/sql"

	"github.com/rl1809/inventory/internal/core/domain"
)

type CategoryModel struct {
	ID            int64
	Name          string
	InventoryType sql.NullString
}

func (CategoryModel) TableName() string {
	return "category"
}

type SkuModel struct {
	ID                int64
	Name              string
	Active            bool
	InventoryType     sql.NullString
	DefaultCategoryID sql.NullInt64
	DefaultCategory   *CategoryModel `gorm:"foreignKey:DefaultCategoryID"`
}

func (SkuModel) TableName() string {
	return "sku"
}

type FulfillmentLocationModel struct {
	ID               int64
	Name             string
	PickupLocation   bool
	ShippingLocation bool
	DefaultLocation  bool
}

func (FulfillmentLocationModel) TableName() string {
	return "fulfillment_location"
}

type OrderItemModel struct {
	ID       int64
	OrderID  int64
	Type     string
	SkuID    sql.NullInt64
	Sku      *SkuModel `gorm:"foreignKey:SkuID"`
	Quantity int
}

func (OrderItemModel) TableName() string {
	return "order_item"
}

func toDomainSku(m *SkuModel) *domain.Sku {
	sku := &domain.Sku{
		ID:            m.ID,
		Name:          m.Name,
		Active:        m.Active,
		InventoryType: domain.InventoryType(m.InventoryType.String),
	}
	if m.DefaultCategory != nil {
		sku.CategoryInventoryType = domain.InventoryType(m.DefaultCategory.InventoryType.String)
	}
	return sku
}

func toDomainLocation(m *FulfillmentLocationModel) *domain.FulfillmentLocation {
	return &domain.FulfillmentLocation{
		ID:               m.ID,
		Name:             m.Name,
		PickupLocation:   m.PickupLocation,
		ShippingLocation: m.ShippingLocation,
		DefaultLocation:  m.DefaultLocation,
	}
}

func toDomainOrderItem(m *OrderItemModel) *domain.OrderItem {
	item := &domain.OrderItem{
		ID:       m.ID,
		OrderID:  m.OrderID,
		Type:     domain.OrderItemType(m.Type),
		Quantity: m.Quantity,
	}
	if m.Sku != nil {
		item.Sku = toDomainSku(m.Sku)
	}
	return item
}
