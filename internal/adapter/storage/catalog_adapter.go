package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rl1809/inventory/internal/core/domain"
)

// CatalogAdapter reads skus, categories, locations and order items through
// gorm. It shares the connection pool of the inventory store.
type CatalogAdapter struct {
	db *gorm.DB
}

func NewCatalogAdapter(sqlDB *sql.DB) (*CatalogAdapter, error) {
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open gorm")
	}
	return &CatalogAdapter{db: db}, nil
}

func (c *CatalogAdapter) FindSkuByID(ctx context.Context, id int64) (*domain.Sku, error) {
	var model SkuModel
	err := c.db.WithContext(ctx).Preload("DefaultCategory").First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrSkuNotFound, "sku %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query sku")
	}
	return toDomainSku(&model), nil
}

func (c *CatalogAdapter) FindOrderItemByID(ctx context.Context, id int64) (*domain.OrderItem, error) {
	var model OrderItemModel
	err := c.db.WithContext(ctx).Preload("Sku.DefaultCategory").First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrOrderItemNotFound, "order item %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order item")
	}
	return toDomainOrderItem(&model), nil
}

// FindDefaultFulfillmentLocation picks the lowest id when several locations
// are flagged as default.
func (c *CatalogAdapter) FindDefaultFulfillmentLocation(ctx context.Context) (*domain.FulfillmentLocation, error) {
	var models []FulfillmentLocationModel
	err := c.db.WithContext(ctx).
		Where("default_location = ?", true).
		Order("id").
		Limit(1).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query default location")
	}
	if len(models) == 0 {
		return nil, nil
	}
	return toDomainLocation(&models[0]), nil
}

func (c *CatalogAdapter) FindFulfillmentLocationByID(ctx context.Context, id int64) (*domain.FulfillmentLocation, error) {
	var model FulfillmentLocationModel
	err := c.db.WithContext(ctx).First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrLocationNotFound, "fulfillment location %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query fulfillment location")
	}
	return toDomainLocation(&model), nil
}

func (c *CatalogAdapter) FindSkusNotAtFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Sku, error) {
	stocked := c.db.Table("inventory").Select("sku_id").Where("fulfillment_location_id = ?", locationID)

	var models []SkuModel
	err := c.db.WithContext(ctx).
		Preload("DefaultCategory").
		Where("id NOT IN (?)", stocked).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query skus not at location")
	}

	out := make([]domain.Sku, 0, len(models))
	for i := range models {
		out = append(out, *toDomainSku(&models[i]))
	}
	return out, nil
}
