package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/config"
	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/core/workflow"
	"github.com/rl1809/inventory/migrations"
)

func main() {
	initialStock := flag.Int("stock", 20, "units seeded at the default location")
	totalRequests := flag.Int("requests", 50, "checkouts to fire")
	concurrency := flag.Int("concurrency", 50, "checkouts in flight at once")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	ctx := context.Background()

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open mysql")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	if err := migrations.Apply(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	catalog, err := storage.NewCatalogAdapter(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init catalog")
	}
	inventory := service.NewInventoryService(mysqlAdapter, catalog)

	sku, err := seed(ctx, db, inventory, *initialStock)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed inventory")
	}

	registry := storage.NewRedisAdapter(rdb, workflow.NewInventoryRollbackHandler(inventory))
	checkout := workflow.NewPipeline(registry, zerolog.Nop(),
		workflow.NewDecrementInventoryActivity(inventory, workflow.WithDecrementMaxRetries(cfg.Checkout.MaxRetries)),
	)

	var successCount, unavailableCount, conflictCount, otherCount atomic.Int32

	g := new(errgroup.Group)
	g.SetLimit(*concurrency)
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		orderID := int64(i + 1)
		g.Go(func() error {
			pc := &workflow.ProcessContext{
				ID: uuid.NewString(),
				Order: &domain.Order{ID: orderID, Items: []domain.OrderItem{{
					ID: orderID, OrderID: orderID, Type: domain.OrderItemTypeDiscrete, Sku: &sku, Quantity: 1,
				}}},
			}
			err := checkout.Run(ctx, pc)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInventoryUnavailable):
				unavailableCount.Add(1)
			case errors.Is(err, domain.ErrConcurrentModification):
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
				logger.Error().Err(err).Int64("order_id", orderID).Msg("checkout failed")
			}
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	final, err := inventory.ReadInventory(ctx, sku, nil)
	if err != nil || final == nil {
		logger.Fatal().Err(err).Msg("failed to read final inventory")
	}

	success := int(successCount.Load())

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Unavailable:      %d\n", unavailableCount.Load())
	fmt.Printf("Conflicts:        %d\n", conflictCount.Load())
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Final Available:  %d\n", final.QuantityAvailable)
	fmt.Println("==========================================")

	ok := true
	if final.QuantityAvailable < 0 {
		fmt.Printf("FAIL: stock went negative (%d)\n", final.QuantityAvailable)
		ok = false
	}
	if final.QuantityAvailable != *initialStock-success {
		fmt.Printf("FAIL: expected %d left after %d checkouts, got %d\n", *initialStock-success, success, final.QuantityAvailable)
		ok = false
	}
	if *totalRequests >= *initialStock && success > *initialStock {
		fmt.Printf("FAIL: oversold, %d checkouts for %d units\n", success, *initialStock)
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
	fmt.Println("PASS: inventory never oversold")
}

// seed creates a BASIC sku stocked at the default location, creating the
// default location when none exists.
func seed(ctx context.Context, db *sql.DB, inventory *service.InventoryService, stock int) (domain.Sku, error) {
	location, err := inventory.DefaultFulfillmentLocation(ctx)
	if err != nil {
		return domain.Sku{}, err
	}
	if location == nil {
		res, err := db.ExecContext(ctx, `INSERT INTO fulfillment_location (name, pickup_location, shipping_location, default_location)
			VALUES ('default', FALSE, TRUE, TRUE)`)
		if err != nil {
			return domain.Sku{}, err
		}
		id, _ := res.LastInsertId()
		location = &domain.FulfillmentLocation{ID: id, Name: "default", ShippingLocation: true, DefaultLocation: true}
	}

	res, err := db.ExecContext(ctx, `INSERT INTO sku (name, active, inventory_type) VALUES (?, TRUE, 'BASIC')`,
		fmt.Sprintf("stress-sku-%d", time.Now().UnixNano()))
	if err != nil {
		return domain.Sku{}, err
	}
	id, _ := res.LastInsertId()
	sku := domain.Sku{ID: id, Name: "stress-sku", Active: true, InventoryType: domain.InventoryTypeBasic}

	_, err = inventory.Save(ctx, domain.Inventory{
		SkuID:                 sku.ID,
		FulfillmentLocationID: location.ID,
		QuantityAvailable:     stock,
		QuantityOnHand:        stock,
	})
	return sku, err
}
