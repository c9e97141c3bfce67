package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/rl1809/inventory/internal/core/domain"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

const inventoryColumns = `id, sku_id, fulfillment_location_id, quantity_available, quantity_on_hand,
	expected_availability_date, version, created_at, updated_at`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *MySQLAdapter) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapMySQLError(err, "commit")
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func (m *MySQLAdapter) conn(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return m.db
}

func (m *MySQLAdapter) ReadInventoryForUpdate(ctx context.Context, skuID, locationID int64) (*domain.Inventory, error) {
	row := m.conn(ctx).QueryRowContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory WHERE sku_id = ? AND fulfillment_location_id = ?
		FOR UPDATE`, skuID, locationID,
	)
	inv, err := scanInventory(row)
	if err != nil {
		return nil, mapMySQLError(err, "query inventory for update")
	}
	return inv, nil
}

func (m *MySQLAdapter) ReadInventory(ctx context.Context, skuID, locationID int64) (*domain.Inventory, error) {
	row := m.conn(ctx).QueryRowContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory WHERE sku_id = ? AND fulfillment_location_id = ?`, skuID, locationID,
	)
	inv, err := scanInventory(row)
	if err != nil {
		return nil, errors.Wrap(err, "query inventory")
	}
	return inv, nil
}

func (m *MySQLAdapter) ReadInventoryForFulfillmentLocation(ctx context.Context, locationID int64) ([]domain.Inventory, error) {
	rows, err := m.conn(ctx).QueryContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory WHERE fulfillment_location_id = ? ORDER BY id`, locationID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query inventory for location")
	}
	defer rows.Close()

	var out []domain.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan inventory")
		}
		out = append(out, *inv)
	}
	return out, errors.Wrap(rows.Err(), "iterate inventory")
}

func (m *MySQLAdapter) UpdateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	result, err := m.conn(ctx).ExecContext(ctx, `
		UPDATE inventory
		SET quantity_available = ?, quantity_on_hand = ?, expected_availability_date = ?,
			version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		inv.QuantityAvailable, inv.QuantityOnHand, nullTime(inv.ExpectedAvailabilityDate),
		inv.ID, inv.Version,
	)
	if err != nil {
		return domain.Inventory{}, mapMySQLError(err, "update inventory")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.Inventory{}, domain.ErrConcurrentModification
	}

	inv.Version++
	inv.UpdatedAt = time.Now()
	return inv, nil
}

func (m *MySQLAdapter) CreateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	now := time.Now()
	result, err := m.conn(ctx).ExecContext(ctx, `
		INSERT INTO inventory (sku_id, fulfillment_location_id, quantity_available, quantity_on_hand,
			expected_availability_date, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		inv.SkuID, inv.FulfillmentLocationID, inv.QuantityAvailable, inv.QuantityOnHand,
		nullTime(inv.ExpectedAvailabilityDate), now, now,
	)
	if err != nil {
		return domain.Inventory{}, mapMySQLError(err, "insert inventory")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Inventory{}, errors.Wrap(err, "inventory id")
	}
	inv.ID = id
	inv.Version = 0
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return inv, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanInventory returns nil, nil when there is no row.
func scanInventory(s scanner) (*domain.Inventory, error) {
	var inv domain.Inventory
	var expected sql.NullTime
	err := s.Scan(&inv.ID, &inv.SkuID, &inv.FulfillmentLocationID, &inv.QuantityAvailable, &inv.QuantityOnHand,
		&expected, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expected.Valid {
		t := expected.Time
		inv.ExpectedAvailabilityDate = &t
	}
	return &inv, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// mapMySQLError turns lost races (duplicate insert, lock wait timeout,
// deadlock) into domain.ErrConcurrentModification.
func mapMySQLError(err error, msg string) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlLockWaitTimeout, mysqlDeadlock:
			return errors.Wrapf(domain.ErrConcurrentModification, "%s: %s", msg, myErr.Message)
		}
	}
	return errors.Wrap(err, msg)
}
