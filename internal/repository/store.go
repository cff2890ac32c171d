// Package repository is the MySQL implementation of the inventory store
// contract.  Every state transition is a conditional UPDATE whose WHERE
// clause names the expected current status, so the database enforces
// at-most-one-owner semantics: of two racing claims, exactly one sees an
// affected row.  No SELECT-then-UPDATE gaps exist on the claim path.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// Store implements store.InventoryStore over a MySQL database.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the provided database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for transaction management in tests.
func (s *Store) DB() *sql.DB { return s.db }

const mysqlDupEntry = 1062

// mapErr translates driver-level failures into the shared store
// taxonomy: duplicate keys become Conflict, missing rows become
// NotFound, connection trouble becomes StoreUnavailable.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDupEntry {
		return store.ErrConflict
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return store.ErrStoreUnavailable
	}
	return err
}

// nullable converts an empty string to SQL NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) TryClaim(ctx context.Context, unitID, reservationID string) (bool, error) {
	const q = `UPDATE units
               SET status = 'RESERVED', reservation_id = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'AVAILABLE'`
	res, err := s.db.ExecContext(ctx, q, reservationID, unitID)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr(err)
	}
	if n == 1 {
		return true, nil
	}
	// Lost the race or bad id; distinguish so callers can skip stale ids.
	if exists, err := s.unitExists(ctx, unitID); err != nil {
		return false, err
	} else if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (s *Store) Release(ctx context.Context, unitID string) (bool, error) {
	const q = `UPDATE units
               SET status = 'AVAILABLE', reservation_id = NULL, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'RESERVED'`
	res, err := s.db.ExecContext(ctx, q, unitID)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr(err)
	}
	if n == 1 {
		return true, nil
	}
	if exists, err := s.unitExists(ctx, unitID); err != nil {
		return false, err
	} else if !exists {
		return false, store.ErrNotFound
	}
	// Already available, sold or damaged: double release is a no-op.
	return false, nil
}

func (s *Store) Sell(ctx context.Context, unitID, orderID string) (bool, error) {
	const q = `UPDATE units
               SET status = 'SOLD', order_id = ?, reservation_id = NULL, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'RESERVED'`
	res, err := s.db.ExecContext(ctx, q, orderID, unitID)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr(err)
	}
	if n == 1 {
		return true, nil
	}
	if exists, err := s.unitExists(ctx, unitID); err != nil {
		return false, err
	} else if !exists {
		return false, store.ErrNotFound
	}
	return false, store.ErrNotReserved
}

func (s *Store) MarkDamaged(ctx context.Context, unitID string) error {
	const q = `UPDATE units
               SET status = 'DAMAGED', reservation_id = NULL, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('AVAILABLE', 'RESERVED')`
	res, err := s.db.ExecContext(ctx, q, unitID)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 1 {
		return nil
	}
	if exists, err := s.unitExists(ctx, unitID); err != nil {
		return err
	} else if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (s *Store) unitExists(ctx context.Context, unitID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM units WHERE id = ?`, unitID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

const unitColumns = `id, variant_id, warehouse_id, unit_code, status,
    reservation_id, order_id, pair_id, notes, created_at, updated_at`

func scanUnit(row *sql.Row) (*model.Unit, error) {
	var u model.Unit
	var reservationID, orderID, pairID, notes sql.NullString
	err := row.Scan(&u.ID, &u.VariantID, &u.WarehouseID, &u.UnitCode, &u.Status,
		&reservationID, &orderID, &pairID, &notes, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	u.ReservationID = reservationID.String
	u.OrderID = orderID.String
	u.PairID = pairID.String
	u.Notes = notes.String
	return &u, nil
}

func (s *Store) GetUnit(ctx context.Context, unitID string) (*model.Unit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, unitID)
	return scanUnit(row)
}

func (s *Store) LookupUnitByCode(ctx context.Context, code string) (*model.Unit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE unit_code = ?`, code)
	return scanUnit(row)
}

func (s *Store) CodeInUse(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM units WHERE unit_code = ?)
               OR EXISTS(SELECT 1 FROM pairs WHERE combined_code = ?)`
	var used bool
	if err := s.db.QueryRowContext(ctx, q, code, code).Scan(&used); err != nil {
		return false, mapErr(err)
	}
	return used, nil
}

func (s *Store) ListAvailable(ctx context.Context, variantID, warehouseID string) ([]string, error) {
	const q = `SELECT id FROM units
               WHERE variant_id = ? AND warehouse_id = ?
                 AND status = 'AVAILABLE' AND pair_id IS NULL
               ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, q, variantID, warehouseID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func (s *Store) InsertUnit(ctx context.Context, u *model.Unit) error {
	if u.Status == "" {
		u.Status = model.UnitAvailable
	}
	const q = `INSERT INTO units (id, variant_id, warehouse_id, unit_code, status, notes)
               VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.VariantID, u.WarehouseID, u.UnitCode, u.Status, u.Notes)
	return mapErr(err)
}

func (s *Store) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	const q = `INSERT INTO stock_movements (id, order_id, variant_id, warehouse_id, quantity, unit_ids, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, m.ID, m.OrderID, m.VariantID, m.WarehouseID,
		m.Quantity, strings.Join(m.UnitIDs, ","), m.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	return mapErr(err)
}

func (s *Store) UpsertHeartbeat(ctx context.Context, reservationID string, at time.Time) error {
	const q = `INSERT INTO reservations (id, created_at, last_heartbeat_at)
               VALUES (?, ?, ?)
               ON DUPLICATE KEY UPDATE last_heartbeat_at = VALUES(last_heartbeat_at)`
	ts := at.UTC().Format("2006-01-02 15:04:05")
	_, err := s.db.ExecContext(ctx, q, reservationID, ts, ts)
	return mapErr(err)
}

func (s *Store) ListExpiredReservations(ctx context.Context, threshold time.Time) ([]string, error) {
	const q = `SELECT id FROM reservations WHERE last_heartbeat_at < ?`
	rows, err := s.db.QueryContext(ctx, q, threshold.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func (s *Store) UnitsByReservation(ctx context.Context, reservationID string) ([]string, error) {
	const q = `SELECT id FROM units WHERE reservation_id = ? AND status = 'RESERVED'`
	rows, err := s.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func (s *Store) DeleteReservation(ctx context.Context, reservationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, reservationID)
	return mapErr(err)
}
