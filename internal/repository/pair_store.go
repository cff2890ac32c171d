package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// CreatePairRecord binds two units into a pair inside one transaction.
// Both units are locked FOR UPDATE and re-validated under the lock, so a
// concurrent claim or a second pairing attempt on either unit makes this
// call fail with InvalidPair instead of corrupting the association.
func (s *Store) CreatePairRecord(ctx context.Context, p *model.Pair) error {
	if p.PrimaryUnitID == p.SecondaryUnitID {
		return store.ErrInvalidPair
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, unitID := range []string{p.PrimaryUnitID, p.SecondaryUnitID} {
		var status string
		var pairID sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT status, pair_id FROM units WHERE id = ? FOR UPDATE`, unitID,
		).Scan(&status, &pairID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return mapErr(err)
		}
		if status != model.UnitAvailable || pairID.Valid {
			return store.ErrInvalidPair
		}
	}

	const ins = `INSERT INTO pairs (id, primary_unit_id, secondary_unit_id, combined_code, status, notes)
                 VALUES (?, ?, ?, ?, 'AVAILABLE', ?)`
	if _, err := tx.ExecContext(ctx, ins, p.ID, p.PrimaryUnitID, p.SecondaryUnitID, p.CombinedCode, p.Notes); err != nil {
		return mapErr(err)
	}
	const bind = `UPDATE units SET pair_id = ?, updated_at = UTC_TIMESTAMP() WHERE id IN (?, ?)`
	if _, err := tx.ExecContext(ctx, bind, p.ID, p.PrimaryUnitID, p.SecondaryUnitID); err != nil {
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	committed = true
	return nil
}

// DismantlePairRecord unbinds a pair that is still AVAILABLE.  The pair
// row is locked first; a pair that was reserved or sold in the meantime
// fails with InvalidPair.
func (s *Store) DismantlePairRecord(ctx context.Context, pairID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM pairs WHERE id = ? FOR UPDATE`, pairID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return mapErr(err)
	}
	if status != model.PairAvailable {
		return store.ErrInvalidPair
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE units SET pair_id = NULL, updated_at = UTC_TIMESTAMP() WHERE pair_id = ?`, pairID); err != nil {
		return mapErr(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pairs WHERE id = ?`, pairID); err != nil {
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	committed = true
	return nil
}

const pairColumns = `id, primary_unit_id, secondary_unit_id, combined_code, status,
    reservation_id, notes, created_at, updated_at`

func scanPair(row *sql.Row) (*model.Pair, error) {
	var p model.Pair
	var reservationID, notes sql.NullString
	err := row.Scan(&p.ID, &p.PrimaryUnitID, &p.SecondaryUnitID, &p.CombinedCode, &p.Status,
		&reservationID, &notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	p.ReservationID = reservationID.String
	p.Notes = notes.String
	return &p, nil
}

func (s *Store) GetPair(ctx context.Context, pairID string) (*model.Pair, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pairColumns+` FROM pairs WHERE id = ?`, pairID)
	return scanPair(row)
}

func (s *Store) LookupPairByCode(ctx context.Context, code string) (*model.Pair, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pairColumns+` FROM pairs WHERE combined_code = ?`, code)
	return scanPair(row)
}

// SetPairStatus is the pair-level compare-and-set.
func (s *Store) SetPairStatus(ctx context.Context, pairID, from, to, reservationID string) (bool, error) {
	const q = `UPDATE pairs
               SET status = ?, reservation_id = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, q, to, nullable(reservationID), pairID, from)
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
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM pairs WHERE id = ?`, pairID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, store.ErrNotFound
	}
	if err != nil {
		return false, mapErr(err)
	}
	return false, nil
}

func (s *Store) PairsByReservation(ctx context.Context, reservationID string) ([]string, error) {
	const q = `SELECT id FROM pairs WHERE reservation_id = ? AND status = 'RESERVED'`
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
