package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/sku"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

func nowUTC() time.Time { return time.Now().UTC() }

// CreatePair binds two available, unpaired units into one composite item
// sold under the combined code.  Pairing does not reserve anything; both
// units stay available until the pair itself is reserved.
func (m *Manager) CreatePair(ctx context.Context, unitAID, unitBID, combinedCode, notes string) (*model.Pair, error) {
	if unitAID == "" || unitBID == "" || combinedCode == "" {
		return nil, ErrInvalidInput
	}
	if unitAID == unitBID {
		return nil, store.ErrInvalidPair
	}
	p := &model.Pair{
		ID:              uuid.NewString(),
		PrimaryUnitID:   unitAID,
		SecondaryUnitID: unitBID,
		CombinedCode:    sku.Normalize(combinedCode),
		Status:          model.PairAvailable,
		Notes:           notes,
	}
	if err := m.store.CreatePairRecord(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DismantlePair unbinds a pair that is still available, returning both
// units to independent availability.  A reserved or sold pair cannot be
// dismantled; it has to be released or sold as a whole through its
// member claims.
func (m *Manager) DismantlePair(ctx context.Context, pairID string) error {
	if pairID == "" {
		return ErrInvalidInput
	}
	return m.store.DismantlePairRecord(ctx, pairID)
}

// ReservePair claims both member units of a pair under one reservation,
// all or nothing.  The primary is always claimed before the secondary so
// the rollback is deterministic, but correctness rests on the rollback
// itself: when the second claim loses (e.g. the unit was concurrently
// damaged), the first claim and the pair status are both undone before
// Conflict is returned.  A half-reserved pair is never left behind.
func (m *Manager) ReservePair(ctx context.Context, pairID, reservationID string) error {
	if pairID == "" || reservationID == "" {
		return ErrInvalidInput
	}
	p, err := m.store.GetPair(ctx, pairID)
	if err != nil {
		return err
	}
	ok, err := m.store.SetPairStatus(ctx, pairID, model.PairAvailable, model.PairReserved, reservationID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrConflict
	}

	ok, err = m.store.TryClaim(ctx, p.PrimaryUnitID, reservationID)
	if err != nil || !ok {
		_, _ = m.store.SetPairStatus(ctx, pairID, model.PairReserved, model.PairAvailable, "")
		if err != nil {
			return err
		}
		return store.ErrConflict
	}

	ok, err = m.store.TryClaim(ctx, p.SecondaryUnitID, reservationID)
	if err != nil || !ok {
		_, _ = m.store.Release(ctx, p.PrimaryUnitID)
		_, _ = m.store.SetPairStatus(ctx, pairID, model.PairReserved, model.PairAvailable, "")
		if err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

// ReleasePair returns a reserved pair and both of its member units to
// availability.  Like unit release it tolerates concurrent cleanup:
// members that are already available are no-ops, and a pair that is not
// currently reserved leaves the members untouched.
func (m *Manager) ReleasePair(ctx context.Context, pairID string) error {
	if pairID == "" {
		return ErrInvalidInput
	}
	p, err := m.store.GetPair(ctx, pairID)
	if err != nil {
		return err
	}
	ok, err := m.store.SetPairStatus(ctx, pairID, model.PairReserved, model.PairAvailable, "")
	if err != nil {
		return err
	}
	if !ok {
		// Already available or sold; nothing to release.
		return nil
	}
	if _, err := m.store.Release(ctx, p.PrimaryUnitID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, err := m.store.Release(ctx, p.SecondaryUnitID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
