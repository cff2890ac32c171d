// Package reservation implements the session-scoped hold lifecycle:
// acquiring claims on concrete units, extending them with heartbeats,
// adjusting quantities and releasing everything again.  The manager
// holds no locks and caches no unit state; every decision is made
// against the store's current state and all mutual exclusion is
// delegated to the store's atomic claim primitive, so any number of
// manager instances can run concurrently against the same pool.
package reservation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// ErrInvalidInput is returned for malformed requests: empty identifiers
// or non-positive quantities.  Unlike a Conflict it must not be retried.
var ErrInvalidInput = errors.New("invalid input")

// Manager coordinates unit and pair claims for checkout sessions.
type Manager struct {
	store store.InventoryStore
}

// NewManager returns a Manager working against the given store.
func NewManager(st store.InventoryStore) *Manager {
	if st == nil {
		panic("nil store passed to NewManager")
	}
	return &Manager{store: st}
}

// ReserveInput describes one reservation request.  When UnitID is set
// the caller picked a specific physical unit (manual selection); the
// quantity is then implicitly one.  Otherwise up to Quantity arbitrary
// available units of the variant+warehouse are claimed.
type ReserveInput struct {
	VariantID     string
	WarehouseID   string
	Quantity      int
	ReservationID string
	UnitID        string
}

// ReserveResult reports what was actually claimed.  ReservedCount may be
// smaller than the requested quantity when the pool ran short; callers
// must treat that as a stock-shortage signal, not as a failure.
type ReserveResult struct {
	ReservedCount int
	Units         []model.Unit
}

// ReserveUnits claims units for a reservation.  "No stock" is never an
// error: an empty or short pool simply yields a smaller ReservedCount.
func (m *Manager) ReserveUnits(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	if in.ReservationID == "" {
		return ReserveResult{}, ErrInvalidInput
	}
	if in.UnitID != "" {
		return m.reserveSpecific(ctx, in.UnitID, in.ReservationID)
	}
	if in.VariantID == "" || in.WarehouseID == "" || in.Quantity < 1 {
		return ReserveResult{}, ErrInvalidInput
	}

	pool, err := m.store.ListAvailable(ctx, in.VariantID, in.WarehouseID)
	if err != nil {
		return ReserveResult{}, err
	}
	res := ReserveResult{}
	for _, id := range pool {
		if res.ReservedCount == in.Quantity {
			break
		}
		// The listing is only a hint; TryClaim re-validates atomically
		// and loses gracefully to concurrent sessions.
		ok, err := m.store.TryClaim(ctx, id, in.ReservationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return res, err
		}
		if !ok {
			continue
		}
		u, err := m.store.GetUnit(ctx, id)
		if err != nil {
			continue
		}
		res.Units = append(res.Units, *u)
		res.ReservedCount++
	}
	return res, nil
}

// reserveSpecific handles the manual-selection path: claim exactly the
// named unit or report zero reserved.
func (m *Manager) reserveSpecific(ctx context.Context, unitID, reservationID string) (ReserveResult, error) {
	u, err := m.store.GetUnit(ctx, unitID)
	if err != nil {
		return ReserveResult{}, err
	}
	if u.PairID != "" {
		// A paired unit is only claimable through its pair.
		return ReserveResult{}, store.ErrConflict
	}
	ok, err := m.store.TryClaim(ctx, unitID, reservationID)
	if err != nil {
		return ReserveResult{}, err
	}
	if !ok {
		return ReserveResult{}, nil
	}
	u, err = m.store.GetUnit(ctx, unitID)
	if err != nil {
		return ReserveResult{ReservedCount: 1}, nil
	}
	return ReserveResult{ReservedCount: 1, Units: []model.Unit{*u}}, nil
}

// ReleaseUnits releases every id on a best-effort basis.  Each id is
// attempted independently: units that are already sold, already released
// or missing do not abort the batch.  It returns how many units actually
// moved back to AVAILABLE, along with the last hard store error if any.
func (m *Manager) ReleaseUnits(ctx context.Context, unitIDs []string) (int, error) {
	released := 0
	var lastErr error
	for _, id := range unitIDs {
		ok, err := m.store.Release(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			lastErr = err
			continue
		}
		if ok {
			released++
		}
	}
	return released, lastErr
}

// SetQuantityInput adjusts one cart line to a target quantity.  UnitIDs
// must list the currently claimed units in the order they were claimed.
type SetQuantityInput struct {
	VariantID     string
	WarehouseID   string
	ReservationID string
	UnitIDs       []string
	Quantity      int
}

// SetQuantityResult carries the new backing unit list for the line.
type SetQuantityResult struct {
	Units         []string
	ReservedCount int
	ReleasedCount int
}

// SetLineQuantity grows or shrinks a line's claims to match the target
// quantity.  Growing reserves the delta with the usual partial-success
// semantics.  Shrinking releases the most recently claimed units first
// (LIFO) down to the target; the operator does not pick which physical
// unit to drop.
func (m *Manager) SetLineQuantity(ctx context.Context, in SetQuantityInput) (SetQuantityResult, error) {
	if in.ReservationID == "" || in.Quantity < 0 {
		return SetQuantityResult{}, ErrInvalidInput
	}
	current := len(in.UnitIDs)
	switch {
	case in.Quantity > current:
		res, err := m.ReserveUnits(ctx, ReserveInput{
			VariantID:     in.VariantID,
			WarehouseID:   in.WarehouseID,
			Quantity:      in.Quantity - current,
			ReservationID: in.ReservationID,
		})
		if err != nil {
			return SetQuantityResult{}, err
		}
		units := append([]string{}, in.UnitIDs...)
		for _, u := range res.Units {
			units = append(units, u.ID)
		}
		return SetQuantityResult{Units: units, ReservedCount: res.ReservedCount}, nil
	case in.Quantity < current:
		drop := in.UnitIDs[in.Quantity:]
		// Newest first, so a partially failing batch still drops from
		// the tail.
		reversed := make([]string, 0, len(drop))
		for i := len(drop) - 1; i >= 0; i-- {
			reversed = append(reversed, drop[i])
		}
		released, err := m.ReleaseUnits(ctx, reversed)
		if err != nil {
			return SetQuantityResult{}, err
		}
		return SetQuantityResult{
			Units:         append([]string{}, in.UnitIDs[:in.Quantity]...),
			ReleasedCount: released,
		}, nil
	default:
		return SetQuantityResult{Units: append([]string{}, in.UnitIDs...)}, nil
	}
}

// Heartbeat records that the owning session is still alive.
func (m *Manager) Heartbeat(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return ErrInvalidInput
	}
	return m.store.UpsertHeartbeat(ctx, reservationID, nowUTC())
}

// StartSession creates a fresh reservation id and records its first
// heartbeat.  The id is what every subsequent claim is grouped under.
func (m *Manager) StartSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := m.store.UpsertHeartbeat(ctx, id, nowUTC()); err != nil {
		return "", err
	}
	return id, nil
}

// ReleaseReservation releases every claim held under a reservation and
// removes the reservation itself.  Pairs are released before standalone
// units so pair members never linger half-claimed.  It is always safe to
// call: claims that were already consumed by a completed checkout are
// skipped as no-ops, since "cancel" racing "checkout done" is expected.
func (m *Manager) ReleaseReservation(ctx context.Context, reservationID string) (int, error) {
	if reservationID == "" {
		return 0, ErrInvalidInput
	}
	released := 0
	var lastErr error

	pairIDs, err := m.store.PairsByReservation(ctx, reservationID)
	if err != nil {
		lastErr = err
	}
	for _, pid := range pairIDs {
		if err := m.ReleasePair(ctx, pid); err != nil && !errors.Is(err, store.ErrNotFound) {
			lastErr = err
			continue
		}
		released++
	}

	unitIDs, err := m.store.UnitsByReservation(ctx, reservationID)
	if err != nil {
		lastErr = err
	}
	n, err := m.ReleaseUnits(ctx, unitIDs)
	if err != nil {
		lastErr = err
	}
	released += n

	if err := m.store.DeleteReservation(ctx, reservationID); err != nil && !errors.Is(err, store.ErrNotFound) {
		lastErr = err
	}
	return released, lastErr
}
