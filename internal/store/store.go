package store

import (
	"context"
	"time"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
)

// InventoryStore is the persistence contract the engine calls.  Every
// method is a potentially blocking round trip and must be safe to call
// from many engine instances at once: the store, not the engine, owns
// mutual exclusion.  The one primitive everything else is built on is
// TryClaim, an atomic compare-and-set from AVAILABLE to RESERVED with
// at-most-one-owner semantics.
type InventoryStore interface {
	// TryClaim atomically moves a unit from AVAILABLE to RESERVED under
	// the given reservation.  It returns false (with no error) when the
	// unit is not currently AVAILABLE; first claimer wins.
	TryClaim(ctx context.Context, unitID, reservationID string) (bool, error)

	// Release returns a RESERVED unit to AVAILABLE and clears its
	// reservation.  Releasing a unit that is already AVAILABLE, SOLD or
	// DAMAGED is a no-op: cleanup paths run concurrently and must
	// tolerate double release.  The bool reports whether a release
	// actually happened.
	Release(ctx context.Context, unitID string) (bool, error)

	// Sell atomically moves a RESERVED unit to SOLD under the given
	// order, clearing the reservation.  Returns ErrNotReserved when the
	// unit exists but is not currently RESERVED.
	Sell(ctx context.Context, unitID, orderID string) (bool, error)

	// MarkDamaged moves a unit to DAMAGED from any non-terminal state.
	MarkDamaged(ctx context.Context, unitID string) error

	GetUnit(ctx context.Context, unitID string) (*model.Unit, error)

	// LookupUnitByCode finds a unit by its exact canonical code.
	LookupUnitByCode(ctx context.Context, code string) (*model.Unit, error)

	// CodeInUse reports whether any unit or pair already carries the
	// given code.  Used by code generation for collision probing.
	CodeInUse(ctx context.Context, code string) (bool, error)

	// ListAvailable returns the ids of AVAILABLE, unpaired units for a
	// variant+warehouse.  Units bound into a pair are excluded because
	// they can only be claimed through their pair.
	ListAvailable(ctx context.Context, variantID, warehouseID string) ([]string, error)

	// InsertUnit adds a freshly intaken unit.  Returns ErrConflict when
	// the unit code is already taken; code generation treats that as
	// "retry with the next suffix".
	InsertUnit(ctx context.Context, u *model.Unit) error

	// CreatePairRecord binds two units into a pair.  Both units must be
	// AVAILABLE and unpaired and must be distinct; otherwise
	// ErrInvalidPair.
	CreatePairRecord(ctx context.Context, p *model.Pair) error

	// DismantlePairRecord unbinds a pair that is still AVAILABLE,
	// returning both members to standalone status.  ErrInvalidPair when
	// the pair is RESERVED or SOLD.
	DismantlePairRecord(ctx context.Context, pairID string) error

	GetPair(ctx context.Context, pairID string) (*model.Pair, error)
	LookupPairByCode(ctx context.Context, code string) (*model.Pair, error)

	// SetPairStatus is the pair-level compare-and-set: it moves a pair
	// from one status to another, recording the reservation id (which
	// may be empty).  Returns false when the pair was not in the
	// expected status.
	SetPairStatus(ctx context.Context, pairID, from, to, reservationID string) (bool, error)

	// UpsertHeartbeat records a heartbeat for a reservation, creating
	// the reservation row on first use.
	UpsertHeartbeat(ctx context.Context, reservationID string, at time.Time) error

	// ListExpiredReservations returns ids of reservations whose last
	// heartbeat is older than the threshold.
	ListExpiredReservations(ctx context.Context, threshold time.Time) ([]string, error)

	// UnitsByReservation returns the ids of units currently RESERVED
	// under a reservation.  Pair members are included.
	UnitsByReservation(ctx context.Context, reservationID string) ([]string, error)

	// PairsByReservation returns the ids of pairs currently RESERVED
	// under a reservation.
	PairsByReservation(ctx context.Context, reservationID string) ([]string, error)

	// DeleteReservation removes the reservation row.  Claims are not
	// touched; callers release them first.
	DeleteReservation(ctx context.Context, reservationID string) error

	// InsertMovement appends one stock-movement audit record.
	InsertMovement(ctx context.Context, m *model.StockMovement) error
}
