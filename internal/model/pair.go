package model

import "time"

// Pair status values.  Unlike units, a pair is never DAMAGED as a whole;
// damaging a member unit simply makes the pair unreservable.
const (
	PairAvailable = "AVAILABLE"
	PairReserved  = "RESERVED"
	PairSold      = "SOLD"
)

// Pair is a composite of exactly two units sold under one combined code,
// e.g. the indoor and outdoor halves of a split appliance.  Its status
// must stay consistent with both member units: the two members are always
// claimed and sold together, never independently.
//
// Fields:
//
//	ID              – opaque identifier of the pair.
//	PrimaryUnitID   – member that carries the full price on sale.
//	SecondaryUnitID – member that is priced at zero on sale.
//	CombinedCode    – canonical code of the composite item.
//	Status          – one of AVAILABLE, RESERVED, SOLD.
//	ReservationID   – owning reservation; set only while RESERVED.
//	Notes           – free-text operator notes.
//	CreatedAt       – when the two units were bound together.
//	UpdatedAt       – last state change.
type Pair struct {
	ID              string    // pairs.id
	PrimaryUnitID   string    // pairs.primary_unit_id
	SecondaryUnitID string    // pairs.secondary_unit_id
	CombinedCode    string    // pairs.combined_code
	Status          string    // pairs.status
	ReservationID   string    // pairs.reservation_id (empty unless RESERVED)
	Notes           string    // pairs.notes
	CreatedAt       time.Time // pairs.created_at
	UpdatedAt       time.Time // pairs.updated_at
}
