package model

import "time"

// Unit status values.  A unit moves AVAILABLE -> RESERVED -> SOLD on the
// happy path, falls back RESERVED -> AVAILABLE on release or expiry, and
// can be pulled out of circulation from either non-terminal state with
// DAMAGED.  SOLD and DAMAGED are terminal.
const (
	UnitAvailable = "AVAILABLE"
	UnitReserved  = "RESERVED"
	UnitSold      = "SOLD"
	UnitDamaged   = "DAMAGED"
)

// Unit represents one physical, individually serialized inventory item.
// Every unit carries its own canonical code and belongs to exactly one
// variant+warehouse combination for its whole lifetime.
//
// Fields:
//
//	ID            – opaque identifier of the unit.
//	VariantID     – product variant this unit is an instance of.
//	WarehouseID   – warehouse holding the unit.
//	UnitCode      – canonical (normalized) SKU string, unique per store.
//	Status        – one of AVAILABLE, RESERVED, SOLD, DAMAGED.
//	ReservationID – owning reservation; set only while RESERVED.
//	OrderID       – owning order; set only once SOLD.
//	PairID        – set when the unit is bound into a composite pair.
//	Notes         – free-text operator notes.
//	CreatedAt     – when the unit entered stock.
//	UpdatedAt     – last state change.
type Unit struct {
	ID            string    // units.id
	VariantID     string    // units.variant_id
	WarehouseID   string    // units.warehouse_id
	UnitCode      string    // units.unit_code
	Status        string    // units.status
	ReservationID string    // units.reservation_id (empty unless RESERVED)
	OrderID       string    // units.order_id (empty unless SOLD)
	PairID        string    // units.pair_id (empty when standalone)
	Notes         string    // units.notes
	CreatedAt     time.Time // units.created_at
	UpdatedAt     time.Time // units.updated_at
}

// Claimed reports whether the unit is currently held or consumed, i.e.
// not claimable by anyone else.
func (u *Unit) Claimed() bool {
	return u.Status == UnitReserved || u.Status == UnitSold
}
