package model

import "time"

// Reservation is a session-scoped hold grouping zero or more unit and
// pair claims under one identifier.  The identifier is generated when a
// checkout session starts and travels with every claim the session makes.
// A reservation that stops heartbeating past the expiry threshold is
// considered abandoned and its claims are released by the reclaimer.
//
// Fields:
//
//	ID              – client-visible reservation identifier.
//	CreatedAt       – when the session started.
//	LastHeartbeatAt – most recent heartbeat from the owning session.
type Reservation struct {
	ID              string    // reservations.id
	CreatedAt       time.Time // reservations.created_at
	LastHeartbeatAt time.Time // reservations.last_heartbeat_at
}

// Abandoned reports whether the reservation has been silent since
// before the given threshold and is due for reclamation.
func (r *Reservation) Abandoned(threshold time.Time) bool {
	return r.LastHeartbeatAt.Before(threshold)
}

// CartLine is the client-visible aggregate backing one line of a cart: a
// variant (or pair) plus the concrete unit claims behind its quantity.
// The engine never stores cart lines; the client sends them back in full
// at checkout time.
//
// Fields:
//
//	VariantID      – variant sold on this line (empty for pair lines).
//	WarehouseID    – warehouse the units were claimed from.
//	PairID         – set when the line sells a composite pair.
//	UnitIDs        – concretely claimed unit ids backing the quantity.
//	Quantity       – requested quantity for the line.
//	UnitPriceCents – price per unit; for pairs, price of the whole pair.
//	DiscountCents  – per-line discount, informational for billing.
type CartLine struct {
	VariantID      string   `json:"variant_id"`
	WarehouseID    string   `json:"warehouse_id"`
	PairID         string   `json:"pair_id,omitempty"`
	UnitIDs        []string `json:"unit_ids"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents uint32   `json:"unit_price_cents"`
	DiscountCents  uint32   `json:"discount_cents,omitempty"`
}
