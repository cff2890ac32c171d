// Package queue defines message payloads exchanged over the message broker.
package queue

// StockMovementEvent is published once per (variant, warehouse) grouping
// when a checkout completes.  It carries enough information for
// downstream consumers to audit, alert on shortfalls, or feed analytics
// without querying the primary database.
type StockMovementEvent struct {
	MovementID    string   `json:"movement_id"`
	OrderID       string   `json:"order_id"`
	ReservationID string   `json:"reservation_id"`
	VariantID     string   `json:"variant_id"`
	WarehouseID   string   `json:"warehouse_id"`
	Quantity      int      `json:"quantity"`
	UnitIDs       []string `json:"unit_ids"`
	UnmetQuantity int      `json:"unmet_quantity"`
	SoldAt        string   `json:"sold_at"`
}
