package model

import "time"

// StockMovement summarizes the units sold for one (variant, warehouse)
// grouping inside a single checkout.  One record is written per grouping
// for audit purposes; pairs are attributed to the variant of their
// primary unit.
type StockMovement struct {
	ID          string    // stock_movements.id
	OrderID     string    // stock_movements.order_id
	VariantID   string    // stock_movements.variant_id
	WarehouseID string    // stock_movements.warehouse_id
	Quantity    int       // stock_movements.quantity
	UnitIDs     []string  // ids of the units sold in this grouping
	CreatedAt   time.Time // stock_movements.created_at
}

// SaleRecord is the per-unit sale entry a checkout emits for billing.
// For pairs the primary unit carries the full price and the secondary is
// recorded at zero; this split is a fixed business rule.
type SaleRecord struct {
	UnitID     string `json:"unit_id"`
	UnitCode   string `json:"unit_code"`
	OrderID    string `json:"order_id"`
	PriceCents uint32 `json:"price_cents"`
}
