// Package checkout converts the claims of one reservation into permanent
// sales.  Compensation is strictly forward-only: once any unit has been
// sold the order is never rolled back.  Units that were lost between
// cart-build and checkout are covered by an auto-sell fallback from the
// live pool, and whatever still cannot be covered is reported as a
// partial fulfillment rather than an error, because reversing an order
// after payment steps already ran is worse than an under-fulfilled line.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// Coordinator performs checkout fulfillment against the inventory store.
type Coordinator struct {
	store store.InventoryStore
}

// NewCoordinator returns a Coordinator working against the given store.
func NewCoordinator(st store.InventoryStore) *Coordinator {
	if st == nil {
		panic("nil store passed to NewCoordinator")
	}
	return &Coordinator{store: st}
}

// Input is a completed cart: lines backed by concrete claims under one
// reservation, plus the identity of the order being fulfilled.
type Input struct {
	ReservationID string
	OrderID       string
	Lines         []model.CartLine
}

// LineResult reports the fulfillment outcome of one cart line.  An
// UnmetQuantity above zero means the line was partially fulfilled; the
// order still completed and the caller surfaces a warning to the user.
type LineResult struct {
	VariantID     string             `json:"variant_id,omitempty"`
	WarehouseID   string             `json:"warehouse_id"`
	PairID        string             `json:"pair_id,omitempty"`
	Requested     int                `json:"requested"`
	SoldCount     int                `json:"sold_count"`
	UnmetQuantity int                `json:"unmet_quantity"`
	Sales         []model.SaleRecord `json:"sales"`
}

// Result aggregates the outcome of a checkout.
type Result struct {
	OrderID   string
	Lines     []LineResult
	Movements []model.StockMovement
	Partial   bool
}

// ErrInvalidInput is returned when the order or reservation identity is
// missing.  State conflicts never abort a checkout.
var ErrInvalidInput = errors.New("invalid checkout input")

// Fulfill runs the checkout algorithm: sell every claimed unit and pair
// under the order, auto-sell shortfalls from the current pool, then emit
// one stock-movement record per (variant, warehouse) grouping.
func (c *Coordinator) Fulfill(ctx context.Context, in Input) (Result, error) {
	if in.ReservationID == "" || in.OrderID == "" {
		return Result{}, ErrInvalidInput
	}
	res := Result{OrderID: in.OrderID}
	sold := make(map[string][]*model.Unit) // (variant|warehouse) -> units sold

	var lastErr error
	for _, line := range in.Lines {
		var lr LineResult
		var err error
		if line.PairID != "" {
			lr, err = c.fulfillPairLine(ctx, line, in.ReservationID, in.OrderID, sold)
		} else {
			lr, err = c.fulfillUnitLine(ctx, line, in.ReservationID, in.OrderID, sold)
		}
		if err != nil {
			// Store trouble on one line must not abort siblings; the
			// shortfall shows up as unmet quantity.
			lastErr = err
		}
		if lr.UnmetQuantity > 0 {
			res.Partial = true
		}
		res.Lines = append(res.Lines, lr)
	}

	for key, units := range sold {
		variantID, warehouseID := splitKey(key)
		mv := model.StockMovement{
			ID:          uuid.NewString(),
			OrderID:     in.OrderID,
			VariantID:   variantID,
			WarehouseID: warehouseID,
			Quantity:    len(units),
			CreatedAt:   nowUTC(),
		}
		for _, u := range units {
			mv.UnitIDs = append(mv.UnitIDs, u.ID)
		}
		if err := c.store.InsertMovement(ctx, &mv); err != nil {
			lastErr = err
			continue
		}
		res.Movements = append(res.Movements, mv)
	}
	return res, lastErr
}

// fulfillUnitLine sells the line's claimed units, then covers any
// shortfall straight from the available pool.  The fallback bypasses the
// reservation entirely: the original claims are already spent, so each
// pool unit is claimed and sold back to back, re-validating availability
// at claim time rather than trusting the count seen at cart-build.
func (c *Coordinator) fulfillUnitLine(ctx context.Context, line model.CartLine, reservationID, orderID string, sold map[string][]*model.Unit) (LineResult, error) {
	lr := LineResult{
		VariantID:   line.VariantID,
		WarehouseID: line.WarehouseID,
		Requested:   line.Quantity,
	}
	var lastErr error
	for _, unitID := range line.UnitIDs {
		u, err := c.store.GetUnit(ctx, unitID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				lastErr = err
			}
			continue
		}
		// A stale cart may list a unit whose hold expired and was then
		// claimed by another session.  That claim is not ours to spend;
		// the shortfall feeds the fallback below instead.
		if u.Status != model.UnitReserved || u.ReservationID != reservationID {
			continue
		}
		if _, err := c.sellUnit(ctx, unitID, orderID, line.UnitPriceCents, &lr, sold); err != nil {
			lastErr = err
		}
	}

	if shortfall := line.Quantity - lr.SoldCount; shortfall > 0 {
		pool, err := c.store.ListAvailable(ctx, line.VariantID, line.WarehouseID)
		if err != nil {
			lastErr = err
			pool = nil
		}
		for _, candidate := range pool {
			if lr.SoldCount >= line.Quantity {
				break
			}
			claimed, err := c.store.TryClaim(ctx, candidate, reservationID)
			if err != nil || !claimed {
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					lastErr = err
				}
				continue
			}
			if _, err := c.sellUnit(ctx, candidate, orderID, line.UnitPriceCents, &lr, sold); err != nil {
				lastErr = err
				_, _ = c.store.Release(ctx, candidate)
			}
		}
	}

	lr.UnmetQuantity = line.Quantity - lr.SoldCount
	if lr.UnmetQuantity < 0 {
		lr.UnmetQuantity = 0
	}
	return lr, lastErr
}

// fulfillPairLine sells both members of a pair under the order.  When
// the pair hold was lost before checkout, one re-reservation attempt is
// made against the current state; a pair that still cannot be claimed,
// or whose hold belongs to another session, or that lost a member to
// damage, is reported as unmet.  The primary member carries the full
// pair price and the secondary is recorded at zero.
func (c *Coordinator) fulfillPairLine(ctx context.Context, line model.CartLine, reservationID, orderID string, sold map[string][]*model.Unit) (LineResult, error) {
	lr := LineResult{
		PairID:        line.PairID,
		WarehouseID:   line.WarehouseID,
		Requested:     1,
		UnmetQuantity: 1,
	}
	p, err := c.store.GetPair(ctx, line.PairID)
	if err != nil {
		return lr, err
	}

	switch p.Status {
	case model.PairAvailable:
		// The hold expired between cart-build and checkout; try to win
		// the pair back before giving up on the line.
		if ok, err := c.reclaimPair(ctx, p, orderID); err != nil || !ok {
			return lr, err
		}
	case model.PairReserved:
		// Only the owning session may spend the hold, and only while
		// both members are still held under it.  A pair that lost a
		// member stays RESERVED and is reported unmet; selling the
		// survivor alone would record a zero-revenue half-sale.
		if p.ReservationID != reservationID {
			return lr, nil
		}
		for _, id := range []string{p.PrimaryUnitID, p.SecondaryUnitID} {
			u, err := c.store.GetUnit(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return lr, nil
				}
				return lr, err
			}
			if u.Status != model.UnitReserved || u.ReservationID != reservationID {
				return lr, nil
			}
		}
	default:
		return lr, nil
	}

	if ok, err := c.store.SetPairStatus(ctx, line.PairID, model.PairReserved, model.PairSold, ""); err != nil || !ok {
		return lr, err
	}

	var lastErr error
	if _, err := c.sellUnit(ctx, p.PrimaryUnitID, orderID, line.UnitPriceCents, &lr, sold); err != nil {
		lastErr = err
	}
	if _, err := c.sellUnit(ctx, p.SecondaryUnitID, orderID, 0, &lr, sold); err != nil {
		lastErr = err
	}
	if lr.SoldCount == 2 {
		// The pair counts as one sold line item even though two units
		// moved; the per-unit sale records carry the split.
		lr.SoldCount = 1
		lr.UnmetQuantity = 0
	} else {
		// A member was lost in the window between the ownership check
		// and the sale.  Whatever did sell stays sold, but the pair
		// line is unmet.
		lr.SoldCount = 0
		lr.UnmetQuantity = 1
	}
	return lr, lastErr
}

// reclaimPair re-reserves an available pair under the order id, with the
// same primary-first ordering and rollback as a normal pair reservation.
func (c *Coordinator) reclaimPair(ctx context.Context, p *model.Pair, orderID string) (bool, error) {
	ok, err := c.store.SetPairStatus(ctx, p.ID, model.PairAvailable, model.PairReserved, orderID)
	if err != nil || !ok {
		return false, err
	}
	if ok, err = c.store.TryClaim(ctx, p.PrimaryUnitID, orderID); err != nil || !ok {
		_, _ = c.store.SetPairStatus(ctx, p.ID, model.PairReserved, model.PairAvailable, "")
		return false, err
	}
	if ok, err = c.store.TryClaim(ctx, p.SecondaryUnitID, orderID); err != nil || !ok {
		_, _ = c.store.Release(ctx, p.PrimaryUnitID)
		_, _ = c.store.SetPairStatus(ctx, p.ID, model.PairReserved, model.PairAvailable, "")
		return false, err
	}
	return true, nil
}

// sellUnit performs one reserved->sold transition and records the sale
// and movement grouping on success.
func (c *Coordinator) sellUnit(ctx context.Context, unitID, orderID string, priceCents uint32, lr *LineResult, sold map[string][]*model.Unit) (bool, error) {
	ok, err := c.store.Sell(ctx, unitID, orderID)
	if err != nil {
		// A unit that vanished or lost its claim is a shortfall, not a
		// hard error; the fallback or the unmet count covers it.
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotReserved) {
			return false, nil
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	u, err := c.store.GetUnit(ctx, unitID)
	if err != nil {
		u = &model.Unit{ID: unitID}
	}
	lr.SoldCount++
	lr.Sales = append(lr.Sales, model.SaleRecord{
		UnitID:     u.ID,
		UnitCode:   u.UnitCode,
		OrderID:    orderID,
		PriceCents: priceCents,
	})
	key := u.VariantID + "|" + u.WarehouseID
	sold[key] = append(sold[key], u)
	return true, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func splitKey(key string) (variantID, warehouseID string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
