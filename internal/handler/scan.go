package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-stock-reservation/internal/sku"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// ScanHandler resolves decoded barcode text to a unit or pair.  Hardware
// and camera integration live entirely in the client; the engine only
// consumes the decoded string.  Repeated reads from one trigger pull are
// dropped by the debouncer before any store lookup happens.
type ScanHandler struct {
	Store    store.InventoryStore
	Debounce *sku.Debouncer
}

// NewScanHandler constructs a ScanHandler with the given debounce window.
func NewScanHandler(st store.InventoryStore, window time.Duration) *ScanHandler {
	if st == nil {
		panic("nil store passed to NewScanHandler")
	}
	return &ScanHandler{Store: st, Debounce: sku.NewDebouncer(window)}
}

// Lookup handles GET /v1/scan?code=...  The raw scan is expanded into an
// ordered list of candidate normalizations (raw, normalized,
// zero-stripped) and each is tried against units first, then pairs,
// stopping at the first hit.
func (h *ScanHandler) Lookup(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	raw := c.QueryParam("code")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if !h.Debounce.Accept(raw, time.Now()) {
		return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
	}
	ctx := c.Request().Context()
	for _, candidate := range sku.Candidates(raw) {
		u, err := h.Store.LookupUnitByCode(ctx, candidate)
		if err == nil {
			return c.JSON(http.StatusOK, echo.Map{
				"kind":         "unit",
				"id":           u.ID,
				"unit_code":    u.UnitCode,
				"variant_id":   u.VariantID,
				"warehouse_id": u.WarehouseID,
				"status":       u.Status,
				"claimed":      u.Claimed(),
				"pair_id":      u.PairID,
			})
		}
		if !errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
		}
		p, err := h.Store.LookupPairByCode(ctx, candidate)
		if err == nil {
			return c.JSON(http.StatusOK, echo.Map{
				"kind":          "pair",
				"id":            p.ID,
				"combined_code": p.CombinedCode,
				"status":        p.Status,
			})
		}
		if !errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "no unit or pair matches the scanned code"})
}
