package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
	"github.com/iliyamo/pos-stock-reservation/internal/sku"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// StockHandler exposes the reservation manager over HTTP: claiming and
// releasing units for the session's cart, adjusting line quantities and
// listing availability.  It also covers stock intake, where new units
// enter the pool with generated codes.  The Redis client is optional;
// when nil, availability responses are simply never cached.
type StockHandler struct {
	Manager *reservation.Manager
	Store   store.InventoryStore
	Codes   *sku.Generator
	Redis   *redis.Client
}

// NewStockHandler constructs a StockHandler.  Redis may be nil.
func NewStockHandler(mgr *reservation.Manager, st store.InventoryStore, rdb *redis.Client) *StockHandler {
	if mgr == nil || st == nil {
		panic("nil dependency passed to NewStockHandler")
	}
	return &StockHandler{Manager: mgr, Store: st, Codes: sku.NewGenerator(st), Redis: rdb}
}

// Reserve handles POST /v1/cart/reserve.  The body names a variant and
// warehouse plus a quantity, or a specific unit id for manual selection.
// The response reports how many units were actually claimed; a count
// below the requested quantity is the stock-shortage signal, not an
// error, and the client decides the messaging.
func (h *StockHandler) Reserve(c echo.Context) error {
	reservationID, err := getReservationID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		VariantID   string `json:"variant_id"`
		WarehouseID string `json:"warehouse_id"`
		Quantity    int    `json:"quantity"`
		UnitID      string `json:"unit_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Manager.ReserveUnits(c.Request().Context(), reservation.ReserveInput{
		VariantID:     body.VariantID,
		WarehouseID:   body.WarehouseID,
		Quantity:      body.Quantity,
		ReservationID: reservationID,
		UnitID:        body.UnitID,
	})
	if err != nil {
		return reserveError(c, err)
	}
	h.invalidateAvailability(c, body.VariantID, body.WarehouseID)
	units := make([]echo.Map, 0, len(res.Units))
	for _, u := range res.Units {
		units = append(units, echo.Map{"id": u.ID, "unit_code": u.UnitCode})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reserved_count": res.ReservedCount,
		"units":          units,
	})
}

// Release handles POST /v1/cart/release with a list of unit ids.  Every
// id is attempted independently; units already sold or released are
// tolerated and simply not counted.
func (h *StockHandler) Release(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		UnitIDs []string `json:"unit_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.UnitIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unit_ids is required"})
	}
	released, err := h.Manager.ReleaseUnits(c.Request().Context(), body.UnitIDs)
	if err != nil && errors.Is(err, store.ErrStoreUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// SetQuantity handles POST /v1/cart/quantity.  It grows or shrinks one
// line's claims to the target quantity; decreases drop the most recently
// claimed units first.
func (h *StockHandler) SetQuantity(c echo.Context) error {
	reservationID, err := getReservationID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		VariantID   string   `json:"variant_id"`
		WarehouseID string   `json:"warehouse_id"`
		UnitIDs     []string `json:"unit_ids"`
		Quantity    int      `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Manager.SetLineQuantity(c.Request().Context(), reservation.SetQuantityInput{
		VariantID:     body.VariantID,
		WarehouseID:   body.WarehouseID,
		ReservationID: reservationID,
		UnitIDs:       body.UnitIDs,
		Quantity:      body.Quantity,
	})
	if err != nil {
		return reserveError(c, err)
	}
	h.invalidateAvailability(c, body.VariantID, body.WarehouseID)
	return c.JSON(http.StatusOK, echo.Map{
		"units":          res.Units,
		"reserved_count": res.ReservedCount,
		"released_count": res.ReleasedCount,
	})
}

// Availability handles GET /v1/stock/availability.  The count is served
// from a short-lived Redis cache when possible; the cache is only a
// display hint, since every claim re-validates against the store anyway.
func (h *StockHandler) Availability(c echo.Context) error {
	variantID := c.QueryParam("variant_id")
	warehouseID := c.QueryParam("warehouse_id")
	if variantID == "" || warehouseID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "variant_id and warehouse_id are required"})
	}
	ctx := c.Request().Context()
	key := availabilityKey(variantID, warehouseID)
	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, key).Int(); err == nil {
			return c.JSON(http.StatusOK, echo.Map{"available": cached, "cached": true})
		}
	}
	ids, err := h.Store.ListAvailable(ctx, variantID, warehouseID)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
	}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, len(ids), 5*time.Second).Err()
	}
	return c.JSON(http.StatusOK, echo.Map{"available": len(ids)})
}

// Intake handles POST /v1/stock/intake.  It inserts quantity new units
// for a variant+warehouse, generating a canonical code for each from the
// desired base.  An insert losing a code race retries with the next
// suffix; the store's uniqueness constraint is the final backstop.
func (h *StockHandler) Intake(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		VariantID   string `json:"variant_id"`
		WarehouseID string `json:"warehouse_id"`
		BaseCode    string `json:"base_code"`
		Quantity    int    `json:"quantity"`
		Notes       string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.VariantID == "" || body.WarehouseID == "" || body.BaseCode == "" || body.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "variant_id, warehouse_id, base_code and quantity are required"})
	}
	ctx := c.Request().Context()
	created := make([]echo.Map, 0, body.Quantity)
	for i := 0; i < body.Quantity; i++ {
		var unit *model.Unit
		// Walk suffixes until an insert wins; a conflict means another
		// intake grabbed the probed code first.
		for skip := 0; ; skip++ {
			code, err := h.Codes.Next(ctx, body.BaseCode, skip)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate code"})
			}
			u := &model.Unit{
				ID:          uuid.NewString(),
				VariantID:   body.VariantID,
				WarehouseID: body.WarehouseID,
				UnitCode:    code,
				Status:      model.UnitAvailable,
				Notes:       body.Notes,
			}
			err = h.Store.InsertUnit(ctx, u)
			if err == nil {
				unit = u
				break
			}
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
		}
		created = append(created, echo.Map{"id": unit.ID, "unit_code": unit.UnitCode})
	}
	h.invalidateAvailability(c, body.VariantID, body.WarehouseID)
	return c.JSON(http.StatusCreated, echo.Map{"units": created})
}

// Damage handles POST /v1/stock/damage.  Marking a unit damaged pulls it
// out of circulation permanently, releasing any claim it was under; a
// unit already sold or damaged cannot be marked again.
func (h *StockHandler) Damage(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		UnitID      string `json:"unit_id"`
		VariantID   string `json:"variant_id"`
		WarehouseID string `json:"warehouse_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.UnitID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unit_id is required"})
	}
	if err := h.Store.MarkDamaged(c.Request().Context(), body.UnitID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		case errors.Is(err, store.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "unit already sold or damaged"})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
		}
	}
	h.invalidateAvailability(c, body.VariantID, body.WarehouseID)
	return c.JSON(http.StatusOK, echo.Map{"unit_id": body.UnitID, "status": model.UnitDamaged})
}

func availabilityKey(variantID, warehouseID string) string {
	return fmt.Sprintf("avail:%s:%s", variantID, warehouseID)
}

func (h *StockHandler) invalidateAvailability(c echo.Context, variantID, warehouseID string) {
	if h.Redis == nil || variantID == "" {
		return
	}
	_ = h.Redis.Del(c.Request().Context(), availabilityKey(variantID, warehouseID)).Err()
}

// reserveError maps engine errors onto HTTP responses.  Conflicts are
// reported as 409 so clients can retry or treat them as "no stock".
func reserveError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, reservation.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input"})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, store.ErrInvalidPair):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pair"})
	case errors.Is(err, store.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	default:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
	}
}
