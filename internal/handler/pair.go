package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
)

// PairHandler exposes composite-pair management: binding two standalone
// units into one sellable item, reserving and releasing the bundle as a
// whole, and dismantling it again while it is still available.
type PairHandler struct {
	Manager *reservation.Manager
}

// NewPairHandler constructs a PairHandler.
func NewPairHandler(mgr *reservation.Manager) *PairHandler {
	if mgr == nil {
		panic("nil manager passed to NewPairHandler")
	}
	return &PairHandler{Manager: mgr}
}

// Create handles POST /v1/pairs.  Both units must be available and
// unpaired; pairing only creates the association, the units stay
// available until the pair itself is reserved.
func (h *PairHandler) Create(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		PrimaryUnitID   string `json:"primary_unit_id"`
		SecondaryUnitID string `json:"secondary_unit_id"`
		CombinedCode    string `json:"combined_code"`
		Notes           string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	p, err := h.Manager.CreatePair(c.Request().Context(),
		body.PrimaryUnitID, body.SecondaryUnitID, body.CombinedCode, body.Notes)
	if err != nil {
		return reserveError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"pair_id":       p.ID,
		"combined_code": p.CombinedCode,
	})
}

// Dismantle handles DELETE /v1/pairs/:id.  Only legal while the pair is
// available; a reserved or sold pair must be released or sold as a unit.
func (h *PairHandler) Dismantle(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pairID := c.Param("id")
	if pairID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pair id"})
	}
	if err := h.Manager.DismantlePair(c.Request().Context(), pairID); err != nil {
		return reserveError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reserve handles POST /v1/pairs/:id/reserve.  Both member units are
// claimed under the session's reservation, all or nothing.
func (h *PairHandler) Reserve(c echo.Context) error {
	reservationID, err := getReservationID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pairID := c.Param("id")
	if pairID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pair id"})
	}
	if err := h.Manager.ReservePair(c.Request().Context(), pairID, reservationID); err != nil {
		return reserveError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reserved": true})
}

// Release handles POST /v1/pairs/:id/release.  Tolerant of cleanup
// races, like unit release.
func (h *PairHandler) Release(c echo.Context) error {
	if _, err := getReservationID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pairID := c.Param("id")
	if pairID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pair id"})
	}
	if err := h.Manager.ReleasePair(c.Request().Context(), pairID); err != nil {
		return reserveError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": true})
}
