package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-stock-reservation/internal/config"
	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
	"github.com/iliyamo/pos-stock-reservation/internal/utils"
)

// SessionHandler manages checkout session lifecycle: opening a session
// (which mints the reservation id every claim is grouped under),
// heartbeating it, and closing it.  Closing is also the "session
// ending" hook a host environment calls on whatever tab-hide or
// terminal-shutdown signals it has; the reclaimer remains the backstop
// when the hook never fires.
type SessionHandler struct {
	Manager *reservation.Manager
	Cfg     config.Config
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(mgr *reservation.Manager, cfg config.Config) *SessionHandler {
	if mgr == nil {
		panic("nil manager passed to NewSessionHandler")
	}
	return &SessionHandler{Manager: mgr, Cfg: cfg}
}

// Open handles POST /v1/session.  The operator authenticates with the
// terminal PIN; on success a fresh reservation is started and a session
// token bound to it is returned, along with the heartbeat interval the
// client is expected to honor.
func (h *SessionHandler) Open(c echo.Context) error {
	var body struct {
		Terminal string `json:"terminal"`
		PIN      string `json:"pin"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !utils.VerifyPIN(h.Cfg.OperatorPINHash, body.PIN) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
	}
	reservationID, err := h.Manager.StartSession(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start session"})
	}
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, reservationID, body.Terminal, h.Cfg.SessionTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id":       reservationID,
		"token":                tok.Token,
		"expires_at":           tok.Exp.Format(time.RFC3339),
		"heartbeat_interval_s": int(h.Cfg.HeartbeatInterval / time.Second),
	})
}

// Heartbeat handles POST /v1/session/heartbeat.  Clients call it on a
// fixed interval while the cart is open; silence past the expiry
// threshold marks the reservation abandoned.
func (h *SessionHandler) Heartbeat(c echo.Context) error {
	reservationID, err := getReservationID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Manager.Heartbeat(c.Request().Context(), reservationID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record heartbeat"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Close handles DELETE /v1/session.  Every claim under the session's
// reservation is released.  Safe to call repeatedly or concurrently
// with a finishing checkout: releasing consumed claims is a no-op.
func (h *SessionHandler) Close(c echo.Context) error {
	reservationID, err := getReservationID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	released, err := h.Manager.ReleaseReservation(c.Request().Context(), reservationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}
