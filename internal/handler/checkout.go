package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-stock-reservation/internal/checkout"
	"github.com/iliyamo/pos-stock-reservation/internal/model"
	q "github.com/iliyamo/pos-stock-reservation/internal/queue"
	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
	queue_publisher "github.com/iliyamo/pos-stock-reservation/internal/service"
)

// CheckoutHandler turns the session's claims into a completed order.
// Partial fulfillment is a normal outcome reported in the response, not
// a failure; only store unavailability reads as an error to the client.
type CheckoutHandler struct {
	Coordinator *checkout.Coordinator
	Manager     *reservation.Manager
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(coord *checkout.Coordinator, mgr *reservation.Manager) *CheckoutHandler {
	if coord == nil || mgr == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Coordinator: coord, Manager: mgr}
}

// Checkout handles POST /v1/checkout.  The body carries the completed
// cart lines; a fresh order id is minted here.  After fulfillment the
// session's reservation is torn down (releasing leftovers is a no-op
// for everything that sold) and one movement event per grouping is
// published for the audit consumer, best-effort.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	reservationID, err := getReservationID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Lines []model.CartLine `json:"lines"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Lines) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lines is required"})
	}

	ctx := c.Request().Context()
	orderID := uuid.NewString()
	res, err := h.Coordinator.Fulfill(ctx, checkout.Input{
		ReservationID: reservationID,
		OrderID:       orderID,
		Lines:         body.Lines,
	})
	if err != nil {
		// Forward-only: whatever sold stays sold.  Log and keep going
		// unless nothing at all was fulfilled.
		log.Printf("checkout: fulfillment finished with error: %v", err)
		sold := 0
		for _, lr := range res.Lines {
			sold += lr.SoldCount
		}
		if sold == 0 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
		}
	}

	// The reservation is spent; release anything it still holds.
	if _, err := h.Manager.ReleaseReservation(ctx, reservationID); err != nil {
		log.Printf("checkout: post-checkout release failed: %v", err)
	}

	unmetByGroup := make(map[string]int)
	for _, lr := range res.Lines {
		unmetByGroup[lr.VariantID+"|"+lr.WarehouseID] += lr.UnmetQuantity
	}
	events := make([]q.StockMovementEvent, 0, len(res.Movements))
	for _, mv := range res.Movements {
		events = append(events, q.StockMovementEvent{
			MovementID:    mv.ID,
			OrderID:       mv.OrderID,
			ReservationID: reservationID,
			VariantID:     mv.VariantID,
			WarehouseID:   mv.WarehouseID,
			Quantity:      mv.Quantity,
			UnitIDs:       mv.UnitIDs,
			UnmetQuantity: unmetByGroup[mv.VariantID+"|"+mv.WarehouseID],
			SoldAt:        mv.CreatedAt.Format(time.RFC3339),
		})
	}
	if err := queue_publisher.PublishStockMovements(ctx, events); err != nil {
		log.Printf("checkout: movement publish failed (ignored): %v", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order_id": res.OrderID,
		"partial":  res.Partial,
		"lines":    res.Lines,
	})
}
