package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/iliyamo/pos-stock-reservation/internal/handler"    // handlers implementing the engine's HTTP surface
	"github.com/iliyamo/pos-stock-reservation/internal/middleware" // middleware for session auth
)

// RegisterRoutes registers routes that do not require a session on the
// provided Echo instance: the health check and the session-open
// endpoint itself (which is where a terminal obtains its token).
func RegisterRoutes(e *echo.Echo, s *handler.SessionHandler) {
	// Load balancers and monitoring probe this endpoint.
	e.GET("/healthz", handler.Health)
	// Opening a session authenticates with the operator PIN, so it
	// lives outside the token-protected group.
	e.POST("/v1/session", s.Open)
}

// RegisterSession registers every endpoint that acts on behalf of one
// checkout session.  All of them sit behind the SessionAuth middleware,
// which injects the session's reservation id into the request context.
func RegisterSession(e *echo.Echo, jwtSecret string,
	s *handler.SessionHandler, st *handler.StockHandler,
	p *handler.PairHandler, sc *handler.ScanHandler, co *handler.CheckoutHandler) {

	g := e.Group("/v1")
	g.Use(middleware.SessionAuth(jwtSecret))

	// Session lifecycle.  Heartbeat keeps the reservation alive;
	// closing it releases every claim it still holds.
	g.POST("/session/heartbeat", s.Heartbeat)
	g.DELETE("/session", s.Close)

	// Cart operations against the unit pool.
	g.POST("/cart/reserve", st.Reserve)
	g.POST("/cart/release", st.Release)
	g.POST("/cart/quantity", st.SetQuantity)

	// Stock visibility, intake and write-offs.
	g.GET("/stock/availability", st.Availability)
	g.POST("/stock/intake", st.Intake)
	g.POST("/stock/damage", st.Damage)

	// Composite pairs.
	g.POST("/pairs", p.Create)
	g.DELETE("/pairs/:id", p.Dismantle)
	g.POST("/pairs/:id/reserve", p.Reserve)
	g.POST("/pairs/:id/release", p.Release)

	// Barcode scan resolution.
	g.GET("/scan", sc.Lookup)

	// Checkout converts the session's claims into an order.
	g.POST("/checkout", co.Checkout)
}
