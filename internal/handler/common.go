package handler // handler defines the HTTP surface of the reservation engine

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// getReservationID extracts the session's reservation id that the
// SessionAuth middleware stored in the context.
func getReservationID(c echo.Context) (string, error) {
	v := c.Get("reservation_id")
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("no reservation in context")
}
