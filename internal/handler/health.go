package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness check used by load balancers.  It does not touch
// the database.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// TableCounter reports how many tables the connected schema holds.
type TableCounter interface {
	Ping(ctx context.Context) (int, error)
}

// Ping returns GET /api/ping, a readiness check that round-trips to the
// store.
func Ping(store TableCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := store.Ping(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "database unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "tables": n})
	}
}
