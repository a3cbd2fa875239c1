package handler // HTTP handlers for the public booking API and the admin surface

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/model"
)

// domainError writes the JSON error response for err.  Domain errors carry
// their own status; everything else is reported as a retryable 500 so the
// client knows the attempt left nothing behind.
func domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "End date must be after start date"})
	case errors.Is(err, model.ErrInvalidGuestCount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid guest count"})
	case errors.Is(err, model.ErrRoomTypeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Room type not found"})
	case errors.Is(err, model.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
	case errors.Is(err, model.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Room type not available for these dates"})
	case errors.Is(err, model.ErrBookingNotPending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Booking is not pending"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Service temporarily unavailable", "retryable": true})
	}
}
