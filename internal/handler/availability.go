package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
)

// AvailabilityService computes remaining units per room type.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, r model.DateRange) ([]model.RoomAvailability, error)
}

// AvailabilityHandler serves the public availability query.
type AvailabilityHandler struct {
	svc AvailabilityService
	log *zap.Logger
}

func NewAvailabilityHandler(svc AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	if svc == nil {
		panic("nil service passed to NewAvailabilityHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AvailabilityHandler{svc: svc, log: log}
}

// Get handles GET /api/availability?start=YYYY-MM-DD&end=YYYY-MM-DD.  Both
// dates are required and end must be after start.  The response echoes the
// dates and lists every active room type ordered by id.
func (h *AvailabilityHandler) Get(c echo.Context) error {
	start := c.QueryParam("start")
	end := c.QueryParam("end")
	if start == "" || end == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing start or end"})
	}
	r, err := model.ParseDateRange(start, end)
	if err != nil {
		return domainError(c, err)
	}

	rooms, err := h.svc.GetAvailability(c.Request().Context(), r)
	if err != nil {
		h.log.Error("availability query failed", zap.String("start", start), zap.String("end", end), zap.Error(err))
		return domainError(c, err)
	}
	if rooms == nil {
		rooms = []model.RoomAvailability{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"start": r.StartString(),
		"end":   r.EndString(),
		"rooms": rooms,
	})
}
