package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/middleware"
	"github.com/iliyamo/room-reservation/internal/model"
)

// BookingAdmin is the booking maintenance surface of the workflow.
type BookingAdmin interface {
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	CancelPending(ctx context.Context, id uint64) (model.Booking, error)
}

// AdminHandler serves /v1/admin.  JWT authentication and the ADMIN role are
// enforced by middleware before any method runs.
type AdminHandler struct {
	svc BookingAdmin
	log *zap.Logger
}

func NewAdminHandler(svc BookingAdmin, log *zap.Logger) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{svc: svc, log: log}
}

// bookingView adds the stay dates, which the model keeps as a DateRange.
type bookingView struct {
	model.Booking
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func viewOf(b model.Booking) bookingView {
	return bookingView{Booking: b, StartDate: b.Range.StartString(), EndDate: b.Range.EndString()}
}

func parseBookingID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// ListBookings handles GET /v1/admin/bookings?status=&limit=&offset=.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	f := model.BookingFilter{Status: strings.ToLower(strings.TrimSpace(c.QueryParam("status")))}
	switch f.Status {
	case "", model.BookingPending, model.BookingPaid, model.BookingCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		f.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
		}
		f.Offset = n
	}

	list, err := h.svc.ListBookings(c.Request().Context(), f)
	if err != nil {
		h.log.Error("list bookings failed", zap.Error(err))
		return domainError(c, err)
	}
	items := make([]bookingView, 0, len(list))
	for _, b := range list {
		items = append(items, viewOf(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetBooking handles GET /v1/admin/bookings/:id.
func (h *AdminHandler) GetBooking(c echo.Context) error {
	id, ok := parseBookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(b))
}

// CancelBooking handles POST /v1/admin/bookings/:id/cancel.  Only pending
// bookings can be cancelled; the booking's hold is released with it.
func (h *AdminHandler) CancelBooking(c echo.Context) error {
	id, ok := parseBookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.svc.CancelPending(c.Request().Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	h.log.Info("booking cancelled by admin", zap.Uint64("booking_id", id), zap.String("admin", middleware.Subject(c)))
	return c.JSON(http.StatusOK, viewOf(b))
}
