package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service"
)

// ReservationStarter opens a hold and a payment session for one unit.
type ReservationStarter interface {
	BeginReservation(ctx context.Context, req service.ReservationRequest) (service.ReservationResult, error)
}

type CheckoutHandler struct {
	svc ReservationStarter
	log *zap.Logger
}

func NewCheckoutHandler(svc ReservationStarter, log *zap.Logger) *CheckoutHandler {
	if svc == nil {
		panic("nil service passed to NewCheckoutHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{svc: svc, log: log}
}

type checkoutRequest struct {
	RoomTypeSlug string `json:"room_type_slug"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	GuestCount   int    `json:"guest_count"`
	GuestName    string `json:"guest_name"`
	GuestEmail   string `json:"guest_email"`
}

// Create handles POST /api/create-checkout-session.  room_type_slug,
// start_date, end_date and guest_email are required; guest_count defaults
// to one.  On success the guest is sent to payment_redirect_url and the
// unit stays held until the hold expires or payment is confirmed.
func (h *CheckoutHandler) Create(c echo.Context) error {
	var body checkoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.RoomTypeSlug = strings.TrimSpace(body.RoomTypeSlug)
	body.GuestEmail = strings.TrimSpace(body.GuestEmail)
	if body.RoomTypeSlug == "" || body.StartDate == "" || body.EndDate == "" || body.GuestEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing fields"})
	}
	r, err := model.ParseDateRange(body.StartDate, body.EndDate)
	if err != nil {
		return domainError(c, err)
	}

	res, err := h.svc.BeginReservation(c.Request().Context(), service.ReservationRequest{
		RoomTypeSlug: body.RoomTypeSlug,
		Range:        r,
		Guest: service.GuestInfo{
			Name:  body.GuestName,
			Email: body.GuestEmail,
			Count: body.GuestCount,
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrDownstreamUnavailable) {
			h.log.Error("begin reservation failed", zap.String("room_type", body.RoomTypeSlug), zap.Error(err))
		}
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_redirect_url":      res.PaymentRedirectURL,
		"payment_session_reference": res.PaymentSessionReference,
	})
}
