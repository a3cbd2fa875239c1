// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// BookingConfirmedQueue is the durable queue carrying BookingConfirmedEvent.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per booking, when it moves from
// pending to paid.  It carries enough for downstream consumers to log or
// notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID               uint64 `json:"booking_id"`
	RoomTypeID              uint64 `json:"room_type_id"`
	StartDate               string `json:"start_date"`
	EndDate                 string `json:"end_date"`
	Nights                  int    `json:"nights"`
	GuestName               string `json:"guest_name"`
	GuestEmail              string `json:"guest_email"`
	GuestCount              int    `json:"guest_count"`
	AmountTotal             int64  `json:"amount_total"`
	PaymentSessionReference string `json:"payment_session_reference"`
	ConfirmedAt             string `json:"confirmed_at"`
}

// NewBookingConfirmedEvent builds the event for a paid booking.
func NewBookingConfirmedEvent(b model.Booking) BookingConfirmedEvent {
	confirmed := time.Now().UTC()
	if b.PaidAt != nil {
		confirmed = b.PaidAt.UTC()
	}
	return BookingConfirmedEvent{
		BookingID:               b.ID,
		RoomTypeID:              b.RoomTypeID,
		StartDate:               b.Range.StartString(),
		EndDate:                 b.Range.EndString(),
		Nights:                  b.Range.Nights(),
		GuestName:               b.GuestName,
		GuestEmail:              b.GuestEmail,
		GuestCount:              b.GuestCount,
		AmountTotal:             b.AmountTotal,
		PaymentSessionReference: b.PaymentSessionReference,
		ConfirmedAt:             confirmed.Format(time.RFC3339),
	}
}
