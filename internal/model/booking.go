package model

import (
	"strings"
	"time"
)

// Booking statuses.  pending may move to paid or cancelled; paid and
// cancelled are terminal.
const (
	BookingPending   = "pending"
	BookingPaid      = "paid"
	BookingCancelled = "cancelled"
)

// PendingReferencePrefix marks a payment-session reference that has not yet
// been replaced by the payment provider's session id.
const PendingReferencePrefix = "pending_"

// Booking is a reservation that has reached at least the "payment requested"
// stage.  HoldID points at the hold created in the same attempt so that
// confirmation releases exactly that hold.
type Booking struct {
	ID                      uint64     `json:"id"`
	RoomTypeID              uint64     `json:"room_type_id"`
	HoldID                  *uint64    `json:"hold_id,omitempty"`
	Range                   DateRange  `json:"-"`
	GuestName               string     `json:"guest_name"`
	GuestEmail              string     `json:"guest_email"`
	GuestCount              int        `json:"guest_count"`
	Status                  string     `json:"status"`
	AmountTotal             int64      `json:"amount_total"`
	PaymentSessionReference string     `json:"payment_session_reference"`
	CreatedAt               time.Time  `json:"created_at"`
	PaidAt                  *time.Time `json:"paid_at,omitempty"`
	CancelledAt             *time.Time `json:"cancelled_at,omitempty"`
}

// HasProviderReference reports whether the booking carries a real payment
// session id rather than the placeholder written before checkout.
func (b Booking) HasProviderReference() bool {
	return b.PaymentSessionReference != "" && !strings.HasPrefix(b.PaymentSessionReference, PendingReferencePrefix)
}

// BookingFilter narrows admin listings.  An empty Status matches all.
type BookingFilter struct {
	Status string
	Limit  int
	Offset int
}
