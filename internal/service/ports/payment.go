package ports

import (
	"context"

	"github.com/iliyamo/room-reservation/internal/model"
)

// CheckoutRequest carries what the payment adapter needs to open a session
// for a pending booking.
type CheckoutRequest struct {
	Booking  model.Booking
	RoomType model.RoomType
}

// CheckoutSession is the provider's answer: a stable reference that later
// arrives in the confirmation event and a URL to send the guest to.
type CheckoutSession struct {
	Reference   string
	RedirectURL string
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	ExpireSession(ctx context.Context, reference string) error
}
