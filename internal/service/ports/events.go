package ports

import (
	"context"

	"github.com/iliyamo/room-reservation/internal/model"
)

// EventPublisher announces confirmed bookings to downstream consumers.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, b model.Booking) error
}
