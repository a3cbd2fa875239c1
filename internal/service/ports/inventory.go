package ports

import (
	"context"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// InventoryReader is the read side of the inventory store.  Every hold
// count filters by expires_at > now.
type InventoryReader interface {
	ListActiveRoomTypes(ctx context.Context) ([]model.RoomType, error)
	// PaidUsage returns, per room type, the number of paid bookings
	// overlapping r.
	PaidUsage(ctx context.Context, r model.DateRange) (map[uint64]int, error)
	// LiveHoldUsage returns, per room type, the number of holds overlapping r
	// that are still live at now.
	LiveHoldUsage(ctx context.Context, r model.DateRange, now time.Time) (map[uint64]int, error)
	// CountUsedCapacity returns paid bookings plus holds live at now of one
	// room type overlapping r.  Both counts come from a single statement so
	// they observe the same committed state.
	CountUsedCapacity(ctx context.Context, roomTypeID uint64, r model.DateRange, now time.Time) (int, error)
	GetBookingByID(ctx context.Context, id uint64) (model.Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (model.Booking, error)
}

// InventoryWriter is the transactional write side handed to callbacks of
// InventoryStore.WithRoomTypeLock and InventoryStore.InTx.
type InventoryWriter interface {
	InventoryReader
	InsertHold(ctx context.Context, h *model.Hold) error
	DeleteHold(ctx context.Context, id uint64) (int64, error)
	// DeleteHoldsMatching removes holds of roomTypeID with exactly r.
	DeleteHoldsMatching(ctx context.Context, roomTypeID uint64, r model.DateRange) (int64, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	SetPaymentReference(ctx context.Context, bookingID uint64, ref string) error
	DeleteBooking(ctx context.Context, id uint64) error
	// MarkPaid moves the booking with ref from pending to paid and reports
	// whether a row changed.
	MarkPaid(ctx context.Context, ref string, now time.Time) (bool, error)
	// CancelPending moves booking id from pending to cancelled and reports
	// whether a row changed.
	CancelPending(ctx context.Context, id uint64, now time.Time) (bool, error)
}

// InventoryStore is the transactional relational store behind the engine.
type InventoryStore interface {
	// ReadSnapshot runs fn inside one read-only transaction so every count
	// sees the same point in time.
	ReadSnapshot(ctx context.Context, fn func(InventoryReader) error) error
	// WithRoomTypeLock runs fn in a write transaction that holds an
	// exclusive lock on the room type row until commit.  It returns
	// model.ErrRoomTypeNotFound when the room type is missing or inactive.
	WithRoomTypeLock(ctx context.Context, roomTypeID uint64, fn func(InventoryWriter, model.RoomType) error) error
	// InTx runs fn in a write transaction without any room type lock.
	InTx(ctx context.Context, fn func(InventoryWriter) error) error

	GetActiveRoomTypeBySlug(ctx context.Context, slug string) (model.RoomType, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error)
	// CancelAbandoned cancels pending bookings created before cutoff whose
	// hold is gone or no longer live at now.
	CancelAbandoned(ctx context.Context, cutoff, now time.Time) (int64, error)
	Ping(ctx context.Context) (int, error)
}
