package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// Store composes the table repositories into the transactional inventory
// store used by the service layer.
//
// Concurrency: WithRoomTypeLock opens a READ COMMITTED transaction and takes
// SELECT ... FOR UPDATE on the room type row before running the callback.
// Every reservation attempt for the same room type therefore runs its
// capacity count and hold insert one after another.  Other room types are
// not blocked.
//
// Payment confirmation and cancellation do not take the room type lock.
// They commit concurrently with a locked attempt, so the capacity count
// (CountUsedCapacity) reads paid bookings and live holds in a single
// statement.  A confirmation that flips a booking to paid and deletes its
// hold is then seen either wholly before or wholly after.
type Store struct {
	db        *sql.DB
	roomTypes *RoomTypeRepo
	holds     *HoldRepo
	bookings  *BookingRepo
}

var _ ports.InventoryStore = (*Store)(nil)

// NewStore wires the repositories around db.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("nil db passed to NewStore")
	}
	return &Store{
		db:        db,
		roomTypes: NewRoomTypeRepo(db),
		holds:     NewHoldRepo(db),
		bookings:  NewBookingRepo(db),
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ReadSnapshot(ctx context.Context, fn func(ports.InventoryReader) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(tx *sql.Tx) error {
		return fn(s.bind(tx))
	})
}

func (s *Store) WithRoomTypeLock(ctx context.Context, roomTypeID uint64, fn func(ports.InventoryWriter, model.RoomType) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		rt, err := s.roomTypes.LockTx(ctx, tx, roomTypeID)
		if err != nil {
			return err
		}
		return fn(s.bind(tx), rt)
	})
}

func (s *Store) InTx(ctx context.Context, fn func(ports.InventoryWriter) error) error {
	return s.run(ctx, nil, func(tx *sql.Tx) error {
		return fn(s.bind(tx))
	})
}

func (s *Store) GetActiveRoomTypeBySlug(ctx context.Context, slug string) (model.RoomType, error) {
	return s.roomTypes.GetActiveBySlug(ctx, slug)
}

func (s *Store) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	return s.bookings.List(ctx, f)
}

func (s *Store) PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	return s.holds.PurgeExpired(ctx, now)
}

func (s *Store) CancelAbandoned(ctx context.Context, cutoff, now time.Time) (int64, error) {
	return s.bookings.CancelAbandoned(ctx, cutoff, now)
}

// Ping checks connectivity and returns the number of tables in the current
// schema.
func (s *Store) Ping(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE()`,
	).Scan(&n)
	return n, err
}

// run begins a transaction, invokes fn and commits.  Any error from fn, or
// a panic, rolls the transaction back.
func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) bind(tx *sql.Tx) *txInventory {
	return &txInventory{tx: tx, s: s}
}

// txInventory adapts the *Tx repository methods to ports.InventoryWriter
// for one transaction.
type txInventory struct {
	tx *sql.Tx
	s  *Store
}

func (t *txInventory) ListActiveRoomTypes(ctx context.Context) ([]model.RoomType, error) {
	return t.s.roomTypes.ListActiveTx(ctx, t.tx)
}

func (t *txInventory) PaidUsage(ctx context.Context, r model.DateRange) (map[uint64]int, error) {
	return t.s.bookings.PaidUsageTx(ctx, t.tx, r)
}

func (t *txInventory) LiveHoldUsage(ctx context.Context, r model.DateRange, now time.Time) (map[uint64]int, error) {
	return t.s.holds.LiveUsageTx(ctx, t.tx, r, now)
}

// CountUsedCapacity sums paid bookings and live holds in one statement so
// both subqueries read the same snapshot.
func (t *txInventory) CountUsedCapacity(ctx context.Context, roomTypeID uint64, r model.DateRange, now time.Time) (int, error) {
	const q = `SELECT
	    (SELECT COUNT(*) FROM bookings
	     WHERE room_type_id = ? AND status = 'paid' AND start_date < ? AND end_date > ?)
	  + (SELECT COUNT(*) FROM holds
	     WHERE room_type_id = ? AND expires_at > ? AND start_date < ? AND end_date > ?)`
	var n int
	err := t.tx.QueryRowContext(ctx, q,
		roomTypeID, r.EndString(), r.StartString(),
		roomTypeID, now.UTC().Format(sqlDateTime), r.EndString(), r.StartString(),
	).Scan(&n)
	return n, err
}

func (t *txInventory) GetBookingByID(ctx context.Context, id uint64) (model.Booking, error) {
	return t.s.bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *txInventory) GetBookingByReference(ctx context.Context, ref string) (model.Booking, error) {
	return t.s.bookings.GetByReferenceTx(ctx, t.tx, ref)
}

func (t *txInventory) InsertHold(ctx context.Context, h *model.Hold) error {
	return t.s.holds.CreateTx(ctx, t.tx, h)
}

func (t *txInventory) DeleteHold(ctx context.Context, id uint64) (int64, error) {
	return t.s.holds.DeleteByIDTx(ctx, t.tx, id)
}

func (t *txInventory) DeleteHoldsMatching(ctx context.Context, roomTypeID uint64, r model.DateRange) (int64, error) {
	return t.s.holds.DeleteMatchingTx(ctx, t.tx, roomTypeID, r)
}

func (t *txInventory) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *txInventory) SetPaymentReference(ctx context.Context, bookingID uint64, ref string) error {
	return t.s.bookings.SetPaymentReferenceTx(ctx, t.tx, bookingID, ref)
}

func (t *txInventory) DeleteBooking(ctx context.Context, id uint64) error {
	return t.s.bookings.DeleteTx(ctx, t.tx, id)
}

func (t *txInventory) MarkPaid(ctx context.Context, ref string, now time.Time) (bool, error) {
	return t.s.bookings.MarkPaidTx(ctx, t.tx, ref, now)
}

func (t *txInventory) CancelPending(ctx context.Context, id uint64, now time.Time) (bool, error) {
	return t.s.bookings.CancelPendingTx(ctx, t.tx, id, now)
}
