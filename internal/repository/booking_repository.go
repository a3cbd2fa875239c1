package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// BookingRepo provides access to the bookings table.  Bookings are the
// audit trail of every reservation that reached the payment step; status
// only moves pending -> paid or pending -> cancelled.  Rows are removed
// only by DeleteTx, which is reserved for rolling back an attempt whose
// payment session could not be opened.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, room_type_id, hold_id, start_date, end_date, guest_name, guest_email,
    guest_count, status, amount_total, payment_session_reference, created_at, paid_at, cancelled_at`

func scanBooking(s interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b           model.Booking
		holdID      sql.NullInt64
		paidAt      sql.NullTime
		cancelledAt sql.NullTime
	)
	err := s.Scan(&b.ID, &b.RoomTypeID, &holdID, &b.Range.Start, &b.Range.End,
		&b.GuestName, &b.GuestEmail, &b.GuestCount, &b.Status, &b.AmountTotal,
		&b.PaymentSessionReference, &b.CreatedAt, &paidAt, &cancelledAt)
	if err != nil {
		return model.Booking{}, err
	}
	if holdID.Valid {
		id := uint64(holdID.Int64)
		b.HoldID = &id
	}
	if paidAt.Valid {
		t := paidAt.Time
		b.PaidAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return b, nil
}

// CreateTx inserts a booking within the provided transaction and populates
// the generated ID.  A reference collision surfaces as
// ErrDuplicateReference.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (room_type_id, hold_id, start_date, end_date, guest_name, guest_email,
                   guest_count, status, amount_total, payment_session_reference, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var holdID any
	if b.HoldID != nil {
		holdID = *b.HoldID
	}
	res, err := tx.ExecContext(ctx, q,
		b.RoomTypeID, holdID, b.Range.StartString(), b.Range.EndString(),
		b.GuestName, b.GuestEmail, b.GuestCount, b.Status, b.AmountTotal,
		b.PaymentSessionReference, b.CreatedAt.UTC().Format(sqlDateTime),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// SetPaymentReferenceTx replaces the placeholder reference of a booking
// with the provider's session id.
func (r *BookingRepo) SetPaymentReferenceTx(ctx context.Context, tx *sql.Tx, id uint64, ref string) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET payment_session_reference = ? WHERE id = ?`, ref, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReference
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrBookingNotFound
	}
	return nil
}

// DeleteTx hard-deletes a booking.  Only used to roll back an attempt that
// never reached the payment provider.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return err
}

// MarkPaidTx flips a pending booking to paid.  The status guard in the
// WHERE clause makes repeated confirmations no-ops; the returned flag tells
// whether this call performed the transition.
func (r *BookingRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, ref string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'paid', paid_at = ? WHERE payment_session_reference = ? AND status = 'pending'`,
		now.UTC().Format(sqlDateTime), ref,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelPendingTx flips a pending booking to cancelled and reports whether
// the row changed.
func (r *BookingRepo) CancelPendingTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', cancelled_at = ? WHERE id = ? AND status = 'pending'`,
		now.UTC().Format(sqlDateTime), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetByReferenceTx loads the booking carrying the payment-session
// reference.
func (r *BookingRepo) GetByReferenceTx(ctx context.Context, tx *sql.Tx, ref string) (model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_session_reference = ?`, ref)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, err
}

// GetByIDTx loads a booking by primary key within tx.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, err
}

// PaidUsageTx counts paid bookings intersecting rng (half-open), grouped
// by room type.
func (r *BookingRepo) PaidUsageTx(ctx context.Context, tx *sql.Tx, rng model.DateRange) (map[uint64]int, error) {
	const q = `SELECT room_type_id, COUNT(*) FROM bookings
               WHERE status = 'paid' AND start_date < ? AND end_date > ?
               GROUP BY room_type_id`
	rows, err := tx.QueryContext(ctx, q, rng.EndString(), rng.StartString())
	if err != nil {
		return nil, err
	}
	return scanUsage(rows)
}

// CancelAbandoned marks pending bookings as cancelled when they were created
// before cutoff and their hold no longer exists or is no longer live at now.
// This is the reconciliation for the implicit Abandoned state.
func (r *BookingRepo) CancelAbandoned(ctx context.Context, cutoff, now time.Time) (int64, error) {
	const q = `UPDATE bookings b
               LEFT JOIN holds h ON h.id = b.hold_id
               SET b.status = 'cancelled', b.cancelled_at = ?
               WHERE b.status = 'pending' AND b.created_at < ? AND (h.id IS NULL OR h.expires_at <= ?)`
	ts := now.UTC().Format(sqlDateTime)
	res, err := r.db.ExecContext(ctx, q, ts, cutoff.UTC().Format(sqlDateTime), ts)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns bookings newest first.  A zero Limit defaults to 50 and is
// capped at 200.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + bookingColumns + ` FROM bookings`)
	if f.Status != "" {
		sb.WriteString(` WHERE status = ?`)
		args = append(args, f.Status)
	}
	sb.WriteString(` ORDER BY id DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
