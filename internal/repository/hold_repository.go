package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// HoldRepo provides data access to the holds table.  A hold is live while
// expires_at is after the reference time passed by the caller; expired
// rows are ignored by every count and only removed by PurgeExpired.  All
// timestamps are stored in UTC.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// CreateTx inserts a hold within the provided transaction and populates its
// generated ID.  The caller must hold the room type lock.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	const q = `INSERT INTO holds (room_type_id, start_date, end_date, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		h.RoomTypeID,
		h.Range.StartString(),
		h.Range.EndString(),
		h.ExpiresAt.UTC().Format(sqlDateTime),
		h.CreatedAt.UTC().Format(sqlDateTime),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// DeleteByIDTx removes a single hold.  Deleting a missing hold is not an
// error; the affected row count is returned.
func (r *HoldRepo) DeleteByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMatchingTx removes holds for the room type whose dates equal rng
// exactly.
func (r *HoldRepo) DeleteMatchingTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, rng model.DateRange) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM holds WHERE room_type_id = ? AND start_date = ? AND end_date = ?`,
		roomTypeID, rng.StartString(), rng.EndString(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LiveUsageTx counts holds intersecting rng that are still live at now,
// grouped by room type.  Intervals are half-open so a hold ending on
// rng.Start does not count.
func (r *HoldRepo) LiveUsageTx(ctx context.Context, tx *sql.Tx, rng model.DateRange, now time.Time) (map[uint64]int, error) {
	const q = `SELECT room_type_id, COUNT(*) FROM holds
               WHERE expires_at > ? AND start_date < ? AND end_date > ?
               GROUP BY room_type_id`
	rows, err := tx.QueryContext(ctx, q, now.UTC().Format(sqlDateTime), rng.EndString(), rng.StartString())
	if err != nil {
		return nil, err
	}
	return scanUsage(rows)
}

// PurgeExpired deletes holds that stopped being live at or before now.
// Correctness never depends on it; it only keeps the table small.
func (r *HoldRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holds WHERE expires_at <= ?`, now.UTC().Format(sqlDateTime))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanUsage reads (room_type_id, count) rows into a map and closes rows.
func scanUsage(rows *sql.Rows) (map[uint64]int, error) {
	defer rows.Close()
	out := make(map[uint64]int)
	for rows.Next() {
		var id uint64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
