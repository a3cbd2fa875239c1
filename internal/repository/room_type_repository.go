package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/room-reservation/internal/model"
)

// RoomTypeRepo reads room type definitions.  Room types are maintained
// outside of the reservation engine, so the repository exposes no writes.
type RoomTypeRepo struct {
	db *sql.DB
}

// NewRoomTypeRepo returns a RoomTypeRepo bound to the given database.
func NewRoomTypeRepo(db *sql.DB) *RoomTypeRepo { return &RoomTypeRepo{db: db} }

const roomTypeColumns = `id, name, slug, max_guests, price_per_night, total_units, is_active, created_at`

func scanRoomType(s interface{ Scan(...any) error }) (model.RoomType, error) {
	var rt model.RoomType
	err := s.Scan(&rt.ID, &rt.Name, &rt.Slug, &rt.MaxGuests, &rt.PricePerNight, &rt.TotalUnits, &rt.IsActive, &rt.CreatedAt)
	return rt, err
}

// ListActiveTx returns all active room types ordered by id.  It runs on the
// supplied transaction so that it shares the caller's snapshot.
func (r *RoomTypeRepo) ListActiveTx(ctx context.Context, tx *sql.Tx) ([]model.RoomType, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// GetActiveBySlug looks up an active room type by its public slug.  Unknown
// and inactive slugs both yield model.ErrRoomTypeNotFound.
func (r *RoomTypeRepo) GetActiveBySlug(ctx context.Context, slug string) (model.RoomType, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE slug = ? AND is_active = 1`, slug)
	rt, err := scanRoomType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoomType{}, model.ErrRoomTypeNotFound
	}
	return rt, err
}

// LockTx takes an exclusive row lock on the room type with SELECT ... FOR
// UPDATE.  The lock is held until tx commits or rolls back and serialises
// every capacity check-and-insert for that room type.
func (r *RoomTypeRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.RoomType, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = ? AND is_active = 1 FOR UPDATE`, id)
	rt, err := scanRoomType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoomType{}, model.ErrRoomTypeNotFound
	}
	return rt, err
}
