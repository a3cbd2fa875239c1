package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// HoldManager creates and releases holds.  Creation always happens under
// the room type lock provided by the store, so the capacity count and the
// insert cannot interleave with another attempt on the same room type.
type HoldManager struct {
	store ports.InventoryStore
	ttl   time.Duration
	now   Clock
}

// NewHoldManager returns a HoldManager.  A non-positive ttl falls back to
// model.HoldTTL.
func NewHoldManager(store ports.InventoryStore, ttl time.Duration, now Clock) *HoldManager {
	if store == nil {
		panic("nil store passed to NewHoldManager")
	}
	if ttl <= 0 {
		ttl = model.HoldTTL
	}
	return &HoldManager{store: store, ttl: ttl, now: now.orDefault()}
}

// TTL reports how long new holds stay live.
func (m *HoldManager) TTL() time.Duration { return m.ttl }

// CreateHold reserves one unit of the room type for r.  It fails with
// model.ErrCapacityExceeded when paid bookings plus live holds already
// reach total_units.
func (m *HoldManager) CreateHold(ctx context.Context, roomTypeID uint64, r model.DateRange) (model.Hold, error) {
	if err := r.Validate(); err != nil {
		return model.Hold{}, err
	}
	var h model.Hold
	err := m.store.WithRoomTypeLock(ctx, roomTypeID, func(w ports.InventoryWriter, rt model.RoomType) error {
		var err error
		h, err = m.createLocked(ctx, w, rt, r)
		return err
	})
	return h, err
}

// createLocked rechecks capacity and inserts the hold.  w must belong to a
// transaction that holds the lock on rt.
func (m *HoldManager) createLocked(ctx context.Context, w ports.InventoryWriter, rt model.RoomType, r model.DateRange) (model.Hold, error) {
	now := m.now().UTC()
	used, err := w.CountUsedCapacity(ctx, rt.ID, r, now)
	if err != nil {
		return model.Hold{}, fmt.Errorf("count used capacity: %w", err)
	}
	if used >= rt.TotalUnits {
		return model.Hold{}, model.ErrCapacityExceeded
	}
	h := model.Hold{
		RoomTypeID: rt.ID,
		Range:      r,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := w.InsertHold(ctx, &h); err != nil {
		return model.Hold{}, fmt.Errorf("insert hold: %w", err)
	}
	return h, nil
}

// ReleaseHold deletes holds of the room type with exactly matching dates.
// Releasing nothing is not an error.
func (m *HoldManager) ReleaseHold(ctx context.Context, roomTypeID uint64, r model.DateRange) (int64, error) {
	var n int64
	err := m.store.InTx(ctx, func(w ports.InventoryWriter) error {
		var err error
		n, err = w.DeleteHoldsMatching(ctx, roomTypeID, r)
		return err
	})
	return n, err
}

// releaseFor removes the hold that belongs to b.  Bookings written before
// hold_id existed fall back to the exact room type and dates match.
func (m *HoldManager) releaseFor(ctx context.Context, w ports.InventoryWriter, b model.Booking) (int64, error) {
	if b.HoldID != nil {
		return w.DeleteHold(ctx, *b.HoldID)
	}
	return w.DeleteHoldsMatching(ctx, b.RoomTypeID, b.Range)
}

// PurgeExpired physically deletes dead holds.
func (m *HoldManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.PurgeExpiredHolds(ctx, m.now().UTC())
}
