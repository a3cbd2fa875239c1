package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// SweepResult counts what one housekeeping pass removed or cancelled.
type SweepResult struct {
	BookingsCancelled int64
	HoldsPurged       int64
}

// Housekeeper reconciles abandoned reservations and deletes dead holds.
// Capacity is correct without it; it keeps the tables tidy and gives
// abandoned bookings a terminal status.
type Housekeeper struct {
	store        ports.InventoryStore
	holds        *HoldManager
	abandonAfter time.Duration
	now          Clock
	log          *zap.Logger
}

func NewHousekeeper(store ports.InventoryStore, holds *HoldManager, abandonAfter time.Duration, log *zap.Logger, now Clock) *Housekeeper {
	if store == nil || holds == nil {
		panic("nil dependency passed to NewHousekeeper")
	}
	if abandonAfter < holds.TTL() {
		abandonAfter = holds.TTL()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Housekeeper{store: store, holds: holds, abandonAfter: abandonAfter, now: now.orDefault(), log: log}
}

// Sweep cancels pending bookings older than the abandon window whose hold
// has lapsed, then purges expired holds.  Cancellation runs first because
// it looks at hold expiry.
func (h *Housekeeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := h.now().UTC()
	var res SweepResult
	var errs []error

	n, err := h.store.CancelAbandoned(ctx, now.Add(-h.abandonAfter), now)
	if err != nil {
		errs = append(errs, fmt.Errorf("cancel abandoned bookings: %w", err))
	}
	res.BookingsCancelled = n

	n, err = h.holds.PurgeExpired(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge expired holds: %w", err))
	}
	res.HoldsPurged = n

	if res.BookingsCancelled > 0 || res.HoldsPurged > 0 {
		h.log.Info("housekeeping sweep",
			zap.Int64("bookings_cancelled", res.BookingsCancelled),
			zap.Int64("holds_purged", res.HoldsPurged))
	}
	return res, errors.Join(errs...)
}
