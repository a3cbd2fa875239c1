package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// AvailabilityCalculator computes remaining capacity per room type.
type AvailabilityCalculator struct {
	store ports.InventoryStore
	now   Clock
}

func NewAvailabilityCalculator(store ports.InventoryStore, now Clock) *AvailabilityCalculator {
	if store == nil {
		panic("nil store passed to NewAvailabilityCalculator")
	}
	return &AvailabilityCalculator{store: store, now: now.orDefault()}
}

// GetAvailability returns one entry per active room type, ordered by id.
// Paid bookings and live holds are counted inside a single read snapshot.
func (a *AvailabilityCalculator) GetAvailability(ctx context.Context, r model.DateRange) ([]model.RoomAvailability, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	now := a.now().UTC()

	var out []model.RoomAvailability
	err := a.store.ReadSnapshot(ctx, func(q ports.InventoryReader) error {
		types, err := q.ListActiveRoomTypes(ctx)
		if err != nil {
			return fmt.Errorf("list room types: %w", err)
		}
		paid, err := q.PaidUsage(ctx, r)
		if err != nil {
			return fmt.Errorf("count paid bookings: %w", err)
		}
		held, err := q.LiveHoldUsage(ctx, r, now)
		if err != nil {
			return fmt.Errorf("count live holds: %w", err)
		}
		out = make([]model.RoomAvailability, 0, len(types))
		for _, rt := range types {
			out = append(out, model.NewRoomAvailability(rt, paid[rt.ID]+held[rt.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
