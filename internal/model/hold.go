package model

import "time"

// HoldTTL is how long a hold consumes capacity without a confirmed payment.
const HoldTTL = 15 * time.Minute

// Hold is a provisional, time-boxed capacity reservation for one unit of a
// room type.  A hold whose ExpiresAt is not after the current time is dead
// and must not be counted, even while its row still exists.
//
// Fields:
//  ID         – primary key identifier.
//  RoomTypeID – room type whose capacity is consumed.
//  Range      – held nights [start_date, end_date).
//  ExpiresAt  – creation time plus the hold TTL.
//  CreatedAt  – creation timestamp.
type Hold struct {
	ID         uint64    // holds.id
	RoomTypeID uint64    // holds.room_type_id
	Range      DateRange // holds.start_date, holds.end_date
	ExpiresAt  time.Time // holds.expires_at
	CreatedAt  time.Time // holds.created_at
}

// LiveAt reports whether the hold still consumes capacity at now.
func (h Hold) LiveAt(now time.Time) bool { return h.ExpiresAt.After(now) }
