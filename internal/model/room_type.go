package model

import "time"

// RoomType is a category of bookable unit with a fixed pool of physical
// units.  TotalUnits is the hard ceiling on simultaneous overlapping
// reservations for the type.  Room types are maintained by an
// administrative process and are read-only to the reservation engine.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – display name.
//  Slug          – unique external identifier used by clients.
//  MaxGuests     – maximum number of occupants per unit.
//  PricePerNight – nightly price in minor currency units (kuruş).
//  TotalUnits    – capacity of the type.
//  IsActive      – inactive types are hidden from availability and checkout.
type RoomType struct {
	ID            uint64    `json:"id"`              // room_types.id
	Name          string    `json:"name"`            // room_types.name
	Slug          string    `json:"slug"`            // room_types.slug
	MaxGuests     int       `json:"max_guests"`      // room_types.max_guests
	PricePerNight int64     `json:"price_per_night"` // room_types.price_per_night
	TotalUnits    int       `json:"total_units"`     // room_types.total_units
	IsActive      bool      `json:"is_active"`       // room_types.is_active
	CreatedAt     time.Time `json:"created_at"`      // room_types.created_at
}

// RoomAvailability is the computed capacity of one room type for a date
// range.  RemainingUnits is never negative and Available is true exactly
// when RemainingUnits is positive.
type RoomAvailability struct {
	RoomTypeID     uint64 `json:"room_type_id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	MaxGuests      int    `json:"max_guests"`
	PricePerNight  int64  `json:"price_per_night"`
	TotalUnits     int    `json:"total_units"`
	RemainingUnits int    `json:"remaining_units"`
	Available      bool   `json:"available"`
}

// NewRoomAvailability derives the remaining capacity of rt given the number
// of units already consumed by paid bookings and live holds.
func NewRoomAvailability(rt RoomType, used int) RoomAvailability {
	remaining := rt.TotalUnits - used
	if remaining < 0 {
		remaining = 0
	}
	return RoomAvailability{
		RoomTypeID:     rt.ID,
		Name:           rt.Name,
		Slug:           rt.Slug,
		MaxGuests:      rt.MaxGuests,
		PricePerNight:  rt.PricePerNight,
		TotalUnits:     rt.TotalUnits,
		RemainingUnits: remaining,
		Available:      remaining > 0,
	}
}
