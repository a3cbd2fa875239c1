package model

import "errors"

// Client input errors.
var (
	ErrInvalidRange      = errors.New("invalid date range")
	ErrInvalidGuestCount = errors.New("invalid guest count")
	ErrRoomTypeNotFound  = errors.New("room type not found")
	ErrBookingNotFound   = errors.New("booking not found")
)

// Business rule conflicts.
var (
	ErrCapacityExceeded  = errors.New("room type not available for these dates")
	ErrBookingNotPending = errors.New("booking is not in pending status")
)

// ErrDownstreamUnavailable wraps payment adapter or store failures during
// reservation creation.  Callers may retry.
var ErrDownstreamUnavailable = errors.New("downstream unavailable")
