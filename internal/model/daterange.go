package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in the store.
const DateLayout = "2006-01-02"

// DateRange is a half-open interval of calendar days [Start, End).  The
// start day is occupied, the end day is the checkout day and is free for a
// new arrival.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates and validates that end is
// strictly after start.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateLayout, strings.TrimSpace(start), time.UTC)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	e, err := time.ParseInLocation(DateLayout, strings.TrimSpace(end), time.UTC)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate reports ErrInvalidRange when the range is zero or End <= Start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether r and o share at least one night.  Back-to-back
// ranges (one ends the day the other starts) do not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && r.End.After(o.Start)
}

// Equal reports whether both ranges cover exactly the same days.
func (r DateRange) Equal(o DateRange) bool {
	return r.StartString() == o.StartString() && r.EndString() == o.EndString()
}

// Nights returns the number of whole nights covered by the range.
func (r DateRange) Nights() int {
	s := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndString() string   { return r.End.Format(DateLayout) }
