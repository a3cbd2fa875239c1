package service

import "time"

// Clock returns the current time.  Services take one so tests can pin
// "now" when checking hold expiry.
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
