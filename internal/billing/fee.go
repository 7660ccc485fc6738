// Package billing computes parking fees from elapsed time and a rate schedule.
// Quoting is pure: the same inputs always produce the same amount, so callers
// can re-quote freely before payment.
package billing

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when the reference time precedes entry.
var ErrInvalidInterval = errors.New("reference time before entry time")

// DefaultRates is the schedule used when none is configured: 2.50 per
// started hour, 2.50 minimum, 25.00 per-day cap.
var DefaultRates = RateSchedule{
	HourlyCents:  250,
	MinimumCents: 250,
	DayMaxCents:  2500,
}

// RateSchedule holds the facility's pricing. All amounts are integer cents.
type RateSchedule struct {
	HourlyCents  int64 `json:"hourly_cents" toml:"hourly_cents"`
	MinimumCents int64 `json:"minimum_cents" toml:"minimum_cents"`
	DayMaxCents  int64 `json:"day_max_cents" toml:"day_max_cents"`
}

// Valid reports whether the schedule is internally consistent: non-negative
// amounts with the minimum charge not exceeding the day maximum.
func (r RateSchedule) Valid() bool {
	return r.HourlyCents >= 0 && r.MinimumCents >= 0 && r.DayMaxCents >= 0 &&
		r.MinimumCents <= r.DayMaxCents
}

// Fee returns the charge in cents for a stay from entry to ref.
//
// Any started hour bills as a full hour. Each complete 24-hour block charges
// the day maximum; the remainder is billed per started hour, floored at the
// minimum charge and capped at the day maximum. The result is monotonically
// non-decreasing in ref.
func (r RateSchedule) Fee(entry, ref time.Time) (int64, error) {
	if ref.Before(entry) {
		return 0, ErrInvalidInterval
	}

	d := ref.Sub(entry)
	days := int64(d / (24 * time.Hour))
	rem := d % (24 * time.Hour)

	total := days * r.DayMaxCents
	if rem == 0 && days > 0 {
		return total, nil
	}

	hours := int64((rem + time.Hour - 1) / time.Hour) // round up to whole hours
	partial := hours * r.HourlyCents
	if partial < r.MinimumCents {
		partial = r.MinimumCents
	}
	if partial > r.DayMaxCents {
		partial = r.DayMaxCents
	}
	return total + partial, nil
}
