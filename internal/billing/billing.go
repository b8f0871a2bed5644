// Package billing contains the duration and cost arithmetic for rental
// sessions.  All functions are pure; the ledger calls them when closing a
// session and handlers reuse the formatting helpers for display strings.
package billing

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidArgument is returned when a caller passes a negative duration or
// hourly rate directly, bypassing the clamp in Duration.
var ErrInvalidArgument = errors.New("invalid argument")

// Duration returns the elapsed time between start and end in minutes.  The
// result is clamped at zero so that clock skew can never produce a negative
// duration (and therefore a negative bill).
func Duration(start, end time.Time) float64 {
	minutes := end.Sub(start).Minutes()
	return math.Max(0, minutes)
}

// Cost computes the price of a session: (minutes/60) * hourlyRate, rounded to
// two decimal places.  Minutes and rate must be non-negative; Duration already
// guarantees that for durations it produced itself.
func Cost(minutes, hourlyRate float64) (float64, error) {
	if minutes < 0 {
		return 0, fmt.Errorf("%w: duration cannot be negative", ErrInvalidArgument)
	}
	if hourlyRate < 0 {
		return 0, fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidArgument)
	}
	return Round2(minutes / 60 * hourlyRate), nil
}

// Round2 rounds an amount to two decimal places using standard half-away-from-zero
// rounding, matching how totals are stored in the database.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatDuration renders a minute count as "1h 30m" for display.
func FormatDuration(minutes float64) string {
	h := int(minutes) / 60
	m := int(minutes) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatAmount renders a monetary amount as "37.50 birr".
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f birr", amount)
}
