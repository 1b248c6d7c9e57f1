// Package period resolves the target month of a run from the trigger payload.
package period

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
)

const module = "period"

// Event is the trigger payload.
type Event struct {
	// DataRef is the target month as "YYYYMM". Empty selects next month.
	DataRef string `json:"data_ref"`
}

// ParseEvent decodes a JSON trigger payload. An empty payload is treated as "{}".
func ParseEvent(payload []byte) (Event, error) {
	var e Event
	if len(strings.TrimSpace(string(payload))) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, exception.NewInvalidPeriodFormat(module, "trigger payload is not a valid event", err)
	}
	return e, nil
}

// TargetPeriod is the month a run generates.
type TargetPeriod struct {
	Year  int
	Month time.Month
	// Instant is the reference instant the period was derived from.
	Instant time.Time
}

// String renders the period as "YYYYMM".
func (p TargetPeriod) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

// Now implements Clock.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now implements Clock.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Resolver turns trigger events into target periods.
type Resolver struct {
	clock    Clock
	location *time.Location
}

// NewResolver creates a resolver.
//
// Parameters:
//
//	clock: Source of "now" for the default period. Its location is also the location of
//	explicit periods, which start at midnight on the first of the month.
//
// Returns:
//
//	A Resolver for trigger events.
func NewResolver(clock Clock) *Resolver {
	return &Resolver{clock: clock, location: clock.Now().Location()}
}

// Resolve returns the month named by event.DataRef, or the month one calendar month from now
// when DataRef is empty. Any other DataRef must be exactly six ASCII digits "YYYYMM";
// surrounding whitespace is not trimmed.
//
// Parameters:
//
//	event: The decoded trigger payload.
//
// Returns:
//
//	The TargetPeriod, and an InvalidPeriodFormat error for a malformed DataRef.
func (r *Resolver) Resolve(event Event) (TargetPeriod, error) {
	ref := event.DataRef
	if ref == "" {
		next := AddCalendarMonths(r.clock.Now(), 1)
		return TargetPeriod{Year: next.Year(), Month: next.Month(), Instant: next}, nil
	}

	year, month, err := parseYearMonth(ref)
	if err != nil {
		return TargetPeriod{}, exception.NewInvalidPeriodFormat(module, fmt.Sprintf("data_ref '%s' is not a YYYYMM period", event.DataRef), err)
	}
	return TargetPeriod{
		Year:    year,
		Month:   month,
		Instant: time.Date(year, month, 1, 0, 0, 0, 0, r.location),
	}, nil
}

func parseYearMonth(ref string) (int, time.Month, error) {
	if len(ref) != 6 {
		return 0, 0, fmt.Errorf("expected 6 digits, got %d characters", len(ref))
	}
	for _, c := range ref {
		if c < '0' || c > '9' {
			return 0, 0, fmt.Errorf("non-digit character %q", c)
		}
	}
	year, _ := strconv.Atoi(ref[:4])
	month, _ := strconv.Atoi(ref[4:])
	if year < 1 {
		return 0, 0, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range", month)
	}
	return year, time.Month(month), nil
}

// AddCalendarMonths adds n calendar months to t, clamping the day to the last day of the
// resulting month (Jan 31 + 1 month is Feb 28 or 29). The time of day is kept.
func AddCalendarMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
