// Package schedule implements the weekly time-range evaluator described in
// the relique protocol: a Schedule carries one optional Bounds list per
// weekday, and is "active" at an instant iff today's Bounds contains a
// strictly-open range around that instant.
package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TickPeriod is the daemon's run-loop period. It is also the look-back
// window used for edge detection in IsActive: entering/exiting events are
// computed by comparing "now" against "now - TickPeriod", so the two must
// stay in lockstep (see internal/daemon).
const TickPeriod = 10 * time.Second

var boundsRE = regexp.MustCompile(`(\d{2}:\d{2})-(\d{2}:\d{2})`)

// Range is one (start, stop) pair of 24h local wall-clock times.
type Range struct {
	Start time.Time
	Stop  time.Time
}

// Bounds is an ordered sequence of time ranges for a single weekday.
type Bounds []Range

// ParseBounds parses the comma-separated "HH:MM-HH:MM" wire format described
// in spec.md §4.5. The regular expression is applied repeatedly across the
// string, so separators other than ", " are tolerated the same way the
// original implementation's regex-based parser was.
func ParseBounds(s string) (Bounds, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	matches := boundsRE.FindAllStringSubmatch(s, -1)
	if matches == nil {
		return nil, fmt.Errorf("schedule: could not parse bounds from %q", s)
	}

	bounds := make(Bounds, 0, len(matches))
	for _, m := range matches {
		start, err := time.Parse("15:04", m[1])
		if err != nil {
			return nil, fmt.Errorf("schedule: invalid start time %q: %w", m[1], err)
		}
		stop, err := time.Parse("15:04", m[2])
		if err != nil {
			return nil, fmt.Errorf("schedule: invalid stop time %q: %w", m[2], err)
		}
		bounds = append(bounds, Range{Start: start, Stop: stop})
	}
	return bounds, nil
}

// String renders Bounds back to the comma-separated wire format.
func (b Bounds) String() string {
	parts := make([]string, len(b))
	for i, r := range b {
		parts[i] = fmt.Sprintf("%s-%s", r.Start.Format("15:04"), r.Stop.Format("15:04"))
	}
	return strings.Join(parts, ", ")
}

// UnmarshalText implements encoding.TextUnmarshaler so Bounds can be parsed
// directly out of a TOML string value (e.g. `monday = "09:00-17:00"`).
func (b *Bounds) UnmarshalText(text []byte) error {
	parsed, err := ParseBounds(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler, the inverse of UnmarshalText.
func (b Bounds) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// contains reports whether the range strictly contains the time-of-day
// component of t (comparison is done on hour, minute and second only,
// local time).
// A range where stop <= start is always-inactive, documented behavior
// rather than an error (spec.md §4.5).
func (r Range) contains(t time.Time) bool {
	if !r.Stop.After(r.Start) {
		return false
	}
	tod := timeOfDay(t)
	return tod.After(timeOfDay(r.Start)) && tod.Before(timeOfDay(r.Stop))
}

// timeOfDay normalizes t onto a fixed reference date so that only the
// hour/minute/second components participate in comparisons.
func timeOfDay(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Schedule is a named weekly pattern of active time windows in local time.
type Schedule struct {
	Name      string
	Monday    Bounds
	Tuesday   Bounds
	Wednesday Bounds
	Thursday  Bounds
	Friday    Bounds
	Saturday  Bounds
	Sunday    Bounds
}

// boundsForWeekday returns the Bounds configured for the given weekday, or
// nil if none was configured.
func (s *Schedule) boundsForWeekday(wd time.Weekday) Bounds {
	switch wd {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	case time.Sunday:
		return s.Sunday
	default:
		return nil
	}
}

// IsActive reports whether s is active at "now" (local time), and emits
// edge-trigger log lines when the answer differs from what it would have
// been one TickPeriod ago. Passing a nil logger silences the edge logs but
// not the active/inactive determination.
func (s *Schedule) IsActive(now time.Time, logger *zap.Logger) bool {
	bounds := s.boundsForWeekday(now.Weekday())
	if bounds == nil {
		return false
	}

	previous := now.Add(-TickPeriod)
	active := false

	for _, r := range bounds {
		nowIn := r.contains(now)
		prevIn := r.contains(previous)

		switch {
		case nowIn && !prevIn:
			if logger != nil {
				logger.Info(fmt.Sprintf("Entering schedule '%s': '%s-%s'",
					s.Name, r.Start.Format("15:04"), r.Stop.Format("15:04")))
			}
		case !nowIn && prevIn:
			if logger != nil {
				logger.Info(fmt.Sprintf("Exiting schedule '%s': '%s-%s'",
					s.Name, r.Start.Format("15:04"), r.Stop.Format("15:04")))
			}
		}

		if nowIn {
			active = true
		}
	}

	return active
}
