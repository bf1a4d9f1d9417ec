package availability

import (
	"fmt"
	"time"
)

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. An interval
// ending exactly when another starts does not overlap it.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// DayWindow combines a calendar day with a business's opening and closing
// clocks ("HH:MM") into an absolute window. When closesAt <= opensAt the
// window end rolls to the next calendar day, so overnight businesses keep
// their late slots.
func DayWindow(day time.Time, opensAt, closesAt string) (Interval, error) {
	open, err := time.Parse("15:04", opensAt)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid opening time %q", opensAt)
	}
	close, err := time.Parse("15:04", closesAt)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid closing time %q", closesAt)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), open.Hour(), open.Minute(), 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), close.Hour(), close.Minute(), 0, 0, day.Location())
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return Interval{Start: start, End: end}, nil
}

// Slots returns the start times t0, t0+d, t0+2d, ... within the window where
// a booking of length duration fits entirely, skipping candidates that
// overlap a busy interval and candidates not strictly after now.
//
// Pure function of its inputs; all times are expected to share a location.
func Slots(window Interval, duration time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 {
		return nil
	}
	if !window.End.After(window.Start) {
		return nil
	}

	var slots []time.Time
	for t := window.Start; !t.Add(duration).After(window.End); t = t.Add(duration) {
		if !t.After(now) {
			continue
		}
		if overlapsAny(Interval{Start: t, End: t.Add(duration)}, busy) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
