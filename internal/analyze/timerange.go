package analyze

import (
	"strings"
	"time"
)

// TimeRange is a resolved half-open [Start, End] window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolveTimePeriod turns a spoken time period into a concrete range
// anchored at now. Unrecognized periods resolve to nil (no time filter).
func ResolveTimePeriod(period string, now time.Time) *TimeRange {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "last week":
		return &TimeRange{Start: now.AddDate(0, 0, -7), End: now}
	case "yesterday":
		return &TimeRange{Start: now.AddDate(0, 0, -1), End: now}
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return &TimeRange{Start: start, End: now}
	case "this week":
		// Week starts Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return &TimeRange{Start: now.AddDate(0, 0, -offset), End: now}
	case "last month":
		return &TimeRange{Start: now.AddDate(0, 0, -30), End: now}
	case "next week":
		return &TimeRange{Start: now, End: now.AddDate(0, 0, 7)}
	}
	return nil
}
