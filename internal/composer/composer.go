// Package composer narrows a retrieval result using query-analysis hints
// and serializes the survivors into a bounded context block for synthesis.
package composer

import (
	"strings"
	"time"

	"github.com/kalvix/mailrag/internal/analyze"
	"github.com/kalvix/mailrag/internal/record"
)

const defaultMaxContextChars = 12000

// Composer assembles the context window passed to the language model.
type Composer struct {
	MaxContextChars int
}

// New creates a Composer with the given character budget for the context
// block. If maxContextChars <= 0, the default (12000) is used.
func New(maxContextChars int) *Composer {
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	return &Composer{MaxContextChars: maxContextChars}
}

// FilterAndFormat applies analysis constraints as a post-filter over the
// retrieval result, then renders the selected records into a context block
// no longer than MaxContextChars. It returns the block and the records it
// actually includes, for citation.
//
// Retrieval relevance wins over aggressive filtering: if the constraints
// eliminate every record, the unfiltered result is used instead.
func (c *Composer) FilterAndFormat(results []record.Scored, a analyze.Analysis, now time.Time) (string, []record.Scored) {
	filtered := filter(results, a, now)
	if len(filtered) == 0 {
		filtered = results
	}
	return c.format(filtered)
}

// filter keeps records matching the analysis constraints. Documents carry
// no timestamps, so the time constraint applies only to mail and events.
func filter(results []record.Scored, a analyze.Analysis, now time.Time) []record.Scored {
	types := a.RequestedTypes()
	timeRange := analyze.ResolveTimePeriod(a.TimePeriod, now)

	var out []record.Scored
	for _, s := range results {
		if types != nil && !typeRequested(types, s.SourceType) {
			continue
		}
		if len(a.People) > 0 && !matchesPerson(s.Record, a.People) {
			continue
		}
		if timeRange != nil && !matchesTime(s.Record, *timeRange) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func typeRequested(types []record.SourceType, t record.SourceType) bool {
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// matchesPerson checks sender/recipient fields on emails and the attendee
// list on events. Other source types pass the person filter untouched.
func matchesPerson(r record.Record, people []string) bool {
	var haystack string
	switch r.SourceType {
	case record.SourceEmail:
		haystack = strings.ToLower(strings.Join([]string{
			r.Metadata.FromName, r.Metadata.FromEmail, r.Metadata.ToName, r.Metadata.ToEmail,
		}, " "))
	case record.SourceCalendarEvent, record.SourceNextWeekEvent:
		haystack = strings.ToLower(r.Metadata.Attendees)
	default:
		return true
	}

	for _, p := range people {
		if p == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func matchesTime(r record.Record, tr analyze.TimeRange) bool {
	switch r.SourceType {
	case record.SourceEmail:
		return !r.Metadata.ReceivedAt.IsZero() && tr.Contains(r.Metadata.ReceivedAt)
	case record.SourceCalendarEvent, record.SourceNextWeekEvent:
		return !r.Metadata.StartAt.IsZero() && tr.Contains(r.Metadata.StartAt)
	}
	return true
}

// format renders records in rank order under the character budget.
// Records that don't fit are dropped wholesale, except that the first
// record is truncated rather than dropped so an oversized single record
// still produces context.
func (c *Composer) format(results []record.Scored) (string, []record.Scored) {
	const sep = "\n\n"

	var sb strings.Builder
	var selected []record.Scored
	remaining := c.MaxContextChars

	for _, s := range results {
		block := formatBlock(s.Record, len(selected)+1)
		need := len(block)
		if len(selected) > 0 {
			need += len(sep)
		}

		if need > remaining {
			if len(selected) > 0 {
				continue
			}
			if remaining <= 0 {
				break
			}
			block = block[:remaining]
		}

		if len(selected) > 0 {
			sb.WriteString(sep)
			remaining -= len(sep)
		}
		sb.WriteString(block)
		remaining -= len(block)
		selected = append(selected, s)
	}

	return sb.String(), selected
}
