package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalvix/mailrag/internal/record"
)

// humanDate is how timestamps read inside the context block.
const humanDate = "January 2, 2006 at 3:04 PM"

// formatBlock renders one record into its context entry, attributing the
// excerpt to its source so the model can cite it.
func formatBlock(r record.Record, n int) string {
	var sb strings.Builder
	switch r.SourceType {
	case record.SourceEmail:
		fmt.Fprintf(&sb, "[EMAIL %d]\n", n)
		fmt.Fprintf(&sb, "From: %s <%s>\n", orUnknown(r.Metadata.FromName), orUnknown(r.Metadata.FromEmail))
		if r.Metadata.ToName != "" || r.Metadata.ToEmail != "" {
			fmt.Fprintf(&sb, "To: %s <%s>\n", orUnknown(r.Metadata.ToName), orUnknown(r.Metadata.ToEmail))
		}
		fmt.Fprintf(&sb, "Date: %s\n", formatDate(r.Metadata.ReceivedAt))
		fmt.Fprintf(&sb, "Subject: %s\n", orDefault(r.Metadata.Subject, "No subject"))
		fmt.Fprintf(&sb, "Content: %s", r.Content)

	case record.SourceCalendarEvent, record.SourceNextWeekEvent:
		label := "EVENT"
		if r.SourceType == record.SourceNextWeekEvent {
			label = "UPCOMING EVENT"
		}
		fmt.Fprintf(&sb, "[%s %d]\n", label, n)
		fmt.Fprintf(&sb, "Title: %s\n", orDefault(r.Metadata.Subject, "Untitled Event"))
		fmt.Fprintf(&sb, "Start: %s\n", formatDate(r.Metadata.StartAt))
		fmt.Fprintf(&sb, "End: %s\n", formatDate(r.Metadata.EndAt))
		if r.Metadata.Location != "" {
			fmt.Fprintf(&sb, "Location: %s\n", r.Metadata.Location)
		}
		fmt.Fprintf(&sb, "Attendees: %s\n", orDefault(r.Metadata.Attendees, "No attendees specified"))
		fmt.Fprintf(&sb, "Details: %s", r.Content)

	case record.SourceDocument:
		fmt.Fprintf(&sb, "[DOCUMENT %d]\n", n)
		fmt.Fprintf(&sb, "Title: %s\n", orDefault(r.Title, "Untitled"))
		if r.Metadata.PageNumber > 0 {
			fmt.Fprintf(&sb, "Page: %d\n", r.Metadata.PageNumber)
		}
		fmt.Fprintf(&sb, "Content: %s", r.Content)

	default:
		fmt.Fprintf(&sb, "[%s %d]\n%s", strings.ToUpper(string(r.SourceType)), n, r.Content)
	}
	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	return t.Format(humanDate)
}

func orUnknown(s string) string { return orDefault(s, "Unknown") }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
