package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kalvix/mailrag/internal/record"
)

// Default load limits. Documents and next-week events load in full; mail
// and calendar history are capped to the most recent entries.
const (
	defaultEmailLimit = 200
	defaultEventLimit = 50
)

// Compile-time check that PostgresSource implements Source.
var _ Source = (*PostgresSource)(nil)

// PostgresSource loads records from the sync database written by the
// external Graph fetch process.
type PostgresSource struct {
	db         *sql.DB
	emailLimit int
	eventLimit int
}

// OpenPostgres connects to the sync database at the given URL.
func OpenPostgres(url string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening sync database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sync database: %w", err)
	}
	return &PostgresSource{db: db, emailLimit: defaultEmailLimit, eventLimit: defaultEventLimit}, nil
}

// NewPostgresSource wraps an existing *sql.DB. Limits <= 0 use defaults.
func NewPostgresSource(db *sql.DB, emailLimit, eventLimit int) *PostgresSource {
	if emailLimit <= 0 {
		emailLimit = defaultEmailLimit
	}
	if eventLimit <= 0 {
		eventLimit = defaultEventLimit
	}
	return &PostgresSource{db: db, emailLimit: emailLimit, eventLimit: eventLimit}
}

// Close closes the underlying database connection.
func (s *PostgresSource) Close() error { return s.db.Close() }

// Ping reports database reachability for health checks.
func (s *PostgresSource) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Load returns all records for the given user, grouped by origin.
func (s *PostgresSource) Load(ctx context.Context, userID string) (Batch, error) {
	var b Batch
	var err error

	if b.Documents, err = s.loadDocumentPages(ctx, userID); err != nil {
		return Batch{}, fmt.Errorf("loading document pages: %w", err)
	}
	if b.Emails, err = s.loadEmails(ctx, userID); err != nil {
		return Batch{}, fmt.Errorf("loading emails: %w", err)
	}
	if b.CalendarEvents, err = s.loadEvents(ctx, userID, "outlook_events", record.SourceCalendarEvent, s.eventLimit); err != nil {
		return Batch{}, fmt.Errorf("loading calendar events: %w", err)
	}
	if b.NextWeekEvents, err = s.loadEvents(ctx, userID, "outlook_next_week_events", record.SourceNextWeekEvent, 0); err != nil {
		return Batch{}, fmt.Errorf("loading next week events: %w", err)
	}
	return b, nil
}

// loadDocumentPages returns document pages with content and stored
// embeddings. Pages without either are skipped at the query level.
func (s *PostgresSource) loadDocumentPages(ctx context.Context, userID string) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dp.id, dp.document_id, dp.user_id, dp.page_number,
		       dp.page_content, dp.page_embeddings, d.title, dp.created_at
		FROM document_pages dp
		JOIN documents d ON dp.document_id = d.id
		WHERE dp.page_content IS NOT NULL
		  AND dp.page_embeddings IS NOT NULL
		  AND dp.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		var embedding pgvector.Vector
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.ParentID, &r.UserID, &r.Metadata.PageNumber,
			&r.Content, &embedding, &r.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning document page: %w", err)
		}
		r.SourceType = record.SourceDocument
		r.Embedding = embedding.Slice()
		r.CreatedAt = createdAt.Time
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadEmails(ctx context.Context, userID string) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, mail_id, subject, from_name, from_email,
		       received_datetime, body_preview, to_recipients, cc_recipients
		FROM outlook_mails
		WHERE user_id = $1
		ORDER BY received_datetime DESC
		LIMIT $2`, userID, s.emailLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		var mailID string
		var received sql.NullTime
		var subject, fromName, fromEmail, preview, to, cc sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &mailID, &subject, &fromName,
			&fromEmail, &received, &preview, &to, &cc); err != nil {
			return nil, fmt.Errorf("scanning email: %w", err)
		}
		r.SourceType = record.SourceEmail
		r.ParentID = mailID
		r.Title = subject.String
		r.Metadata.Subject = subject.String
		r.Metadata.FromName = fromName.String
		r.Metadata.FromEmail = fromEmail.String
		r.Metadata.ToName = to.String
		r.Metadata.ReceivedAt = received.Time
		r.CreatedAt = received.Time
		r.Content = formatEmailContent(subject.String, fromName.String, fromEmail.String,
			received.Time, to.String, cc.String, preview.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadEvents(ctx context.Context, userID, table string, st record.SourceType, limit int) ([]record.Record, error) {
	q := fmt.Sprintf(`
		SELECT id, user_id, event_id, subject, body_preview,
		       start_datetime, end_datetime, attendees
		FROM %s
		WHERE user_id = $1
		ORDER BY start_datetime DESC`, table)
	args := []any{userID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		var eventID string
		var start, end sql.NullTime
		var subject, preview, attendees sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &eventID, &subject, &preview,
			&start, &end, &attendees); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		r.SourceType = st
		r.ParentID = eventID
		r.Title = subject.String
		r.Metadata.Subject = subject.String
		r.Metadata.StartAt = start.Time
		r.Metadata.EndAt = end.Time
		r.Metadata.Attendees = attendees.String
		r.CreatedAt = start.Time
		r.Content = formatEventContent(st, subject.String, start.Time, end.Time,
			attendees.String, preview.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// formatEmailContent renders an email row into its retrievable text body.
func formatEmailContent(subject, fromName, fromEmail string, received time.Time, to, cc, preview string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Email Subject: %s\n", subject)
	fmt.Fprintf(&sb, "From: %s <%s>\n", fromName, fromEmail)
	if !received.IsZero() {
		fmt.Fprintf(&sb, "Date: %s\n", received.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "To: %s\n", to)
	if cc != "" {
		fmt.Fprintf(&sb, "CC: %s\n", cc)
	}
	fmt.Fprintf(&sb, "Preview: %s", preview)
	return sb.String()
}

// formatEventContent renders a calendar row into its retrievable text body.
func formatEventContent(st record.SourceType, subject string, start, end time.Time, attendees, preview string) string {
	label := "Event"
	if st == record.SourceNextWeekEvent {
		label = "Upcoming Event"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", label, subject)
	if !start.IsZero() {
		fmt.Fprintf(&sb, "Start: %s\n", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		fmt.Fprintf(&sb, "End: %s\n", end.Format(time.RFC3339))
	}
	if attendees == "" {
		attendees = "None"
	}
	fmt.Fprintf(&sb, "Attendees: %s\n", attendees)
	fmt.Fprintf(&sb, "Description: %s", preview)
	return sb.String()
}
