package source

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalvix/mailrag/internal/record"
)

// Compile-time check that SQLiteSource implements Source.
var _ Source = (*SQLiteSource)(nil)

// SQLiteSource stores records in a local SQLite database. It backs local
// data sets and the test suite; the Postgres backend is the production path.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite record database in dataDir and
// ensures the schema exists. Pass ":memory:" for an in-memory database.
func OpenSQLite(dataDir string) (*SQLiteSource, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "mailrag.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteSource{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// Ping reports database reachability for health checks.
func (s *SQLiteSource) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteSource) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		embedding BLOB,
		page_number INTEGER NOT NULL DEFAULT 0,
		from_name TEXT NOT NULL DEFAULT '',
		from_email TEXT NOT NULL DEFAULT '',
		to_name TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		received_at TEXT NOT NULL DEFAULT '',
		start_at TEXT NOT NULL DEFAULT '',
		end_at TEXT NOT NULL DEFAULT '',
		attendees TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

// Insert adds records to the local database.
func (s *SQLiteSource) Insert(records []record.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (id, parent_id, user_id, source_type, title, content, embedding,
			page_number, from_name, from_email, to_name, subject, received_at,
			start_at, end_at, attendees, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if !r.SourceType.Valid() {
			tx.Rollback()
			return fmt.Errorf("record %s has unknown source type %q", r.ID, r.SourceType)
		}
		var blob []byte
		if r.Embedding != nil {
			blob = encodeFloat32s(r.Embedding)
		}
		if _, err := stmt.Exec(r.ID, r.ParentID, r.UserID, string(r.SourceType), r.Title,
			r.Content, blob, r.Metadata.PageNumber, r.Metadata.FromName, r.Metadata.FromEmail,
			r.Metadata.ToName, r.Metadata.Subject, timeText(r.Metadata.ReceivedAt),
			timeText(r.Metadata.StartAt), timeText(r.Metadata.EndAt), r.Metadata.Attendees,
			timeText(r.CreatedAt)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes a record by ID.
func (s *SQLiteSource) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %s not found", id)
	}
	return nil
}

// Load returns all records for the given user, grouped by origin.
func (s *SQLiteSource) Load(ctx context.Context, userID string) (Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, user_id, source_type, title, content, embedding,
			page_number, from_name, from_email, to_name, subject, received_at,
			start_at, end_at, attendees, created_at
		FROM records WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return Batch{}, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var b Batch
	for rows.Next() {
		var r record.Record
		var st string
		var blob []byte
		var receivedAt, startAt, endAt, createdAt string
		if err := rows.Scan(&r.ID, &r.ParentID, &r.UserID, &st, &r.Title, &r.Content, &blob,
			&r.Metadata.PageNumber, &r.Metadata.FromName, &r.Metadata.FromEmail,
			&r.Metadata.ToName, &r.Metadata.Subject, &receivedAt,
			&startAt, &endAt, &r.Metadata.Attendees, &createdAt); err != nil {
			return Batch{}, fmt.Errorf("scanning record: %w", err)
		}
		r.SourceType = record.SourceType(st)
		if blob != nil {
			emb, err := decodeFloat32s(blob)
			if err != nil {
				return Batch{}, fmt.Errorf("decoding embedding for %s: %w", r.ID, err)
			}
			r.Embedding = emb
		}
		r.Metadata.ReceivedAt = parseTimeText(receivedAt)
		r.Metadata.StartAt = parseTimeText(startAt)
		r.Metadata.EndAt = parseTimeText(endAt)
		r.CreatedAt = parseTimeText(createdAt)

		switch r.SourceType {
		case record.SourceDocument:
			b.Documents = append(b.Documents, r)
		case record.SourceEmail:
			b.Emails = append(b.Emails, r)
		case record.SourceCalendarEvent:
			b.CalendarEvents = append(b.CalendarEvents, r)
		case record.SourceNextWeekEvent:
			b.NextWeekEvents = append(b.NextWeekEvents, r)
		default:
			return Batch{}, fmt.Errorf("record %s has unknown source type %q", r.ID, st)
		}
	}
	return b, rows.Err()
}

func timeText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimeText(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a float32 slice.
// Returns an error if the length is not a multiple of 4 (data corruption).
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
