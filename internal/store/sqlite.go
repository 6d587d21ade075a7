package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/emailpreview/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS column_mappings (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	source         TEXT NOT NULL,
	column_index   INTEGER NOT NULL,
	header         TEXT NOT NULL,
	preview_emails TEXT NOT NULL,
	confirmed_at   TEXT NOT NULL,
	client_ip      TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS column_mappings_confirmed_at_idx ON column_mappings (confirmed_at DESC);
`

// sqliteTime is fixed-width so confirmed_at sorts correctly as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores mappings in a single database file. Preview emails are kept
// as a JSON array and timestamps as UTC text.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; the driver serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create column_mappings: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DeliverMapping inserts m.
func (s *SQLite) DeliverMapping(ctx context.Context, m core.ConfirmedMapping) error {
	rec := newMapping(m)
	emails, err := json.Marshal(rec.PreviewEmails)
	if err != nil {
		return fmt.Errorf("encode preview emails: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO column_mappings
			(id, session_id, source, column_index, header, preview_emails, confirmed_at, client_ip, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Source, rec.ColumnIndex, rec.Header,
		string(emails), rec.ConfirmedAt.UTC().Format(sqliteTime), rec.ClientIP, rec.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert mapping: %w", err)
	}
	return nil
}

// List returns up to limit mappings, newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source, column_index, header, preview_emails, confirmed_at, client_ip, user_agent
		 FROM column_mappings
		 ORDER BY confirmed_at DESC, rowid DESC
		 LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	out := make([]Mapping, 0)
	for rows.Next() {
		var (
			m           Mapping
			emails      string
			confirmedAt string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Source, &m.ColumnIndex, &m.Header, &emails, &confirmedAt, &m.ClientIP, &m.UserAgent); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		if err := json.Unmarshal([]byte(emails), &m.PreviewEmails); err != nil {
			return nil, fmt.Errorf("decode preview emails of %s: %w", m.ID, err)
		}
		if m.PreviewEmails == nil {
			m.PreviewEmails = []string{}
		}
		m.ConfirmedAt, err = time.Parse(sqliteTime, confirmedAt)
		if err != nil {
			return nil, fmt.Errorf("parse confirmed_at of %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
