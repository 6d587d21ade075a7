package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/emailpreview/internal/config"
	"github.com/JonMunkholm/emailpreview/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS column_mappings (
	id             UUID PRIMARY KEY,
	session_id     TEXT NOT NULL,
	source         TEXT NOT NULL,
	column_index   INTEGER NOT NULL,
	header         TEXT NOT NULL,
	preview_emails TEXT[] NOT NULL,
	confirmed_at   TIMESTAMPTZ NOT NULL,
	client_ip      TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS column_mappings_confirmed_at_idx ON column_mappings (confirmed_at DESC);
`

// Postgres stores mappings in a column_mappings table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool, verifies it and creates the table if needed.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewPostgres(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("postgres mapping store ready",
		"max_conns", poolConfig.MaxConns,
		"min_conns", poolConfig.MinConns,
	)
	return s, nil
}

// NewPostgres wraps an existing pool. Call Migrate before first use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the mappings table and index.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create column_mappings: %w", err)
	}
	return nil
}

// DeliverMapping inserts m.
func (s *Postgres) DeliverMapping(ctx context.Context, m core.ConfirmedMapping) error {
	rec := newMapping(m)
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("mapping id: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO column_mappings
			(id, session_id, source, column_index, header, preview_emails, confirmed_at, client_ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pgtype.UUID{Bytes: id, Valid: true},
		rec.SessionID,
		rec.Source,
		rec.ColumnIndex,
		rec.Header,
		rec.PreviewEmails,
		pgtype.Timestamptz{Time: rec.ConfirmedAt, Valid: true},
		rec.ClientIP,
		rec.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert mapping: %w", err)
	}
	return nil
}

// List returns up to limit mappings, newest first.
func (s *Postgres) List(ctx context.Context, limit int) ([]Mapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, source, column_index, header, preview_emails, confirmed_at, client_ip, user_agent
		 FROM column_mappings
		 ORDER BY confirmed_at DESC
		 LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	out := make([]Mapping, 0)
	for rows.Next() {
		m, err := scanPostgresMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanPostgresMapping(rows pgx.Rows) (Mapping, error) {
	var (
		id          pgtype.UUID
		sessionID   string
		source      string
		columnIndex int32
		header      string
		emails      []string
		confirmedAt pgtype.Timestamptz
		clientIP    pgtype.Text
		userAgent   pgtype.Text
	)
	if err := rows.Scan(&id, &sessionID, &source, &columnIndex, &header, &emails, &confirmedAt, &clientIP, &userAgent); err != nil {
		return Mapping{}, err
	}
	if emails == nil {
		emails = []string{}
	}
	return Mapping{
		ID:            uuid.UUID(id.Bytes).String(),
		SessionID:     sessionID,
		Source:        source,
		ColumnIndex:   int(columnIndex),
		Header:        header,
		PreviewEmails: emails,
		ConfirmedAt:   confirmedAt.Time,
		ClientIP:      clientIP.String,
		UserAgent:     userAgent.String,
	}, nil
}

// Ping checks the pool.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
