// Package store persists confirmed column mappings.
//
// Every store is a core.MappingSink, so a preview session can deliver into it
// directly. Three backends exist: an in-process memory store for development
// and tests, PostgreSQL through pgx, and a single-file SQLite database.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/emailpreview/internal/config"
	"github.com/JonMunkholm/emailpreview/internal/core"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// Mapping is a stored confirmation.
type Mapping struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	Source        string    `json:"source"`
	ColumnIndex   int       `json:"columnIndex"`
	Header        string    `json:"header"`
	PreviewEmails []string  `json:"previewEmails"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
	ClientIP      string    `json:"clientIp,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
}

// Store is a mapping sink that can also list what it received.
type Store interface {
	core.MappingSink

	// List returns the most recent mappings, newest first.
	List(ctx context.Context, limit int) ([]Mapping, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// newMapping assigns an id and normalizes a confirmed mapping for storage.
func newMapping(m core.ConfirmedMapping) Mapping {
	confirmedAt := m.ConfirmedAt
	if confirmedAt.IsZero() {
		confirmedAt = time.Now()
	}
	emails := m.Result.PreviewEmails
	if emails == nil {
		emails = []string{}
	}
	return Mapping{
		ID:            uuid.NewString(),
		SessionID:     m.SessionID,
		Source:        m.Source,
		ColumnIndex:   m.Result.ColumnIndex,
		Header:        m.Result.Header,
		PreviewEmails: emails,
		ConfirmedAt:   confirmedAt.UTC(),
		ClientIP:      m.ClientIP,
		UserAgent:     m.UserAgent,
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", config.DriverMemory:
		return NewMemory(), nil
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
