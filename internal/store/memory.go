package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/emailpreview/internal/core"
)

// Memory keeps mappings in process memory. Contents are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	mappings []Mapping
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// DeliverMapping records m.
func (s *Memory) DeliverMapping(ctx context.Context, m core.ConfirmedMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := newMapping(m)
	rec.PreviewEmails = append([]string{}, rec.PreviewEmails...)

	s.mu.Lock()
	s.mappings = append(s.mappings, rec)
	s.mu.Unlock()
	return nil
}

// List returns up to limit mappings, newest first.
func (s *Memory) List(_ context.Context, limit int) ([]Mapping, error) {
	limit = listLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mapping, 0, min(limit, len(s.mappings)))
	for i := len(s.mappings) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.mappings[i]
		m.PreviewEmails = append([]string{}, m.PreviewEmails...)
		out = append(out, m)
	}
	return out, nil
}

// Ping always succeeds.
func (s *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Memory) Close() error { return nil }
