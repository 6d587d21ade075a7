package core

// scheduler.go runs background maintenance for the session registry.
//
// Sessions are owned by browser tabs and CLI runs that may vanish without
// discarding them, so a sweeper periodically drops sessions that have not
// been loaded, selected or confirmed within the idle TTL.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionSweeper removes idle sessions every interval until ctx is done.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("session sweeper started",
		"interval", interval.String(),
		"idle_ttl", s.idleTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case now := <-ticker.C:
			if n := s.SweepIdle(now); n > 0 {
				slog.Info("expired idle sessions", "count", n, "remaining", s.SessionCount())
			}
		}
	}
}

// SweepIdle discards sessions idle since before now minus the TTL and
// returns how many were removed.
func (s *Service) SweepIdle(now time.Time) int {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
		slog.Debug("session expired", "session_id", sess.ID())
	}
	return len(expired)
}
