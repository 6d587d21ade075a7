package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched session is kept by default.
const DefaultIdleTTL = 30 * time.Minute

// ServiceOptions configures a Service. Zero values take defaults.
type ServiceOptions struct {
	Preview            PreviewConfig
	Sink               MappingSink
	MaxConcurrentLoads int
	LoadWait           time.Duration
	IdleTTL            time.Duration
}

// Service keeps the preview sessions of many callers apart. Each session has
// its own state and is addressed by a random id.
type Service struct {
	preview PreviewConfig
	sink    MappingSink
	limiter *LoadLimiter
	idleTTL time.Duration

	// loadCtx outlives the requests that attach sources.
	loadCtx    context.Context
	cancelLoad context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		preview:    opts.Preview.withDefaults(),
		sink:       opts.Sink,
		limiter:    NewLoadLimiter(opts.MaxConcurrentLoads, opts.LoadWait),
		idleTTL:    opts.IdleTTL,
		loadCtx:    ctx,
		cancelLoad: cancel,
		sessions:   make(map[string]*Session),
	}
}

// NewSession creates an empty session and registers it.
func (s *Service) NewSession() *Session {
	sess := NewSession(uuid.NewString(), s.preview, s.sink)

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	slog.Debug("session created", "session_id", sess.ID())
	return sess
}

// Session looks up a session by id.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// AttachSource starts loading src into the session. It waits for a load slot
// (ErrTooManyLoads when none frees up) and returns once the load is issued;
// the read itself runs in the background and survives ctx.
func (s *Service) AttachSource(ctx context.Context, id string, src Source) (*Load, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	if !s.limiter.TryAcquire() {
		slog.Debug("waiting for load slot", "session_id", id, "active", s.limiter.ActiveCount())
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	load := sess.LoadSource(s.loadCtx, src)
	go func() {
		<-load.Done()
		s.limiter.Release()
	}()
	return load, nil
}

// Discard removes a session and cancels its in-flight load.
func (s *Service) Discard(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Close()
	slog.Debug("session discarded", "session_id", id)
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LoadLimiterStatus returns current load slot usage.
func (s *Service) LoadLimiterStatus() LoadLimiterStatus {
	return s.limiter.Status()
}

// WaitForLoads blocks until in-flight loads finish or ctx is done.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Close cancels in-flight loads and drops every session.
func (s *Service) Close() {
	s.cancelLoad()

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
