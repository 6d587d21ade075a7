package core

// session.go implements the preview session state machine:
//
//	Empty ──LoadSource──▶ Loading ──ok──▶ Ready
//	                         │
//	                         └─read error─▶ Error
//	Ready | Error ──LoadSource──▶ Loading
//
// Every LoadSource call is tagged with a generation. A load's result is
// committed only if no newer load was issued in the meantime; stale results,
// successful or not, are dropped on arrival.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ConfirmedMapping is what a session hands to its sink on Confirm.
type ConfirmedMapping struct {
	SessionID   string
	Source      string
	Result      MappingResult
	ConfirmedAt time.Time

	// Client details, when the caller put them on the context.
	ClientIP  string
	UserAgent string
}

// MappingSink receives confirmed mappings. It is the hand-off point to
// whatever processes the full source afterwards.
type MappingSink interface {
	DeliverMapping(ctx context.Context, m ConfirmedMapping) error
}

// SinkFunc adapts a function to MappingSink.
type SinkFunc func(ctx context.Context, m ConfirmedMapping) error

// DeliverMapping calls f.
func (f SinkFunc) DeliverMapping(ctx context.Context, m ConfirmedMapping) error {
	return f(ctx, m)
}

// Load is the handle of one LoadSource call.
type Load struct {
	gen       uint64
	done      chan struct{}
	err       error
	committed bool
}

// Generation returns the token the load was issued with.
func (l *Load) Generation() uint64 { return l.gen }

// Done is closed once the load has finished, committed or not.
func (l *Load) Done() <-chan struct{} { return l.done }

// Wait blocks until the load finishes or ctx is done. It returns the load's
// read error, if any, even when the result was superseded.
func (l *Load) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Committed reports whether the load's result became the session state.
// Only meaningful after Done is closed.
func (l *Load) Committed() bool {
	select {
	case <-l.done:
		return l.committed
	default:
		return false
	}
}

// watchBuffer is how many snapshots a watcher may fall behind before the
// oldest queued one is dropped.
const watchBuffer = 8

// Session owns one PreviewState and its lifecycle.
//
// Lock order is listenerMu before mu. Nothing holds mu while taking
// listenerMu; state changes are published after mu is released.
type Session struct {
	id     string
	cfg    PreviewConfig
	sink   MappingSink
	logger *slog.Logger

	mu         sync.RWMutex
	phase      Phase
	state      *State
	err        error
	issued     uint64
	version    uint64 // bumped on every state change, orders published snapshots
	inflight   map[uint64]context.CancelFunc
	lastActive time.Time

	listenerMu sync.Mutex
	listeners  []*watcher
	closed     bool
}

// watcher is one Watch channel and the version of the last snapshot queued on it.
type watcher struct {
	ch   chan Snapshot
	last uint64
}

// NewSession creates an empty session. sink may be nil, in which case
// Confirm only returns the mapping.
func NewSession(id string, cfg PreviewConfig, sink MappingSink) *Session {
	return &Session{
		id:         id,
		cfg:        cfg.withDefaults(),
		sink:       sink,
		logger:     slog.Default().With("session_id", id),
		inflight:   make(map[uint64]context.CancelFunc),
		lastActive: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the effective preview configuration.
func (s *Session) Config() PreviewConfig { return s.cfg }

// LoadSource attaches a new source and starts loading it in the background.
// The session enters Loading immediately; the returned Load reports when the
// read and analysis finish and whether the result was committed. The read
// stops when ctx is done or the session is closed.
func (s *Session) LoadSource(ctx context.Context, src Source) *Load {
	loadCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.issued++
	l := &Load{gen: s.issued, done: make(chan struct{})}
	s.inflight[l.gen] = cancel
	s.phase = PhaseLoading
	s.err = nil
	s.lastActive = time.Now()
	s.version++
	snap, version := s.snapshotLocked(), s.version
	s.mu.Unlock()

	s.notify(snap, version)
	s.logger.Debug("load started", "generation", l.gen, "source", src.Name())

	go s.runLoad(loadCtx, cancel, src, l)
	return l
}

func (s *Session) runLoad(ctx context.Context, cancel context.CancelFunc, src Source, l *Load) {
	defer close(l.done)
	defer cancel()

	start := time.Now()
	state, err := s.readState(ctx, src)

	s.mu.Lock()
	delete(s.inflight, l.gen)
	l.err = err
	if l.gen != s.issued {
		s.mu.Unlock()
		s.logger.Debug("stale load discarded",
			"generation", l.gen,
			"current", s.currentGeneration(),
			"source", src.Name(),
		)
		return
	}
	if err != nil {
		s.phase = PhaseError
		s.err = err
	} else {
		s.phase = PhaseReady
		s.state = state
		l.committed = true
	}
	s.version++
	snap, version := s.snapshotLocked(), s.version
	s.mu.Unlock()

	s.notify(snap, version)
	if err != nil {
		s.logger.Warn("load failed", "generation", l.gen, "source", src.Name(), "error", err)
		return
	}
	s.logger.Info("preview ready",
		"generation", l.gen,
		"source", src.Name(),
		"rows", len(state.Rows),
		"columns", state.ColumnCount(),
		"header_present", state.HeaderPresent,
		"inferred", state.Inferred,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// readState reads the source prefix and runs the analysis pipeline.
// A panic in the source is reported as a read error.
func (s *Session) readState(ctx context.Context, src Source) (state *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in source load", "session_id", s.id, "source", src.Name(), "panic", r)
			err = &ReadError{Source: src.Name(), Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	prefix, err := readPrefix(ctx, src, s.cfg.PrefixBytes)
	if err != nil {
		return nil, err
	}
	if prefix.Truncated {
		s.logger.Debug("source truncated to prefix", "source", src.Name(), "bytes", prefix.Bytes)
	}
	return BuildPreview(src.Name(), prefix.Text, s.cfg), nil
}

func (s *Session) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issued
}

// BuildPreview runs parse, header analysis and scoring over text.
// It reads MaxPreviewRows+1 rows so a header row still leaves a full page of data.
func BuildPreview(source, text string, cfg PreviewConfig) *State {
	cfg = cfg.withDefaults()

	table := Parse(text, cfg.MaxPreviewRows+1)
	analysis := Analyze(table, cfg.Patterns)

	rows := analysis.DataRows
	if len(rows) > cfg.MaxPreviewRows {
		rows = rows[:cfg.MaxPreviewRows]
	}
	scoring := Score(analysis.Header, rows, cfg.Patterns)

	selected := scoring.Inferred
	if selected == NoColumn {
		selected = 0
	}

	return &State{
		Source:        source,
		Rows:          rows.Clone(),
		Header:        analysis.Header,
		HeaderPresent: analysis.HeaderPresent,
		Scores:        scoring.Scores,
		Inferred:      scoring.Inferred,
		Selected:      selected,
	}
}

// SelectColumn overrides the selected column. Only valid in Ready.
func (s *Session) SelectColumn(index int) error {
	s.mu.Lock()
	if s.phase != PhaseReady {
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("select column: %w (phase %s)", ErrNotReady, phase)
	}
	if n := s.state.ColumnCount(); index < 0 || index >= n {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidColumnIndex, index, n)
	}
	s.state.Selected = index
	s.lastActive = time.Now()
	s.version++
	snap, version := s.snapshotLocked(), s.version
	s.mu.Unlock()

	s.notify(snap, version)
	return nil
}

// Confirm builds the mapping for the selected column and delivers it to the
// sink. It leaves the session unchanged and may be called repeatedly.
func (s *Session) Confirm(ctx context.Context) (MappingResult, error) {
	s.mu.Lock()
	if s.phase != PhaseReady {
		phase := s.phase
		s.mu.Unlock()
		return MappingResult{}, fmt.Errorf("confirm: %w (phase %s)", ErrNotReady, phase)
	}
	result := BuildMapping(s.state, s.cfg.MaxSampleEmails)
	source := s.state.Source
	s.lastActive = time.Now()
	s.mu.Unlock()

	if s.sink != nil {
		err := s.sink.DeliverMapping(ctx, ConfirmedMapping{
			SessionID:   s.id,
			Source:      source,
			Result:      result,
			ConfirmedAt: time.Now().UTC(),
			ClientIP:    IPAddressFromContext(ctx),
			UserAgent:   UserAgentFromContext(ctx),
		})
		if err != nil {
			return result, fmt.Errorf("deliver mapping: %w", err)
		}
	}

	s.logger.Info("mapping confirmed",
		"source", source,
		"column", result.ColumnIndex,
		"header", result.Header,
		"samples", len(result.PreviewEmails),
	)
	return result, nil
}

// BuildMapping collects up to maxSamples non-empty trimmed values from the
// selected column, in row order. Values are not checked against the email
// pattern. A non-positive maxSamples means DefaultMaxSampleEmails.
func BuildMapping(state *State, maxSamples int) MappingResult {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSampleEmails
	}
	col := state.Selected
	samples := make([]string, 0, min(maxSamples, len(state.Rows)))
	for _, r := range state.Rows {
		if len(samples) >= maxSamples {
			break
		}
		if v := strings.TrimSpace(r.Cell(col)); v != "" {
			samples = append(samples, v)
		}
	}
	return MappingResult{
		ColumnIndex:   col,
		Header:        state.Header.Label(col),
		PreviewEmails: samples,
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Snapshot returns a copy of the session for observers.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:      s.phase,
		Generation: s.issued,
		State:      s.state.clone(),
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// LastActive returns when the session was last loaded, selected or confirmed.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Watch returns a channel that first receives the current snapshot and then
// one after every state change. A watcher that falls more than a few
// snapshots behind loses the oldest queued ones, never the newest, so the
// last snapshot it receives always matches the session. The channel is
// closed by Unwatch or Close.
func (s *Session) Watch() <-chan Snapshot {
	w := &watcher{ch: make(chan Snapshot, watchBuffer)}

	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.closed {
		close(w.ch)
		return w.ch
	}

	s.mu.RLock()
	snap := s.snapshotLocked()
	w.last = s.version
	s.mu.RUnlock()

	w.ch <- snap
	s.listeners = append(s.listeners, w)
	return w.ch
}

// Unwatch stops delivery to a channel returned by Watch and closes it.
func (s *Session) Unwatch(ch <-chan Snapshot) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	for i, w := range s.listeners {
		if w.ch == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(w.ch)
			return
		}
	}
}

// notify queues snap on every watcher. Snapshots are published outside mu,
// so one may arrive after a newer one; version drops it.
func (s *Session) notify(snap Snapshot, version uint64) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	for _, w := range s.listeners {
		if version <= w.last {
			continue
		}
		w.last = version

		select {
		case w.ch <- snap:
			continue
		default:
		}
		// Full: drop the oldest queued snapshot to make room.
		select {
		case <-w.ch:
		default:
		}
		select {
		case w.ch <- snap:
		default:
		}
	}
}

// Close releases watchers and cancels loads still in flight. A canceled
// load finishes with a read error that nobody is notified of.
func (s *Session) Close() {
	s.listenerMu.Lock()
	if !s.closed {
		s.closed = true
		for _, w := range s.listeners {
			close(w.ch)
		}
		s.listeners = nil
	}
	s.listenerMu.Unlock()

	s.mu.Lock()
	for _, cancel := range s.inflight {
		cancel()
	}
	clear(s.inflight)
	s.mu.Unlock()
}
