package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/emailpreview/internal/core"
	"github.com/JonMunkholm/emailpreview/internal/logging"
	"github.com/JonMunkholm/emailpreview/internal/web/templates"
)

// maxWait caps ?wait= on session reads.
const maxWait = 30 * time.Second

// sessionResponse is a snapshot plus the id it belongs to.
type sessionResponse struct {
	ID string `json:"id"`
	core.Snapshot
}

// attachResponse acknowledges an accepted source.
type attachResponse struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Source     string `json:"source"`
}

// selectColumnRequest is the body of PUT /column.
type selectColumnRequest struct {
	Column *int `json:"column"`
}

// session resolves {sessionID} or writes the error.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return nil, false
	}
	return sess, true
}

// handleIndex starts a new session and sends the browser to its page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.service.NewSession()
	http.Redirect(w, r, "/sessions/"+sess.ID(), http.StatusSeeOther)
}

// handleSessionPage renders the preview page, or only its body for the
// page's own refreshes.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := sess.Snapshot()
	params := templates.PreviewParams{
		SessionID: sess.ID(),
		Snapshot:  snap,
		Patterns:  sess.Config().Patterns,
	}
	if snap.Phase == core.PhaseError {
		params.Message = core.MapError(errors.New(snap.Error))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var err error
	if isPageFetch(r) {
		err = templates.PreviewPartial(params).Render(r.Context(), w)
	} else {
		err = templates.PreviewPage(params).Render(r.Context(), w)
	}
	if err != nil {
		logging.ForSession(r.Context(), sess.ID()).Error("render preview", "error", err)
	}
}

// handleCreateSession creates an empty session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.service.NewSession()
	logging.ForSession(r.Context(), sess.ID()).Info("session created", "ip", clientIP(r))
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID(), Snapshot: sess.Snapshot()})
}

// handleGetSession returns the current snapshot. With ?wait=<duration> it
// first waits (up to maxWait) for an in-flight load to settle.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("wait"); raw != "" {
		d, err := parseWait(raw)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		waitSettled(r.Context(), sess, d)
	}

	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID(), Snapshot: sess.Snapshot()})
}

// parseWait accepts a Go duration or a number of seconds.
func parseWait(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, serr := strconv.Atoi(raw)
		if serr != nil {
			return 0, fmt.Errorf("%w: wait %q: %w", errBadRequest, raw, err)
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: wait %q is negative", errBadRequest, raw)
	}
	return min(d, maxWait), nil
}

// waitSettled blocks until sess leaves Loading, d elapses or ctx ends.
func waitSettled(ctx context.Context, sess *core.Session, d time.Duration) {
	ch := sess.Watch()
	defer sess.Unwatch(ch)

	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok || snap.Phase != core.PhaseLoading {
				return
			}
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleAttachSource accepts a file and starts loading it. Only the preview
// prefix of the body is read; the response is sent before analysis ends.
//
// The file is the "file" part of a multipart form, or the raw request body
// with its name in ?name=.
func (s *Server) handleAttachSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	logger := logging.ForSession(r.Context(), sess.ID())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	name, body, err := sourceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	// One byte past the prefix lets the session see that the file was cut.
	data, err := io.ReadAll(io.LimitReader(body, s.cfg.Preview.PrefixBytes+1))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := withRequestMetadata(r.Context(), r)
	load, err := s.service.AttachSource(ctx, sess.ID(), core.BytesSource{FileName: name, Data: data})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logger.Info("source attached", "source", name, "bytes", len(data), "generation", load.Generation())
	writeJSON(w, http.StatusAccepted, attachResponse{
		ID:         sess.ID(),
		Generation: load.Generation(),
		Source:     name,
	})
}

// sourceFromRequest finds the uploaded file without buffering the whole body.
func sourceFromRequest(r *http.Request) (string, io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
		return filepath.Base(name), r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, fmt.Errorf("%w: form: %w", errBadRequest, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, errNoFile
		}
		if err != nil {
			return "", nil, fmt.Errorf("%w: form: %w", errBadRequest, err)
		}
		if part.FormName() == "file" {
			return partName(part), part, nil
		}
		part.Close()
	}
}

func partName(p *multipart.Part) string {
	if name := p.FileName(); name != "" {
		return filepath.Base(name)
	}
	return "upload.csv"
}

// handleSelectColumn overrides the selected column.
func (s *Server) handleSelectColumn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req selectColumnRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil || req.Column == nil {
		s.respondError(w, r, fmt.Errorf(`%w: body must be {"column": <index>}`, errBadRequest), 0)
		return
	}

	if err := sess.SelectColumn(*req.Column); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID(), Snapshot: sess.Snapshot()})
}

// handleConfirm builds and stores the mapping for the selected column.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := sess.Confirm(withRequestMetadata(r.Context(), r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDiscardSession drops a session.
func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Discard(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionEvents streams snapshots as server-sent events until the
// client leaves or the session is discarded.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := sess.Watch()
	defer sess.Unwatch(ch)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(sessionResponse{ID: sess.ID(), Snapshot: snap})
			if err != nil {
				logging.ForSession(r.Context(), sess.ID()).Error("encode snapshot", "error", err)
				return
			}
			fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Generation, data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
