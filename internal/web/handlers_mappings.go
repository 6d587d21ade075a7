package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/emailpreview/internal/core"
	"github.com/JonMunkholm/emailpreview/internal/logging"
	"github.com/JonMunkholm/emailpreview/internal/store"
)

// maxListLimit caps ?limit= on the mappings listing.
const maxListLimit = 500

type healthResponse struct {
	Status   string                 `json:"status"`
	Sessions int                    `json:"sessions"`
	Loads    core.LoadLimiterStatus `json:"loads"`
	Store    string                 `json:"store"`
}

type mappingsResponse struct {
	Mappings []store.Mapping `json:"mappings"`
	Count    int             `json:"count"`
}

// handleHealth reports liveness plus the state of the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Loads:    s.service.LoadLimiterStatus(),
		Store:    "none",
	}
	status := http.StatusOK

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("store ping failed", "error", err)
			resp.Status = "degraded"
			resp.Store = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Store = "ok"
		}
	}

	writeJSON(w, status, resp)
}

// handleListMappings returns the most recent confirmed mappings.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, r, errNoStore, 0)
		return
	}

	limit := store.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("%w: limit %q", errBadRequest, raw), 0)
			return
		}
		limit = min(n, maxListLimit)
	}

	mappings, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, mappingsResponse{Mappings: mappings, Count: len(mappings)})
}
