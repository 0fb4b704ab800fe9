package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/headpad/internal/store"
	"github.com/ayusman/headpad/internal/tracking"
)

// DefaultSampleLimit caps sample listings without an explicit limit.
const DefaultSampleLimit = 1000

// SessionHandler serves recorded tracking sessions and their movement
// samples.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/samples.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch {
	case sub == "samples" && r.Method == http.MethodGet:
		h.samples(w, r, id)
	case sub != "":
		writeError(w, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionResponse struct {
	*store.Session
	SampleCount int `json:"sample_count"`
}

// MovementSummary describes the samples of a session.
type MovementSummary struct {
	Count     int     `json:"count"`
	MeanDX    float64 `json:"mean_dx"`
	MeanDY    float64 `json:"mean_dy"`
	StdDevDX  float64 `json:"stddev_dx"`
	StdDevDY  float64 `json:"stddev_dy"`
	MeanSpeed float64 `json:"mean_speed"`
	MaxSpeed  float64 `json:"max_speed"`
}

type samplesResponse struct {
	SessionID string                    `json:"session_id"`
	Samples   []tracking.MovementSample `json:"samples"`
	Summary   MovementSummary           `json:"summary"`
}

// Summarize computes the movement summary of samples.
func Summarize(samples []tracking.MovementSample) MovementSummary {
	sum := MovementSummary{Count: len(samples)}
	if len(samples) == 0 {
		return sum
	}

	dx := make([]float64, len(samples))
	dy := make([]float64, len(samples))
	speed := make([]float64, len(samples))
	for i, s := range samples {
		dx[i], dy[i], speed[i] = s.DX, s.DY, s.Speed
		sum.MaxSpeed = max(sum.MaxSpeed, s.Speed)
	}

	sum.MeanDX, sum.StdDevDX = stat.PopMeanStdDev(dx, nil)
	sum.MeanDY, sum.StdDevDY = stat.PopMeanStdDev(dy, nil)
	sum.MeanSpeed = stat.Mean(speed, nil)
	return sum
}

func queryLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// list handles GET /api/sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	count, err := h.store.Movements().Count(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, SampleCount: count})
}

// samples handles GET /api/sessions/{id}/samples.
func (h *SessionHandler) samples(w http.ResponseWriter, r *http.Request, id string) {
	limit, ok := queryLimit(r, DefaultSampleLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	samples, err := h.store.Movements().List(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}
	if samples == nil {
		samples = []tracking.MovementSample{}
	}

	writeJSON(w, http.StatusOK, samplesResponse{
		SessionID: id,
		Samples:   samples,
		Summary:   Summarize(samples),
	})
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
