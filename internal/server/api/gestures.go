// Package api provides the HTTP API handlers of headpad.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/headpad/internal/gesture"
	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/store"
)

// DefaultTolerance is used for gestures created without a tolerance.
const DefaultTolerance = 0.15

// GestureHandler handles HTTP requests for head gesture templates.
type GestureHandler struct {
	store    *store.Store
	onChange func() error
}

// NewGestureHandler creates a GestureHandler. onChange, if set, runs
// after every change so the matcher can reload its templates.
func NewGestureHandler(s *store.Store, onChange func() error) *GestureHandler {
	return &GestureHandler{store: s, onChange: onChange}
}

// ServeHTTP routes /api/gestures and /api/gestures/{id}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// createGestureRequest carries recorded head paths. The template is the
// average of the samples.
type createGestureRequest struct {
	Name      string            `json:"name"`
	Tolerance float64           `json:"tolerance"`
	Samples   []json.RawMessage `json:"samples"`
}

type updateGestureRequest struct {
	Name      string            `json:"name,omitempty"`
	Tolerance *float64          `json:"tolerance,omitempty"`
	Samples   []json.RawMessage `json:"samples,omitempty"`
}

type gestureResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Tolerance float64           `json:"tolerance"`
	Samples   int               `json:"samples"`
	Path      []store.PathPoint `json:"path"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toGestureResponse(g *store.Gesture) gestureResponse {
	path := g.Path
	if path == nil {
		path = []store.PathPoint{}
	}
	return gestureResponse{
		ID:        g.ID,
		Name:      g.Name,
		Tolerance: g.Tolerance,
		Samples:   g.Samples,
		Path:      path,
		CreatedAt: g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: g.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// trainPath averages raw samples into a stored template path.
func trainPath(raw []json.RawMessage) ([]store.PathPoint, error) {
	samples, err := gesture.ParseSamples(raw)
	if err != nil {
		return nil, err
	}
	trained, err := gesture.Train(samples)
	if err != nil {
		return nil, err
	}
	path := make([]store.PathPoint, len(trained))
	for i, p := range trained {
		path[i] = store.PathPoint{X: p.X, Y: p.Y, TimestampMS: p.Timestamp}
	}
	return path, nil
}

func (h *GestureHandler) changed() {
	if h.onChange == nil {
		return
	}
	if err := h.onChange(); err != nil {
		log.Warn("failed to reload gestures", "err", err)
	}
}

// list handles GET /api/gestures.
func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}

	response := listGesturesResponse{
		Gestures: make([]gestureResponse, 0, len(gestures)),
	}
	for _, g := range gestures {
		response.Gestures = append(response.Gestures, toGestureResponse(g))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/gestures/{id}.
func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	writeJSON(w, http.StatusOK, toGestureResponse(g))
}

// create handles POST /api/gestures. The template path is trained from
// the posted samples.
func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createGestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Tolerance < 0 || req.Tolerance > 1 {
		writeError(w, http.StatusBadRequest, "Tolerance must be between 0 and 1")
		return
	}
	if req.Tolerance == 0 {
		req.Tolerance = DefaultTolerance
	}

	path, err := trainPath(req.Samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Gestures().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Gesture name already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check gesture name")
		return
	}

	g := &store.Gesture{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Tolerance: req.Tolerance,
		Samples:   len(req.Samples),
		Path:      path,
	}
	if err := h.store.Gestures().Create(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create gesture")
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toGestureResponse(g))
}

// update handles PUT /api/gestures/{id}. Posting samples retrains the
// template.
func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	var req updateGestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		g.Name = req.Name
	}
	if req.Tolerance != nil {
		if *req.Tolerance <= 0 || *req.Tolerance > 1 {
			writeError(w, http.StatusBadRequest, "Tolerance must be between 0 and 1")
			return
		}
		g.Tolerance = *req.Tolerance
	}
	if len(req.Samples) > 0 {
		path, err := trainPath(req.Samples)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		g.Path = path
		g.Samples = len(req.Samples)
	}

	if err := h.store.Gestures().Update(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}
	h.changed()

	writeJSON(w, http.StatusOK, toGestureResponse(g))
}

// delete handles DELETE /api/gestures/{id}.
func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Gestures().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}
