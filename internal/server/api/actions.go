package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/headpad/internal/plugin"
	"github.com/ayusman/headpad/internal/store"
)

// ActionHandler handles HTTP requests binding plugin actions to gestures.
// A gesture has at most one action.
type ActionHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewActionHandler creates an ActionHandler. When plugins is set, a
// binding must name a discovered plugin and one of its actions.
func NewActionHandler(s *store.Store, plugins *plugin.Manager) *ActionHandler {
	return &ActionHandler{store: s, plugins: plugins}
}

// ServeHTTP routes /api/actions and /api/actions/{id}.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/actions"), "/")

	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w)
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, id)
	case id != "" && r.Method == http.MethodPut:
		h.update(w, r, id)
	case id != "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// bindingRequest is the body of both POST and PUT. Absent fields keep
// their current value on PUT.
type bindingRequest struct {
	GestureID  string          `json:"gesture_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

func (req bindingRequest) applyTo(a *store.Action) {
	if req.GestureID != "" {
		a.GestureID = req.GestureID
	}
	if req.PluginName != "" {
		a.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		a.ActionName = req.ActionName
	}
	if req.Config != nil {
		a.Config = req.Config
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}
}

type actionResponse struct {
	ID         string          `json:"id"`
	GestureID  string          `json:"gesture_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		GestureID:  a.GestureID,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     config,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

// apiError is a failed request with the status to report.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(msg string) *apiError { return &apiError{http.StatusBadRequest, msg} }

func writeAPIError(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.message)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// validate checks a complete binding against the store and the plugins.
// current is the id of the action being updated, empty on create.
func (h *ActionHandler) validate(a *store.Action, current string) error {
	switch {
	case a.GestureID == "":
		return badRequest("gesture_id is required")
	case a.PluginName == "":
		return badRequest("plugin_name is required")
	case a.ActionName == "":
		return badRequest("action_name is required")
	}

	if h.plugins != nil {
		p, err := h.plugins.Get(a.PluginName)
		if err != nil {
			return badRequest("Plugin not found")
		}
		if !p.Manifest.Supports(a.ActionName) {
			return badRequest("Action not supported by plugin")
		}
	}

	if _, err := h.store.Gestures().GetByID(a.GestureID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return badRequest("Gesture not found")
		}
		return &apiError{http.StatusInternalServerError, "Failed to verify gesture"}
	}

	bound, err := h.store.Actions().GetByGestureID(a.GestureID)
	if err != nil {
		return &apiError{http.StatusInternalServerError, "Failed to check existing action"}
	}
	if bound != nil && bound.ID != current {
		return &apiError{http.StatusConflict, "Action already bound to this gesture"}
	}
	return nil
}

func (h *ActionHandler) find(id string) (*store.Action, error) {
	a, err := h.store.Actions().GetByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &apiError{http.StatusNotFound, "Action not found"}
	}
	if err != nil {
		return nil, &apiError{http.StatusInternalServerError, "Failed to get action"}
	}
	return a, nil
}

// list handles GET /api/actions.
func (h *ActionHandler) list(w http.ResponseWriter) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{Actions: make([]actionResponse, 0, len(actions))}
	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/actions/{id}.
func (h *ActionHandler) get(w http.ResponseWriter, id string) {
	a, err := h.find(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActionResponse(a))
}

// create handles POST /api/actions. New bindings are enabled unless the
// request says otherwise.
func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a := &store.Action{ID: uuid.New().String(), Config: json.RawMessage("{}"), Enabled: true}
	req.applyTo(a)
	if err := h.validate(a, ""); err != nil {
		writeAPIError(w, err)
		return
	}

	if err := h.store.Actions().Create(a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}
	writeJSON(w, http.StatusCreated, toActionResponse(a))
}

// update handles PUT /api/actions/{id}.
func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.find(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.applyTo(a)
	if err := h.validate(a, a.ID); err != nil {
		writeAPIError(w, err)
		return
	}

	if err := h.store.Actions().Update(a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}
	writeJSON(w, http.StatusOK, toActionResponse(a))
}

// delete handles DELETE /api/actions/{id}.
func (h *ActionHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Actions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
