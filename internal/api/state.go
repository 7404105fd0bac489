package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"mapstick/pkg/binding"
	"mapstick/pkg/controller"
	"mapstick/pkg/profile"
)

// Controller is the part of the controller the API reads and drives.
type Controller interface {
	State() controller.State
	Profile() *profile.Profile
	SetProfile(p *profile.Profile)
	UpdateProfile(fn func(*profile.Profile) (*profile.Profile, error)) (*profile.Profile, error)
	ExecuteKey(key string)
}

// StateHandler serves the published controller state and runs commands.
type StateHandler struct {
	ctrl Controller
	post func(fn func())
}

// NewStateHandler creates a new StateHandler. post schedules work on the
// frame loop goroutine.
func NewStateHandler(ctrl Controller, post func(fn func())) *StateHandler {
	return &StateHandler{ctrl: ctrl, post: post}
}

// HandleState returns the snapshot of the last frame.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// CommandRequest names a command by its namespaced key.
type CommandRequest struct {
	Key string `json:"key"`
}

// HandleCommand queues a command for the next frame.
func (h *StateHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if _, ok := binding.ParseCommand(req.Key); !ok {
		resp := map[string]string{"error": "unknown command"}
		if s, ok := binding.Suggest(req.Key); ok {
			resp["did_you_mean"] = s
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	key := req.Key
	h.post(func() { h.ctrl.ExecuteKey(key) })
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
