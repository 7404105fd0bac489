package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"mapstick/pkg/binding"
	"mapstick/pkg/config"
	"mapstick/pkg/controller"
	"mapstick/pkg/profile"
	"mapstick/pkg/store"
)

const maxProfileSize = 1 << 20

// ProfileHandler handles profile import, export and editing. Every change
// publishes a new profile snapshot and saves it as the active profile.
type ProfileHandler struct {
	ctrl   Controller
	store  store.Store
	logger *slog.Logger

	// saveMu orders saves so the stored profile is the last one published.
	saveMu sync.Mutex
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(ctrl Controller, st store.Store, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandler{ctrl: ctrl, store: st, logger: logger}
}

// ProfileResponse describes the profile a request activated.
type ProfileResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Issues    []profile.Issue `json:"issues,omitempty"`
	Displaced []string        `json:"displaced,omitempty"`
}

// HandleList returns the saved profiles.
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListProfiles(r.Context())
	if err != nil {
		h.logger.Error("Failed to list profiles", "error", err)
		http.Error(w, "Failed to list profiles", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.ProfileInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleExport returns the active profile as a versioned document.
func (h *ProfileHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	p := h.ctrl.Profile()
	data, err := profile.Export(p)
	if err != nil {
		h.logger.Error("Failed to export profile", "error", err)
		http.Error(w, "Failed to export profile", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+p.Name+`.json"`)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write profile export", "error", err)
	}
}

// HandleImport activates an uploaded document. Bindings that cannot be
// applied are reported, not fatal.
func (h *ProfileHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxProfileSize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	p, issues, err := profile.Import(data)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, profile.ErrUnsupportedVersion) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	for _, issue := range issues {
		h.logger.Warn("Profile import issue", "name", p.Name, "issue", issue.String())
	}
	if err := h.activate(r.Context(), p, ""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{ID: p.ID, Name: p.Name, Issues: issues})
}

// HandlePreset activates a built-in preset.
func (h *ProfileHandler) HandlePreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := profile.Preset(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   err.Error(),
			"presets": profile.PresetNames(),
		})
		return
	}
	if err := h.activate(r.Context(), p, name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{ID: p.ID, Name: p.Name})
}

// AssignRequest binds one command.
type AssignRequest struct {
	Command string          `json:"command"`
	Binding binding.Binding `json:"binding"`
}

// HandleAssign binds a command in the active profile. Assignments that claim
// the same input are removed and returned as displaced.
func (h *ProfileHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	cmd, ok := binding.ParseCommand(req.Command)
	if !ok {
		resp := map[string]string{"error": "unknown command"}
		if s, ok := binding.Suggest(req.Command); ok {
			resp["did_you_mean"] = s
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var displaced []binding.Command
	next, err := h.ctrl.UpdateProfile(func(cur *profile.Profile) (*profile.Profile, error) {
		p, d, err := cur.WithBinding(cmd, req.Binding)
		displaced = d
		return p, err
	})
	switch {
	case errors.Is(err, controller.ErrProfileContention):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.persist(r.Context(), ""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := ProfileResponse{ID: next.ID, Name: next.Name}
	for _, d := range displaced {
		resp.Displaced = append(resp.Displaced, d.Key())
	}
	writeJSON(w, http.StatusOK, resp)
}

// activate publishes p to the controller and persists it as the active
// profile. A non-empty preset is remembered as the fallback preset.
func (h *ProfileHandler) activate(ctx context.Context, p *profile.Profile, preset string) error {
	h.ctrl.SetProfile(p)
	return h.persist(ctx, preset)
}

// persist saves whatever profile the controller holds now. Reading it under
// saveMu means a request that lost a race still stores the newest profile.
func (h *ProfileHandler) persist(ctx context.Context, preset string) error {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	p := h.ctrl.Profile()
	data, err := profile.Export(p)
	if err != nil {
		return err
	}
	if err := h.store.SaveProfile(ctx, p.Name, data); err != nil {
		h.logger.Error("Failed to save profile", "name", p.Name, "error", err)
		return err
	}
	if err := h.store.SetState(ctx, config.KeyProfileName, p.Name); err != nil {
		h.logger.Error("Failed to save state", "key", config.KeyProfileName, "error", err)
	}
	if preset != "" {
		if err := h.store.SetState(ctx, config.KeyProfilePreset, preset); err != nil {
			h.logger.Error("Failed to save state", "key", config.KeyProfilePreset, "error", err)
		}
	}
	return nil
}
