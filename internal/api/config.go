package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mapstick/pkg/config"
	"mapstick/pkg/store"
)

// ConfigHandler handles runtime configuration requests.
type ConfigHandler struct {
	store   store.StateStore
	cfgProv config.Provider
	// apply pushes new geolocation settings to the controller.
	apply func(zoom float64, timeout time.Duration)
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(st store.StateStore, cfg config.Provider, apply func(zoom float64, timeout time.Duration)) *ConfigHandler {
	return &ConfigHandler{
		store:   st,
		cfgProv: cfg,
		apply:   apply,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	ProfileName      string  `json:"profile_name"`
	ProfilePreset    string  `json:"profile_preset"`
	HighPitch        bool    `json:"high_pitch"`
	FlightMode       string  `json:"flight_mode"`
	GeolocateZoom    float64 `json:"geolocate_zoom"`
	GeolocateTimeout string  `json:"geolocate_timeout"`
	OrbitSpeed       float64 `json:"orbit_speed"`
	InputProvider    string  `json:"input_provider"`
	CameraProvider   string  `json:"camera_provider"`
}

// ConfigRequest represents the config API request for updates.
type ConfigRequest struct {
	GeolocateZoom    *float64 `json:"geolocate_zoom,omitempty"`
	GeolocateTimeout string   `json:"geolocate_timeout,omitempty"`
	OrbitSpeed       *float64 `json:"orbit_speed,omitempty"` // applies from the next start
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := h.getConfigResponse(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode config response", "error", err)
	}
}

func (h *ConfigHandler) getConfigResponse(ctx context.Context) ConfigResponse {
	appCfg := h.cfgProv.AppConfig()
	return ConfigResponse{
		ProfileName:      h.cfgProv.ProfileName(ctx),
		ProfilePreset:    h.cfgProv.ProfilePreset(ctx),
		HighPitch:        h.cfgProv.HighPitch(ctx),
		FlightMode:       h.cfgProv.FlightMode(ctx),
		GeolocateZoom:    h.cfgProv.GeolocateZoom(ctx),
		GeolocateTimeout: h.cfgProv.GeolocateTimeout(ctx).String(),
		OrbitSpeed:       h.cfgProv.OrbitSpeed(ctx),
		InputProvider:    appCfg.Input.Provider,
		CameraProvider:   appCfg.Camera.Provider,
	}
}

// HandleSetConfig validates every field of the request before storing any
// of them, then answers with the resulting configuration.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	updates, err := req.updates()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for key, val := range updates {
		if err := h.store.SetState(ctx, key, val); err != nil {
			slog.Error("Failed to save state", "key", key, "error", err)
			http.Error(w, "Failed to save config", http.StatusInternalServerError)
			return
		}
		slog.Debug("Config updated", "key", key, "value", val)
	}

	_, zoomSet := updates[config.KeyGeolocateZoom]
	_, timeoutSet := updates[config.KeyGeolocateTimeout]
	if (zoomSet || timeoutSet) && h.apply != nil {
		h.apply(h.cfgProv.GeolocateZoom(ctx), h.cfgProv.GeolocateTimeout(ctx))
	}

	h.HandleGetConfig(w, r)
}

// updates maps the request onto state-store keys.
func (req *ConfigRequest) updates() (map[string]string, error) {
	out := make(map[string]string, 3)
	if req.GeolocateZoom != nil {
		z := *req.GeolocateZoom
		if z < 0 || z > 22 {
			return nil, fmt.Errorf("geolocate_zoom %.1f out of range 0..22", z)
		}
		out[config.KeyGeolocateZoom] = formatFloat(z)
	}
	if req.GeolocateTimeout != "" {
		d, err := config.ParseDuration(req.GeolocateTimeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid geolocate_timeout %q", req.GeolocateTimeout)
		}
		out[config.KeyGeolocateTimeout] = req.GeolocateTimeout
	}
	if req.OrbitSpeed != nil {
		if *req.OrbitSpeed <= 0 {
			return nil, fmt.Errorf("orbit_speed must be positive, got %g", *req.OrbitSpeed)
		}
		out[config.KeyOrbitSpeed] = formatFloat(*req.OrbitSpeed)
	}
	return out, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
