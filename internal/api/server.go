package api

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mapstick/pkg/logging"
	"mapstick/pkg/version"
)

// NewServer creates and configures the HTTP server.
// ws serves the map page bridge; shutdown is called by POST /api/shutdown.
func NewServer(addr string, state *StateHandler, profiles *ProfileHandler, cfg *ConfigHandler, stats *StatsHandler, ws http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Controller state and commands
	mux.HandleFunc("GET /api/state", state.HandleState)
	mux.HandleFunc("POST /api/command", state.HandleCommand)

	// 4. Stats and logs
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 5. Config Endpoint
	mux.HandleFunc("/api/config", cfg.HandleConfig)

	// 6. Profile Endpoints
	mux.HandleFunc("GET /api/profiles", profiles.HandleList)
	mux.HandleFunc("GET /api/profile/export", profiles.HandleExport)
	mux.HandleFunc("POST /api/profile/import", profiles.HandleImport)
	mux.HandleFunc("POST /api/profile/preset/{name}", profiles.HandlePreset)
	mux.HandleFunc("POST /api/bindings/assign", profiles.HandleAssign)

	// 7. Map page bridge
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}

	// 8. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// No write timeout: /ws connections are long-lived.
	return &http.Server{
		Addr:        addr,
		Handler:     logRequests(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// logRequests writes one line per request to the request log.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.RequestLogger
		if logger == nil || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
