package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mapstick/pkg/config"
	"mapstick/pkg/core"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()

	tempConfig := `
server:
    address: localhost:0  # 0 lets OS choose free port
loop:
    frame_interval: 16ms
input:
    provider: mock
camera:
    provider: mock
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(dir, "server.log")) + `"
        level: "debug"
    requests:
        path: "` + filepath.ToSlash(filepath.Join(dir, "requests.log")) + `"
        level: "info"
    events:
        path: "` + filepath.ToSlash(filepath.Join(dir, "events.log")) + `"
db:
    path: "` + filepath.ToSlash(filepath.Join(dir, "mapstick.db")) + `"
`
	path := filepath.Join(dir, "mapstick.yaml")
	if err := os.WriteFile(path, []byte(tempConfig), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	// Cancel quickly to verify the startup and shutdown sequence.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx, path); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("MAPSTICK_CONFIG", "")
	if got := configPathFromEnv(); got != defaultConfigPath {
		t.Errorf("expected %s, got %s", defaultConfigPath, got)
	}
	t.Setenv("MAPSTICK_CONFIG", "/etc/mapstick.yaml")
	if got := configPathFromEnv(); got != "/etc/mapstick.yaml" {
		t.Errorf("expected override, got %s", got)
	}
}

func TestInitSurfaces(t *testing.T) {
	tests := []struct {
		name       string
		camera     string
		input      string
		wantBridge bool
	}{
		{"Mock_Only", config.ProviderMock, config.ProviderMock, false},
		{"Bridge_Camera", config.ProviderBridge, config.ProviderMock, true},
		{"Bridge_Input", config.ProviderMock, config.ProviderBridge, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Camera.Provider = tt.camera
			cfg.Input.Provider = tt.input

			deps, br := initSurfaces(cfg, core.NewLoop(cfg.Loop, nil))
			if (br != nil) != tt.wantBridge {
				t.Fatalf("bridge created = %v, want %v", br != nil, tt.wantBridge)
			}
			if deps.Camera == nil || deps.Device == nil {
				t.Fatal("camera and device must always be set")
			}
			_, connected := deps.Device.Poll()
			if connected != (tt.input == config.ProviderMock) {
				t.Errorf("pad connected = %v before any browser attached", connected)
			}
			if tt.camera == config.ProviderMock && deps.Alive != nil {
				t.Error("in-memory camera has no liveness check")
			}
		})
	}
}
