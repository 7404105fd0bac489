package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Providers for devices and the camera surface.
const (
	ProviderBridge = "bridge"
	ProviderMock   = "mock"
)

// Config holds the application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log"`
	DB          DBConfig          `yaml:"db"`
	Server      ServerConfig      `yaml:"server"`
	Loop        LoopConfig        `yaml:"loop"`
	Input       InputConfig       `yaml:"input"`
	Camera      CameraConfig      `yaml:"camera"`
	Cinematic   CinematicConfig   `yaml:"cinematic"`
	Geolocation GeolocationConfig `yaml:"geolocation"`
	Profile     ProfileConfig     `yaml:"profile"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LoopConfig holds frame loop settings.
type LoopConfig struct {
	FrameInterval Duration `yaml:"frame_interval"`
	MaxDelta      Duration `yaml:"max_delta"` // upper bound for a single frame's dt
	Trace         bool     `yaml:"trace"`
}

// InputConfig holds gamepad settings.
type InputConfig struct {
	Provider       string   `yaml:"provider"` // "bridge", "mock"
	RepeatDelay    Duration `yaml:"repeat_delay"`
	RepeatInterval Duration `yaml:"repeat_interval"`
}

// CameraConfig holds map camera settings.
type CameraConfig struct {
	Provider  string           `yaml:"provider"` // "bridge", "mock"
	PitchLow  float64          `yaml:"pitch_low"`
	PitchHigh float64          `yaml:"pitch_high"`
	Mock      MockCameraConfig `yaml:"mock"`
}

// MockCameraConfig holds the starting pose of the in-memory camera.
type MockCameraConfig struct {
	StartLat  float64 `yaml:"start_lat"`
	StartLon  float64 `yaml:"start_lon"`
	StartZoom float64 `yaml:"start_zoom"`
	Terrain   float64 `yaml:"terrain"`
}

// PresetConfig is the pose a cinematic fly-in lands on.
type PresetConfig struct {
	Zoom     float64  `yaml:"zoom"`
	Pitch    float64  `yaml:"pitch"`
	Bearing  *float64 `yaml:"bearing,omitempty"`
	Duration Duration `yaml:"duration"`
}

// CinematicConfig holds orbit and satellite settings.
type CinematicConfig struct {
	TargetingTimeout Duration     `yaml:"targeting_timeout"`
	Orbit            PresetConfig `yaml:"orbit"`
	Satellite        PresetConfig `yaml:"satellite"`
	OrbitSpeed       float64      `yaml:"orbit_speed"`     // deg/s
	OrbitMaxSpeed    float64      `yaml:"orbit_max_speed"` // deg/s
	OrbitSmoothing   float64      `yaml:"orbit_smoothing"`
	FlyInTerrain     float64      `yaml:"fly_in_terrain"`
}

// GeolocationConfig holds device-location settings.
type GeolocationConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Zoom        float64  `yaml:"zoom"`
	MaxDuration Duration `yaml:"max_duration"` // cap for the distance-scaled fly duration
}

// ProfileConfig selects the controller profile.
type ProfileConfig struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	north := 0.0
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "data/mapstick.db",
		},
		Server: ServerConfig{
			Address: "localhost:1925",
		},
		Loop: LoopConfig{
			FrameInterval: Duration(16 * time.Millisecond),
			MaxDelta:      Duration(100 * time.Millisecond),
		},
		Input: InputConfig{
			Provider:       ProviderBridge,
			RepeatDelay:    Duration(250 * time.Millisecond),
			RepeatInterval: Duration(90 * time.Millisecond),
		},
		Camera: CameraConfig{
			Provider:  ProviderBridge,
			PitchLow:  60,
			PitchHigh: 85,
			Mock: MockCameraConfig{
				StartLat:  46.948,
				StartLon:  7.447,
				StartZoom: 12,
				Terrain:   1.5,
			},
		},
		Cinematic: CinematicConfig{
			TargetingTimeout: Duration(5 * time.Second),
			Orbit: PresetConfig{
				Zoom:     16,
				Pitch:    60,
				Duration: Duration(2500 * time.Millisecond),
			},
			Satellite: PresetConfig{
				Zoom:     17,
				Pitch:    0,
				Bearing:  &north,
				Duration: Duration(2 * time.Second),
			},
			OrbitSpeed:     6,
			OrbitMaxSpeed:  30,
			OrbitSmoothing: 0.05,
			FlyInTerrain:   0,
		},
		Geolocation: GeolocationConfig{
			Timeout:     Duration(10 * time.Second),
			Zoom:        15,
			MaxDuration: Duration(5 * time.Second),
		},
		Profile: ProfileConfig{
			Name:   "default",
			Preset: "default",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates one with default values.
// Environment variables override file values but are never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DB.Path = os.ExpandEnv(cfg.DB.Path)
	cfg.Log.Server.Path = os.ExpandEnv(cfg.Log.Server.Path)
	cfg.Log.Requests.Path = os.ExpandEnv(cfg.Log.Requests.Path)
	cfg.Log.Events.Path = os.ExpandEnv(cfg.Log.Events.Path)

	if addr := os.Getenv("MAPSTICK_ADDR"); addr != "" {
		cfg.Server.Address = addr
	}
	if p := os.Getenv("MAPSTICK_INPUT"); p != "" {
		cfg.Input.Provider = p
	}
	if p := os.Getenv("MAPSTICK_CAMERA"); p != "" {
		cfg.Camera.Provider = p
	}
}

// Validate rejects settings the runtime cannot work with.
func (c *Config) Validate() error {
	if err := validProvider("input.provider", c.Input.Provider); err != nil {
		return err
	}
	if err := validProvider("camera.provider", c.Camera.Provider); err != nil {
		return err
	}
	if c.Loop.FrameInterval <= 0 {
		return fmt.Errorf("invalid loop.frame_interval %s: must be positive", c.Loop.FrameInterval.Std())
	}
	if c.Camera.PitchLow > c.Camera.PitchHigh {
		return fmt.Errorf("invalid camera pitch tiers: pitch_low %.1f above pitch_high %.1f", c.Camera.PitchLow, c.Camera.PitchHigh)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# mapstick Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: bridge, mock\n${1}provider:"))

	rePreset := regexp.MustCompile(`(?m)^(\s+)preset:`)
	data = rePreset.ReplaceAll(data, []byte("${1}# Options: default, southpaw, trigger-zoom\n${1}preset:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func validProvider(name, p string) error {
	if p != ProviderBridge && p != ProviderMock {
		return fmt.Errorf("invalid %s '%s': must be '%s' or '%s'", name, p, ProviderBridge, ProviderMock)
	}
	return nil
}
