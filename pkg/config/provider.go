package config

import (
	"context"
	"strconv"
	"time"

	"mapstick/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Profile
	ProfileName(ctx context.Context) string
	ProfilePreset(ctx context.Context) string

	// Navigation
	HighPitch(ctx context.Context) bool
	FlightMode(ctx context.Context) string

	// Geolocation
	GeolocateZoom(ctx context.Context) float64
	GeolocateTimeout(ctx context.Context) time.Duration

	// Cinematic
	OrbitSpeed(ctx context.Context) float64

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

const defaultFlightMode = "map"

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) ProfileName(ctx context.Context) string {
	return p.getString(ctx, KeyProfileName, p.base.Profile.Name)
}

func (p *UnifiedProvider) ProfilePreset(ctx context.Context) string {
	return p.getString(ctx, KeyProfilePreset, p.base.Profile.Preset)
}

func (p *UnifiedProvider) HighPitch(ctx context.Context) bool {
	return p.getBool(ctx, KeyHighPitch, false)
}

func (p *UnifiedProvider) FlightMode(ctx context.Context) string {
	return p.getString(ctx, KeyFlightMode, defaultFlightMode)
}

func (p *UnifiedProvider) GeolocateZoom(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyGeolocateZoom, p.base.Geolocation.Zoom)
}

func (p *UnifiedProvider) GeolocateTimeout(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyGeolocateTimeout, p.base.Geolocation.Timeout.Std())
}

func (p *UnifiedProvider) OrbitSpeed(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyOrbitSpeed, p.base.Cinematic.OrbitSpeed)
}

// lookup returns the override stored under key, or fallback when there is
// none or it does not parse.
func lookup[T any](ctx context.Context, st store.StateStore, key string, parse func(string) (T, error), fallback T) T {
	if st == nil {
		return fallback
	}
	val, ok := st.GetState(ctx, key)
	if !ok || val == "" {
		return fallback
	}
	v, err := parse(val)
	if err != nil {
		return fallback
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	return lookup(ctx, p.store, key, parseString, fallback)
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	return lookup(ctx, p.store, key, parseFloat, fallback)
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	return lookup(ctx, p.store, key, strconv.ParseBool, fallback)
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	return lookup(ctx, p.store, key, ParseDuration, fallback)
}
