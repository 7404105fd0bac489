package profile

import (
	"context"
	"fmt"
	"log/slog"
)

// Origin records which step of the fallback chain produced a profile.
type Origin string

const (
	OriginSaved   Origin = "saved"
	OriginPreset  Origin = "preset"
	OriginDefault Origin = "default"
)

// Repository persists profile documents by name. GetProfile returns nil, nil
// when the name is unknown.
type Repository interface {
	GetProfile(ctx context.Context, name string) ([]byte, error)
	SaveProfile(ctx context.Context, name string, doc []byte) error
}

// Loader resolves the startup profile: saved, then preset, then default.
type Loader struct {
	repo   Repository
	logger *slog.Logger
}

// NewLoader creates a loader. repo may be nil, which skips the saved step.
func NewLoader(repo Repository, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{repo: repo, logger: logger}
}

// Load never fails: every broken step is logged and the chain moves on.
func (l *Loader) Load(ctx context.Context, name, preset string) (*Profile, Origin) {
	if l.repo != nil && name != "" {
		if p, ok := l.loadSaved(ctx, name); ok {
			return p, OriginSaved
		}
	}
	if preset != "" {
		p, err := Preset(preset)
		if err == nil {
			l.logger.Info("Loaded preset profile", "preset", preset)
			return p, OriginPreset
		}
		l.logger.Warn("Preset not available", "preset", preset, "error", err)
	}
	l.logger.Info("Using default profile")
	return Default(), OriginDefault
}

func (l *Loader) loadSaved(ctx context.Context, name string) (*Profile, bool) {
	data, err := l.repo.GetProfile(ctx, name)
	if err != nil {
		l.logger.Warn("Failed to read saved profile", "name", name, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	p, issues, err := Import(data)
	if err != nil {
		l.logger.Warn("Saved profile is unreadable", "name", name, "error", err)
		return nil, false
	}
	for _, issue := range issues {
		l.logger.Warn("Saved profile issue", "name", name, "issue", issue.String())
	}
	l.logger.Info("Loaded saved profile", "name", name, "id", p.ID)
	return p, true
}

// Save stores p under name.
func (l *Loader) Save(ctx context.Context, name string, p *Profile) error {
	if l.repo == nil {
		return nil
	}
	data, err := Export(p)
	if err != nil {
		return err
	}
	if err := l.repo.SaveProfile(ctx, name, data); err != nil {
		return fmt.Errorf("failed to save profile %q: %w", name, err)
	}
	return nil
}
