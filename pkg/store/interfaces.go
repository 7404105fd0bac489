package store

import (
	"context"
	"time"
)

// ProfileInfo describes a saved profile without its document.
type ProfileInfo struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileStore handles named controller profile documents.
type ProfileStore interface {
	GetProfile(ctx context.Context, name string) ([]byte, error)
	SaveProfile(ctx context.Context, name string, doc []byte) error
	ListProfiles(ctx context.Context) ([]ProfileInfo, error)
	DeleteProfile(ctx context.Context, name string) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
