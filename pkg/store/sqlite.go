package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mapstick/pkg/db"
)

// Store defines the repository interface.
// Consumers should depend on the narrow sub-interfaces when possible.
type Store interface {
	ProfileStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Profiles ---

// GetProfile returns the stored document, or nil, nil if name is unknown.
func (s *SQLiteStore) GetProfile(ctx context.Context, name string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT document FROM profiles WHERE name = ?", name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", name, err)
	}
	return doc, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, name string, doc []byte) error {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return fmt.Errorf("save profile %q: %w", name, err)
	}
	query := `INSERT INTO profiles (name, document, version, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, version = excluded.version, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, name, doc, head.Version, time.Now().UTC()); err != nil {
		return fmt.Errorf("save profile %q: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]ProfileInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, version, updated_at FROM profiles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProfileInfo
	for rows.Next() {
		var info ProfileInfo
		var updated sql.NullString
		if err := rows.Scan(&info.Name, &info.Version, &updated); err != nil {
			slog.Warn("Skipping unreadable profile row", "error", err)
			continue
		}
		info.UpdatedAt = parseTimestamp(updated.String)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", name)
	return err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
