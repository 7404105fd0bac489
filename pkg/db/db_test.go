package db_test

import (
	"path/filepath"
	"testing"

	"mapstick/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}

	var n int
	if err := d.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('persistent_state','profiles')").Scan(&n); err != nil {
		t.Fatalf("query tables: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 tables, got %d", n)
	}
	d.Close()

	// Reopening runs the migrations again without error.
	d, err = db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	d.Close()
}

func TestDB_SchemaVersion(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "version.db"))
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	v, err := d.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if v != 3 {
		t.Errorf("expected schema version 3, got %d", v)
	}

	var n int
	if err := d.QueryRow("SELECT count(*) FROM pragma_table_info('profiles') WHERE name='version'").Scan(&n); err != nil {
		t.Fatalf("query columns: %v", err)
	}
	if n != 1 {
		t.Error("profiles.version column missing")
	}
}
