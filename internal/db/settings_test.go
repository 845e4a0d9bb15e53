package db

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "sub", "door.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestBBSSettingsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.GetBBSSettings("Zone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := d.SaveBBSSettings(&BBSSettings{Name: "Zone", SysOpThreshold: 90}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := d.SaveBBSSettings(&BBSSettings{Name: " zone ", SysOpThreshold: 150}); err != nil {
		t.Fatalf("update: %v", err)
	}

	s, err := d.GetBBSSettings("ZONE")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.SysOpThreshold != 150 {
		t.Fatalf("expected threshold 150, got %d", s.SysOpThreshold)
	}

	d.SaveBBSSettings(&BBSSettings{Name: "Another BBS", SysOpThreshold: 10})
	all, err := d.ListBBSSettings()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Another BBS" {
		t.Fatalf("unexpected settings %+v", all)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()

	var n int
	if err := d.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(migrations) {
		t.Fatalf("expected %d migrations, got %d", len(migrations), n)
	}
}
