package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/notepid/twilight_door/internal/db"
)

func TestCLIThresholdPersistsForNextCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.db")
	def := DefaultSysOpThreshold

	first, err := db.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cli := 40
	got, err := ResolveThreshold(first, "Zone BBS", &cli, &def)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if got != 40 {
		t.Fatalf("expected 40 from the command line, got %d", got)
	}
	first.Close()

	second, err := db.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err = ResolveThreshold(second, "zone bbs", nil, &def)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if got != 40 {
		t.Fatalf("expected stored 40 without the flag, got %d", got)
	}

	got, _ = ResolveThreshold(second, "Other BBS", nil, &def)
	if got != DefaultSysOpThreshold {
		t.Fatalf("expected default for another BBS, got %d", got)
	}
}

func TestResolveThresholdWithoutStore(t *testing.T) {
	got, err := ResolveThreshold(nil, "Zone", nil, nil)
	if err != nil || got != DefaultSysOpThreshold {
		t.Fatalf("expected %d, got %d (%v)", DefaultSysOpThreshold, got, err)
	}
}

type brokenStore struct{ saved int }

func (b *brokenStore) GetBBSSettings(string) (*db.BBSSettings, error) {
	return nil, errors.New("disk on fire")
}

func (b *brokenStore) SaveBBSSettings(*db.BBSSettings) error {
	b.saved++
	return nil
}

func TestResolveThresholdStoreErrorStillResolves(t *testing.T) {
	store := &brokenStore{}
	def := 90
	got, err := ResolveThreshold(store, "Zone", nil, &def)
	if err == nil {
		t.Fatal("expected the store error to be reported")
	}
	if got != 90 || store.saved != 0 {
		t.Fatalf("expected 90 and no save, got %d (saved %d)", got, store.saved)
	}
}

func TestConfiguredZeroDefaultThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.yaml")
	if err := os.WriteFile(path, []byte("sysop:\n  default_threshold: 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, _ := ResolveThreshold(nil, "Zone", nil, &cfg.SysOp.DefaultThreshold)
	if got != 0 {
		t.Fatalf("expected configured 0, got %d", got)
	}
}
