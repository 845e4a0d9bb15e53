package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "door.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Transport.StdioHosts, DefaultStdioHosts) {
		t.Fatalf("expected default stdio hosts, got %v", cfg.Transport.StdioHosts)
	}
	if cfg.SysOp.DefaultThreshold != 100 {
		t.Fatalf("expected threshold 100, got %d", cfg.SysOp.DefaultThreshold)
	}
	for _, h := range cfg.Transport.StdioHosts {
		if h == "Synchronet" {
			t.Fatal("Synchronet passes a socket handle and must not be a stdio host")
		}
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.yaml")
	data := []byte(`
paths:
  save_root: /srv/door/saves
transport:
  stdio_hosts: [Mystic, "Custom Host"]
  telnet_iac: true
sysop:
  default_threshold: 90
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.SaveRoot != "/srv/door/saves" {
		t.Fatalf("unexpected save root %q", cfg.Paths.SaveRoot)
	}
	if cfg.Paths.Data != "./data" {
		t.Fatalf("expected default data dir to survive, got %q", cfg.Paths.Data)
	}
	if !reflect.DeepEqual(cfg.Transport.StdioHosts, []string{"Mystic", "Custom Host"}) {
		t.Fatalf("unexpected hosts %v", cfg.Transport.StdioHosts)
	}
	if !cfg.Transport.TelnetIAC || cfg.SysOp.DefaultThreshold != 90 {
		t.Fatalf("unexpected transport/sysop %+v %+v", cfg.Transport, cfg.SysOp)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("DOOR_STDIO_HOSTS", "WWIV,Renegade")
	t.Setenv("DOOR_SAVE_ROOT", "/tmp/saves")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Transport.StdioHosts, []string{"WWIV", "Renegade"}) {
		t.Fatalf("unexpected hosts %v", cfg.Transport.StdioHosts)
	}
	if cfg.Paths.SaveRoot != "/tmp/saves" {
		t.Fatalf("unexpected save root %q", cfg.Paths.SaveRoot)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.yaml")
	os.WriteFile(path, []byte("paths: [unclosed"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestThresholdPrecedence(t *testing.T) {
	cli, stored, def, zero := 50, 75, 90, 0
	tests := []struct {
		name string
		in   Threshold
		want int
	}{
		{"cli wins", Threshold{CLI: &cli, Stored: &stored, Default: &def}, 50},
		{"stored next", Threshold{Stored: &stored, Default: &def}, 75},
		{"config default", Threshold{Default: &def}, 90},
		{"config default zero", Threshold{Default: &zero}, 0},
		{"built in", Threshold{}, 100},
	}
	for _, tt := range tests {
		if got := tt.in.Resolve(); got != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}
