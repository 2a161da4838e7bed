package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading empty path: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %s, want :8080", cfg.Server.Addr)
	}
	if cfg.Arena.TargetJudgments != 3 {
		t.Errorf("target_judgments = %d, want 3", cfg.Arena.TargetJudgments)
	}
	if cfg.Arena.TotalCap != 0 || cfg.Arena.ClaimTTLMin != 0 {
		t.Errorf("caps not disabled by default: %+v", cfg.Arena)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("loading missing file: %v", err)
	}
	if cfg.Database.Path != "data/arena.db" {
		t.Errorf("path = %s, want default", cfg.Database.Path)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9090"

[arena]
target_judgments = 5
claim_ttl_min = 30
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %s, want :9090", cfg.Server.Addr)
	}
	if cfg.Arena.TargetJudgments != 5 {
		t.Errorf("target_judgments = %d, want 5", cfg.Arena.TargetJudgments)
	}
	if cfg.Arena.ClaimTTLMin != 30 {
		t.Errorf("claim_ttl_min = %d, want 30", cfg.Arena.ClaimTTLMin)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Arena.SoftCap != 1000 {
		t.Errorf("soft_cap = %d, want default 1000", cfg.Arena.SoftCap)
	}
	if cfg.Database.Path != "data/arena.db" {
		t.Errorf("path = %s, want default", cfg.Database.Path)
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config accepted")
	}
}
