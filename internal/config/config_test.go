package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.Authz.Mode != "enforce" {
		t.Fatalf("mode=%q", cfg.Authz.Mode)
	}
	if cfg.RateLimit.Limit != 120 || cfg.RateLimit.WindowSeconds != 60 {
		t.Fatalf("ratelimit=%+v", cfg.RateLimit)
	}
	if cfg.Confirmation.TTLSeconds != 300 {
		t.Fatalf("ttl=%d", cfg.Confirmation.TTLSeconds)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(`
http:
  addr: ":9090"
database:
  url: postgres://localhost/hexacore
authz:
  model_path: authz/model.conf
  policy_path: authz/policy.csv
  mode: shadow
resources:
  path: resources.yaml
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.Database.URL != "postgres://localhost/hexacore" {
		t.Fatalf("url=%q", cfg.Database.URL)
	}
	if cfg.Authz.Mode != "shadow" || cfg.Authz.ModelPath != "authz/model.conf" {
		t.Fatalf("authz=%+v", cfg.Authz)
	}
	// Unset keys keep their defaults.
	if cfg.RateLimit.Limit != 120 {
		t.Fatalf("limit=%d", cfg.RateLimit.Limit)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("http:\n  addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HEXACORE_HTTP__ADDR", ":7070")
	t.Setenv("HEXACORE_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level=%q", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
