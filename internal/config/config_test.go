package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.APIVersion != "119" {
		t.Fatalf("unexpected api version: %s", cfg.APIVersion)
	}
	if !cfg.Sandbox {
		t.Fatalf("sandbox must default on")
	}
	if cfg.CallbackTimeout != 3 {
		t.Fatalf("unexpected callback timeout: %d", cfg.CallbackTimeout)
	}
	if cfg.Endpoint() != "https://api-3t.sandbox.paypal.com/nvp" {
		t.Fatalf("unexpected endpoint: %s", cfg.Endpoint())
	}
	if cfg.RedirectBase() != "https://www.sandbox.paypal.com/webscr" {
		t.Fatalf("unexpected redirect base: %s", cfg.RedirectBase())
	}
}

func TestLiveEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Sandbox = false

	if cfg.Endpoint() != "https://api-3t.paypal.com/nvp" {
		t.Fatalf("unexpected live endpoint: %s", cfg.Endpoint())
	}
	if cfg.RedirectBase() != "https://www.paypal.com/webscr" {
		t.Fatalf("unexpected live redirect base: %s", cfg.RedirectBase())
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expresspay.yaml")
	content := "user: file-user\ncurrency: USD\nbrand_name: Oakmarket\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	os.Setenv("EXPRESSPAY_API_USER", "env-user")
	defer os.Unsetenv("EXPRESSPAY_API_USER")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.User != "env-user" {
		t.Fatalf("env must override file, got %s", cfg.User)
	}
	if cfg.Currency != "USD" {
		t.Fatalf("file value lost: %s", cfg.Currency)
	}
	if cfg.BrandName != "Oakmarket" {
		t.Fatalf("file value lost: %s", cfg.BrandName)
	}
	if cfg.APIVersion != "119" {
		t.Fatalf("defaults lost: %s", cfg.APIVersion)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseDriver != "sqlite3" {
		t.Fatalf("unexpected driver: %s", cfg.DatabaseDriver)
	}
}
