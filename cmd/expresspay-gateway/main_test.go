package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/oakmarket/expresspay/internal/config"
)

func TestNewServer(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = ":9999"
	cfg.DatabaseDriver = "sqlite3"
	cfg.DatabaseDSN = "file::memory:?cache=shared"

	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if srv.Addr != ":9999" {
		t.Fatalf("expected addr %s, got %s", ":9999", srv.Addr)
	}
	if srv.Handler == nil {
		t.Fatalf("expected handler to be set")
	}
}

func TestNewServerMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseDriver = "memory"

	if _, err := newServer(cfg); err != nil {
		t.Fatalf("new server: %v", err)
	}
}

func TestNewServerUnsupportedDBDriver(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseDriver = "oracle"

	if _, err := newServer(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunDefaults(t *testing.T) {
	factory := func(cfg config.Config) (*http.Server, error) {
		if cfg.ListenAddr != ":8080" {
			t.Fatalf("expected default addr, got %q", cfg.ListenAddr)
		}
		return &http.Server{Addr: cfg.ListenAddr}, nil
	}
	listen := func(_ *http.Server) error { return http.ErrServerClosed }

	if err := run(nil, listen, factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunLoadsConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "expresspay.yaml")
	cfgYAML := `listen_addr: ":8088"
database_driver: "memory"
currency: "USD"
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	called := false
	factory := func(cfg config.Config) (*http.Server, error) {
		called = true
		if cfg.ListenAddr != ":8088" {
			t.Fatalf("expected addr %q, got %q", ":8088", cfg.ListenAddr)
		}
		if cfg.Currency != "USD" {
			t.Fatalf("expected USD, got %q", cfg.Currency)
		}
		return &http.Server{Addr: cfg.ListenAddr}, nil
	}
	listen := func(_ *http.Server) error { return http.ErrServerClosed }

	if err := run([]string{"-config", cfgPath}, listen, factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("expected server factory to be called")
	}
}

func TestRunListenError(t *testing.T) {
	factory := func(cfg config.Config) (*http.Server, error) {
		return &http.Server{Addr: ":8080"}, nil
	}
	listenErr := errors.New("listen failed")
	listen := func(_ *http.Server) error { return listenErr }

	if err := run(nil, listen, factory); !errors.Is(err, listenErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestMainError(t *testing.T) {
	oldRun := runFn
	oldFatal := fatalf
	defer func() {
		runFn = oldRun
		fatalf = oldFatal
	}()

	runFn = func([]string, listenFn, serverFactory) error {
		return errors.New("boom")
	}

	called := false
	fatalf = func(string, ...any) {
		called = true
	}

	main()
	if !called {
		t.Fatalf("expected fatal call")
	}
}
