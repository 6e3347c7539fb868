package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/oakmarket/expresspay/internal/api"
	"github.com/oakmarket/expresspay/internal/auth"
	"github.com/oakmarket/expresspay/internal/config"
	"github.com/oakmarket/expresspay/internal/express"
	"github.com/oakmarket/expresspay/internal/gateway"
	"github.com/oakmarket/expresspay/internal/ledger"
	"github.com/oakmarket/expresspay/internal/logging"
)

type listenFn func(*http.Server) error
type serverFactory func(cfg config.Config) (*http.Server, error)

var (
	runFn  = run
	fatalf = log.Fatalf
)

func main() {
	if err := runFn(os.Args[1:], listenAndServe, newServer); err != nil {
		fatalf("expresspay-gateway: %v", err)
	}
}

func run(args []string, listen listenFn, factory serverFactory) error {
	fs := flag.NewFlagSet("expresspay-gateway", flag.ContinueOnError)
	cfgPath := fs.String("config", "expresspay.yaml", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	server, err := factory(cfg)
	if err != nil {
		return err
	}

	log.Printf("expresspay-gateway listening on %s (sandbox=%t)", server.Addr, cfg.Sandbox)
	if err := listen(server); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	return server.ListenAndServe()
}

func newServer(cfg config.Config) (*http.Server, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	logger := &logging.StdoutLogger{}
	gw := gateway.New(cfg, store, logger)

	handler := &api.Handler{
		Auth:     auth.NewMultiAuthenticator(cfg.DevToken, cfg.JWTSecret),
		Store:    store,
		Rater:    express.NewZoneRater(cfg.ShippingZones),
		Payments: express.NewFacade(gw, store, cfg),
		Log:      logger,
	}

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func newStore(cfg config.Config) (ledger.Store, error) {
	switch cfg.DatabaseDriver {
	case "memory":
		return ledger.NewInMemoryStore(), nil
	case "sqlite3", "postgres":
		db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open ledger db: %w", err)
		}
		dialect := ledger.DialectSQLite
		if cfg.DatabaseDriver == "postgres" {
			dialect = ledger.DialectPostgres
		}
		store := ledger.NewSQLStore(db, dialect)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
