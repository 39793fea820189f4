// Package main implements the inbox deployment coordinator. Agents register
// the instances they run on; the orchestration runtime then asks the
// coordinator for the bootstrap and configure plans of the ElasticInbox role.
//
//	┌─────────────────────────────────────────┐
//	│              Coordinator                │
//	├─────────────────────────────────────────┤
//	│  POST /register          agent join     │
//	│  GET  /instances         registry       │
//	│  DELETE /instances/{id}  agent leave    │
//	│  POST /events/bootstrap  install plan   │
//	│  POST /events/configure  config plan    │
//	│  GET  /blobs/{hash}/{n}  staged package │
//	│  GET  /metrics           prometheus     │
//	│  GET  /health                           │
//	└─────────────────────────────────────────┘
//
// Configuration (environment):
//   - COORDINATOR_ADDR: listen address (default ":8080")
//   - PUBLIC_URL: base URL instances use to download staged packages
//   - PROPERTIES_FILE: deployment .properties file
//   - BLOB_DIR: badger directory for staged packages (in memory when unset)
//   - CONFIGURE_TIMEOUT: how long a configure event waits for instances (default 10m)
//   - HEALTH_INTERVAL: agent health check interval (default 5s)
//   - LOG_LEVEL: error|warn|info|debug (default info)
//
// Deployment properties may also be set as INBOX_* variables, for example
// INBOX_ELASTICINBOX_TARBALL_URL.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/vrischmann/envconfig"

	"github.com/dreamware/inboxdeploy/internal/config"
	"github.com/dreamware/inboxdeploy/internal/coordinator"
	"github.com/dreamware/inboxdeploy/internal/deploy"
	"github.com/dreamware/inboxdeploy/internal/stage"
	"github.com/dreamware/inboxdeploy/internal/storage"
)

type Config struct {
	Addr             string        `envconfig:"COORDINATOR_ADDR,default=:8080"`
	PublicURL        string        `envconfig:"PUBLIC_URL,optional"`
	PropertiesFile   string        `envconfig:"PROPERTIES_FILE,optional"`
	BlobDir          string        `envconfig:"BLOB_DIR,optional"`
	ConfigureTimeout time.Duration `envconfig:"CONFIGURE_TIMEOUT,default=10m"`
	HealthInterval   time.Duration `envconfig:"HEALTH_INTERVAL,default=5s"`
	LogLevel         string        `envconfig:"LOG_LEVEL,default=info"`
}

// logFatal is a variable so tests can intercept fatal exits.
var logFatal = func(logger zerolog.Logger, err error, msg string) {
	logger.Fatal().Err(err).Msg(msg)
}

func main() {
	var cfg Config
	if err := envconfig.Init(&cfg); err != nil {
		logFatal(zerolog.New(os.Stderr), err, "failed to read coordinator config")
		return
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel, false)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logFatal(logger, err, "coordinator failed")
	}
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	props, err := config.LoadProperties(cfg.PropertiesFile, nil)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.BlobDir)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := newServer(props, store, cfg.PublicURL, cfg.ConfigureTimeout, logger)
	if err != nil {
		return err
	}

	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 5 * time.Second
	}
	monitor := coordinator.NewHealthMonitor(cfg.HealthInterval, logger)
	monitor.SetOnStatusChange(srv.setStatus)
	go monitor.Start(ctx, srv.registry.Instances)
	defer monitor.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("cluster", srv.registry.Snapshot().Name).
			Int("templates", len(srv.templates)).
			Msg("coordinator listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	logger.Info().Msg("coordinator stopped")
	return nil
}

func openStore(dir string) (storage.Store, error) {
	if dir == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewBadgerStore(dir)
}

func newHandler(store storage.Store, publicURL string, logger zerolog.Logger) (*deploy.Handler, *stage.Stager) {
	stager := stage.New(store, publicURL, stage.WithLogger(logger))
	return deploy.NewHandler(deploy.DefaultSettings(), stager, logger), stager
}
