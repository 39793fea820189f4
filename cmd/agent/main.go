// Package main implements the instance agent. One agent runs on every
// machine of an inbox cluster: it announces the machine's roles and
// addresses to the coordinator and answers its health checks.
//
// Configuration (environment):
//   - AGENT_ID: instance identifier (default: random UUID)
//   - AGENT_ROLES: comma separated roles, e.g. "elasticinbox,cassandra"
//   - PRIVATE_IP: address other instances reach this one on (required)
//   - PUBLIC_IP: externally visible address
//   - AGENT_LISTEN: listen address (default ":8081")
//   - AGENT_ADDR: URL the coordinator probes (default "http://127.0.0.1:8081")
//   - COORDINATOR_ADDR: coordinator URL (required)
//   - REGISTER_ATTEMPTS: registration attempts before giving up, 0 retries forever (default 10)
//   - LOG_LEVEL: error|warn|info|debug (default info)
//
// Example:
//
//	AGENT_ROLES=elasticinbox,cassandra \
//	PRIVATE_IP=10.0.0.1 \
//	AGENT_ADDR=http://10.0.0.1:8081 \
//	COORDINATOR_ADDR=http://10.0.0.254:8080 \
//	./agent
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vrischmann/envconfig"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/config"
)

type Config struct {
	ID               string   `envconfig:"AGENT_ID,optional"`
	Roles            []string `envconfig:"AGENT_ROLES,optional"`
	PrivateIP        string   `envconfig:"PRIVATE_IP"`
	PublicIP         string   `envconfig:"PUBLIC_IP,optional"`
	Listen           string   `envconfig:"AGENT_LISTEN,default=:8081"`
	Addr             string   `envconfig:"AGENT_ADDR,default=http://127.0.0.1:8081"`
	Coordinator      string   `envconfig:"COORDINATOR_ADDR"`
	RegisterAttempts uint     `envconfig:"REGISTER_ATTEMPTS,default=10"`
	LogLevel         string   `envconfig:"LOG_LEVEL,default=info"`
}

var logFatal = func(logger zerolog.Logger, err error, msg string) {
	logger.Fatal().Err(err).Msg(msg)
}

// registerDelay is the base backoff between registration attempts.
var registerDelay = 400 * time.Millisecond

// Agent serves the local view of one instance.
type Agent struct {
	instance cluster.Instance
	started  time.Time
}

func NewAgent(cfg Config) *Agent {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	roles := make([]string, 0, len(cfg.Roles))
	for _, r := range cfg.Roles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return &Agent{
		instance: cluster.Instance{
			ID:        id,
			Roles:     roles,
			PrivateIP: cfg.PrivateIP,
			PublicIP:  cfg.PublicIP,
			Addr:      strings.TrimRight(cfg.Addr, "/"),
		},
		started: time.Now(),
	}
}

// Instance returns what the agent announces to the coordinator.
func (a *Agent) Instance() cluster.Instance {
	inst := a.instance
	inst.Roles = append([]string(nil), a.instance.Roles...)
	return inst
}

func (a *Agent) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /info", a.handleInfo)
	return mux
}

func (a *Agent) handleInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Instance cluster.Instance `json:"instance"`
		Uptime   string           `json:"uptime"`
	}{
		Instance: a.Instance(),
		Uptime:   time.Since(a.started).Round(time.Second).String(),
	})
}

func main() {
	var cfg Config
	if err := envconfig.Init(&cfg); err != nil {
		logFatal(zerolog.New(os.Stderr), err, "failed to read agent config")
		return
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel, false)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logFatal(logger, err, "agent failed")
	}
}

func run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	agent := NewAgent(cfg)
	inst := agent.Instance()
	logger = logger.With().Str("instance", inst.ID).Logger()

	s := &http.Server{
		Addr:              cfg.Listen,
		Handler:           agent.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Str("public", inst.Addr).Strs("roles", inst.Roles).Msg("agent listening")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if err := register(ctx, cfg.Coordinator, inst, cfg.RegisterAttempts, logger); err != nil {
		shutdown(s, logger)
		return err
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := deregister(leaveCtx, cfg.Coordinator, inst.ID); err != nil {
		logger.Warn().Err(err).Msg("deregistration failed")
	}
	shutdown(s, logger)
	return nil
}

func shutdown(s *http.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("agent stopped")
}

// register announces inst to the coordinator, backing off between attempts.
func register(ctx context.Context, coord string, inst cluster.Instance, attempts uint, logger zerolog.Logger) error {
	body := cluster.RegisterRequest{Instance: inst}
	err := retry.Do(
		func() error {
			return cluster.PostJSON(ctx, coord+"/register", body, nil)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(registerDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n+1).Msg("register retry")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register with coordinator %s: %w", coord, err)
	}
	logger.Info().Str("coordinator", coord).Msg("registered with coordinator")
	return nil
}

// retryable rejects client errors: a 4xx means the registration itself is
// wrong and will not succeed on a later attempt.
func retryable(err error) bool {
	var status *cluster.StatusError
	if errors.As(err, &status) {
		return status.Code >= 500
	}
	return true
}

func deregister(ctx context.Context, coord, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, coord+"/instances/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &cluster.StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	return nil
}
