package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/coordinator"
	"github.com/dreamware/inboxdeploy/internal/deploy"
	"github.com/dreamware/inboxdeploy/internal/stage"
	"github.com/dreamware/inboxdeploy/internal/storage"
)

type server struct {
	registry         *coordinator.Registry
	metrics          *coordinator.Metrics
	handler          *deploy.Handler
	stager           *stage.Stager
	props            deploy.Properties
	templates        []cluster.InstanceTemplate
	configureTimeout time.Duration
	log              zerolog.Logger
}

// eventRequest is the optional body of an event call. Properties are
// layered over the coordinator's own for that event only.
type eventRequest struct {
	Properties map[string]string `json:"properties,omitempty"`
}

type instancesResponse struct {
	Cluster   string             `json:"cluster"`
	Instances []cluster.Instance `json:"instances"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newServer(props deploy.Properties, store storage.Store, publicURL string, configureTimeout time.Duration, logger zerolog.Logger) (*server, error) {
	templates, err := cluster.ParseTemplates(props.Get(deploy.KeyInstanceTemplates))
	if err != nil {
		return nil, err
	}
	handler, stager := newHandler(store, publicURL, logger)
	s := &server{
		registry:         coordinator.NewRegistry(props.Get(deploy.KeyClusterName)),
		metrics:          coordinator.NewMetrics(),
		handler:          handler,
		stager:           stager,
		props:            props,
		templates:        templates,
		configureTimeout: configureTimeout,
		log:              logger,
	}
	s.metrics.SetInstances(s.registry)
	return s, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /instances", s.handleListInstances)
	mux.HandleFunc("DELETE /instances/{id}", s.handleDeregister)
	mux.HandleFunc("POST /events/bootstrap", s.handleBootstrap)
	mux.HandleFunc("POST /events/configure", s.handleConfigure)
	mux.HandleFunc("GET "+stage.BlobPrefix+"{hash}/{name}", s.handleBlob)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *server) setStatus(id, status string) {
	if s.registry.SetStatus(id, status) {
		s.metrics.SetInstances(s.registry)
	}
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Instance.ID == "" || req.Instance.PrivateIP == "" {
		http.Error(w, "missing id/private_ip", http.StatusBadRequest)
		return
	}
	// Health is owned by the monitor, not the agent.
	req.Instance.Status = ""

	created := s.registry.Register(req.Instance)
	s.metrics.SetInstances(s.registry)
	s.log.Info().
		Str("instance", req.Instance.ID).
		Strs("roles", req.Instance.Roles).
		Str("private_ip", req.Instance.PrivateIP).
		Bool("new", created).
		Msg("instance registered")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDeregister(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.registry.Deregister(id) {
		http.Error(w, "unknown instance", http.StatusNotFound)
		return
	}
	s.metrics.SetInstances(s.registry)
	s.log.Info().Str("instance", id).Msg("instance deregistered")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	snap := s.registry.Snapshot()
	writeJSON(w, http.StatusOK, instancesResponse{Cluster: snap.Name, Instances: snap.Instances})
}

func (s *server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	props, err := s.eventProperties(r)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := s.handler.BeforeBootstrap(r.Context(), props)
	s.metrics.ObserveEvent(deploy.PhaseBootstrap, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	props, err := s.eventProperties(r)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := s.configure(r.Context(), props)
	s.metrics.ObserveEvent(deploy.PhaseConfigure, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// configure waits until the registered instances match the templates, or
// the configure timeout passes, then plans against that snapshot.
func (s *server) configure(ctx context.Context, props deploy.Properties) (deploy.Plan, error) {
	templates := s.templates
	if raw, ok := props.Lookup(deploy.KeyInstanceTemplates); ok && raw != s.props.Get(deploy.KeyInstanceTemplates) {
		var err error
		if templates, err = cluster.ParseTemplates(raw); err != nil {
			return deploy.Plan{}, err
		}
	}

	if s.configureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.configureTimeout)
		defer cancel()
	}

	snap, err := s.registry.WaitFor(ctx, templates)
	if err != nil {
		s.log.Warn().Err(err).Int("registered", s.registry.Len()).Msg("configure gave up waiting for instances")
		return deploy.Plan{}, err
	}
	return s.handler.BeforeConfigure(ctx, snap, props)
}

// eventProperties merges the request's properties over the coordinator's.
// An empty body is allowed.
func (s *server) eventProperties(r *http.Request) (deploy.Properties, error) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: bad json: %w", errBadRequest, err)
	}
	props := make(deploy.Properties, len(s.props)+len(req.Properties))
	for k, v := range s.props {
		props[k] = v
	}
	for k, v := range req.Properties {
		props[k] = v
	}
	return props, nil
}

func (s *server) handleBlob(w http.ResponseWriter, r *http.Request) {
	data, err := s.stager.Blob(r.PathValue("hash"))
	if errors.Is(err, storage.ErrKeyNotFound) {
		http.Error(w, "blob not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("hash", r.PathValue("hash")).Msg("blob read failed")
		http.Error(w, "blob read failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", r.PathValue("name")))
	_, _ = w.Write(data)
}

var errBadRequest = errors.New("bad request")

// statusFor maps event errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, stage.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, deploy.ErrInterrupted):
		return http.StatusGatewayTimeout
	case errors.Is(err, errBadRequest),
		errors.Is(err, deploy.ErrInvalidProperty),
		errors.Is(err, cluster.ErrInvalidTemplate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
