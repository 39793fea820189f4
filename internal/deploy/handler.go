package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dreamware/inboxdeploy/internal/cluster"
)

// ErrInterrupted is returned when a lifecycle event is cancelled before its
// plan is complete.
var ErrInterrupted = errors.New("lifecycle event interrupted")

// Handler answers the runtime's lifecycle events for the ElasticInbox role.
// It keeps no state between events and is safe for concurrent use.
type Handler struct {
	settings   Settings
	normalizer URLNormalizer
	log        zerolog.Logger
}

// NewHandler creates a handler. A nil normalizer passes package URLs through
// untouched.
func NewHandler(settings Settings, normalizer URLNormalizer, logger zerolog.Logger) *Handler {
	if normalizer == nil {
		normalizer = identity
	}
	return &Handler{
		settings:   settings,
		normalizer: normalizer,
		log:        logger.With().Str("role", settings.Role).Logger(),
	}
}

// Role returns the role this handler manages.
func (h *Handler) Role() string {
	return h.settings.Role
}

// Settings returns a copy of the handler's constants.
func (h *Handler) Settings() Settings {
	return h.settings
}

// BeforeBootstrap plans the installation phase.
func (h *Handler) BeforeBootstrap(ctx context.Context, props Properties) (Plan, error) {
	statements, err := h.PlanBootstrap(ctx, props)
	if err != nil {
		h.log.Error().Err(err).Msg("bootstrap planning failed")
		return Plan{}, err
	}

	h.log.Info().Int("statements", len(statements)).Msg("bootstrap planned")
	return Plan{Role: h.settings.Role, Phase: PhaseBootstrap, Statements: statements}, nil
}

// BeforeConfigure plans the configuration phase against snap: a firewall
// rule for the managed instances, the service configuration and schema
// files, then the configure and start calls. Either the whole plan is
// returned or an error.
func (h *Handler) BeforeConfigure(ctx context.Context, snap cluster.Snapshot, props Properties) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	hosts := ResolveAddresses(snap, h.settings.DependencyRole)
	managed := snap.InstancesMatching(h.settings.Role)

	rule := BuildFirewallRule(managed, h.settings.LMTPPort, h.settings.RESTPort)
	config := h.settings.BuildServiceConfig(hosts, props)
	schema, err := h.settings.BuildSchema(props)
	if err != nil {
		h.log.Error().Err(err).Msg("schema generation failed")
		return Plan{}, err
	}

	h.log.Info().
		Strs("cassandra_hosts", hosts).
		Int("managed_instances", len(managed)).
		Msg("configure planned")

	return Plan{
		Role:          h.settings.Role,
		Phase:         PhaseConfigure,
		FirewallRules: []FirewallRule{rule},
		Statements: []Statement{
			config.Statement(),
			schema.Statement(),
			Call(FnConfigureInbox),
			Call(FnStartInbox),
		},
	}, nil
}
