package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/deploy"
	"github.com/dreamware/inboxdeploy/internal/stage"
	"github.com/dreamware/inboxdeploy/internal/storage"
)

func bootstrapCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Render the install plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var (
				plan deploy.Plan
				err  error
			)
			if opts.coordinator != "" {
				plan, err = remotePlan(ctx, opts, deploy.PhaseBootstrap)
			} else {
				plan, err = localBootstrap(ctx, opts)
			}
			if err != nil {
				return err
			}
			return writePlan(opts.stdout, opts.output, plan)
		},
	}
}

func configureCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Render the configuration plan",
		Long:  "Render the configuration plan. Offline the cluster comes from --topology; through a coordinator the call waits until the registered instances match the instance templates.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var (
				plan deploy.Plan
				err  error
			)
			if opts.coordinator != "" {
				plan, err = remotePlan(ctx, opts, deploy.PhaseConfigure)
			} else {
				plan, err = localConfigure(ctx, opts)
			}
			if err != nil {
				return err
			}
			return writePlan(opts.stdout, opts.output, plan)
		},
	}
}

// localHandler builds a handler whose package locations are checked but not
// staged: local files come back as file:// URLs.
func localHandler(opts *options) *deploy.Handler {
	logger := opts.logger()
	stager := stage.New(storage.NewMemoryStore(), "", stage.WithLogger(logger))
	return deploy.NewHandler(deploy.DefaultSettings(), stager, logger)
}

func localBootstrap(ctx context.Context, opts *options) (deploy.Plan, error) {
	props, err := opts.properties()
	if err != nil {
		return deploy.Plan{}, err
	}
	return localHandler(opts).BeforeBootstrap(ctx, props)
}

func localConfigure(ctx context.Context, opts *options) (deploy.Plan, error) {
	if opts.topologyFile == "" {
		return deploy.Plan{}, errors.New("configure needs --topology or --coordinator")
	}
	props, err := opts.properties()
	if err != nil {
		return deploy.Plan{}, err
	}
	snap, err := cluster.LoadSnapshotFile(opts.topologyFile)
	if err != nil {
		return deploy.Plan{}, err
	}
	if snap.Name == "" {
		snap.Name = props.Get(deploy.KeyClusterName)
	}

	templates, err := cluster.ParseTemplates(props.Get(deploy.KeyInstanceTemplates))
	if err != nil {
		return deploy.Plan{}, err
	}
	if !cluster.Satisfied(snap, templates) {
		logger := opts.logger()
		logger.Warn().
			Str("templates", props.Get(deploy.KeyInstanceTemplates)).
			Int("instances", len(snap.Instances)).
			Msg("topology does not satisfy the instance templates")
	}

	return localHandler(opts).BeforeConfigure(ctx, snap, props)
}

func remotePlan(ctx context.Context, opts *options, phase deploy.Phase) (deploy.Plan, error) {
	props, err := opts.eventProperties()
	if err != nil {
		return deploy.Plan{}, err
	}
	return newClient(opts.coordinator).event(ctx, phase, props)
}
