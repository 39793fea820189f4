package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dreamware/inboxdeploy/internal/cluster"
)

func instancesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "List the cluster instances",
		Long:  "List the instances registered with the coordinator, or those declared in --topology.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var (
				snap cluster.Snapshot
				err  error
			)
			switch {
			case opts.coordinator != "":
				snap, err = newClient(opts.coordinator).instances(ctx)
			case opts.topologyFile != "":
				snap, err = cluster.LoadSnapshotFile(opts.topologyFile)
			default:
				err = errors.New("instances needs --coordinator or --topology")
			}
			if err != nil {
				return err
			}
			return writeSnapshot(opts.stdout, opts.output, snap)
		},
	}
}
