// Command inboxctl renders the ElasticInbox lifecycle plans, either offline
// from a properties file and a topology file or by asking a running
// coordinator.
//
//	inboxctl bootstrap --properties cluster.properties --output script
//	inboxctl configure --properties cluster.properties --topology cluster.yaml
//	inboxctl configure --coordinator http://coord:8080 --set elasticinbox.cassandra.replication_factor=3
//	inboxctl instances --coordinator http://coord:8080 --output yaml
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dreamware/inboxdeploy/internal/config"
	"github.com/dreamware/inboxdeploy/internal/deploy"
)

// options are the flags shared by all subcommands.
type options struct {
	propertiesFile string
	overrides      []string
	topologyFile   string
	coordinator    string
	output         string
	logLevel       string
	timeout        time.Duration

	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "inboxctl",
		Short:         "inboxctl - ElasticInbox deployment plans",
		Long:          `inboxctl renders the bootstrap and configure plans of the ElasticInbox role, offline or through a coordinator`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validOutput(opts.output)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.propertiesFile, "properties", "", "Deployment .properties file")
	flags.StringArrayVar(&opts.overrides, "set", nil, "Property override key=value (repeatable)")
	flags.StringVar(&opts.topologyFile, "topology", "", "Cluster topology YAML file")
	flags.StringVar(&opts.coordinator, "coordinator", "", "Coordinator URL; plans are requested from it when set")
	flags.StringVarP(&opts.output, "output", "o", outputText, "Output format: text|json|yaml|script")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: error|warn|info|debug")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Minute, "How long to wait for the coordinator")

	rootCmd.AddCommand(bootstrapCmd(opts))
	rootCmd.AddCommand(configureCmd(opts))
	rootCmd.AddCommand(instancesCmd(opts))

	return rootCmd
}

func (o *options) logger() zerolog.Logger {
	return config.NewLogger(o.stderr, o.logLevel, true)
}

// properties loads the property bag: the file, INBOX_* variables, then --set.
func (o *options) properties() (deploy.Properties, error) {
	overrides, err := config.ParseOverrides(o.overrides)
	if err != nil {
		return nil, err
	}
	return config.LoadProperties(o.propertiesFile, overrides)
}

// eventProperties are the properties sent along with a coordinator event.
// Without a local file only the --set overrides are sent, so the
// coordinator's own configuration stays in charge.
func (o *options) eventProperties() (map[string]string, error) {
	if o.propertiesFile == "" {
		return config.ParseOverrides(o.overrides)
	}
	return o.properties()
}
