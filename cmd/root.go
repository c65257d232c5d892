package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smokectl/pkg/logging"
)

// ErrChecksFailed is returned by the root command when at least one
// component did not pass. The summary has already been printed by then.
var ErrChecksFailed = errors.New("one or more component checks failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

func newRootCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "smokectl <namespace>",
		Short: "Smoke-test the storage components of a Kubernetes namespace",
		Long: `smokectl verifies that the storage services deployed in a namespace are
reachable and healthy. For every selected component (postgres, minio, nfs,
rqlite, cassandra) it discovers the backing Kubernetes Service, opens a
temporary port-forward to it and probes it over TCP, HTTP or HTTPS until it
answers or the per-component timeout expires.

It performs a single pass and exits 0 when all selected components pass,
1 otherwise. A PASS/FAIL summary is printed to stdout, logs go to stderr.`,
		Example: `  smokectl storagebox
  smokectl storagebox --components minio,rqlite --timeout 60
  smokectl storagebox --kubeconfig ~/.kube/staging --debug`,
		Args: cobra.ExactArgs(1),
		// SilenceUsage is set to true to prevent printing usage message on errors
		// handled by us (e.g. failed checks, unreachable cluster)
		SilenceUsage:  true,
		SilenceErrors: true,
		// Every subcommand logs through pkg/logging, so set it up once here.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelInfo
			if opts.debug {
				level = logging.LevelDebug
			}
			logging.InitForCLI(level, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd, opts, args[0])
		},
	}
	opts.addFlags(cmd)

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSelfUpdateCmd())
	cmd.AddCommand(newComponentsCmd())
	return cmd
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "smokectl version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
