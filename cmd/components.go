package cmd

import (
	"github.com/spf13/cobra"

	"smokectl/internal/components"
	"smokectl/internal/config"
	"smokectl/internal/reporting"
)

func newComponentsCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "components",
		Short: "List the components smokectl can check",
		Long: `Lists every built-in component check with its probe, the label selector
used for service discovery and the fallback service used when discovery
finds nothing. Overrides from the configuration files are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return reporting.NewConsoleReporter(cmd.OutOrStdout()).Catalogue(cfg.Specs(components.All()))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Additional configuration file, applied after the user and project config")
	return cmd
}
