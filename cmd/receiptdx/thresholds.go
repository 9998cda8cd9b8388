package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) thresholdsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the effective threshold profile",
		Long: `Print the thresholds the engine would run with after defaults, the config
file, environment overrides and --profile have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile := a.cfg.Profile
			if profile == "" {
				profile = "default"
			}
			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"profile":    profile,
					"thresholds": a.cfg.Thresholds,
				})
			case "yaml":
				out, err := yaml.Marshal(a.cfg.Thresholds)
				if err != nil {
					return fmt.Errorf("failed to encode thresholds: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "# profile: %s\n%s", profile, out)
				return err
			default:
				return fmt.Errorf("invalid format: %s (want json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "output format (json, yaml)")
	return cmd
}
