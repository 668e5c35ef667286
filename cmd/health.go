package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the classification service",
		Long: `Asks the classification service whether it is up and has its model
loaded. A paused service may take up to a minute to answer the first time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := a.client().Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Service:      %s\n", a.cfg.BaseURL())
			fmt.Fprintf(cmd.OutOrStdout(), "Status:       %s\n", health.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "Model loaded: %t\n", health.ModelLoaded)
			if !health.ModelLoaded {
				return fmt.Errorf("model is not loaded")
			}
			return nil
		},
	}
}
