package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neuropathx/neuropathx/internal/config"
)

const defaultConfigPath = "neuropathx.yaml"

func NewRootCmd() *cobra.Command {
	a := &app{}
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:   "neuropathx",
		Short: "MRI brain tumor classification client",
		Long: `NeuroPathX loads an MRI scan, lets you adjust how it is viewed, and sends it
to a remote classification service for a tumor-type prediction.

Use the one-shot commands from a terminal, or run "neuropathx serve" to drive
a browser front-end through a local JSON API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if configPath == "" {
				configPath = os.Getenv(config.EnvConfig)
			}
			if configPath == "" {
				configPath = defaultConfigPath
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			level, err := config.ParseLevel(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}

			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))

			a.cfg = cfg
			slog.Debug("Configuration loaded", "path", configPath, "api", cfg.BaseURL())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $NEUROPATHX_CONFIG or ./neuropathx.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newDiagnoseCmd(a))
	cmd.AddCommand(newViewCmd(a))
	cmd.AddCommand(newSamplesCmd(a))
	cmd.AddCommand(newReportCmd(a))
	cmd.AddCommand(newHealthCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newSessionCmd(a))

	return cmd
}
