package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/present"
	"github.com/neuropathx/neuropathx/internal/session"
)

const defaultSessionKey = "cli"

func newDiagnoseCmd(a *app) *cobra.Command {
	var samplePath string
	var format string
	var chartPath string
	var sessionKey string

	cmd := &cobra.Command{
		Use:   "diagnose [image]",
		Short: "Classify an MRI scan",
		Long: `Loads an MRI scan (JPEG or PNG, up to 200 MiB), sends it to the
classification service and prints the predicted tumor type with its
clinical notes and class scores.

With no image and no --sample, the manifest's default sample is used.`,
		Example: `  # Classify a local scan
  neuropathx diagnose scan.jpg

  # Classify a bundled sample and save the score chart
  neuropathx diagnose --sample meningioma/Te-me_0011.jpg --chart scores.png

  # Machine-readable output
  neuropathx diagnose scan.png --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q (expected text, json or yaml)", format)
			}

			raw, err := loadCandidate(cmd, a, args, samplePath)
			if err != nil {
				return err
			}

			factory, err := a.sessionFactory()
			if err != nil {
				return err
			}
			sess, err := factory(sessionKey)
			if err != nil {
				return err
			}
			if err := sess.Ingest(raw); err != nil {
				return fmt.Errorf("failed to load %s: %w", raw.Name, err)
			}

			stderr := cmd.ErrOrStderr()
			sess.On(session.EventDiagnosisStarted, func(any) {
				fmt.Fprintln(stderr, diagnosis.StatusAnalyzing)
			})
			sess.On(session.EventSlowStart, func(data any) {
				fmt.Fprintln(stderr, data)
			})

			model, err := sess.Submit(cmd.Context())
			if err != nil {
				return fmt.Errorf("diagnosis failed: %w", err)
			}

			if chartPath != "" {
				if err := writeChart(chartPath, model); err != nil {
					return err
				}
				slog.Info("Wrote class-score chart", "path", chartPath)
			}
			return writeModel(cmd.OutOrStdout(), format, model)
		},
	}

	cmd.Flags().StringVar(&samplePath, "sample", "", "Sample manifest path to classify instead of a local file")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the class-score bar chart to this PNG file")
	cmd.Flags().StringVar(&sessionKey, "session", defaultSessionKey, "Session key for persisted state and reports")

	return cmd
}

// loadCandidate reads the image argument, or fetches the chosen or default sample.
func loadCandidate(cmd *cobra.Command, a *app, args []string, samplePath string) (ingest.RawFile, error) {
	if len(args) == 1 {
		if samplePath != "" {
			return ingest.RawFile{}, fmt.Errorf("pass either an image or --sample, not both")
		}
		return ingest.ReadFile(args[0])
	}

	manifest, err := a.manifest()
	if err != nil {
		return ingest.RawFile{}, err
	}
	if samplePath == "" {
		samplePath = manifest.Default
		slog.Info("No image given, using the default sample", "sample", samplePath)
	}
	if _, err := manifest.File(samplePath); err != nil {
		return ingest.RawFile{}, err
	}
	return a.fetcher().Fetch(cmd.Context(), samplePath)
}

func writeModel(w io.Writer, format string, model *present.DisplayModel) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(model)
	}
	_, err := fmt.Fprint(w, model.Terminal())
	return err
}

func writeChart(path string, model *present.DisplayModel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := model.WriteChart(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
