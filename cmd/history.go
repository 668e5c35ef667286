package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/neuropathx/neuropathx/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var last int
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize past diagnoses",
		Long: `Reads the diagnosis journal (a parquet file under the state directory)
and prints success rates, response times and how often each label was
predicted. With --last the most recent requests are listed as well.`,
		Example: `  # Summary of every recorded diagnosis
  neuropathx history

  # The last 10 requests as JSON
  neuropathx history --last 10 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.cfg.HistoryPath()
			if err != nil {
				return err
			}
			records, err := history.Open(path).Load()
			if err != nil {
				return err
			}

			recent := records
			if last >= 0 && last < len(recent) {
				recent = recent[len(recent)-last:]
			}
			summary := history.Summarize(records)
			w := cmd.OutOrStdout()

			switch format {
			case "json", "yaml":
				out := struct {
					Summary *history.Summary `json:"summary" yaml:"summary"`
					Recent  []history.Record `json:"recent,omitempty" yaml:"recent,omitempty"`
				}{Summary: summary}
				if last != 0 {
					out.Recent = recent
				}
				if format == "yaml" {
					enc := yaml.NewEncoder(w)
					defer enc.Close()
					return enc.Encode(out)
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			case "text":
			default:
				return fmt.Errorf("unknown format %q (expected text, json or yaml)", format)
			}

			summary.Print(w)
			if last == 0 {
				return nil
			}
			fmt.Fprintln(w)
			for _, r := range recent {
				outcome := fmt.Sprintf("%s %.2f%%", r.Label, r.Confidence*100)
				if !r.Succeeded() {
					outcome = "failed: " + r.Error
				}
				fmt.Fprintf(w, "%s  %-24s %8s  %s\n", r.Time().Format("2006-01-02 15:04:05"), r.FileName, r.Duration(), outcome)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 0, "Also list the N most recent requests (-1 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")

	return cmd
}
