package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
)

func newReportCmd(a *app) *cobra.Command {
	var sessionKey string
	var output string
	var preview bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Download the PDF report for a session",
		Long: `Fetches the PDF report the classification service generated for a
session's last diagnosis. Reports are saved as MRI_Report.pdf unless
--output says otherwise. With --url only the report address is printed.`,
		Example: `  # Save the report for the last CLI diagnosis
  neuropathx report

  # Print the preview URL for a browser session
  neuropathx report --session 3f2c... --preview --url`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := diagnosis.ReportDownload
			if preview {
				kind = diagnosis.ReportPreview
			}
			client := a.client()

			urlOnly, _ := cmd.Flags().GetBool("url")
			if urlOnly {
				url, err := client.ReportURL(kind, sessionKey)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
				return err
			}

			report, err := client.FetchReport(cmd.Context(), kind, sessionKey)
			if err != nil {
				return fmt.Errorf("failed to fetch report: %w", err)
			}
			defer report.Body.Close()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			defer f.Close()

			n, err := io.Copy(f, report.Body)
			if err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}

			slog.Info("Saved report", "path", output, "bytes", n, "session", sessionKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionKey, "session", defaultSessionKey, "Session the report belongs to")
	cmd.Flags().StringVarP(&output, "output", "o", diagnosis.ReportFileName, "Where to save the report")
	cmd.Flags().BoolVar(&preview, "preview", false, "Use the preview endpoint instead of download")
	cmd.Flags().Bool("url", false, "Print the report URL instead of downloading it")

	return cmd
}
