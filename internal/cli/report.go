package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/gate"
	"github.com/scangate/scangate/internal/history"
	"github.com/scangate/scangate/internal/remediation"
	"github.com/scangate/scangate/internal/render"
	"github.com/scangate/scangate/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an HTML or CSV report from a recorded run",
	Long: `Render a gate run as a self-contained HTML report or a CSV export.

The run comes from the most recent entry in a history database, or
from a run JSON piped on stdin. All CSS is inlined, so the HTML is
suitable for email distribution and archival.`,
	Example: `  # Report on the latest recorded run
  scangate report --history-db gate.db --output-file report.html

  # Pipe a run straight from eval
  scangate eval --policy rules.tsv --format json zap.json | scangate report > report.html

  # CSV for spreadsheet triage
  scangate report --history-db gate.db --format csv --output-file findings.csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("history-db", "", "SQLite database to read the latest run from (default: stdin)")
	reportCmd.Flags().String("format", "html", "Report format: html or csv")
	reportCmd.Flags().StringP("output-file", "o", "", "Write report to file (default: stdout)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag registered above
	if format != "html" && format != "csv" {
		return fmt.Errorf("invalid --format value %q: must be html or csv", format)
	}

	historyDB, _ := cmd.Flags().GetString("history-db") //nolint:errcheck // flag registered above

	var run *gate.Run
	if historyDB != "" {
		hs, err := history.Open(historyDB)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer hs.Close() //nolint:errcheck // read-only handle
		run, err = hs.Latest()
		if err != nil {
			return fmt.Errorf("reading latest run: %w", err)
		}
		if run == nil {
			return fmt.Errorf("history database %s has no runs", historyDB)
		}
	} else {
		var err error
		run, err = readRunFromStdin(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	// Stored runs carry no remediation hints; fill them at render time.
	remediation.Apply(run.Verdict.Failures)
	remediation.Apply(run.Verdict.Warnings)

	outputFile, _ := cmd.Flags().GetString("output-file") //nolint:errcheck // flag registered above

	if format == "csv" {
		if outputFile != "" {
			if err := writeArtifact(outputFile, *run, report.WriteCSV); err != nil {
				return fmt.Errorf("writing CSV export: %w", err)
			}
			slog.Info("csv written", "path", outputFile)
			return nil
		}
		return report.WriteCSV(cmd.OutOrStdout(), *run)
	}

	html, err := report.GenerateHTML(*run)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	if outputFile != "" {
		if writeErr := os.WriteFile(outputFile, html, 0o644); writeErr != nil { //nolint:gosec // report is not sensitive
			return fmt.Errorf("writing report: %w", writeErr)
		}
		slog.Info("report written", "path", outputFile)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(html)
	return err
}

// readRunFromStdin reads a gate.Run from stdin. Accepts both raw Run JSON
// and the eval envelope ({"run": ...}).
func readRunFromStdin(r io.Reader) (*gate.Run, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no input on stdin, pipe a run via: scangate eval --format json ... | scangate report")
	}

	// Try the eval envelope first
	var envelope render.EvalOutput
	if err := json.Unmarshal(data, &envelope); err == nil && !envelope.Run.At.IsZero() {
		return &envelope.Run, nil
	}

	// Fall back to a raw Run
	var run gate.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing run JSON: %w", err)
	}
	return &run, nil
}
