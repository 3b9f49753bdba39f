package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/baseline"
	"github.com/scangate/scangate/internal/ci"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
	"github.com/scangate/scangate/internal/ingest"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage accepted-finding baselines",
	Long: `Save or check a findings baseline.

A baseline records the current finding set as accepted. Later runs
compare against it so a pre-existing backlog does not block deploys:
eval --baseline gates only on findings absent from the baseline.`,
}

var baselineSaveCmd = &cobra.Command{
	Use:   "save [report.json ...]",
	Short: "Record the current finding set as a baseline file",
	Long: `Parse scanner reports and write their findings as a baseline file.
With no report arguments, a run JSON is read from stdin and its
blocking and warned findings are recorded.

Usage:
  scangate baseline save -o baseline.json zap.json trivy.json
  scangate eval --policy rules.tsv --format json zap.json | scangate baseline save -o baseline.json`,
	RunE: runBaselineSave,
}

var baselineCheckCmd = &cobra.Command{
	Use:   "check <baseline.json> [report.json ...]",
	Short: "Compare current findings against a baseline",
	Long: `Classify current findings against a baseline as new, known, or
resolved. With no report arguments, a run JSON is read from stdin.

Exits 0 when no new findings are present, 1 otherwise.

Usage:
  scangate baseline check baseline.json zap.json
  scangate eval --format json ... | scangate baseline check baseline.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBaselineCheck,
}

func init() {
	rootCmd.AddCommand(baselineCmd)
	baselineCmd.AddCommand(baselineSaveCmd)
	baselineCmd.AddCommand(baselineCheckCmd)
	baselineSaveCmd.Flags().StringP("output", "o", "baseline.json", "Output file path")
}

func runBaselineSave(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("output") //nolint:errcheck // flag registered above

	bl := baseline.New(nil)
	if len(args) > 0 {
		findings, err := ingest.Files(args)
		if err != nil {
			return fmt.Errorf("ingesting reports: %w", err)
		}
		bl.Findings = findings
		bl.Pipeline = ci.Describe().Pipeline
	} else {
		run, err := readRunFromStdin(cmd.InOrStdin())
		if err != nil {
			return err
		}
		bl.Findings = verdictFindings(run)
		bl.Pipeline = run.Pipeline
	}

	if err := bl.Save(outPath); err != nil {
		return err
	}
	cmd.Printf("baseline saved to %s (%d findings)\n", outPath, len(bl.Findings))
	return nil
}

func runBaselineCheck(cmd *cobra.Command, args []string) error {
	bl, err := baseline.Load(args[0])
	if err != nil {
		return err
	}

	var findings []finding.Finding
	if len(args) > 1 {
		findings, err = ingest.Files(args[1:])
		if err != nil {
			return fmt.Errorf("ingesting reports: %w", err)
		}
	} else {
		run, readErr := readRunFromStdin(cmd.InOrStdin())
		if readErr != nil {
			return readErr
		}
		findings = verdictFindings(run)
	}

	diff := bl.Classify(findings)

	if len(diff.New) == 0 {
		cmd.Printf("no new findings (%d known, %d resolved)\n", len(diff.Known), len(diff.Resolved))
		return nil
	}

	cmd.Printf("%d new finding(s):\n", len(diff.New))
	for i := range diff.New {
		f := &diff.New[i]
		cmd.Printf("  [%s] %s (%s) at %s: %s\n", f.Severity, f.RuleID, f.Category, f.Location, f.Description)
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	os.Exit(1) //nolint:gocritic // exitAfterDefer: intentional exit on new findings
	return nil
}

// verdictFindings flattens a run's blocking and warned findings. Ignored
// findings are not in the verdict; baselines built from a run cover what the
// gate surfaced.
func verdictFindings(run *gate.Run) []finding.Finding {
	out := make([]finding.Finding, 0, len(run.Verdict.Failures)+len(run.Verdict.Warnings))
	out = append(out, run.Verdict.Failures...)
	out = append(out, run.Verdict.Warnings...)
	return out
}
