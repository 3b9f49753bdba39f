package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded gate runs",
	Long: `Read gate runs recorded by eval --history-db.

The same database backs the serve-mode dashboard and API.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent gate runs, newest first",
	Example: `  scangate history list --history-db gate.db
  scangate history list --history-db gate.db --limit 5`,
	RunE: runHistoryList,
}

var historyTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show occurrences of one rule across recorded runs",
	Long: `Track a single rule id across runs to see whether a finding is
recurring, escalating, or resolved.`,
	Example: `  scangate history trend --history-db gate.db --rule 40012
  scangate history trend --history-db gate.db --rule CVE-2021-23337 --limit 50`,
	RunE: runHistoryTrend,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyTrendCmd)
	historyCmd.PersistentFlags().String("history-db", "", "SQLite database recorded by eval")
	historyListCmd.Flags().Int("limit", 20, "Maximum runs to list")
	historyTrendCmd.Flags().String("rule", "", "Rule id to trace")
	historyTrendCmd.Flags().Int("limit", 20, "Maximum occurrences to list")
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	dbPath, _ := cmd.Flags().GetString("history-db") //nolint:errcheck // flag registered above
	if dbPath == "" {
		return nil, fmt.Errorf("--history-db is required")
	}
	hs, err := history.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return hs, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	hs, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer hs.Close() //nolint:errcheck // read-only handle

	limit, _ := cmd.Flags().GetInt("limit") //nolint:errcheck // flag registered above
	runs, err := hs.List(limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	return listRuns(cmd.OutOrStdout(), runs)
}

func listRuns(w io.Writer, runs []history.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.") //nolint:errcheck // best-effort output
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPIPELINE\tBUILD\tOUTCOME\tFAIL\tWARN\tIGNORED\tDURATION") //nolint:errcheck // best-effort output
	for i := range runs {
		r := &runs[i]
		outcome := "passed"
		if !r.Passed {
			outcome = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n", //nolint:errcheck // best-effort output
			r.At.UTC().Format("2006-01-02 15:04"), r.Pipeline, r.Build, outcome,
			r.FailCount, r.WarnCount, r.IgnoredCount,
			time.Duration(r.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}

func runHistoryTrend(cmd *cobra.Command, _ []string) error {
	rule, _ := cmd.Flags().GetString("rule") //nolint:errcheck // flag registered above
	if rule == "" {
		return fmt.Errorf("--rule is required")
	}

	hs, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer hs.Close() //nolint:errcheck // read-only handle

	limit, _ := cmd.Flags().GetInt("limit") //nolint:errcheck // flag registered above
	points, err := hs.Trend(rule, limit)
	if err != nil {
		return fmt.Errorf("querying trend: %w", err)
	}
	return listTrend(cmd.OutOrStdout(), rule, points)
}

func listTrend(w io.Writer, rule string, points []history.TrendPoint) error {
	if len(points) == 0 {
		fmt.Fprintf(w, "No occurrences of %s recorded.\n", rule) //nolint:errcheck // best-effort output
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSEVERITY\tACTION\tPIPELINE") //nolint:errcheck // best-effort output
	for i := range points {
		p := &points[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", //nolint:errcheck // best-effort output
			p.At.UTC().Format("2006-01-02 15:04"), p.Severity, p.Action, p.Pipeline)
	}
	return tw.Flush()
}
