package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/baseline"
	"github.com/scangate/scangate/internal/ci"
	"github.com/scangate/scangate/internal/config"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
	"github.com/scangate/scangate/internal/history"
	"github.com/scangate/scangate/internal/ingest"
	"github.com/scangate/scangate/internal/notify"
	"github.com/scangate/scangate/internal/policy"
	"github.com/scangate/scangate/internal/remediation"
	"github.com/scangate/scangate/internal/render"
	"github.com/scangate/scangate/internal/report"
	"github.com/scangate/scangate/internal/telemetry"
)

var evalCmd = &cobra.Command{
	Use:   "eval <report.json> [report.json ...]",
	Short: "Gate a pipeline on scanner reports",
	Long: `Parse scanner reports, evaluate every finding against the policy,
and exit with a code the pipeline acts on.

Reports are detected by shape: Trivy JSON, ZAP traditional JSON,
SonarQube issue exports, and SARIF 2.1.0 all work without per-file
flags. The policy is a flat rules file (rule_id<TAB>ACTION) or a YAML
document; the first rule matching a finding's rule id wins, and
findings matching no rule take the policy default (IGNORE unless the
policy says otherwise).

Exit codes:
  0  Gate passed
  1  Gate failed (or warnings present with --strict)
  2  Malformed policy or finding, or unreadable input`,
	Example: `  # Gate on a ZAP scan with the checked-in rules file
  scangate eval --policy rules.tsv zap-report.json

  # Several scanners in one gate
  scangate eval --policy policy.yaml trivy.json zap.json sonar.json

  # Treat warnings as failures on release branches
  scangate eval --policy rules.tsv --strict zap.json

  # Gate only on findings absent from the accepted baseline
  scangate eval --policy rules.tsv --baseline baseline.json zap.json

  # Persist the run and write artifacts for the build page
  scangate eval --policy rules.tsv --history-db gate.db \
    --html report.html --sarif findings.sarif zap.json

  # JSON verdict for pipeline parsing
  scangate eval --policy rules.tsv --format json zap.json

  # Jenkins example
  # sh 'scangate eval --policy zap_rules.tsv --strict reports/zap.json'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().String("config", "", "Path to config file")
	evalCmd.Flags().String("policy", "", "Path to policy file (flat rules or YAML)")
	evalCmd.Flags().Bool("strict", false, "Exit 1 when warnings are present")
	evalCmd.Flags().StringP("format", "f", "", "Verdict output: table, json, none (default: table)")
	evalCmd.Flags().String("input-format", "", "Force report parser: trivy, zap, sonarqube, sarif (default: detect)")
	evalCmd.Flags().String("category", "", "Force category on all findings: SAST, DEPENDENCY, IMAGE, DAST")
	evalCmd.Flags().String("baseline", "", "Baseline file; only findings absent from it gate the run")
	evalCmd.Flags().String("history-db", "", "SQLite database to record the run in")
	evalCmd.Flags().String("html", "", "Write an HTML report to this path")
	evalCmd.Flags().String("csv", "", "Write a CSV export to this path")
	evalCmd.Flags().String("sarif", "", "Write a SARIF export to this path")
	evalCmd.Flags().String("pipeline", "", "Pipeline name (default: from CI environment)")
	evalCmd.Flags().String("build", "", "Build number (default: from CI environment)")
	evalCmd.Flags().String("commit", "", "Commit SHA (default: from CI environment)")
	evalCmd.Flags().BoolP("quiet", "q", false, "Suppress verdict output, exit code only")
}

func runEval(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg := config.Defaults()
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	// Flag overrides
	policyPath, _ := cmd.Flags().GetString("policy") //nolint:errcheck // flag registered above
	if policyPath != "" {
		cfg.Policy = policyPath
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict, _ = cmd.Flags().GetBool("strict") //nolint:errcheck // flag registered above
	}
	formatFlag, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag registered above
	if formatFlag != "" {
		cfg.Format = formatFlag
	}
	historyDB, _ := cmd.Flags().GetString("history-db") //nolint:errcheck // flag registered above
	if historyDB != "" {
		cfg.HistoryDB = historyDB
	}
	baselinePath, _ := cmd.Flags().GetString("baseline") //nolint:errcheck // flag registered above
	if baselinePath != "" {
		cfg.Baseline = baselinePath
	}

	switch cfg.Format {
	case "table", "json", "none":
	default:
		return fmt.Errorf("invalid --format value %q: must be table, json, or none", cfg.Format)
	}

	inputFormat, _ := cmd.Flags().GetString("input-format") //nolint:errcheck // flag registered above
	switch inputFormat {
	case "", "trivy", "zap", "sonarqube", "sarif":
	default:
		return fmt.Errorf("invalid --input-format value %q: must be trivy, zap, sonarqube, or sarif", inputFormat)
	}

	// Initialize tracing
	ctx := cmd.Context()
	otelEndpoint, _ := cmd.Flags().GetString("otel-endpoint") //nolint:errcheck // flag registered above
	tracer, tracerShutdown, tracerErr := telemetry.InitTracer(ctx, otelEndpoint, "scangate", version)
	if tracerErr != nil {
		slog.Warn("initializing tracer", "err", tracerErr)
		tracer, tracerShutdown, _ = telemetry.InitTracer(ctx, "", "scangate", version) //nolint:errcheck // empty endpoint cannot fail
	}
	defer tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush

	ctx, runSpan := tracer.Start(ctx, "eval")
	defer runSpan.End()

	// Load policy before parsing reports so a broken policy fails fast.
	pol, err := policy.Load(cfg.Policy)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}
	slog.Info("policy loaded", "path", cfg.Policy, "rules", len(pol.Rules), "default", pol.DefaultAction())

	// Parse reports
	var ingestOpts []ingest.Option
	if inputFormat != "" {
		ingestOpts = append(ingestOpts, ingest.WithFormat(ingest.Format(inputFormat)))
	}
	categoryStr, _ := cmd.Flags().GetString("category") //nolint:errcheck // flag registered above
	if categoryStr != "" {
		cat, catErr := finding.ParseCategory(categoryStr)
		if catErr != nil {
			return catErr
		}
		ingestOpts = append(ingestOpts, ingest.WithCategory(cat))
	}

	_, parseSpan := tracer.Start(ctx, "parse_reports")
	findings, err := ingest.Files(args, ingestOpts...)
	parseSpan.End()
	if err != nil {
		return fmt.Errorf("ingesting reports: %w", err)
	}
	slog.Info("reports parsed", "files", len(args), "findings", len(findings))

	// Baseline filter: only findings the team has not already accepted gate
	// the run.
	if cfg.Baseline != "" {
		bl, blErr := baseline.Load(cfg.Baseline)
		if blErr != nil {
			return blErr
		}
		diff := bl.Classify(findings)
		slog.Info("baseline applied", "path", cfg.Baseline,
			"new", len(diff.New), "known", len(diff.Known), "resolved", len(diff.Resolved))
		findings = diff.New
	}

	// Evaluate
	_, evalSpan := tracer.Start(ctx, "evaluate")
	verdict, err := gate.Evaluate(findings, pol)
	if err != nil {
		evalSpan.RecordError(err)
		evalSpan.End()
		return err
	}
	telemetry.RecordVerdict(evalSpan, verdict)
	evalSpan.End()

	// Assemble the run record with CI provenance
	prov := ci.Describe()
	pipeline, _ := cmd.Flags().GetString("pipeline") //nolint:errcheck // flag registered above
	if pipeline == "" {
		pipeline = prov.Pipeline
	}
	build, _ := cmd.Flags().GetString("build") //nolint:errcheck // flag registered above
	if build == "" {
		build = prov.Build
	}
	commitSHA, _ := cmd.Flags().GetString("commit") //nolint:errcheck // flag registered above
	if commitSHA == "" {
		commitSHA = prov.Commit
	}

	run := gate.Run{
		At:       start.UTC(),
		Pipeline: pipeline,
		Build:    build,
		Commit:   commitSHA,
		Policy:   pol.Source,
		Reports:  args,
		Findings: len(findings),
		Verdict:  verdict,
		Duration: time.Since(start),
	}
	exitCode := run.ExitCode(cfg.Strict)

	remediation.Apply(run.Verdict.Failures)
	remediation.Apply(run.Verdict.Warnings)

	// Artifacts
	htmlPath, _ := cmd.Flags().GetString("html") //nolint:errcheck // flag registered above
	var htmlReport []byte
	if htmlPath != "" || cfg.Notify.Email != nil {
		htmlReport, err = report.GenerateHTML(run)
		if err != nil {
			return fmt.Errorf("generating HTML report: %w", err)
		}
	}
	if htmlPath != "" {
		if writeErr := os.WriteFile(htmlPath, htmlReport, 0o644); writeErr != nil { //nolint:gosec // report is not sensitive
			return fmt.Errorf("writing HTML report: %w", writeErr)
		}
		slog.Info("report written", "path", htmlPath)
	}
	csvPath, _ := cmd.Flags().GetString("csv") //nolint:errcheck // flag registered above
	if csvPath != "" {
		if writeErr := writeArtifact(csvPath, run, report.WriteCSV); writeErr != nil {
			return fmt.Errorf("writing CSV export: %w", writeErr)
		}
		slog.Info("csv written", "path", csvPath)
	}
	sarifPath, _ := cmd.Flags().GetString("sarif") //nolint:errcheck // flag registered above
	if sarifPath != "" {
		if writeErr := writeArtifact(sarifPath, run, report.WriteSARIF); writeErr != nil {
			return fmt.Errorf("writing SARIF export: %w", writeErr)
		}
		slog.Info("sarif written", "path", sarifPath)
	}

	// Persist history. A failed write must not change the verdict the
	// pipeline acts on, so it only logs.
	if cfg.HistoryDB != "" {
		_, persistSpan := tracer.Start(ctx, "persist")
		saveRun(cfg.HistoryDB, run)
		persistSpan.End()
	}

	// Notify
	if notifier := notify.New(cfg.Notify); notifier != nil {
		_, notifySpan := tracer.Start(ctx, "notify")
		notifier.Announce(run, htmlReport)
		notifySpan.End()
	}

	quiet, _ := cmd.Flags().GetBool("quiet") //nolint:errcheck // flag registered above
	if !quiet {
		switch cfg.Format {
		case "json":
			if err := render.WriteJSON(os.Stdout, run, exitCode); err != nil {
				return fmt.Errorf("writing JSON verdict: %w", err)
			}
		case "none":
		default:
			fmt.Print(render.Table(run))
		}
	}

	failed, warned, ignored := run.Verdict.Counts()
	slog.Info("gate evaluated", "passed", run.Verdict.Passed,
		"failures", failed, "warnings", warned, "ignored", ignored,
		"duration", run.Duration.Round(time.Millisecond))

	if exitCode != 0 {
		runSpan.End()
		tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush before exit
		os.Exit(exitCode)                    //nolint:gocritic // exitAfterDefer: defer covers the normal-return path, this is the nonzero-exit path
	}
	return nil
}

func saveRun(dbPath string, run gate.Run) {
	hs, err := history.Open(dbPath)
	if err != nil {
		slog.Error("opening history database", "path", dbPath, "err", err)
		return
	}
	defer hs.Close() //nolint:errcheck // short-lived write handle
	if err := hs.Save(run); err != nil {
		slog.Error("saving run", "err", err)
		return
	}
	slog.Info("run recorded", "path", dbPath)
}

func writeArtifact(path string, run gate.Run, write func(io.Writer, gate.Run) error) error {
	f, err := os.Create(path) //nolint:gosec // user-provided artifact path
	if err != nil {
		return err
	}
	if err := write(f, run); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}
