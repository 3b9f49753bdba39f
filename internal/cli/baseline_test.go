package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scangate/scangate/internal/baseline"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
	"github.com/scangate/scangate/internal/render"
)

func baselineRun() gate.Run {
	return gate.Run{
		At:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Pipeline: "app/deploy",
		Findings: 2,
		Verdict: gate.Verdict{
			Failures: []finding.Finding{{
				RuleID:      "40012",
				Category:    finding.CategoryDAST,
				Severity:    finding.SeverityHigh,
				Description: "Cross Site Scripting (Reflected)",
				Location:    "https://staging.example.com/search",
			}},
			Warnings: []finding.Finding{{
				RuleID:      "10020",
				Category:    finding.CategoryDAST,
				Severity:    finding.SeverityMedium,
				Description: "Missing Anti-clickjacking Header",
				Location:    "https://staging.example.com",
			}},
		},
	}
}

func TestBaselineSave_FromReports(t *testing.T) {
	dir := t.TempDir()
	rep := writeFixture(t, dir, "zap.json", zapFixture)
	outPath := filepath.Join(dir, "baseline.json")

	stdout := new(bytes.Buffer)
	cmd := rootCmd
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetArgs([]string{"baseline", "save", "-o", outPath, rep})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("baseline save: %v", err)
	}

	if !strings.Contains(stdout.String(), "2 findings") {
		t.Errorf("expected '2 findings' in output, got: %q", stdout.String())
	}

	loaded, err := baseline.Load(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Findings) != 2 {
		t.Errorf("loaded findings = %d, want 2", len(loaded.Findings))
	}
	if loaded.Findings[0].RuleID != "40012" {
		t.Errorf("ruleId = %q, want 40012", loaded.Findings[0].RuleID)
	}
}

func TestBaselineSave_AcceptsEvalEnvelope(t *testing.T) {
	var envelope bytes.Buffer
	if err := render.WriteJSON(&envelope, baselineRun(), 1); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(t.TempDir(), "baseline.json")

	stdout := new(bytes.Buffer)
	cmd := rootCmd
	cmd.SetIn(&envelope)
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetArgs([]string{"baseline", "save", "-o", outPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("baseline save with envelope: %v", err)
	}

	loaded, err := baseline.Load(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Findings) != 2 {
		t.Errorf("loaded findings = %d, want 2", len(loaded.Findings))
	}
	if loaded.Pipeline != "app/deploy" {
		t.Errorf("pipeline = %q, want app/deploy", loaded.Pipeline)
	}
}

func TestBaselineCheck_NoNewFindings(t *testing.T) {
	dir := t.TempDir()
	rep := writeFixture(t, dir, "zap.json", zapFixture)
	baselinePath := filepath.Join(dir, "baseline.json")

	cmd := rootCmd
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"baseline", "save", "-o", baselinePath, rep})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("baseline save: %v", err)
	}

	// Check against an identical report: everything is known
	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetArgs([]string{"baseline", "check", baselinePath, rep})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("baseline check: %v", err)
	}

	if !strings.Contains(stdout.String(), "no new findings (2 known, 0 resolved)") {
		t.Errorf("expected clean check, got: %q", stdout.String())
	}
}

func TestBaselineCheck_RunFromStdin(t *testing.T) {
	run := baselineRun()
	bl := baseline.New(verdictFindings(&run))
	baselinePath := filepath.Join(t.TempDir(), "baseline.json")
	if err := bl.Save(baselinePath); err != nil {
		t.Fatal(err)
	}

	runJSON, err := json.Marshal(run)
	if err != nil {
		t.Fatal(err)
	}

	stdout := new(bytes.Buffer)
	cmd := rootCmd
	cmd.SetIn(bytes.NewReader(runJSON))
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetArgs([]string{"baseline", "check", baselinePath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("baseline check: %v", err)
	}

	if !strings.Contains(stdout.String(), "no new findings") {
		t.Errorf("expected clean check, got: %q", stdout.String())
	}
}

func TestVerdictFindings_FlattensFailuresThenWarnings(t *testing.T) {
	run := baselineRun()
	got := verdictFindings(&run)
	if len(got) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(got))
	}
	if got[0].RuleID != "40012" || got[1].RuleID != "10020" {
		t.Errorf("expected failures before warnings, got %q then %q", got[0].RuleID, got[1].RuleID)
	}
}
