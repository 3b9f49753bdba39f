package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

func TestWriteSARIF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, failedRun()); err != nil {
		t.Fatalf("WriteSARIF error: %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if log.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(log.Runs))
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "scangate" {
		t.Errorf("driver name = %q", run.Tool.Driver.Name)
	}
	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}

	xss := run.Results[0]
	if xss.RuleID != "40012" {
		t.Errorf("ruleId = %q", xss.RuleID)
	}
	if xss.Level != "error" {
		t.Errorf("level = %q, want error for HIGH", xss.Level)
	}
	if xss.Properties["gateAction"] != "FAIL" {
		t.Errorf("gateAction = %v, want FAIL", xss.Properties["gateAction"])
	}
	if len(xss.Locations) != 1 || xss.Locations[0].PhysicalLocation.ArtifactLocation.URI != "https://staging.example.com" {
		t.Errorf("locations = %+v", xss.Locations)
	}

	if run.Results[1].Properties["gateAction"] != "WARN" {
		t.Errorf("gateAction = %v, want WARN", run.Results[1].Properties["gateAction"])
	}

	if len(run.Tool.Driver.Rules) != 2 {
		t.Errorf("expected 2 rule entries, got %d", len(run.Tool.Driver.Rules))
	}
	if run.Tool.Driver.Rules[0].HelpURI != "https://www.zaproxy.org/docs/alerts/40012/" {
		t.Errorf("helpUri = %q", run.Tool.Driver.Rules[0].HelpURI)
	}
}

func TestWriteSARIF_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, gate.Run{Verdict: gate.Verdict{Passed: true}}); err != nil {
		t.Fatalf("WriteSARIF error: %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if log.Runs[0].Results == nil {
		t.Error("results should be an empty array, not null")
	}
	if len(log.Runs[0].Results) != 0 {
		t.Errorf("expected 0 results, got %d", len(log.Runs[0].Results))
	}
}

func TestSevToLevel(t *testing.T) {
	cases := []struct {
		sev  finding.Severity
		want string
	}{
		{finding.SeverityCritical, "error"},
		{finding.SeverityHigh, "error"},
		{finding.SeverityMedium, "warning"},
		{finding.SeverityLow, "note"},
		{finding.SeverityInfo, "none"},
	}
	for _, tc := range cases {
		if got := sevToLevel(tc.sev); got != tc.want {
			t.Errorf("sevToLevel(%s) = %q, want %q", tc.sev, got, tc.want)
		}
	}
}

func TestWriteSARIF_RegionOnlyWithLine(t *testing.T) {
	run := gate.Run{Verdict: gate.Verdict{
		Failures: []finding.Finding{
			{RuleID: "x", Category: finding.CategorySAST, Severity: finding.SeverityHigh, Location: "a.go"},
		},
	}}

	var buf bytes.Buffer
	if err := WriteSARIF(&buf, run); err != nil {
		t.Fatalf("WriteSARIF error: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("startLine")) {
		t.Error("region emitted for a finding without a line number")
	}
}
