package ingest

import (
	"errors"
	"testing"

	"github.com/scangate/scangate/internal/finding"
)

const zapBaselineReport = `{
  "@programName": "ZAP",
  "@version": "2.15.0",
  "@generated": "Fri, 9 Aug 2024 10:12:33",
  "site": [
    {
      "@name": "https://staging.example.com",
      "@host": "staging.example.com",
      "@port": "443",
      "@ssl": "true",
      "alerts": [
        {
          "pluginid": "40012",
          "alertRef": "40012",
          "name": "Cross Site Scripting (Reflected)",
          "riskcode": "3",
          "confidence": "2",
          "count": "2"
        },
        {
          "pluginid": "10020",
          "alertRef": "10020-1",
          "name": "Missing Anti-clickjacking Header",
          "riskcode": "2",
          "confidence": "3",
          "count": "11"
        },
        {
          "pluginid": "10096",
          "name": "Timestamp Disclosure - Unix",
          "riskcode": "0",
          "confidence": "1",
          "count": "1"
        }
      ]
    }
  ]
}`

func TestParseZAP(t *testing.T) {
	findings, err := ParseZAP([]byte(zapBaselineReport))
	if err != nil {
		t.Fatalf("ParseZAP() error: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}

	xss := findings[0]
	if xss.RuleID != "40012" {
		t.Errorf("rule id = %q, want plugin id", xss.RuleID)
	}
	if xss.Category != finding.CategoryDAST {
		t.Errorf("category = %q, want DAST", xss.Category)
	}
	if xss.Severity != finding.SeverityHigh {
		t.Errorf("severity = %q, want HIGH for riskcode 3", xss.Severity)
	}
	if xss.Location != "https://staging.example.com" {
		t.Errorf("location = %q, want site name", xss.Location)
	}
	if xss.Link != "https://www.zaproxy.org/docs/alerts/40012/" {
		t.Errorf("link = %q", xss.Link)
	}

	if findings[1].Severity != finding.SeverityMedium {
		t.Errorf("riskcode 2 severity = %q, want MEDIUM", findings[1].Severity)
	}
	if findings[2].Severity != finding.SeverityInfo {
		t.Errorf("riskcode 0 severity = %q, want INFO", findings[2].Severity)
	}

	for i, f := range findings {
		if err := f.Validate(); err != nil {
			t.Errorf("finding %d invalid: %v", i, err)
		}
	}
}

func TestParseZAP_UnknownRiskcode(t *testing.T) {
	report := `{
  "@programName": "ZAP",
  "site": [
    {"@name": "https://x", "alerts": [{"pluginid": "1", "name": "x", "riskcode": "9"}]}
  ]
}`
	_, err := ParseZAP([]byte(report))
	if err == nil {
		t.Fatal("expected error for riskcode 9")
	}
	if !errors.Is(err, finding.ErrMalformed) {
		t.Errorf("error not ErrMalformed: %v", err)
	}
}

func TestParseZAP_EmptySites(t *testing.T) {
	findings, err := ParseZAP([]byte(`{"@programName": "ZAP", "site": []}`))
	if err != nil {
		t.Fatalf("ParseZAP() error: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}
