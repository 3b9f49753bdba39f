package ingest

import (
	"errors"
	"testing"

	"github.com/scangate/scangate/internal/finding"
)

const gosecSarifReport = `{
  "$schema": "https://json.schemastore.org/sarif-2.1.0.json",
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "Gosec", "informationUri": "https://github.com/securego/gosec"}},
      "results": [
        {
          "ruleId": "G404",
          "level": "warning",
          "message": {"text": "Use of weak random number generator (math/rand instead of crypto/rand)"},
          "locations": [
            {
              "physicalLocation": {
                "artifactLocation": {"uri": "internal/token/token.go"},
                "region": {"startLine": 31}
              }
            }
          ]
        },
        {
          "ruleId": "G101",
          "level": "error",
          "message": {"text": "Potential hardcoded credentials"},
          "locations": [
            {
              "physicalLocation": {
                "artifactLocation": {"uri": "internal/db/db.go"},
                "region": {"startLine": 12}
              }
            }
          ]
        },
        {
          "ruleId": "G104",
          "message": {"text": "Errors unhandled"}
        }
      ]
    }
  ]
}`

func TestParseSARIF(t *testing.T) {
	findings, err := ParseSARIF([]byte(gosecSarifReport), finding.CategorySAST)
	if err != nil {
		t.Fatalf("ParseSARIF() error: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}

	weak := findings[0]
	if weak.RuleID != "G404" {
		t.Errorf("rule id = %q", weak.RuleID)
	}
	if weak.Severity != finding.SeverityMedium {
		t.Errorf("warning severity = %q, want MEDIUM", weak.Severity)
	}
	if weak.Tool != "gosec" {
		t.Errorf("tool = %q, want lowercased driver name", weak.Tool)
	}
	if weak.Location != "internal/token/token.go" || weak.Line != 31 {
		t.Errorf("location = %q:%d", weak.Location, weak.Line)
	}

	if findings[1].Severity != finding.SeverityHigh {
		t.Errorf("error severity = %q, want HIGH", findings[1].Severity)
	}
	if findings[2].Severity != finding.SeverityMedium {
		t.Errorf("absent level severity = %q, want MEDIUM (SARIF default)", findings[2].Severity)
	}
	if findings[2].Location != "" {
		t.Errorf("location = %q, want empty for result without locations", findings[2].Location)
	}

	for i, f := range findings {
		f.Category = finding.CategorySAST
		if err := f.Validate(); err != nil {
			t.Errorf("finding %d invalid: %v", i, err)
		}
	}
}

func TestParseSARIF_CategoryChosenByCaller(t *testing.T) {
	findings, err := ParseSARIF([]byte(gosecSarifReport), finding.CategoryImage)
	if err != nil {
		t.Fatalf("ParseSARIF() error: %v", err)
	}
	for _, f := range findings {
		if f.Category != finding.CategoryImage {
			t.Errorf("category = %q, want IMAGE", f.Category)
		}
	}
}

func TestParseSARIF_UnknownLevel(t *testing.T) {
	report := `{
  "version": "2.1.0",
  "runs": [{"tool": {"driver": {"name": "x"}}, "results": [{"ruleId": "r", "level": "fatal", "message": {"text": "m"}}]}]
}`
	_, err := ParseSARIF([]byte(report), finding.CategorySAST)
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
	if !errors.Is(err, finding.ErrMalformed) {
		t.Errorf("error not ErrMalformed: %v", err)
	}
}
