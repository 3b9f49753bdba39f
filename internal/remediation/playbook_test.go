package remediation

import (
	"strings"
	"testing"

	"github.com/scangate/scangate/internal/finding"
)

func TestLookup_ExactRule(t *testing.T) {
	tests := []struct {
		name       string
		ruleID     string
		wantPrefix string
	}{
		{"reflected xss", "40012", "Encode or strip user input"},
		{"sql injection", "40018", "Use parameterized queries"},
		{"clickjacking", "10020", "Send an X-Frame-Options"},
		{"nosniff", "10021", "Send X-Content-Type-Options"},
		{"csp", "10038", "Define a Content-Security-Policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &finding.Finding{RuleID: tt.ruleID, Category: finding.CategoryDAST, Severity: finding.SeverityLow}
			got := Lookup(f)
			if got == "" {
				t.Fatalf("expected remediation for %s, got empty", tt.ruleID)
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("expected prefix %q, got %q", tt.wantPrefix, got)
			}
		})
	}
}

func TestLookup_Families(t *testing.T) {
	tests := []struct {
		name     string
		ruleID   string
		wantWord string
	}{
		{"cve", "CVE-2024-5535", "advisory"},
		{"ghsa", "GHSA-m425-mq94-257g", "GitHub advisory"},
		{"sonar java", "java:S2076", "compliant solution"},
		{"dockerfile", "DS002", "Dockerfile"},
		{"gosec", "G404", "gosec"},
		{"leaked key", "aws-access-key-id", "Revoke"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &finding.Finding{RuleID: tt.ruleID, Category: finding.CategorySAST, Severity: finding.SeverityLow}
			got := Lookup(f)
			if !strings.Contains(got, tt.wantWord) {
				t.Errorf("Lookup(%s) = %q, want mention of %q", tt.ruleID, got, tt.wantWord)
			}
		})
	}
}

func TestLookup_GHSANotGosec(t *testing.T) {
	f := &finding.Finding{RuleID: "GHSA-m425-mq94-257g", Category: finding.CategoryDependency, Severity: finding.SeverityHigh}
	got := Lookup(f)
	if strings.Contains(got, "gosec") {
		t.Errorf("GHSA id resolved to the gosec hint: %q", got)
	}
}

func TestLookup_ExactRuleBeatsFamily(t *testing.T) {
	// An exact entry must win over any prefix family.
	f := &finding.Finding{RuleID: "40012", Category: finding.CategoryDAST, Severity: finding.SeverityHigh}
	got := Lookup(f)
	if !strings.HasPrefix(got, "Encode or strip user input") {
		t.Errorf("exact rule hint not applied: %q", got)
	}
}

func TestLookup_CategoryFallback(t *testing.T) {
	tests := []struct {
		category finding.Category
		wantWord string
	}{
		{finding.CategoryDependency, "Upgrade"},
		{finding.CategoryImage, "Rebuild"},
		{finding.CategorySAST, "flagged code path"},
		{finding.CategoryDAST, "staging"},
	}
	for _, tt := range tests {
		f := &finding.Finding{RuleID: "OSV-2024-1", Category: tt.category, Severity: finding.SeverityHigh}
		got := Lookup(f)
		if !strings.Contains(got, tt.wantWord) {
			t.Errorf("%s fallback = %q, want mention of %q", tt.category, got, tt.wantWord)
		}
	}
}

func TestLookup_LowSeverityNoFallback(t *testing.T) {
	f := &finding.Finding{RuleID: "OSV-2024-1", Category: finding.CategoryDependency, Severity: finding.SeverityLow}
	if got := Lookup(f); got != "" {
		t.Errorf("expected no fallback for low severity, got %q", got)
	}
}

func TestApply(t *testing.T) {
	findings := []finding.Finding{
		{RuleID: "40012", Category: finding.CategoryDAST, Severity: finding.SeverityHigh},
		{RuleID: "x", Category: finding.CategorySAST, Severity: finding.SeverityInfo},
		{RuleID: "y", Category: finding.CategorySAST, Severity: finding.SeverityHigh, Remediation: "custom"},
	}
	Apply(findings)

	if findings[0].Remediation == "" {
		t.Error("expected remediation for 40012")
	}
	if findings[1].Remediation != "" {
		t.Errorf("expected no remediation for info, got %q", findings[1].Remediation)
	}
	if findings[2].Remediation != "custom" {
		t.Errorf("expected custom remediation preserved, got %q", findings[2].Remediation)
	}
}

func TestIsGosecRule(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"G404", true},
		{"G101", true},
		{"G", false},
		{"GHSA-m425", false},
		{"Gabc", false},
		{"404", false},
	}
	for _, tc := range cases {
		if got := isGosecRule(tc.id); got != tc.want {
			t.Errorf("isGosecRule(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
