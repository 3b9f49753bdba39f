// Package finding defines the normalized security finding model shared by
// report parsers, the gate evaluator, and renderers.
package finding

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports a finding whose category or severity is outside the
// recognized vocabulary. Callers can test for it with errors.Is.
var ErrMalformed = errors.New("malformed finding")

// Category identifies the class of scan that produced a finding.
type Category string

const (
	CategorySAST       Category = "SAST"
	CategoryDependency Category = "DEPENDENCY"
	CategoryImage      Category = "IMAGE"
	CategoryDAST       Category = "DAST"
)

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySAST, CategoryDependency, CategoryImage, CategoryDAST:
		return true
	}
	return false
}

// ParseCategory normalizes s to a Category, or fails with ErrMalformed.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrMalformed, s)
	}
	return c, nil
}

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the recognized severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Rank returns the ordering weight of a severity, INFO=1 through CRITICAL=5.
// Unrecognized severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 4
	case SeverityCritical:
		return 5
	default:
		return 0
	}
}

// ParseSeverity normalizes s to a Severity, or fails with ErrMalformed.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("%w: unknown severity %q", ErrMalformed, s)
	}
	return sev, nil
}

// Finding is a single normalized scanner result. RuleID, Category, Severity,
// and Description carry the gate semantics; the remaining fields are
// provenance for reports and baselines and are never consulted when matching
// policy rules.
type Finding struct {
	RuleID      string   `json:"ruleId"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Tool        string   `json:"tool,omitempty"`
	Location    string   `json:"location,omitempty"`
	Line        int      `json:"line,omitempty"`
	Link        string   `json:"link,omitempty"`
	Report      string   `json:"report,omitempty"` // source report file
	Remediation string   `json:"remediation,omitempty"`
}

// Validate checks that the finding carries a rule id and a recognized
// category and severity.
func (f *Finding) Validate() error {
	if f.RuleID == "" {
		return fmt.Errorf("%w: empty rule id", ErrMalformed)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("%w: rule %s: unknown category %q", ErrMalformed, f.RuleID, f.Category)
	}
	if !f.Severity.Valid() {
		return fmt.Errorf("%w: rule %s: unknown severity %q", ErrMalformed, f.RuleID, f.Severity)
	}
	return nil
}

// Key returns the identity used for baseline matching. Line numbers are
// excluded so code motion does not resurrect accepted findings.
func (f *Finding) Key() string {
	return fmt.Sprintf("%s/%s/%s", f.Tool, f.RuleID, f.Location)
}
