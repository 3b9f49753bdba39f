// Package gate evaluates scanner findings against a policy and produces the
// pass/fail verdict a CI pipeline acts on.
package gate

import (
	"fmt"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/policy"
)

// Sentinel errors Evaluate can wrap. They alias the defining packages'
// sentinels so callers can test either name with errors.Is.
var (
	ErrMalformedPolicy  = policy.ErrMalformed
	ErrMalformedFinding = finding.ErrMalformed
)

// Verdict is the outcome of one gate evaluation. Failures and Warnings
// preserve the input order of the findings; ignored findings are dropped
// and only counted.
type Verdict struct {
	Passed   bool              `json:"passed"`
	Failures []finding.Finding `json:"failures"`
	Warnings []finding.Finding `json:"warnings"`
	Ignored  int               `json:"ignored"`
}

// Evaluate applies pol to findings and returns the verdict. It is a pure
// function: no I/O, no shared state, safe for concurrent use, and identical
// inputs always produce identical verdicts.
//
// The policy is validated and compiled before any finding is inspected;
// a verdict is never returned alongside an error. Rules are matched in
// declaration order and the first match by rule id wins; findings matching
// no rule take the policy's default action.
func Evaluate(findings []finding.Finding, pol policy.Policy) (Verdict, error) {
	m, err := pol.Compile()
	if err != nil {
		return Verdict{}, fmt.Errorf("compiling policy: %w", err)
	}

	for i := range findings {
		if err := findings[i].Validate(); err != nil {
			return Verdict{}, fmt.Errorf("finding %d: %w", i+1, err)
		}
	}

	v := Verdict{Failures: []finding.Finding{}, Warnings: []finding.Finding{}}
	for _, f := range findings {
		switch m.Action(f.RuleID) {
		case policy.ActionFail:
			v.Failures = append(v.Failures, f)
		case policy.ActionWarn:
			v.Warnings = append(v.Warnings, f)
		case policy.ActionIgnore:
			v.Ignored++
		}
	}
	v.Passed = len(v.Failures) == 0
	return v, nil
}

// Summary returns a one-line human-readable outcome.
func (v Verdict) Summary() string {
	if v.Passed {
		return fmt.Sprintf("gate passed: 0 blocking, %d warning(s), %d ignored", len(v.Warnings), v.Ignored)
	}
	return fmt.Sprintf("gate failed: %d blocking finding(s), %d warning(s), %d ignored",
		len(v.Failures), len(v.Warnings), v.Ignored)
}

// Counts returns the number of failures, warnings, and ignored findings.
func (v Verdict) Counts() (failed, warned, ignored int) {
	return len(v.Failures), len(v.Warnings), v.Ignored
}
