// Package remediation maps finding families to actionable fix suggestions.
// Hints feed report rows only; the gate evaluator never consults them.
package remediation

import (
	"strings"

	"github.com/scangate/scangate/internal/finding"
)

// Lookup returns a remediation string for the given finding, or empty if
// none applies.
func Lookup(f *finding.Finding) string {
	// Exact rule ids take priority
	if r, ok := rulePlaybook[f.RuleID]; ok {
		return r
	}

	if r := familyHint(f.RuleID); r != "" {
		return r
	}

	// Category fallbacks, only for findings severe enough to act on
	if f.Severity.Rank() < finding.SeverityMedium.Rank() {
		return ""
	}
	switch f.Category {
	case finding.CategoryDependency:
		return "Upgrade the affected package to a fixed version, or pin a patched release in the dependency manifest."
	case finding.CategoryImage:
		return "Rebuild the image on an updated base and redeploy. If no fix is released, document the exception in the gate policy."
	case finding.CategorySAST:
		return "Review the flagged code path and apply the rule's recommended fix before merging."
	case finding.CategoryDAST:
		return "Reproduce against the staging deployment and fix the response handling or configuration, then rescan."
	}

	return ""
}

// Apply populates the Remediation field on all findings in the slice.
func Apply(findings []finding.Finding) {
	for i := range findings {
		if findings[i].Remediation == "" {
			findings[i].Remediation = Lookup(&findings[i])
		}
	}
}

// rulePlaybook covers the rule ids that show up in almost every pipeline:
// the ZAP baseline's usual suspects.
var rulePlaybook = map[string]string{
	"40012": "Encode or strip user input reflected into responses. Verify the template engine escapes by default.",
	"40018": "Use parameterized queries or an ORM binding; never concatenate user input into SQL.",
	"10020": "Send an X-Frame-Options or frame-ancestors CSP header from the application or ingress.",
	"10021": "Send X-Content-Type-Options: nosniff on all responses.",
	"10038": "Define a Content-Security-Policy header; start with default-src 'self' and extend as needed.",
	"10096": "Remove build timestamps from public responses, or confirm they disclose nothing sensitive.",
	"90022": "Validate and encode application/json error output; do not echo raw input in error bodies.",
}

// familyPlaybook covers rule-id families by prefix. Scanned in declaration
// order so GHSA- is tested before shorter prefixes.
var familyPlaybook = []struct {
	prefix string
	hint   string
}{
	{"CVE-", "Apply the vendor patch or upgrade to the fixed version referenced in the advisory. " +
		"If the code path is unreachable, record an IGNORE rule with a note."},
	{"GHSA-", "Upgrade the dependency to the patched release listed in the GitHub advisory."},
	{"java:", "Apply the SonarQube rule's compliant solution; the rule page shows compliant and noncompliant examples."},
	{"go:", "Apply the SonarQube rule's compliant solution for Go."},
	{"aws-", "Revoke the leaked credential immediately, rotate it, and purge it from history and images."},
	{"KSV", "Adjust the workload manifest to satisfy the flagged security context requirement."},
	{"DS", "Fix the Dockerfile: follow the linked check documentation (non-root USER, pinned base, no secrets in layers)."},
}

func familyHint(ruleID string) string {
	for _, p := range familyPlaybook {
		if strings.HasPrefix(ruleID, p.prefix) {
			return p.hint
		}
	}
	if isGosecRule(ruleID) {
		return "Follow the gosec rule guidance; prefer the standard library's safe variant."
	}
	return ""
}

// isGosecRule reports whether ruleID looks like a gosec id (G followed by
// digits), without swallowing GHSA- and other G-prefixed families.
func isGosecRule(ruleID string) bool {
	if len(ruleID) < 2 || ruleID[0] != 'G' {
		return false
	}
	for _, c := range ruleID[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
