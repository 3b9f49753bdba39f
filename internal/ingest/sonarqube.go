package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scangate/scangate/internal/finding"
)

// sonarReport is the subset of a SonarQube issue search export
// (api/issues/search) scangate consumes.
type sonarReport struct {
	Paging struct {
		Total int `json:"total"`
	} `json:"paging"`
	Issues []struct {
		Rule      string `json:"rule"`
		Severity  string `json:"severity"`
		Component string `json:"component"`
		Line      int    `json:"line"`
		Message   string `json:"message"`
		Status    string `json:"status"`
		Impacts   []struct {
			SoftwareQuality string `json:"softwareQuality"`
			Severity        string `json:"severity"`
		} `json:"impacts"`
	} `json:"issues"`
}

// ParseSonarQube parses a SonarQube issue search export. Issues become SAST
// findings keyed by rule (e.g. java:S2076); resolved and closed issues are
// skipped. Legacy severities map BLOCKER→CRITICAL, CRITICAL→HIGH,
// MAJOR→MEDIUM, MINOR→LOW, INFO→INFO; when the legacy field is absent the
// first impact severity is used. An unrecognized severity is a malformed
// finding: the vocabulary is fixed by the tool.
func ParseSonarQube(data []byte) ([]finding.Finding, error) {
	var rep sonarReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing sonarqube report: %w", err)
	}

	var findings []finding.Finding
	for _, issue := range rep.Issues {
		switch strings.ToUpper(issue.Status) {
		case "RESOLVED", "CLOSED":
			continue
		}

		raw := issue.Severity
		if raw == "" && len(issue.Impacts) > 0 {
			raw = issue.Impacts[0].Severity
		}
		sev, err := sonarSeverity(raw)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", issue.Rule, err)
		}

		findings = append(findings, finding.Finding{
			RuleID:      issue.Rule,
			Category:    finding.CategorySAST,
			Severity:    sev,
			Description: issue.Message,
			Tool:        "sonarqube",
			Location:    sonarComponentPath(issue.Component),
			Line:        issue.Line,
		})
	}
	return findings, nil
}

// sonarSeverity maps both the legacy issue severities and the newer impact
// severities onto the shared vocabulary.
func sonarSeverity(s string) (finding.Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BLOCKER":
		return finding.SeverityCritical, nil
	case "CRITICAL", "HIGH":
		return finding.SeverityHigh, nil
	case "MAJOR", "MEDIUM":
		return finding.SeverityMedium, nil
	case "MINOR", "LOW":
		return finding.SeverityLow, nil
	case "INFO":
		return finding.SeverityInfo, nil
	}
	return "", fmt.Errorf("%w: unknown severity %q", finding.ErrMalformed, s)
}

// sonarComponentPath strips the project key prefix from a component,
// leaving the file path.
func sonarComponentPath(component string) string {
	if i := strings.LastIndex(component, ":"); i >= 0 {
		return component[i+1:]
	}
	return component
}
