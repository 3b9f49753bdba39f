package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scangate/scangate/internal/finding"
)

// sarifReport is the subset of SARIF 2.1.0 scangate consumes.
type sarifReport struct {
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name string `json:"name"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID  string `json:"ruleId"`
			Level   string `json:"level"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine int `json:"startLine"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
		} `json:"results"`
	} `json:"runs"`
}

// ParseSARIF parses a SARIF 2.1.0 report from any scanner that emits it.
// SARIF carries no scan class, so the caller picks the category. Levels map
// error→HIGH, warning→MEDIUM, note→LOW, none→INFO; an absent level means
// warning, per the SARIF default.
func ParseSARIF(data []byte, category finding.Category) ([]finding.Finding, error) {
	var rep sarifReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing sarif report: %w", err)
	}

	var findings []finding.Finding
	for _, run := range rep.Runs {
		tool := strings.ToLower(run.Tool.Driver.Name)
		for _, res := range run.Results {
			sev, err := sarifSeverity(res.Level)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", res.RuleID, err)
			}

			f := finding.Finding{
				RuleID:      res.RuleID,
				Category:    category,
				Severity:    sev,
				Description: res.Message.Text,
				Tool:        tool,
			}
			if len(res.Locations) > 0 {
				loc := res.Locations[0].PhysicalLocation
				f.Location = loc.ArtifactLocation.URI
				f.Line = loc.Region.StartLine
			}
			findings = append(findings, f)
		}
	}
	return findings, nil
}

func sarifSeverity(level string) (finding.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return finding.SeverityHigh, nil
	case "warning", "":
		return finding.SeverityMedium, nil
	case "note":
		return finding.SeverityLow, nil
	case "none":
		return finding.SeverityInfo, nil
	}
	return "", fmt.Errorf("%w: unknown level %q", finding.ErrMalformed, level)
}
