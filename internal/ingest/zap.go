package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scangate/scangate/internal/finding"
)

// zapReport is the subset of ZAP's traditional JSON report scangate
// consumes. ZAP serializes every scalar as a string.
type zapReport struct {
	ProgramName string `json:"@programName"`
	Version     string `json:"@version"`
	Site        []struct {
		Name   string `json:"@name"`
		Alerts []struct {
			PluginID string `json:"pluginid"`
			Name     string `json:"name"`
			RiskCode string `json:"riskcode"`
			Count    string `json:"count"`
		} `json:"alerts"`
	} `json:"site"`
}

// ParseZAP parses a ZAP traditional JSON report. Every alert becomes one
// DAST finding keyed by plugin id; the riskcode maps to severity
// (0 informational, 1 low, 2 medium, 3 high). An unrecognized riskcode is a
// malformed finding: the vocabulary is fixed by the tool.
func ParseZAP(data []byte) ([]finding.Finding, error) {
	var rep zapReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing zap report: %w", err)
	}

	var findings []finding.Finding
	for _, site := range rep.Site {
		for _, a := range site.Alerts {
			sev, err := zapSeverity(a.RiskCode)
			if err != nil {
				return nil, fmt.Errorf("plugin %s: %w", a.PluginID, err)
			}
			findings = append(findings, finding.Finding{
				RuleID:      a.PluginID,
				Category:    finding.CategoryDAST,
				Severity:    sev,
				Description: a.Name,
				Tool:        "zap",
				Location:    site.Name,
				Link:        fmt.Sprintf("https://www.zaproxy.org/docs/alerts/%s/", a.PluginID),
			})
		}
	}
	return findings, nil
}

func zapSeverity(riskcode string) (finding.Severity, error) {
	switch strings.TrimSpace(riskcode) {
	case "0":
		return finding.SeverityInfo, nil
	case "1":
		return finding.SeverityLow, nil
	case "2":
		return finding.SeverityMedium, nil
	case "3":
		return finding.SeverityHigh, nil
	}
	return "", fmt.Errorf("%w: unknown riskcode %q", finding.ErrMalformed, riskcode)
}
