package report

import (
	"encoding/json"
	"io"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

// SARIF 2.1.0 subset emitted for code-scanning upload.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID      string `json:"id"`
	HelpURI string `json:"helpUri,omitempty"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// WriteSARIF writes a run's blocking and warned findings as SARIF 2.1.0,
// suitable for code-scanning upload.
func WriteSARIF(w io.Writer, run gate.Run) error {
	var (
		results   []sarifResult
		rules     []sarifRule
		seenRules = map[string]bool{}
	)

	add := func(findings []finding.Finding, action string) {
		for i := range findings {
			f := &findings[i]
			res := sarifResult{
				RuleID:  f.RuleID,
				Level:   sevToLevel(f.Severity),
				Message: sarifMessage{Text: f.Description},
				Properties: map[string]any{
					"gateAction": action,
					"category":   string(f.Category),
					"tool":       f.Tool,
				},
			}
			if f.Location != "" {
				loc := sarifLocation{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: f.Location},
					},
				}
				if f.Line > 0 {
					loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line}
				}
				res.Locations = []sarifLocation{loc}
			}
			results = append(results, res)

			if !seenRules[f.RuleID] {
				seenRules[f.RuleID] = true
				rules = append(rules, sarifRule{ID: f.RuleID, HelpURI: f.Link})
			}
		}
	}
	add(run.Verdict.Failures, "FAIL")
	add(run.Verdict.Warnings, "WARN")
	if results == nil {
		results = []sarifResult{}
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{Driver: sarifDriver{
					Name:           "scangate",
					InformationURI: "https://github.com/scangate/scangate",
					Rules:          rules,
				}},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sevToLevel(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	case finding.SeverityInfo:
		return "none"
	default:
		return "note"
	}
}
