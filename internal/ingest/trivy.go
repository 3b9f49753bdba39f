package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scangate/scangate/internal/finding"
)

// trivyReport is the subset of Trivy's JSON schema 2 scangate consumes.
type trivyReport struct {
	SchemaVersion int    `json:"SchemaVersion"`
	ArtifactName  string `json:"ArtifactName"`
	ArtifactType  string `json:"ArtifactType"`
	Results       []struct {
		Target          string `json:"Target"`
		Class           string `json:"Class"`
		Vulnerabilities []struct {
			VulnerabilityID  string `json:"VulnerabilityID"`
			PkgName          string `json:"PkgName"`
			InstalledVersion string `json:"InstalledVersion"`
			FixedVersion     string `json:"FixedVersion"`
			Severity         string `json:"Severity"`
			Title            string `json:"Title"`
			PrimaryURL       string `json:"PrimaryURL"`
		} `json:"Vulnerabilities"`
		Misconfigurations []struct {
			ID         string `json:"ID"`
			Title      string `json:"Title"`
			Severity   string `json:"Severity"`
			Message    string `json:"Message"`
			PrimaryURL string `json:"PrimaryURL"`
		} `json:"Misconfigurations"`
		Secrets []struct {
			RuleID    string `json:"RuleID"`
			Title     string `json:"Title"`
			Severity  string `json:"Severity"`
			StartLine int    `json:"StartLine"`
		} `json:"Secrets"`
	} `json:"Results"`
}

// ParseTrivy parses a Trivy JSON report (schema 2). Image scans
// (ArtifactType container_image) become IMAGE findings, everything else
// (filesystem, repository) DEPENDENCY. Trivy's UNKNOWN severity maps to
// INFO; other severities pass through uppercased.
func ParseTrivy(data []byte) ([]finding.Finding, error) {
	var rep trivyReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing trivy report: %w", err)
	}
	if rep.SchemaVersion == 0 {
		return nil, fmt.Errorf("parsing trivy report: missing SchemaVersion")
	}

	category := finding.CategoryDependency
	if rep.ArtifactType == "container_image" {
		category = finding.CategoryImage
	}

	var findings []finding.Finding
	for _, res := range rep.Results {
		for _, v := range res.Vulnerabilities {
			desc := v.Title
			if desc == "" {
				desc = fmt.Sprintf("%s in %s %s", v.VulnerabilityID, v.PkgName, v.InstalledVersion)
			}
			if v.FixedVersion != "" {
				desc = fmt.Sprintf("%s (fixed in %s)", desc, v.FixedVersion)
			}
			findings = append(findings, finding.Finding{
				RuleID:      v.VulnerabilityID,
				Category:    category,
				Severity:    trivySeverity(v.Severity),
				Description: desc,
				Tool:        "trivy",
				Location:    trivyLocation(res.Target, v.PkgName),
				Link:        v.PrimaryURL,
			})
		}
		for _, m := range res.Misconfigurations {
			desc := m.Message
			if desc == "" {
				desc = m.Title
			}
			findings = append(findings, finding.Finding{
				RuleID:      m.ID,
				Category:    category,
				Severity:    trivySeverity(m.Severity),
				Description: desc,
				Tool:        "trivy",
				Location:    res.Target,
				Link:        m.PrimaryURL,
			})
		}
		for _, s := range res.Secrets {
			findings = append(findings, finding.Finding{
				RuleID:      s.RuleID,
				Category:    category,
				Severity:    trivySeverity(s.Severity),
				Description: s.Title,
				Tool:        "trivy",
				Location:    res.Target,
				Line:        s.StartLine,
			})
		}
	}
	return findings, nil
}

// trivySeverity normalizes Trivy's severity vocabulary. Anything outside
// the shared vocabulary survives uppercased and fails validation at
// evaluation time.
func trivySeverity(s string) finding.Severity {
	up := strings.ToUpper(strings.TrimSpace(s))
	if up == "UNKNOWN" || up == "" {
		return finding.SeverityInfo
	}
	return finding.Severity(up)
}

// trivyLocation keys a vulnerability by package name so baselines survive
// image tag churn; target-level entries fall back to the target.
func trivyLocation(target, pkg string) string {
	if pkg == "" {
		return target
	}
	return pkg
}
