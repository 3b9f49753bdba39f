// Package report renders finished gate runs as HTML, CSV, and SARIF.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTmpl = template.Must(template.ParseFS(templateFS, "templates/report.html"))

// GenerateHTML renders a gate run as a self-contained HTML report.
func GenerateHTML(run gate.Run) ([]byte, error) {
	rows := make([]reportRow, 0, len(run.Verdict.Failures)+len(run.Verdict.Warnings))
	for i := range run.Verdict.Failures {
		rows = append(rows, buildRow(&run.Verdict.Failures[i], "FAIL"))
	}
	for i := range run.Verdict.Warnings {
		rows = append(rows, buildRow(&run.Verdict.Warnings[i], "WARN"))
	}
	sortRows(rows)

	sevCounts := map[string]int{}
	for _, r := range rows {
		sevCounts[r.Severity]++
	}

	data := reportData{
		GeneratedAt:   run.At.UTC().Format("2006-01-02 15:04 UTC"),
		Pipeline:      run.Pipeline,
		Build:         run.Build,
		Commit:        run.Commit,
		Policy:        run.Policy,
		Reports:       strings.Join(run.Reports, ", "),
		Passed:        run.Verdict.Passed,
		Summary:       run.Verdict.Summary(),
		FailCount:     len(run.Verdict.Failures),
		WarnCount:     len(run.Verdict.Warnings),
		IgnoredCount:  run.Verdict.Ignored,
		TotalCount:    run.Findings,
		CriticalCount: sevCounts[string(finding.SeverityCritical)],
		HighCount:     sevCounts[string(finding.SeverityHigh)],
		Duration:      run.Duration.Round(time.Millisecond).String(),
		Findings:      rows,
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type reportData struct {
	GeneratedAt   string
	Pipeline      string
	Build         string
	Commit        string
	Policy        string
	Reports       string
	Passed        bool
	Summary       string
	FailCount     int
	WarnCount     int
	IgnoredCount  int
	TotalCount    int
	CriticalCount int
	HighCount     int
	Duration      string
	Findings      []reportRow
}

type reportRow struct {
	Action      string
	ActionClass string
	Severity    string
	SevClass    string
	Category    string
	RuleID      string
	Tool        string
	Location    string
	Line        int
	Description string
	Link        string
	Remediation string

	sevRank int
}

func buildRow(f *finding.Finding, action string) reportRow {
	return reportRow{
		Action:      action,
		ActionClass: strings.ToLower(action),
		Severity:    string(f.Severity),
		SevClass:    strings.ToLower(string(f.Severity)),
		Category:    string(f.Category),
		RuleID:      f.RuleID,
		Tool:        f.Tool,
		Location:    f.Location,
		Line:        f.Line,
		Description: f.Description,
		Link:        f.Link,
		Remediation: f.Remediation,
		sevRank:     f.Severity.Rank(),
	}
}

// sortRows orders blocking findings before warnings, most severe first,
// keeping input order within equal keys.
func sortRows(rows []reportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Action != rows[j].Action {
			return rows[i].Action == "FAIL"
		}
		return rows[i].sevRank > rows[j].sevRank
	})
}
