// Package web provides HTTP handlers for the scangate dashboard and API.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/history"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// dashboardRuns caps the recent-runs table on the dashboard.
const dashboardRuns = 20

// UIHandler serves the dashboard: the latest run with its findings and a
// table of recent runs.
func UIHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		latest, err := hs.Latest()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries, err := hs.List(dashboardRuns)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := pageData{}
		if latest != nil {
			lv := latestView{
				Passed:   latest.Verdict.Passed,
				Summary:  latest.Verdict.Summary(),
				Pipeline: latest.Pipeline,
				Build:    latest.Build,
				Commit:   latest.Commit,
				Policy:   latest.Policy,
				At:       formatWhen(latest.At),
				Reports:  strings.Join(latest.Reports, ", "),
			}
			for i := range latest.Verdict.Failures {
				lv.Findings = append(lv.Findings, newFindingRow("FAIL", &latest.Verdict.Failures[i]))
			}
			for i := range latest.Verdict.Warnings {
				lv.Findings = append(lv.Findings, newFindingRow("WARN", &latest.Verdict.Warnings[i]))
			}
			data.Latest = &lv
		}
		for i := range summaries {
			s := &summaries[i]
			outcome := "passed"
			if !s.Passed {
				outcome = "failed"
			}
			data.Runs = append(data.Runs, runRow{
				At:       formatWhen(s.At),
				Pipeline: s.Pipeline,
				Build:    s.Build,
				Outcome:  outcome,
				Findings: s.FindingsCount,
				Failed:   s.FailCount,
				Warned:   s.WarnCount,
				Ignored:  s.IgnoredCount,
				Duration: fmt.Sprintf("%dms", s.DurationMS),
			})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := dashboardTmpl.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// HealthzHandler returns 200 with body "ok".
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok")) //nolint:errcheck // best-effort response
	}
}

type pageData struct {
	Latest *latestView
	Runs   []runRow
}

type latestView struct {
	Summary  string
	Pipeline string
	Build    string
	Commit   string
	Policy   string
	At       string
	Reports  string
	Findings []findingRow
	Passed   bool
}

type findingRow struct {
	Action      string
	ActionClass string
	Severity    string
	SevClass    string
	RuleID      string
	Category    string
	Tool        string
	Location    string
	Description string
}

type runRow struct {
	At       string
	Pipeline string
	Build    string
	Outcome  string
	Duration string
	Findings int
	Failed   int
	Warned   int
	Ignored  int
}

func newFindingRow(action string, f *finding.Finding) findingRow {
	return findingRow{
		Action:      action,
		ActionClass: strings.ToLower(action),
		Severity:    string(f.Severity),
		SevClass:    strings.ToLower(string(f.Severity)),
		RuleID:      f.RuleID,
		Category:    string(f.Category),
		Tool:        f.Tool,
		Location:    f.Location,
		Description: f.Description,
	}
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
