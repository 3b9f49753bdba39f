// Package notify announces finished gate runs to webhooks and email.
// Delivery is fire-and-forget: failures are logged and never change the
// gate outcome.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scangate/scangate/internal/config"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

const httpTimeout = 10 * time.Second

// Notifier sends run announcements to the configured targets.
type Notifier struct {
	client  *http.Client
	cfg     config.NotifyConfig
	minRank int
}

// New creates a Notifier from notification config. Returns nil if no
// targets are configured.
func New(cfg config.NotifyConfig) *Notifier {
	if len(cfg.Webhooks) == 0 && cfg.Email == nil {
		return nil
	}

	minRank := finding.SeverityLow.Rank()
	if cfg.MinRank != "" {
		if sev, err := finding.ParseSeverity(cfg.MinRank); err == nil {
			minRank = sev.Rank()
		} else {
			slog.Warn("notification: unknown minSeverity, using LOW", "value", cfg.MinRank)
		}
	}

	return &Notifier{
		cfg:     cfg,
		minRank: minRank,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Announce sends the finished run to every configured target. The HTML
// report, when non-nil, is attached to email notifications.
func (n *Notifier) Announce(run gate.Run, htmlReport []byte) {
	failures := n.ofInterest(run.Verdict.Failures)
	warnings := n.ofInterest(run.Verdict.Warnings)

	// Clean passing runs stay quiet unless onPass asks for them. A passing
	// run that still carries warnings of interest is announced.
	if run.Verdict.Passed && len(warnings) == 0 && !n.cfg.OnPass {
		return
	}

	for _, wh := range n.cfg.Webhooks {
		switch wh.Type {
		case "slack":
			n.sendSlack(wh.URL, run, failures, warnings)
		case "pagerduty":
			n.sendPagerDuty(wh, run, failures)
		case "grafana":
			n.sendGrafana(&wh, run, failures, warnings)
		default:
			n.sendGeneric(wh.URL, run, failures, warnings)
		}
	}
	if n.cfg.Email != nil {
		n.sendEmail(run, failures, warnings, htmlReport)
	}
}

// ofInterest filters findings below the configured severity floor.
func (n *Notifier) ofInterest(findings []finding.Finding) []finding.Finding {
	var out []finding.Finding
	for i := range findings {
		if findings[i].Severity.Rank() >= n.minRank {
			out = append(out, findings[i])
		}
	}
	return out
}

// GenericPayload is the JSON body sent to generic webhooks.
type GenericPayload struct {
	Timestamp time.Time    `json:"timestamp"`
	Pipeline  string       `json:"pipeline,omitempty"`
	Build     string       `json:"build,omitempty"`
	Commit    string       `json:"commit,omitempty"`
	Passed    bool         `json:"passed"`
	Summary   string       `json:"summary"`
	Failures  []RunFinding `json:"failures"`
	Warnings  []RunFinding `json:"warnings"`
}

// RunFinding is a single finding in the generic webhook payload.
type RunFinding struct {
	RuleID      string `json:"ruleId"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Tool        string `json:"tool,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

func toRunFindings(findings []finding.Finding) []RunFinding {
	out := make([]RunFinding, len(findings))
	for i := range findings {
		out[i] = RunFinding{
			RuleID:      findings[i].RuleID,
			Category:    string(findings[i].Category),
			Severity:    string(findings[i].Severity),
			Tool:        findings[i].Tool,
			Location:    findings[i].Location,
			Description: findings[i].Description,
		}
	}
	return out
}

func (n *Notifier) sendGeneric(webhookURL string, run gate.Run, failures, warnings []finding.Finding) {
	payload := GenericPayload{
		Timestamp: time.Now().UTC(),
		Pipeline:  run.Pipeline,
		Build:     run.Build,
		Commit:    run.Commit,
		Passed:    run.Verdict.Passed,
		Summary:   run.Verdict.Summary(),
		Failures:  toRunFindings(failures),
		Warnings:  toRunFindings(warnings),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("notification: marshal error", "err", err)
		return
	}

	n.post(webhookURL, "application/json", body)
}

func (n *Notifier) post(webhookURL, contentType string, body []byte) {
	resp, err := n.client.Post(webhookURL, contentType, bytes.NewReader(body)) //nolint:noctx // fire-and-forget notification
	if err != nil {
		slog.Warn("notification: webhook delivery failed", "url", webhookURL, "err", err)
		return
	}
	defer resp.Body.Close() //nolint:errcheck // read-only close
	if resp.StatusCode >= 300 {
		slog.Warn("notification: webhook returned non-2xx", "url", webhookURL, "status", resp.StatusCode)
	}
}

// subject builds the notification subject line shared by Slack and email.
func subject(run gate.Run) string {
	outcome := "passed"
	if !run.Verdict.Passed {
		outcome = "FAILED"
	}
	var where []string
	if run.Pipeline != "" {
		where = append(where, run.Pipeline)
	}
	if run.Build != "" {
		where = append(where, "#"+run.Build)
	}
	if len(where) == 0 {
		return fmt.Sprintf("scangate: gate %s", outcome)
	}
	return fmt.Sprintf("scangate: gate %s (%s)", outcome, strings.Join(where, " "))
}
