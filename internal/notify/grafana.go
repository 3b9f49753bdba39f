package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scangate/scangate/internal/config"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

// grafanaAnnotation is the payload for Grafana's POST /api/annotations endpoint.
type grafanaAnnotation struct {
	Text         string   `json:"text"`
	DashboardUID string   `json:"dashboardUID,omitempty"`
	Tags         []string `json:"tags"`
	Time         int64    `json:"time"`
}

// sendGrafana annotates the configured dashboard with the gate outcome, so
// deploy panels show when and why a release was blocked.
func (n *Notifier) sendGrafana(wh *config.WebhookConfig, run gate.Run, failures, warnings []finding.Finding) {
	at := run.At
	if at.IsZero() {
		at = time.Now()
	}
	ann := grafanaAnnotation{
		Time: at.UnixMilli(),
		Tags: grafanaTags(run, failures),
		Text: grafanaText(run, failures, warnings),
	}
	if wh.DashboardUID != "" {
		ann.DashboardUID = wh.DashboardUID
	}

	body, err := json.Marshal(ann)
	if err != nil {
		slog.Warn("notification: grafana marshal error", "err", err)
		return
	}

	url := strings.TrimRight(wh.URL, "/") + "/api/annotations"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body)) //nolint:noctx // fire-and-forget notification
	if err != nil {
		slog.Warn("notification: grafana request error", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if wh.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+wh.APIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("notification: grafana delivery failed", "url", url, "err", err)
		return
	}
	defer resp.Body.Close() //nolint:errcheck // read-only close
	if resp.StatusCode >= 300 {
		slog.Warn("notification: grafana returned non-2xx", "url", url, "status", resp.StatusCode)
	}
}

func grafanaTags(run gate.Run, failures []finding.Finding) []string {
	tags := []string{"scangate"}
	if run.Verdict.Passed {
		tags = append(tags, "passed")
	} else {
		tags = append(tags, "failed")
	}
	var hasCrit, hasHigh bool
	for i := range failures {
		switch failures[i].Severity {
		case finding.SeverityCritical:
			hasCrit = true
		case finding.SeverityHigh:
			hasHigh = true
		}
	}
	if hasCrit {
		tags = append(tags, string(finding.SeverityCritical))
	}
	if hasHigh {
		tags = append(tags, string(finding.SeverityHigh))
	}
	return tags
}

func grafanaText(run gate.Run, failures, warnings []finding.Finding) string {
	lines := []string{subject(run), run.Verdict.Summary()}
	for i := range failures {
		lines = append(lines, "- FAIL "+textLine(failures[i]))
	}
	for i := range warnings {
		lines = append(lines, "- WARN "+textLine(warnings[i]))
	}
	return strings.Join(lines, "\n")
}
