package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/scangate/scangate/internal/config"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

// pagerDutyEventsURL is the PagerDuty Events API v2 endpoint (var for testing).
var pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue" //nolint:gosec // not a credential

// pdEvent is a PagerDuty Events API v2 request body.
type pdEvent struct {
	Payload     *pdPayload `json:"payload,omitempty"`
	RoutingKey  string     `json:"routing_key"`
	EventAction string     `json:"event_action"`
	DedupKey    string     `json:"dedup_key"`
}

// pdPayload is the payload section of a PagerDuty trigger event.
type pdPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	Severity  string    `json:"severity"`
}

// sendPagerDuty triggers one event per blocking finding. The dedup key is
// the finding's baseline identity, so a retried pipeline updates the open
// incident instead of paging again.
func (n *Notifier) sendPagerDuty(wh config.WebhookConfig, run gate.Run, failures []finding.Finding) {
	for i := range failures {
		f := &failures[i]
		event := pdEvent{
			RoutingKey:  wh.RoutingKey,
			EventAction: "trigger",
			DedupKey:    f.Key(),
			Payload: &pdPayload{
				Summary:   pdSummary(run, f),
				Source:    "scangate",
				Severity:  pdSeverity(f.Severity),
				Timestamp: time.Now().UTC(),
			},
		}

		body, err := json.Marshal(event)
		if err != nil {
			continue
		}
		n.post(pagerDutyEventsURL, "application/json", body)
	}
}

func pdSummary(run gate.Run, f *finding.Finding) string {
	where := f.Location
	if where == "" {
		where = f.Tool
	}
	summary := fmt.Sprintf("[%s] %s at %s", f.Severity, f.RuleID, where)
	if run.Pipeline != "" {
		summary += " (" + run.Pipeline + ")"
	}
	return summary
}

func pdSeverity(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical:
		return "critical"
	case finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}
