package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/scangate/scangate/internal/config"
	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

func pagerDutyConfig(routingKey string) config.NotifyConfig {
	return config.NotifyConfig{
		Webhooks: []config.WebhookConfig{
			{Type: "pagerduty", RoutingKey: routingKey},
		},
	}
}

func capturePagerDuty(t *testing.T, events *[]pdEvent, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test helper
		var ev pdEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			t.Errorf("invalid JSON: %v", err)
		}
		mu.Lock()
		*events = append(*events, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
}

func TestPagerDuty_TriggerPerBlockingFinding(t *testing.T) {
	var mu sync.Mutex
	var events []pdEvent

	srv := capturePagerDuty(t, &events, &mu)
	defer srv.Close()

	// Override the PagerDuty URL to point to our test server
	origURL := pagerDutyEventsURL
	defer func() { pagerDutyEventsURL = origURL }()
	pagerDutyEventsURL = srv.URL

	n := New(pagerDutyConfig("test-routing-key"))
	n.Announce(failedRun(), nil)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.RoutingKey != "test-routing-key" {
		t.Errorf("expected routing key 'test-routing-key', got %q", ev.RoutingKey)
	}
	if ev.EventAction != "trigger" {
		t.Errorf("expected event_action 'trigger', got %q", ev.EventAction)
	}
	f := xssFailure()
	if ev.DedupKey != f.Key() {
		t.Errorf("expected dedup_key %q, got %q", f.Key(), ev.DedupKey)
	}
	if ev.Payload == nil {
		t.Fatal("expected payload")
	}
	if ev.Payload.Source != "scangate" {
		t.Errorf("expected source 'scangate', got %q", ev.Payload.Source)
	}
	if ev.Payload.Severity != "error" {
		t.Errorf("expected severity 'error' for a HIGH finding, got %q", ev.Payload.Severity)
	}
	if !strings.Contains(ev.Payload.Summary, "40012") {
		t.Errorf("expected summary to name the rule, got %q", ev.Payload.Summary)
	}
}

func TestPagerDuty_WarningsDoNotPage(t *testing.T) {
	var mu sync.Mutex
	var events []pdEvent

	srv := capturePagerDuty(t, &events, &mu)
	defer srv.Close()

	origURL := pagerDutyEventsURL
	defer func() { pagerDutyEventsURL = origURL }()
	pagerDutyEventsURL = srv.URL

	run := failedRun()
	run.Verdict.Passed = true
	run.Verdict.Failures = nil

	n := New(pagerDutyConfig("test-routing-key"))
	n.Announce(run, nil)

	mu.Lock()
	defer mu.Unlock()

	// A passing run with surviving warnings is announced, but PagerDuty
	// only pages on blocking findings.
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestPagerDuty_DistinctDedupKeysPerFinding(t *testing.T) {
	var mu sync.Mutex
	var events []pdEvent

	srv := capturePagerDuty(t, &events, &mu)
	defer srv.Close()

	origURL := pagerDutyEventsURL
	defer func() { pagerDutyEventsURL = origURL }()
	pagerDutyEventsURL = srv.URL

	sqli := finding.Finding{
		RuleID:   "40018",
		Category: finding.CategoryDAST,
		Severity: finding.SeverityCritical,
		Tool:     "zap",
		Location: "https://staging.example.com/login",
	}
	run := failedRun()
	run.Verdict.Failures = append(run.Verdict.Failures, sqli)

	n := New(pagerDutyConfig("test-routing-key"))
	n.Announce(run, nil)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].DedupKey == events[1].DedupKey {
		t.Errorf("expected distinct dedup keys, both were %q", events[0].DedupKey)
	}
}

func TestPdSummary(t *testing.T) {
	f := xssFailure()
	run := gate.Run{Pipeline: "app/deploy-staging"}
	got := pdSummary(run, &f)
	want := "[HIGH] 40012 at https://staging.example.com/search (app/deploy-staging)"
	if got != want {
		t.Errorf("pdSummary = %q, want %q", got, want)
	}
}

func TestPdSummary_FallsBackToTool(t *testing.T) {
	f := finding.Finding{RuleID: "CVE-2024-1234", Severity: finding.SeverityCritical, Tool: "trivy"}
	got := pdSummary(gate.Run{}, &f)
	if got != "[CRITICAL] CVE-2024-1234 at trivy" {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestPdSeverity(t *testing.T) {
	tests := []struct {
		input finding.Severity
		want  string
	}{
		{finding.SeverityCritical, "critical"},
		{finding.SeverityHigh, "error"},
		{finding.SeverityMedium, "warning"},
		{finding.SeverityLow, "info"},
		{finding.SeverityInfo, "info"},
	}
	for _, tt := range tests {
		got := pdSeverity(tt.input)
		if got != tt.want {
			t.Errorf("pdSeverity(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
