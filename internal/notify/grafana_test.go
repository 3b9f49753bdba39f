package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scangate/scangate/internal/config"
)

func grafanaConfig(url string) config.NotifyConfig {
	return config.NotifyConfig{
		Webhooks: []config.WebhookConfig{
			{Type: "grafana", URL: url, APIKey: "test-key-123"},
		},
	}
}

func TestGrafana_SendsAnnotation(t *testing.T) {
	var gotReq *http.Request
	var gotBody grafanaAnnotation

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody) //nolint:errcheck // test helper
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(grafanaConfig(srv.URL))
	n.Announce(failedRun(), nil)

	if gotReq == nil {
		t.Fatal("expected Grafana annotation request")
	}
	if gotReq.URL.Path != "/api/annotations" {
		t.Errorf("expected path /api/annotations, got %q", gotReq.URL.Path)
	}
	if gotReq.Header.Get("Authorization") != "Bearer test-key-123" {
		t.Errorf("expected Bearer auth, got %q", gotReq.Header.Get("Authorization"))
	}
	if gotReq.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json, got %q", gotReq.Header.Get("Content-Type"))
	}
	if gotBody.Time == 0 {
		t.Error("expected non-zero timestamp")
	}
}

func TestGrafana_TagsCarryOutcomeAndSeverity(t *testing.T) {
	var gotBody grafanaAnnotation

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody) //nolint:errcheck // test helper
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(grafanaConfig(srv.URL))
	n.Announce(failedRun(), nil)

	hasScangate := false
	hasFailed := false
	hasHigh := false
	for _, tag := range gotBody.Tags {
		switch tag {
		case "scangate":
			hasScangate = true
		case "failed":
			hasFailed = true
		case "HIGH":
			hasHigh = true
		}
	}
	if !hasScangate {
		t.Error("expected 'scangate' tag")
	}
	if !hasFailed {
		t.Error("expected 'failed' tag")
	}
	if !hasHigh {
		t.Error("expected 'HIGH' tag")
	}
}

func TestGrafana_DashboardUID(t *testing.T) {
	var gotBody grafanaAnnotation

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody) //nolint:errcheck // test helper
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := grafanaConfig(srv.URL)
	cfg.Webhooks[0].DashboardUID = "abc-123"

	n := New(cfg)
	n.Announce(failedRun(), nil)

	if gotBody.DashboardUID != "abc-123" {
		t.Errorf("expected dashboardUID 'abc-123', got %q", gotBody.DashboardUID)
	}
}

func TestGrafana_TextListsFindings(t *testing.T) {
	var gotBody grafanaAnnotation

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody) //nolint:errcheck // test helper
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(grafanaConfig(srv.URL))
	n.Announce(failedRun(), nil)

	if gotBody.Text == "" {
		t.Fatal("expected non-empty text")
	}
	if !strings.Contains(gotBody.Text, "gate FAILED") {
		t.Errorf("expected text to carry the outcome, got %q", gotBody.Text)
	}
	if !strings.Contains(gotBody.Text, "FAIL [HIGH] 40012") {
		t.Errorf("expected text to list the blocking finding, got %q", gotBody.Text)
	}
	if !strings.Contains(gotBody.Text, "WARN [MEDIUM] 10020") {
		t.Errorf("expected text to list the warning, got %q", gotBody.Text)
	}
}

func TestGrafana_PassingRunStaysQuiet(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(grafanaConfig(srv.URL))
	n.Announce(passedRun(), nil)

	if called {
		t.Error("expected no annotation for a clean passing run")
	}
}
