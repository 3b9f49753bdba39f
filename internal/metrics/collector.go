// Package metrics provides Prometheus instrumentation for scangate.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

// Collector translates the most recent gate run into Prometheus gauge values.
type Collector struct {
	findingsTotal   *prometheus.GaugeVec
	findingsByCat   *prometheus.GaugeVec
	gatePassed      prometheus.Gauge
	ignoredFindings prometheus.Gauge
	runDuration     prometheus.Gauge
	runTimestamp    prometheus.Gauge
	mu              sync.Mutex
}

// NewCollector creates and registers metrics on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatePassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scangate",
			Name:      "gate_passed",
			Help:      "Whether the most recent gate run passed (1=passed, 0=failed).",
		}),

		findingsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "scangate",
			Name:      "findings_total",
			Help:      "Findings in the most recent run by gate action and severity.",
		}, []string{"action", "severity"}),

		findingsByCat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "scangate",
			Name:      "findings_by_category",
			Help:      "Findings in the most recent run by scanner category and gate action.",
		}, []string{"category", "action"}),

		ignoredFindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scangate",
			Name:      "ignored_findings",
			Help:      "Findings ignored by policy in the most recent run.",
		}),

		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scangate",
			Name:      "run_duration_seconds",
			Help:      "Evaluation duration of the most recent run in seconds.",
		}),

		runTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scangate",
			Name:      "run_timestamp_seconds",
			Help:      "Unix timestamp of the most recent recorded run.",
		}),
	}

	reg.MustRegister(c.gatePassed)
	reg.MustRegister(c.findingsTotal)
	reg.MustRegister(c.findingsByCat)
	reg.MustRegister(c.ignoredFindings)
	reg.MustRegister(c.runDuration)
	reg.MustRegister(c.runTimestamp)

	return c
}

var allSeverities = []finding.Severity{
	finding.SeverityInfo,
	finding.SeverityLow,
	finding.SeverityMedium,
	finding.SeverityHigh,
	finding.SeverityCritical,
}

// Update replaces all metric values from the given run.
func (c *Collector) Update(run gate.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.findingsTotal.Reset()
	c.findingsByCat.Reset()

	if run.Verdict.Passed {
		c.gatePassed.Set(1)
	} else {
		c.gatePassed.Set(0)
	}
	c.ignoredFindings.Set(float64(run.Verdict.Ignored))
	c.runDuration.Set(run.Duration.Seconds())
	if !run.At.IsZero() {
		c.runTimestamp.Set(float64(run.At.Unix()))
	}

	// Pre-seed zeros so absent severities still export a series.
	for _, sev := range allSeverities {
		c.findingsTotal.With(prometheus.Labels{"action": "FAIL", "severity": string(sev)}).Set(0)
		c.findingsTotal.With(prometheus.Labels{"action": "WARN", "severity": string(sev)}).Set(0)
	}

	count := func(findings []finding.Finding, action string) {
		for i := range findings {
			f := &findings[i]
			c.findingsTotal.With(prometheus.Labels{
				"action":   action,
				"severity": string(f.Severity),
			}).Inc()
			c.findingsByCat.With(prometheus.Labels{
				"category": string(f.Category),
				"action":   action,
			}).Inc()
		}
	}
	count(run.Verdict.Failures, "FAIL")
	count(run.Verdict.Warnings, "WARN")
}
