// Package config loads scangate runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WebhookConfig is one webhook notification target.
type WebhookConfig struct {
	Type         string `yaml:"type"`         // "generic", "slack", "pagerduty", or "grafana"
	URL          string `yaml:"url"`          // unused for pagerduty, which has a fixed events endpoint
	RoutingKey   string `yaml:"routingKey"`   // pagerduty integration key
	APIKey       string `yaml:"apiKey"`       // grafana service account token
	DashboardUID string `yaml:"dashboardUID"` // grafana dashboard to annotate, empty = organization-wide
}

// EmailConfig is the SMTP notification target.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`     // default 587
	Username string   `yaml:"username"` // empty = no auth
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Insecure bool     `yaml:"insecure"` // skip STARTTLS, for trusted internal relays
}

// NotifyConfig selects where and when finished runs are announced.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
	Email    *EmailConfig    `yaml:"email"`
	OnPass   bool            `yaml:"onPass"`      // default false: only failed/warned runs notify
	MinRank  string          `yaml:"minSeverity"` // default "LOW"
}

// Config holds scangate runtime configuration.
type Config struct {
	Policy       string        `yaml:"policy"`       // default "rules.tsv"
	Strict       bool          `yaml:"strict"`       // warnings fail the gate
	Format       string        `yaml:"format"`       // default "table"
	HistoryDB    string        `yaml:"historyDB"`    // empty = no persistence
	Baseline     string        `yaml:"baseline"`     // empty = no baseline filter
	ListenAddr   string        `yaml:"listenAddr"`   // default ":8080"
	MetricsPath  string        `yaml:"metricsPath"`  // default "/metrics"
	RefreshEvery time.Duration `yaml:"refreshEvery"` // default 1m
	Notify       NotifyConfig  `yaml:"notify"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Policy:       "rules.tsv",
		Format:       "table",
		ListenAddr:   ":8080",
		MetricsPath:  "/metrics",
		RefreshEvery: time.Minute,
		Notify:       NotifyConfig{MinRank: "LOW"},
	}
}

// Load reads a YAML config file and merges with defaults.
func Load(path string) (*Config, error) {
	c := Defaults()
	b, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return c, nil
}

// Validate checks that the config values are sane.
func (c *Config) Validate() error {
	switch c.Format {
	case "table", "json", "none":
	default:
		return fmt.Errorf("format must be table, json, or none, got %q", c.Format)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr must not be empty")
	}
	if c.RefreshEvery < 5*time.Second {
		return fmt.Errorf("refreshEvery must be at least 5s, got %s", c.RefreshEvery)
	}
	for i, w := range c.Notify.Webhooks {
		switch w.Type {
		case "", "generic", "slack", "grafana":
			if w.URL == "" {
				return fmt.Errorf("webhook %d: url must not be empty", i+1)
			}
		case "pagerduty":
			if w.RoutingKey == "" {
				return fmt.Errorf("webhook %d: pagerduty needs a routingKey", i+1)
			}
		default:
			return fmt.Errorf("webhook %d: type must be generic, slack, pagerduty, or grafana, got %q", i+1, w.Type)
		}
	}
	if e := c.Notify.Email; e != nil {
		if e.Host == "" {
			return fmt.Errorf("email: host must not be empty")
		}
		if e.From == "" || len(e.To) == 0 {
			return fmt.Errorf("email: from and to must be set")
		}
	}
	return nil
}
