// Package ingest parses scanner report files into normalized findings.
//
// Four report shapes are understood: Trivy JSON (schema 2), ZAP traditional
// JSON, SonarQube issue search exports, and SARIF 2.1.0. Detect sniffs the
// shape so callers rarely need to name the tool.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scangate/scangate/internal/finding"
)

// Format identifies a supported report shape.
type Format string

const (
	FormatTrivy     Format = "trivy"
	FormatZAP       Format = "zap"
	FormatSonarQube Format = "sonarqube"
	FormatSARIF     Format = "sarif"
)

// Option adjusts how a report is ingested.
type Option func(*options)

type options struct {
	category finding.Category // override, empty means per-format default
	format   Format           // skip detection when set
}

// WithCategory forces every finding from the report into cat. SARIF reports
// carry no scan-class of their own and default to SAST without it.
func WithCategory(cat finding.Category) Option {
	return func(o *options) { o.category = cat }
}

// WithFormat skips shape detection and parses the report as f.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// File reads one report file, detects its shape, and returns its findings
// with the Report field set to path.
func File(path string, opts ...Option) ([]finding.Finding, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path) //nolint:gosec // user-provided report path
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	format := o.format
	if format == "" {
		format, err = Detect(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var findings []finding.Finding
	switch format {
	case FormatTrivy:
		findings, err = ParseTrivy(data)
	case FormatZAP:
		findings, err = ParseZAP(data)
	case FormatSonarQube:
		findings, err = ParseSonarQube(data)
	case FormatSARIF:
		cat := o.category
		if cat == "" {
			cat = finding.CategorySAST
		}
		findings, err = ParseSARIF(data, cat)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for i := range findings {
		findings[i].Report = path
		if o.category != "" {
			findings[i].Category = o.category
		}
	}
	return findings, nil
}

// Files ingests every path in order and merges the findings, preserving
// per-file order.
func Files(paths []string, opts ...Option) ([]finding.Finding, error) {
	var merged []finding.Finding
	for _, path := range paths {
		fs, err := File(path, opts...)
		if err != nil {
			return nil, err
		}
		merged = append(merged, fs...)
	}
	return merged, nil
}

// Detect sniffs which tool produced a report by its JSON shape.
func Detect(data []byte) (Format, error) {
	var probe struct {
		// Trivy
		SchemaVersion int             `json:"SchemaVersion"`
		Results       json.RawMessage `json:"Results"`
		// ZAP traditional JSON
		ProgramName string          `json:"@programName"`
		Site        json.RawMessage `json:"site"`
		// SonarQube issue search
		Issues json.RawMessage `json:"issues"`
		Paging json.RawMessage `json:"paging"`
		// SARIF
		Version string          `json:"version"`
		Schema  string          `json:"$schema"`
		Runs    json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("not a JSON report: %w", err)
	}

	switch {
	case probe.SchemaVersion > 0 && probe.Results != nil:
		return FormatTrivy, nil
	case probe.Site != nil && probe.ProgramName != "":
		return FormatZAP, nil
	case probe.Runs != nil && (probe.Version != "" || probe.Schema != ""):
		return FormatSARIF, nil
	case probe.Issues != nil && probe.Paging != nil:
		return FormatSonarQube, nil
	}
	return "", fmt.Errorf("unrecognized report shape")
}
