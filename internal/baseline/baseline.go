// Package baseline records an accepted finding set and classifies later
// scans against it, so a pre-existing backlog does not block deploys.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/scangate/scangate/internal/finding"
)

// Baseline is a recorded set of accepted findings. Findings are matched by
// their composite key (tool, rule id, location), never by line number.
type Baseline struct {
	SavedAt  time.Time         `json:"savedAt"`
	Pipeline string            `json:"pipeline,omitempty"`
	Findings []finding.Finding `json:"findings"`
}

// New builds a baseline from the current finding set.
func New(findings []finding.Finding) Baseline {
	return Baseline{SavedAt: time.Now().UTC(), Findings: findings}
}

// Diff is the classification of a scan against a baseline.
type Diff struct {
	// New findings are absent from the baseline; these gate the deploy.
	New []finding.Finding `json:"new"`
	// Known findings were already accepted.
	Known []finding.Finding `json:"known"`
	// Resolved findings are in the baseline but no longer reported.
	Resolved []finding.Finding `json:"resolved"`
}

// Classify splits current findings into new and known, and reports baseline
// entries that no longer occur as resolved. Input order is preserved within
// each class.
func (b Baseline) Classify(current []finding.Finding) Diff {
	accepted := make(map[string]bool, len(b.Findings))
	for i := range b.Findings {
		accepted[b.Findings[i].Key()] = true
	}

	var d Diff
	seen := make(map[string]bool, len(current))
	for _, f := range current {
		seen[f.Key()] = true
		if accepted[f.Key()] {
			d.Known = append(d.Known, f)
		} else {
			d.New = append(d.New, f)
		}
	}
	for _, f := range b.Findings {
		if !seen[f.Key()] {
			d.Resolved = append(d.Resolved, f)
		}
	}
	return d
}

// Load reads a baseline file written by Save.
func Load(path string) (Baseline, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided baseline path
	if err != nil {
		return Baseline{}, fmt.Errorf("reading baseline: %w", err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return Baseline{}, fmt.Errorf("parsing baseline %s: %w", path, err)
	}
	return b, nil
}

// Save writes the baseline as indented JSON.
func (b Baseline) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // shared CI artifact
		return fmt.Errorf("writing baseline: %w", err)
	}
	return nil
}
