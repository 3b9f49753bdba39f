package gate

import "time"

// Run records one gate evaluation together with its CI provenance. It is
// the unit persisted to history, rendered in reports, and posted by
// notifiers.
type Run struct {
	At       time.Time     `json:"at"`
	Pipeline string        `json:"pipeline,omitempty"`
	Build    string        `json:"build,omitempty"`
	Commit   string        `json:"commit,omitempty"`
	Policy   string        `json:"policy,omitempty"`
	Reports  []string      `json:"reports,omitempty"`
	Findings int           `json:"findings"`
	Verdict  Verdict       `json:"verdict"`
	Duration time.Duration `json:"duration"`
}

// ExitCode returns the process exit code for a finished run.
//
//	0 = gate passed
//	1 = gate failed, or warnings present with strict set
//
// Malformed policies and findings never reach a Run; they surface as
// errors and the process exits 2.
func (r Run) ExitCode(strict bool) int {
	if !r.Verdict.Passed {
		return 1
	}
	if strict && len(r.Verdict.Warnings) > 0 {
		return 1
	}
	return 0
}
