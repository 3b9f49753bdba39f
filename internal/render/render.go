// Package render formats finished gate runs for terminal and pipe output.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

var (
	critStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim gray
)

// Table renders a run as column-aligned text for terminal output. Styling
// wraps whole lines so the column widths are computed on plain text; lipgloss
// drops the escape codes when stdout is not a terminal.
func Table(run gate.Run) string {
	var b strings.Builder

	banner := run.Verdict.Summary()
	switch {
	case !run.Verdict.Passed:
		banner = critStyle.Render(banner)
	case len(run.Verdict.Warnings) > 0:
		banner = warnStyle.Render(banner)
	}
	b.WriteString(banner)
	b.WriteByte('\n')

	if meta := metaLine(run); meta != "" {
		b.WriteString(dimStyle.Render(meta))
		b.WriteByte('\n')
	}

	if len(run.Verdict.Failures) == 0 && len(run.Verdict.Warnings) == 0 {
		b.WriteString(dimStyle.Render("No blocking or warned findings."))
		b.WriteByte('\n')
		return b.String()
	}

	b.WriteByte('\n')
	fmt.Fprintf(&b, "%-6s %-9s %-20s %-11s %-12s %-28s %s\n",
		"ACTION", "SEVERITY", "RULE", "CATEGORY", "TOOL", "LOCATION", "DESCRIPTION")
	fmt.Fprintf(&b, "%-6s %-9s %-20s %-11s %-12s %-28s %s\n",
		"------", "--------", "----", "--------", "----", "--------", "-----------")
	for i := range run.Verdict.Failures {
		b.WriteString(critStyle.Render(findingRow("FAIL", &run.Verdict.Failures[i])))
		b.WriteByte('\n')
	}
	for i := range run.Verdict.Warnings {
		b.WriteString(warnStyle.Render(findingRow("WARN", &run.Verdict.Warnings[i])))
		b.WriteByte('\n')
	}
	return b.String()
}

// findingRow formats one finding as a plain-text table row (no ANSI).
// Styling happens on the finished line so padding stays correct.
func findingRow(action string, f *finding.Finding) string {
	return fmt.Sprintf("%-6s %-9s %-20s %-11s %-12s %-28s %s",
		action,
		f.Severity,
		truncate(f.RuleID, 20),
		f.Category,
		truncate(f.Tool, 12),
		truncate(f.Location, 28),
		f.Description)
}

// metaLine summarizes the run's provenance in one dim line under the banner.
func metaLine(run gate.Run) string {
	var parts []string
	if run.Pipeline != "" {
		p := run.Pipeline
		if run.Build != "" {
			p += " #" + run.Build
		}
		parts = append(parts, p)
	}
	if run.Commit != "" {
		parts = append(parts, "commit "+run.Commit)
	}
	if run.Policy != "" {
		parts = append(parts, "policy "+run.Policy)
	}
	if !run.At.IsZero() {
		parts = append(parts, run.At.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return strings.Join(parts, " · ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
