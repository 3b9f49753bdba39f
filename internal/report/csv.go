package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

var csvHeader = []string{
	"action", "ruleId", "category", "severity", "tool",
	"location", "line", "description", "remediation", "report",
}

// WriteCSV writes a run's blocking and warned findings as CSV rows to w.
func WriteCSV(w io.Writer, run gate.Run) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	write := func(findings []finding.Finding, action string) error {
		for i := range findings {
			f := &findings[i]
			line := ""
			if f.Line > 0 {
				line = strconv.Itoa(f.Line)
			}
			row := []string{
				action,
				f.RuleID,
				string(f.Category),
				string(f.Severity),
				f.Tool,
				f.Location,
				line,
				f.Description,
				f.Remediation,
				f.Report,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write(run.Verdict.Failures, "FAIL"); err != nil {
		return err
	}
	if err := write(run.Verdict.Warnings, "WARN"); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
