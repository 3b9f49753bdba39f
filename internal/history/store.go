// Package history provides persistent gate-run storage using SQLite.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
	"github.com/scangate/scangate/internal/policy"
)

// RunSummary is a compact representation of a stored gate run.
type RunSummary struct {
	ID            int64     `json:"id"`
	At            time.Time `json:"at"`
	Pipeline      string    `json:"pipeline,omitempty"`
	Build         string    `json:"build,omitempty"`
	Commit        string    `json:"commit,omitempty"`
	Passed        bool      `json:"passed"`
	FindingsCount int       `json:"findingsCount"`
	FailCount     int       `json:"failCount"`
	WarnCount     int       `json:"warnCount"`
	IgnoredCount  int       `json:"ignoredCount"`
	DurationMS    int64     `json:"durationMs"`
}

// TrendPoint is one occurrence of a rule across stored runs.
type TrendPoint struct {
	At       time.Time `json:"at"`
	Severity string    `json:"severity"`
	Action   string    `json:"action"`
	Pipeline string    `json:"pipeline,omitempty"`
}

// Store persists gate runs and their findings to SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a run with its blocking and warned findings. Ignored
// findings are stored as a count only.
func (s *Store) Save(run gate.Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // commit below; rollback is no-op after commit

	reports, err := json.Marshal(run.Reports)
	if err != nil {
		return fmt.Errorf("encoding report list: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO runs (at, pipeline, build, commit_sha, policy, passed,
		 findings_count, fail_count, warn_count, ignored_count, duration_ms, reports)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.At, run.Pipeline, run.Build, run.Commit, run.Policy, run.Verdict.Passed,
		run.Findings, len(run.Verdict.Failures), len(run.Verdict.Warnings),
		run.Verdict.Ignored, run.Duration.Milliseconds(), string(reports),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting run id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_findings (run_id, rule_id, category, severity, action, tool, location, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing finding insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // statement lifetime bounded by tx

	insert := func(findings []finding.Finding, action policy.Action) error {
		for i := range findings {
			f := &findings[i]
			_, err := stmt.Exec(runID, f.RuleID, f.Category, f.Severity, action, f.Tool, f.Location, f.Description)
			if err != nil {
				return fmt.Errorf("inserting finding: %w", err)
			}
		}
		return nil
	}
	if err := insert(run.Verdict.Failures, policy.ActionFail); err != nil {
		return err
	}
	if err := insert(run.Verdict.Warnings, policy.ActionWarn); err != nil {
		return err
	}

	return tx.Commit()
}

// List returns the most recent run summaries, ordered newest first.
func (s *Store) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(
		`SELECT id, at, pipeline, build, commit_sha, passed,
		 findings_count, fail_count, warn_count, ignored_count, duration_ms
		 FROM runs ORDER BY at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var summaries []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.At, &r.Pipeline, &r.Build, &r.Commit, &r.Passed,
			&r.FindingsCount, &r.FailCount, &r.WarnCount, &r.IgnoredCount, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// Trend returns occurrences of a rule across stored runs, newest first.
func (s *Store) Trend(ruleID string, limit int) ([]TrendPoint, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT r.at, f.severity, f.action, r.pipeline
		FROM run_findings f
		JOIN runs r ON r.id = f.run_id
		WHERE f.rule_id = ?
		ORDER BY r.at DESC, r.id DESC
		LIMIT ?`,
		ruleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trend: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.At, &p.Severity, &p.Action, &p.Pipeline); err != nil {
			return nil, fmt.Errorf("scanning trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Latest returns the most recent run with its findings, or nil if no runs
// exist.
func (s *Store) Latest() (*gate.Run, error) {
	var (
		runID      int64
		run        gate.Run
		durationMS int64
		reports    string
	)
	err := s.db.QueryRow(
		`SELECT id, at, pipeline, build, commit_sha, policy, passed,
		 findings_count, ignored_count, duration_ms, reports
		 FROM runs ORDER BY at DESC, id DESC LIMIT 1`,
	).Scan(&runID, &run.At, &run.Pipeline, &run.Build, &run.Commit, &run.Policy,
		&run.Verdict.Passed, &run.Findings, &run.Verdict.Ignored, &durationMS, &reports)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(reports), &run.Reports); err != nil {
		return nil, fmt.Errorf("decoding report list: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT rule_id, category, severity, action, tool, location, description
		 FROM run_findings WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	for rows.Next() {
		var f finding.Finding
		var action string
		if err := rows.Scan(&f.RuleID, &f.Category, &f.Severity, &action, &f.Tool, &f.Location, &f.Description); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		switch policy.Action(action) {
		case policy.ActionFail:
			run.Verdict.Failures = append(run.Verdict.Failures, f)
		case policy.ActionWarn:
			run.Verdict.Warnings = append(run.Verdict.Warnings, f)
		}
	}
	return &run, rows.Err()
}
