package history

import (
	"database/sql"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    at             DATETIME NOT NULL,
    pipeline       TEXT NOT NULL DEFAULT '',
    build          TEXT NOT NULL DEFAULT '',
    commit_sha     TEXT NOT NULL DEFAULT '',
    policy         TEXT NOT NULL DEFAULT '',
    passed         BOOLEAN NOT NULL DEFAULT 0,
    findings_count INTEGER NOT NULL DEFAULT 0,
    fail_count     INTEGER NOT NULL DEFAULT 0,
    warn_count     INTEGER NOT NULL DEFAULT 0,
    ignored_count  INTEGER NOT NULL DEFAULT 0,
    duration_ms    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_findings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER NOT NULL REFERENCES runs(id),
    rule_id     TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    severity    TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL DEFAULT '',
    tool        TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_findings_run ON run_findings(run_id);
CREATE INDEX IF NOT EXISTS idx_run_findings_rule ON run_findings(rule_id);
`

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// v2: record which report files fed each run (idempotent)
	for _, stmt := range []string{
		"ALTER TABLE runs ADD COLUMN reports TEXT NOT NULL DEFAULT '[]'",
	} {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumn(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	// SQLite returns "duplicate column name" when the column already exists.
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
