package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 1

// schemaDDL contains the CREATE TABLE statements for the issue store.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS users (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS labels (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS issues (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'OPEN',
	assignee_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	version     INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL,
	closed_at   TEXT
);

CREATE TABLE IF NOT EXISTS issue_labels (
	issue_id INTEGER REFERENCES issues(id) ON DELETE CASCADE,
	label_id INTEGER REFERENCES labels(id) ON DELETE CASCADE,
	PRIMARY KEY (issue_id, label_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id   INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id   INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	action     TEXT NOT NULL,
	details    TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_assignee_id ON issues(assignee_id);
CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues(created_at);
CREATE INDEX IF NOT EXISTS idx_issue_labels_label_id ON issue_labels(label_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_issue_id ON audit_logs(issue_id);
`

// Initialize creates the tables and records the schema version on first run.
// Running it against an existing database changes nothing.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion reads the schema version stored in meta.
func SchemaVersion(db *sql.DB) (int, error) {
	var raw string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("schema version %q is not a number: %w", raw, err)
	}
	return v, nil
}

// migrationStep upgrades the schema from version-1 to version.
type migrationStep struct {
	version int
	apply   func(tx *sql.Tx) error
}

// migrations lists upgrade steps in ascending version order. Version 1 is
// the baseline created by Initialize.
var migrations []migrationStep

// Migrate brings an initialized database up to currentSchemaVersion. A
// database written by a newer build is rejected rather than downgraded.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than this build supports (%d)", version, currentSchemaVersion)
	}

	for _, step := range migrations {
		if step.version <= version {
			continue
		}
		if err := runMigration(db, step); err != nil {
			return err
		}
	}
	return nil
}

func runMigration(db *sql.DB, step migrationStep) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", step.version, err)
	}
	defer tx.Rollback()

	if err := step.apply(tx); err != nil {
		return fmt.Errorf("migration %d: %w", step.version, err)
	}
	if _, err := tx.Exec(
		`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
		strconv.Itoa(step.version),
	); err != nil {
		return fmt.Errorf("migration %d: recording version: %w", step.version, err)
	}
	return tx.Commit()
}
