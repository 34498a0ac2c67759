package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// execer abstracts *sql.DB and *sql.Tx for executing statements.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// RecordAudit appends an audit entry for an issue. details is stored as JSON;
// nil stores no metadata.
func RecordAudit(ex execer, issueID int, action string, details any) error {
	var encoded any
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encoding audit details: %w", err)
		}
		encoded = string(b)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := ex.Exec(
		`INSERT INTO audit_logs (issue_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		issueID, action, encoded, now,
	)
	if err != nil {
		return fmt.Errorf("recording audit: %w", err)
	}
	return nil
}

// ListAuditLogs retrieves audit entries for an issue, most recent first.
// A positive limit caps the number returned.
func ListAuditLogs(db *sql.DB, issueID int, limit int) ([]model.AuditLogEntry, error) {
	if err := requireIssue(db, issueID); err != nil {
		return nil, err
	}

	query := `SELECT id, issue_id, action, details, created_at
	          FROM audit_logs
	          WHERE issue_id = ?
	          ORDER BY created_at DESC, id DESC`
	args := []any{issueID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditLogEntry, 0)
	for rows.Next() {
		var a model.AuditLogEntry
		var details sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.IssueID, &a.Action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		if details.Valid {
			a.Details = json.RawMessage(details.String)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}
