package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// TopAssignees counts issues per assigned user, busiest first. Users with no
// issues are omitted. A positive limit caps the number of rows.
func TopAssignees(db *sql.DB, limit int) ([]model.AssigneeCount, error) {
	query := `SELECT u.id, u.name, COUNT(i.id) AS issue_count
	          FROM users u
	          JOIN issues i ON i.assignee_id = u.id
	          GROUP BY u.id
	          ORDER BY issue_count DESC, u.name ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying top assignees: %w", err)
	}
	defer rows.Close()

	counts := make([]model.AssigneeCount, 0)
	for rows.Next() {
		var c model.AssigneeCount
		if err := rows.Scan(&c.UserID, &c.Name, &c.IssueCount); err != nil {
			return nil, fmt.Errorf("scanning assignee count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignee rows: %w", err)
	}

	return counts, nil
}

// ResolutionLatency averages the hours between creation and close over all
// closed issues. It reports zero when nothing has been closed.
func ResolutionLatency(db *sql.DB) (*model.ResolutionLatency, error) {
	rows, err := db.Query(`SELECT created_at, closed_at FROM issues WHERE closed_at IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying closed issues: %w", err)
	}
	defer rows.Close()

	var total time.Duration
	var n int
	for rows.Next() {
		var createdAt, closedAt string
		if err := rows.Scan(&createdAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scanning closed issue: %w", err)
		}
		created, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		closed, err := time.Parse(time.RFC3339, closedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing closed_at: %w", err)
		}
		total += closed.Sub(created)
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating closed issues: %w", err)
	}

	if n == 0 {
		return &model.ResolutionLatency{}, nil
	}
	return &model.ResolutionLatency{AverageHours: total.Hours() / float64(n)}, nil
}
