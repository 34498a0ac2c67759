package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// CreateComment appends a comment to an issue and returns it. The insert and
// the COMMENT audit entry are written in one transaction. Comments do not
// advance the issue's version.
func CreateComment(db *sql.DB, issueID int, body string) (*model.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, &model.FieldError{Field: "body", Message: "body required"}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Verify the issue exists.
	var exists bool
	if err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)", issueID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking issue existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()

	res, err := tx.Exec(
		`INSERT INTO comments (issue_id, body, created_at) VALUES (?, ?, ?)`,
		issueID, body, now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}

	id64, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert id: %w", err)
	}

	if err := RecordAudit(tx, issueID, model.ActionComment, map[string]any{"comment_id": id64}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &model.Comment{
		ID:        int(id64),
		IssueID:   issueID,
		Body:      body,
		CreatedAt: now.Truncate(time.Second),
	}, nil
}

// ListComments returns all comments for an issue, oldest first. It returns
// ErrNotFound when the issue does not exist.
func ListComments(db *sql.DB, issueID int) ([]*model.Comment, error) {
	if err := requireIssue(db, issueID); err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT id, issue_id, body, created_at FROM comments
		 WHERE issue_id = ?
		 ORDER BY created_at ASC, id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		c.CreatedAt = t
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}

	return comments, nil
}

// requireIssue returns ErrNotFound unless the issue exists.
func requireIssue(q querier, issueID int) error {
	var exists bool
	if err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)", issueID).Scan(&exists); err != nil {
		return fmt.Errorf("checking issue existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
