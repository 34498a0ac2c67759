package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned by UpdateIssue when the caller's version does
// not match the stored version.
var ErrVersionConflict = errors.New("version conflict")

// ErrInvalidReference is returned when a request names a label, user, or
// issue ID that does not exist.
var ErrInvalidReference = errors.New("invalid reference")

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

// querier abstracts *sql.DB and *sql.Tx for read queries.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// ListOptions holds the server-side filters for ListIssues.
type ListOptions struct {
	Status   string // exact status match when non-empty
	LabelIDs []int  // issue must carry at least one of these labels
}

const issueColumns = `i.id, i.title, i.description, i.status, i.version, i.created_at, i.closed_at, u.id, u.name`

const issueFrom = `FROM issues i LEFT JOIN users u ON u.id = i.assignee_id`

// CreateIssue inserts a new issue at the initial version and returns its ID.
// Labels are linked and the creation is audited within the same transaction.
func CreateIssue(db *sql.DB, draft model.Draft) (int, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if draft.AssigneeID != nil {
		if err := requireUser(tx, *draft.AssigneeID); err != nil {
			return 0, err
		}
	}
	if err := requireLabels(tx, draft.LabelIDs); err != nil {
		return 0, err
	}

	var closedAt any
	if draft.Status == model.StatusClosed {
		closedAt = now
	}

	res, err := tx.Exec(
		`INSERT INTO issues (title, description, status, assignee_id, version, created_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		draft.Title,
		draft.Description,
		string(draft.Status),
		nilIfZeroPtr(draft.AssigneeID),
		model.InitialVersion,
		now,
		closedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting issue: %w", err)
	}

	id64, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	id := int(id64)

	if err := linkLabels(tx, id, draft.LabelIDs); err != nil {
		return 0, err
	}

	if err := RecordAudit(tx, id, model.ActionCreate, map[string]any{"title": draft.Title}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return id, nil
}

// GetIssue retrieves an issue by ID with its assignee and labels.
func GetIssue(db *sql.DB, id int) (*model.Issue, error) {
	return getIssue(db, id)
}

func getIssue(q querier, id int) (*model.Issue, error) {
	row := q.QueryRow(`SELECT `+issueColumns+` `+issueFrom+` WHERE i.id = ?`, id)
	issue, err := scanIssueFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning issue: %w", err)
	}
	if err := hydrateLabels(q, []*model.Issue{issue}); err != nil {
		return nil, fmt.Errorf("hydrating labels: %w", err)
	}
	return issue, nil
}

// ListIssues retrieves issues matching the given filters, newest first.
func ListIssues(db *sql.DB, opts ListOptions) ([]*model.Issue, error) {
	var (
		whereClauses []string
		args         []any
	)

	if opts.Status != "" {
		whereClauses = append(whereClauses, "i.status = ?")
		args = append(args, opts.Status)
	}

	// Labels filter: OR logic, the issue must carry at least one label.
	if len(opts.LabelIDs) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM issue_labels il WHERE il.issue_id = i.id AND il.label_id IN (%s))",
			makePlaceholders(len(opts.LabelIDs)),
		))
		for _, id := range opts.LabelIDs {
			args = append(args, id)
		}
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY i.created_at DESC, i.id DESC`, issueColumns, issueFrom, whereSQL)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*model.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueRow(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issue rows: %w", err)
	}
	rows.Close()

	// Hydrate labels for all returned issues to avoid N+1 queries in callers.
	if err := hydrateLabels(db, issues); err != nil {
		return nil, fmt.Errorf("hydrating labels: %w", err)
	}

	return issues, nil
}

// UpdateIssue applies a version-checked update to an issue's core fields.
// It returns ErrVersionConflict, leaving the issue untouched, when
// update.Version differs from the stored version. On success the version is
// incremented by one and the change is audited with before/after values.
func UpdateIssue(db *sql.DB, id int, update model.IssueUpdate) (*model.Issue, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := getIssue(tx, id)
	if err != nil {
		return nil, err
	}
	if old.Version != update.Version {
		return nil, fmt.Errorf("%w: issue %s is at version %d, request carried %d",
			ErrVersionConflict, model.FormatID(id), old.Version, update.Version)
	}

	setClauses := []string{"version = version + 1"}
	var args []any
	after := make(map[string]any)

	if update.Title != nil {
		setClauses = append(setClauses, "title = ?")
		args = append(args, *update.Title)
		after["title"] = *update.Title
	}
	if update.Description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, *update.Description)
		after["description"] = *update.Description
	}
	if update.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*update.Status))
		after["status"] = string(*update.Status)

		clause, arg := closedAtClause(old.Status, *update.Status)
		if clause != "" {
			setClauses = append(setClauses, clause)
			args = append(args, arg)
		}
	}

	// The version predicate makes the compare-and-swap explicit even though
	// the read above already happened inside this transaction.
	args = append(args, id, update.Version)
	res, err := tx.Exec(
		fmt.Sprintf("UPDATE issues SET %s WHERE id = ? AND version = ?", strings.Join(setClauses, ", ")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}

	before := map[string]any{
		"title":       old.Title,
		"description": old.Description,
		"status":      string(old.Status),
	}
	if err := RecordAudit(tx, id, model.ActionUpdate, map[string]any{"before": before, "after": after}); err != nil {
		return nil, err
	}

	updated, err := getIssue(tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return updated, nil
}

// SetIssueLabels replaces the full label set of an issue. It is not version
// checked; the last write wins. The version still advances.
func SetIssueLabels(db *sql.DB, id int, labelIDs []int) (*model.Issue, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := getIssue(tx, id)
	if err != nil {
		return nil, err
	}

	labelIDs = dedupeInts(labelIDs)
	if err := requireLabels(tx, labelIDs); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM issue_labels WHERE issue_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clearing labels: %w", err)
	}
	if err := linkLabels(tx, id, labelIDs); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`UPDATE issues SET version = version + 1 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("bumping version: %w", err)
	}

	details := map[string]any{"before": old.LabelIDs(), "after": labelIDs}
	if err := RecordAudit(tx, id, model.ActionLabelUpdate, details); err != nil {
		return nil, err
	}

	updated, err := getIssue(tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return updated, nil
}

// BulkUpdate applies one status and/or label set to every listed issue in a
// single transaction. Unknown issue or label IDs fail the whole batch. Each
// touched issue's version advances regardless of the version it was at. A
// request with neither a status nor a label set is validated and then
// touches nothing.
func BulkUpdate(db *sql.DB, req model.BulkUpdate) (int, error) {
	ids := dedupeInts(req.IssueIDs)
	if req.Status != nil {
		if err := model.ValidateStatus(*req.Status); err != nil {
			return 0, &model.FieldError{Field: "status", Message: err.Error()}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	issues := make([]*model.Issue, 0, len(ids))
	for _, id := range ids {
		issue, err := getIssue(tx, id)
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("%w: issue %s not found", ErrInvalidReference, model.FormatID(id))
		}
		if err != nil {
			return 0, err
		}
		issues = append(issues, issue)
	}

	var labelIDs []int
	if req.LabelIDs != nil {
		labelIDs = dedupeInts(req.LabelIDs)
		if err := requireLabels(tx, labelIDs); err != nil {
			return 0, err
		}
	}

	if req.Status == nil && req.LabelIDs == nil {
		return 0, nil
	}

	for _, issue := range issues {
		setClauses := []string{"version = version + 1"}
		var args []any
		if req.Status != nil {
			setClauses = append(setClauses, "status = ?")
			args = append(args, string(*req.Status))
			clause, arg := closedAtClause(issue.Status, *req.Status)
			if clause != "" {
				setClauses = append(setClauses, clause)
				args = append(args, arg)
			}
		}
		args = append(args, issue.ID)
		if _, err := tx.Exec(
			fmt.Sprintf("UPDATE issues SET %s WHERE id = ?", strings.Join(setClauses, ", ")),
			args...,
		); err != nil {
			return 0, fmt.Errorf("updating issue %s: %w", model.FormatID(issue.ID), err)
		}

		if req.LabelIDs != nil {
			if _, err := tx.Exec(`DELETE FROM issue_labels WHERE issue_id = ?`, issue.ID); err != nil {
				return 0, fmt.Errorf("clearing labels: %w", err)
			}
			if err := linkLabels(tx, issue.ID, labelIDs); err != nil {
				return 0, err
			}
		}

		details := map[string]any{"status": req.Status, "label_ids": req.LabelIDs}
		if err := RecordAudit(tx, issue.ID, model.ActionBulkUpdate, details); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return len(issues), nil
}

// closedAtClause returns the SET fragment that keeps closed_at in step with a
// status change: stamped on the first move to CLOSED, cleared on any other.
func closedAtClause(from, to model.Status) (string, any) {
	switch {
	case to == model.StatusClosed && from != model.StatusClosed:
		return "closed_at = ?", time.Now().UTC().Format(time.RFC3339)
	case to != model.StatusClosed:
		return "closed_at = ?", nil
	default:
		return "", nil
	}
}

// CountIssues returns the total number of issues in the database.
func CountIssues(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM issues`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting issues: %w", err)
	}
	return count, nil
}

// --- helpers ---

// scanIssueFrom scans a single issue from any scanner (*sql.Row or *sql.Rows).
func scanIssueFrom(s scanner) (*model.Issue, error) {
	var i model.Issue
	var createdAt string
	var closedAt, assigneeName sql.NullString
	var assigneeID sql.NullInt64

	err := s.Scan(
		&i.ID, &i.Title, &i.Description, &i.Status, &i.Version,
		&createdAt, &closedAt, &assigneeID, &assigneeName,
	)
	if err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t

	if closedAt.Valid && closedAt.String != "" {
		t, err := time.Parse(time.RFC3339, closedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing closed_at: %w", err)
		}
		i.ClosedAt = &t
	}

	if assigneeID.Valid {
		i.Assignee = &model.User{ID: int(assigneeID.Int64), Name: assigneeName.String}
	}
	i.Labels = []model.Label{}

	return &i, nil
}

// scanIssueRow scans a single issue from a *sql.Rows cursor.
func scanIssueRow(rows *sql.Rows) (*model.Issue, error) {
	issue, err := scanIssueFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning issue row: %w", err)
	}
	return issue, nil
}

// hydrateLabels bulk-loads labels for a set of issues, populating each issue's
// Labels field ordered by name.
func hydrateLabels(q querier, issues []*model.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	ids := make([]any, len(issues))
	issueMap := make(map[int]*model.Issue, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
		issueMap[issue.ID] = issue
	}

	query := fmt.Sprintf(
		`SELECT il.issue_id, l.id, l.name FROM issue_labels il
		 JOIN labels l ON l.id = il.label_id
		 WHERE il.issue_id IN (%s)
		 ORDER BY l.name`, makePlaceholders(len(ids)),
	)

	rows, err := q.Query(query, ids...)
	if err != nil {
		return fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issueID int
		var l model.Label
		if err := rows.Scan(&issueID, &l.ID, &l.Name); err != nil {
			return fmt.Errorf("scanning label: %w", err)
		}
		if issue, ok := issueMap[issueID]; ok {
			issue.Labels = append(issue.Labels, l)
		}
	}
	return rows.Err()
}

// linkLabels attaches labelIDs to an issue. Callers validate the IDs first.
func linkLabels(tx *sql.Tx, issueID int, labelIDs []int) error {
	for _, labelID := range labelIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO issue_labels (issue_id, label_id) VALUES (?, ?)`,
			issueID, labelID,
		); err != nil {
			return fmt.Errorf("linking label %d: %w", labelID, err)
		}
	}
	return nil
}

// requireLabels returns ErrInvalidReference unless every ID names a label.
func requireLabels(q querier, labelIDs []int) error {
	ids := dedupeInts(labelIDs)
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var n int
	if err := q.QueryRow(
		fmt.Sprintf(`SELECT COUNT(*) FROM labels WHERE id IN (%s)`, makePlaceholders(len(ids))),
		args...,
	).Scan(&n); err != nil {
		return fmt.Errorf("checking labels: %w", err)
	}
	if n != len(ids) {
		return fmt.Errorf("%w: unknown label id in %v", ErrInvalidReference, ids)
	}
	return nil
}

// requireUser returns ErrInvalidReference unless id names a user.
func requireUser(q querier, id int) error {
	var exists bool
	if err := q.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: user %d not found", ErrInvalidReference, id)
	}
	return nil
}

// dedupeInts returns the distinct values of ids in ascending order.
func dedupeInts(ids []int) []int {
	if ids == nil {
		return nil
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// nilIfZeroPtr returns nil if p is nil, otherwise returns *p (for sql parameter binding).
func nilIfZeroPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// makePlaceholders returns "?, ?, ..." with n placeholders.
func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
