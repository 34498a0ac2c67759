package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// ErrDuplicateName is returned when a label or user name is already taken.
var ErrDuplicateName = errors.New("name already exists")

// CreateLabel inserts a label and returns it. Names are unique.
func CreateLabel(db *sql.DB, name string) (*model.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.FieldError{Field: "name", Message: "label name is required"}
	}

	res, err := db.Exec(`INSERT INTO labels (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: label %q", ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("inserting label: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert id: %w", err)
	}

	return &model.Label{ID: int(id), Name: name}, nil
}

// EnsureLabel returns the label with the given name, creating it if needed.
func EnsureLabel(db *sql.DB, name string) (*model.Label, error) {
	var l model.Label
	err := db.QueryRow(`SELECT id, name FROM labels WHERE name = ?`, strings.TrimSpace(name)).Scan(&l.ID, &l.Name)
	if err == nil {
		return &l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying label: %w", err)
	}
	return CreateLabel(db, name)
}

// ListLabels returns every label along with the count of issues using it,
// sorted alphabetically by name.
func ListLabels(db *sql.DB) ([]*model.LabelWithCount, error) {
	rows, err := db.Query(
		`SELECT l.id, l.name, COUNT(il.issue_id) AS issue_count
		 FROM labels l
		 LEFT JOIN issue_labels il ON il.label_id = l.id
		 GROUP BY l.id
		 ORDER BY l.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	labels := make([]*model.LabelWithCount, 0)
	for rows.Next() {
		var lc model.LabelWithCount
		if err := rows.Scan(&lc.ID, &lc.Name, &lc.IssueCount); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		labels = append(labels, &lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating label rows: %w", err)
	}

	return labels, nil
}

// CreateUser inserts a user and returns it. Names are unique.
func CreateUser(db *sql.DB, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.FieldError{Field: "name", Message: "user name is required"}
	}

	res, err := db.Exec(`INSERT INTO users (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user %q", ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert id: %w", err)
	}

	return &model.User{ID: int(id), Name: name}, nil
}

// EnsureUser returns the user with the given name, creating it if needed.
func EnsureUser(db *sql.DB, name string) (*model.User, error) {
	var u model.User
	err := db.QueryRow(`SELECT id, name FROM users WHERE name = ?`, strings.TrimSpace(name)).Scan(&u.ID, &u.Name)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return CreateUser(db, name)
}

// ListUsers returns every user sorted by name.
func ListUsers(db *sql.DB) ([]*model.User, error) {
	rows, err := db.Query(`SELECT id, name FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
