package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// IDPrefix is the prefix used for issue IDs in human-readable output.
const IDPrefix = "ISS"

// InitialVersion is the version the store assigns to a newly created issue.
const InitialVersion = 1

// Status represents the workflow state of an issue.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{
	StatusOpen,
	StatusInProgress,
	StatusClosed,
}

// ValidateStatus returns an error if s is not a recognized status.
func ValidateStatus(s Status) error {
	for _, v := range Statuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid status %q: must be one of %v", s, Statuses)
}

// ParseStatus normalizes user input ("in-progress", "closed") to a Status.
func ParseStatus(input string) (Status, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	status := Status(s)
	if err := ValidateStatus(status); err != nil {
		return "", err
	}
	return status, nil
}

// Color returns a color name string suitable for terminal rendering.
func (s Status) Color() string {
	switch s {
	case StatusOpen:
		return "blue"
	case StatusInProgress:
		return "yellow"
	case StatusClosed:
		return "green"
	default:
		return "white"
	}
}

// Icon returns a single-glyph marker for the status.
func (s Status) Icon() string {
	switch s {
	case StatusOpen:
		return "\u25cb" // ○
	case StatusInProgress:
		return "\u25d0" // ◐
	case StatusClosed:
		return "\u2714" // ✔
	default:
		return "?"
	}
}

// FormatID returns the display form of an issue ID, e.g. "ISS-5".
func FormatID(id int) string {
	return fmt.Sprintf("%s-%d", IDPrefix, id)
}

// ParseID accepts both "ISS-5" and "5" and returns the numeric ID.
func ParseID(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("empty issue ID")
	}

	prefix := IDPrefix + "-"
	if strings.HasPrefix(strings.ToUpper(s), prefix) {
		s = s[len(prefix):]
	}
	s = strings.TrimPrefix(s, "#")

	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid issue ID %q: %w", input, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid issue ID %q: must be positive", input)
	}

	return id, nil
}

// ParseIDs parses every input with ParseID, failing on the first bad value.
func ParseIDs(inputs []string) ([]int, error) {
	ids := make([]int, 0, len(inputs))
	for _, in := range inputs {
		id, err := ParseID(in)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Issue represents a tracked issue as held by the store.
type Issue struct {
	ID          int
	Title       string
	Description string
	Status      Status
	Assignee    *User
	Labels      []Label
	Version     int
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// LabelIDs returns the IDs of the issue's labels in ascending order.
func (i *Issue) LabelIDs() []int {
	ids := make([]int, len(i.Labels))
	for n, l := range i.Labels {
		ids[n] = l.ID
	}
	sort.Ints(ids)
	return ids
}

// LabelNames returns the names of the issue's labels in display order.
func (i *Issue) LabelNames() []string {
	names := make([]string, len(i.Labels))
	for n, l := range i.Labels {
		names[n] = l.Name
	}
	return names
}

// AssigneeName returns the assignee's display name or "" when unassigned.
func (i *Issue) AssigneeName() string {
	if i.Assignee == nil {
		return ""
	}
	return i.Assignee.Name
}

// issueJSON is the JSON wire format for Issue.
type issueJSON struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Version     int     `json:"version"`
	CreatedAt   string  `json:"created_at"`
	ClosedAt    *string `json:"closed_at"`
	Assignee    *User   `json:"assignee"`
	Labels      []Label `json:"labels"`
}

// MarshalJSON implements custom JSON serialization for Issue.
func (i Issue) MarshalJSON() ([]byte, error) {
	j := issueJSON{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Status:      string(i.Status),
		Version:     i.Version,
		CreatedAt:   i.CreatedAt.UTC().Format(time.RFC3339),
		Assignee:    i.Assignee,
		Labels:      i.Labels,
	}
	if j.Labels == nil {
		j.Labels = []Label{}
	}
	if i.ClosedAt != nil {
		closed := i.ClosedAt.UTC().Format(time.RFC3339)
		j.ClosedAt = &closed
	}

	return json.Marshal(j)
}

// UnmarshalJSON implements custom JSON deserialization for Issue.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var j issueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	i.ID = j.ID
	i.Title = j.Title
	i.Description = j.Description
	i.Status = Status(j.Status)
	if err := ValidateStatus(i.Status); err != nil {
		return err
	}
	i.Version = j.Version
	i.Assignee = j.Assignee
	i.Labels = j.Labels

	createdAt, err := parseTimestamp(j.CreatedAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = createdAt

	i.ClosedAt = nil
	if j.ClosedAt != nil && *j.ClosedAt != "" {
		closedAt, err := parseTimestamp(*j.ClosedAt)
		if err != nil {
			return fmt.Errorf("parsing closed_at: %w", err)
		}
		i.ClosedAt = &closedAt
	}

	return nil
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds and
// zone-less timestamps, which some stores emit.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Draft carries the fields of an issue to be created.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	LabelIDs    []int  `json:"label_ids"`
	AssigneeID  *int   `json:"assignee_id"`
}

// Validate checks the draft before it is sent to the store. Title and
// description are required; an empty status defaults to OPEN.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &FieldError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &FieldError{Field: "description", Message: "description is required"}
	}
	if d.Status == "" {
		d.Status = StatusOpen
	}
	if err := ValidateStatus(d.Status); err != nil {
		return &FieldError{Field: "status", Message: err.Error()}
	}
	if d.LabelIDs == nil {
		d.LabelIDs = []int{}
	}
	return nil
}

// IssueUpdate is the version-checked core-field update. Nil fields are left
// unchanged by the store.
type IssueUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Version     int     `json:"version"`
}

// Validate rejects updates that would blank a required field or set an
// unknown status.
func (u *IssueUpdate) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return &FieldError{Field: "title", Message: "title is required"}
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		return &FieldError{Field: "description", Message: "description is required"}
	}
	if u.Status != nil {
		if err := ValidateStatus(*u.Status); err != nil {
			return &FieldError{Field: "status", Message: err.Error()}
		}
	}
	if u.Version <= 0 {
		return &FieldError{Field: "version", Message: "version is required"}
	}
	return nil
}

// BulkUpdate applies one status and/or label set across many issues. Either
// change may be nil; the store treats a request with neither as a no-op.
type BulkUpdate struct {
	IssueIDs []int   `json:"issue_ids"`
	Status   *Status `json:"status"`
	LabelIDs []int   `json:"label_ids"`
}

// BulkResult is the store's aggregate answer to a bulk update.
type BulkResult struct {
	Updated int `json:"updated"`
}

// FieldError is a client-detected validation failure on a single field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }
