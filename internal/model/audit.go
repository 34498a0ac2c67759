package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions recorded by the store.
const (
	ActionCreate      = "CREATE_ISSUE"
	ActionUpdate      = "UPDATE"
	ActionLabelUpdate = "LABEL_UPDATE"
	ActionComment     = "COMMENT"
	ActionBulkUpdate  = "BULK_UPDATE"
	ActionImport      = "IMPORT"
)

// AuditLogEntry is a server-generated record of a change to an issue.
// Details holds the action's structured metadata verbatim.
type AuditLogEntry struct {
	ID        int
	IssueID   int
	Action    string
	Details   json.RawMessage
	CreatedAt time.Time
}

// auditJSON is the JSON wire format for AuditLogEntry.
type auditJSON struct {
	ID        int             `json:"id"`
	IssueID   int             `json:"issue_id"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details"`
	CreatedAt string          `json:"created_at"`
}

// MarshalJSON implements custom JSON serialization for AuditLogEntry.
func (a AuditLogEntry) MarshalJSON() ([]byte, error) {
	details := a.Details
	if len(details) == 0 {
		details = json.RawMessage("null")
	}
	return json.Marshal(auditJSON{
		ID:        a.ID,
		IssueID:   a.IssueID,
		Action:    a.Action,
		Details:   details,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON implements custom JSON deserialization for AuditLogEntry.
func (a *AuditLogEntry) UnmarshalJSON(data []byte) error {
	var j auditJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	a.ID = j.ID
	a.IssueID = j.IssueID
	a.Action = j.Action
	a.Details = j.Details

	createdAt, err := parseTimestamp(j.CreatedAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	a.CreatedAt = createdAt

	return nil
}

// DetailMap decodes Details as a JSON object. It returns nil when the entry
// carries no metadata or the metadata is not an object.
func (a AuditLogEntry) DetailMap() map[string]any {
	if len(a.Details) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(a.Details, &m); err != nil {
		return nil
	}
	return m
}
