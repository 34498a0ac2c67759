package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Comment is an append-only note on an issue.
type Comment struct {
	ID        int
	IssueID   int
	Body      string
	CreatedAt time.Time
}

// commentJSON is the JSON wire format for Comment.
type commentJSON struct {
	ID        int    `json:"id"`
	IssueID   int    `json:"issue_id,omitempty"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// MarshalJSON implements custom JSON serialization for Comment.
func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(commentJSON{
		ID:        c.ID,
		IssueID:   c.IssueID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON implements custom JSON deserialization for Comment.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var j commentJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	c.ID = j.ID
	c.IssueID = j.IssueID
	c.Body = j.Body

	createdAt, err := parseTimestamp(j.CreatedAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = createdAt

	return nil
}
