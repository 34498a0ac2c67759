package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFormatID(t *testing.T) {
	if got := FormatID(5); got != "ISS-5" {
		t.Errorf("FormatID(5) = %q, want %q", got, "ISS-5")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"ISS-5", 5, false},
		{"iss-5", 5, false},
		{"5", 5, false},
		{"#42", 42, false},
		{"", 0, true},
		{"ISS-", 0, true},
		{"abc", 0, true},
		{"ISS-0", 0, true},
		{"-3", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseIDsStopsAtFirstBadValue(t *testing.T) {
	if _, err := ParseIDs([]string{"1", "x", "3"}); err == nil {
		t.Fatal("ParseIDs expected error for 'x'")
	}
	ids, err := ParseIDs([]string{"ISS-3", "7", "9"})
	if err != nil {
		t.Fatalf("ParseIDs error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 7 || ids[2] != 9 {
		t.Errorf("ParseIDs = %v, want [3 7 9]", ids)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"OPEN", StatusOpen, false},
		{"open", StatusOpen, false},
		{"in-progress", StatusInProgress, false},
		{"In Progress", StatusInProgress, false},
		{"IN_PROGRESS", StatusInProgress, false},
		{"closed", StatusClosed, false},
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStatusColor(t *testing.T) {
	if c := StatusClosed.Color(); c != "green" {
		t.Errorf("StatusClosed.Color() = %q, want %q", c, "green")
	}
	if c := StatusInProgress.Color(); c != "yellow" {
		t.Errorf("StatusInProgress.Color() = %q, want %q", c, "yellow")
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name      string
		draft     Draft
		wantField string
	}{
		{"valid", Draft{Title: "Login bug", Description: "Cannot log in"}, ""},
		{"missing title", Draft{Description: "Cannot log in"}, "title"},
		{"blank title", Draft{Title: "   ", Description: "x"}, "title"},
		{"missing description", Draft{Title: "Login bug"}, "description"},
		{"bad status", Draft{Title: "a", Description: "b", Status: "DONE"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Validate() error = %v, want *FieldError", err)
			}
			if fe.Field != tt.wantField {
				t.Errorf("FieldError.Field = %q, want %q", fe.Field, tt.wantField)
			}
		})
	}
}

func TestDraftValidateDefaults(t *testing.T) {
	d := Draft{Title: "Login bug", Description: "Cannot log in"}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if d.Status != StatusOpen {
		t.Errorf("Status = %q, want %q", d.Status, StatusOpen)
	}
	if d.LabelIDs == nil {
		t.Error("LabelIDs = nil, want empty slice so the wire carries []")
	}
}

func TestIssueUpdateValidate(t *testing.T) {
	empty := ""
	bad := Status("DONE")
	if err := (&IssueUpdate{Title: &empty, Version: 1}).Validate(); err == nil {
		t.Error("expected error for blank title")
	}
	if err := (&IssueUpdate{Status: &bad, Version: 1}).Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := (&IssueUpdate{}).Validate(); err == nil {
		t.Error("expected error for missing version")
	}
	closed := StatusClosed
	if err := (&IssueUpdate{Status: &closed, Version: 3}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIssueJSONRoundTrip(t *testing.T) {
	created := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	closed := created.Add(5 * time.Hour)
	issue := Issue{
		ID:          5,
		Title:       "Fix the bug",
		Description: "Something is broken",
		Status:      StatusClosed,
		Assignee:    &User{ID: 2, Name: "alice"},
		Labels:      []Label{{ID: 1, Name: "bug"}},
		Version:     3,
		CreatedAt:   created,
		ClosedAt:    &closed,
	}

	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if raw["id"] != float64(5) {
		t.Errorf("JSON id = %v, want 5", raw["id"])
	}
	if raw["version"] != float64(3) {
		t.Errorf("JSON version = %v, want 3", raw["version"])
	}

	var issue2 Issue
	if err := json.Unmarshal(data, &issue2); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if issue2.Version != 3 || issue2.Status != StatusClosed {
		t.Errorf("Unmarshaled version/status = %d/%q", issue2.Version, issue2.Status)
	}
	if issue2.ClosedAt == nil || !issue2.ClosedAt.Equal(closed) {
		t.Errorf("Unmarshaled ClosedAt = %v, want %v", issue2.ClosedAt, closed)
	}
	if issue2.AssigneeName() != "alice" {
		t.Errorf("AssigneeName() = %q, want alice", issue2.AssigneeName())
	}
}

func TestIssueJSONRejectsUnknownStatus(t *testing.T) {
	data := []byte(`{"id":1,"title":"t","description":"d","status":"DONE","version":1,"created_at":"2026-01-01T00:00:00Z","labels":[]}`)
	var issue Issue
	if err := json.Unmarshal(data, &issue); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestIssueJSONAcceptsZonelessTimestamps(t *testing.T) {
	data := []byte(`{"id":1,"title":"t","description":"d","status":"OPEN","version":1,"created_at":"2026-01-01T10:20:30.123456","closed_at":null,"assignee":null,"labels":[]}`)
	var issue Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if issue.CreatedAt.Hour() != 10 {
		t.Errorf("CreatedAt = %v, want hour 10", issue.CreatedAt)
	}
	if issue.ClosedAt != nil {
		t.Errorf("ClosedAt = %v, want nil", issue.ClosedAt)
	}
}

func TestIssueLabelIDsSorted(t *testing.T) {
	issue := Issue{Labels: []Label{{ID: 9, Name: "z"}, {ID: 2, Name: "a"}}}
	ids := issue.LabelIDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 9 {
		t.Errorf("LabelIDs() = %v, want [2 9]", ids)
	}
}

func TestBulkUpdateJSONNullableFields(t *testing.T) {
	data, err := json.Marshal(BulkUpdate{IssueIDs: []int{3, 7}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if v, ok := raw["status"]; !ok || v != nil {
		t.Errorf("status = %v (present %v), want explicit null", v, ok)
	}
	if v, ok := raw["label_ids"]; !ok || v != nil {
		t.Errorf("label_ids = %v (present %v), want explicit null", v, ok)
	}
}

func TestCommentJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	comment := Comment{ID: 3, IssueID: 5, Body: "Looks good", CreatedAt: now}

	data, err := json.Marshal(comment)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var comment2 Comment
	if err := json.Unmarshal(data, &comment2); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if comment2.ID != 3 || comment2.IssueID != 5 || comment2.Body != "Looks good" {
		t.Errorf("Unmarshaled comment = %+v", comment2)
	}
}

func TestAuditLogEntryDetailMap(t *testing.T) {
	entry := AuditLogEntry{Action: ActionCreate, Details: json.RawMessage(`{"title":"Login bug"}`)}
	m := entry.DetailMap()
	if m["title"] != "Login bug" {
		t.Errorf("DetailMap()[title] = %v, want Login bug", m["title"])
	}
	if (AuditLogEntry{}).DetailMap() != nil {
		t.Error("DetailMap() on empty details should be nil")
	}
}

func TestImportOutcomeHelpers(t *testing.T) {
	o := ImportOutcome{Created: 4, Failed: 1, Errors: []RowFailure{{Row: 3, Error: "title required"}}}
	if !o.Partial() {
		t.Error("Partial() = false, want true")
	}
	if !o.Consistent() {
		t.Error("Consistent() = false, want true")
	}
	o.Failed = 2
	if o.Consistent() {
		t.Error("Consistent() = true with mismatched counts")
	}
}
