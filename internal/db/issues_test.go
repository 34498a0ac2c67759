package db

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// createTestIssue is a helper that creates an issue with the given title and
// status and no labels.
func createTestIssue(t *testing.T, conn *sql.DB, title string, status model.Status) int {
	t.Helper()
	id, err := CreateIssue(conn, model.Draft{Title: title, Description: title + " description", Status: status})
	if err != nil {
		t.Fatalf("CreateIssue(%q): %v", title, err)
	}
	return id
}

func statusPtr(s model.Status) *model.Status { return &s }

func strPtr(s string) *string { return &s }

func TestCreateThenGetMatchesDraft(t *testing.T) {
	db := mustOpen(t)
	bug, _ := CreateLabel(db, "bug")
	alice, _ := CreateUser(db, "alice")

	draft := model.Draft{
		Title:       "Login bug",
		Description: "Cannot log in",
		Status:      model.StatusOpen,
		LabelIDs:    []int{bug.ID},
		AssigneeID:  &alice.ID,
	}
	id, err := CreateIssue(db, draft)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}

	got, err := GetIssue(db, id)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Version != model.InitialVersion {
		t.Errorf("Version = %d, want %d", got.Version, model.InitialVersion)
	}
	if got.Title != "Login bug" || got.Description != "Cannot log in" || got.Status != model.StatusOpen {
		t.Errorf("fields = %q/%q/%q", got.Title, got.Description, got.Status)
	}
	if got.AssigneeName() != "alice" {
		t.Errorf("assignee = %q, want alice", got.AssigneeName())
	}
	if ids := got.LabelIDs(); len(ids) != 1 || ids[0] != bug.ID {
		t.Errorf("labels = %v, want [%d]", ids, bug.ID)
	}
	if got.ClosedAt != nil {
		t.Errorf("ClosedAt = %v, want nil", got.ClosedAt)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	db := mustOpen(t)
	ghost := 42

	_, err := CreateIssue(db, model.Draft{Title: "a", Description: "b", LabelIDs: []int{7}})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown label error = %v, want ErrInvalidReference", err)
	}
	_, err = CreateIssue(db, model.Draft{Title: "a", Description: "b", AssigneeID: &ghost})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown assignee error = %v, want ErrInvalidReference", err)
	}
	if n, _ := CountIssues(db); n != 0 {
		t.Errorf("CountIssues = %d after rejected creates, want 0", n)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	db := mustOpen(t)
	if _, err := GetIssue(db, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetIssue(99) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateVersionScenario(t *testing.T) {
	db := mustOpen(t)
	id := createTestIssue(t, db, "Login bug", model.StatusOpen)

	updated, err := UpdateIssue(db, id, model.IssueUpdate{Status: statusPtr(model.StatusInProgress), Version: 1})
	if err != nil {
		t.Fatalf("UpdateIssue v1: %v", err)
	}
	if updated.Version != 2 || updated.Status != model.StatusInProgress {
		t.Fatalf("after update = v%d %s, want v2 IN_PROGRESS", updated.Version, updated.Status)
	}

	_, err = UpdateIssue(db, id, model.IssueUpdate{Status: statusPtr(model.StatusClosed), Version: 1})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update error = %v, want ErrVersionConflict", err)
	}

	got, err := GetIssue(db, id)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Version != 2 || got.Status != model.StatusInProgress {
		t.Errorf("after conflict = v%d %s, want v2 IN_PROGRESS", got.Version, got.Status)
	}
}

func TestUpdateClosedAtTracksStatus(t *testing.T) {
	db := mustOpen(t)
	id := createTestIssue(t, db, "a", model.StatusOpen)

	closed, err := UpdateIssue(db, id, model.IssueUpdate{Status: statusPtr(model.StatusClosed), Version: 1})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatal("ClosedAt = nil after closing")
	}

	renamed, err := UpdateIssue(db, id, model.IssueUpdate{Title: strPtr("b"), Version: 2})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.ClosedAt == nil {
		t.Error("ClosedAt cleared by an update that did not change status")
	}

	reopened, err := UpdateIssue(db, id, model.IssueUpdate{Status: statusPtr(model.StatusOpen), Version: 3})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.ClosedAt != nil {
		t.Errorf("ClosedAt = %v after reopening, want nil", reopened.ClosedAt)
	}
}

func TestUpdateRecordsAudit(t *testing.T) {
	db := mustOpen(t)
	id := createTestIssue(t, db, "a", model.StatusOpen)

	if _, err := UpdateIssue(db, id, model.IssueUpdate{Title: strPtr("renamed"), Version: 1}); err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}

	entries, err := ListAuditLogs(db, id, 0)
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0].Action != model.ActionUpdate || entries[1].Action != model.ActionCreate {
		t.Errorf("actions = %s, %s; want UPDATE, CREATE_ISSUE", entries[0].Action, entries[1].Action)
	}
	after, _ := entries[0].DetailMap()["after"].(map[string]any)
	if after["title"] != "renamed" {
		t.Errorf("UPDATE after = %v, want title renamed", after)
	}
}

func TestSetIssueLabelsBumpsVersion(t *testing.T) {
	db := mustOpen(t)
	bug, _ := CreateLabel(db, "bug")
	ui, _ := CreateLabel(db, "ui")
	id := createTestIssue(t, db, "a", model.StatusOpen)

	got, err := SetIssueLabels(db, id, []int{ui.ID, bug.ID, ui.ID})
	if err != nil {
		t.Fatalf("SetIssueLabels: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}
	if names := strings.Join(got.LabelNames(), ","); names != "bug,ui" {
		t.Errorf("labels = %q, want bug,ui", names)
	}

	got, err = SetIssueLabels(db, id, []int{})
	if err != nil {
		t.Fatalf("SetIssueLabels(empty): %v", err)
	}
	if len(got.Labels) != 0 {
		t.Errorf("labels after clearing = %v", got.Labels)
	}

	if _, err := SetIssueLabels(db, id, []int{999}); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown label error = %v, want ErrInvalidReference", err)
	}
	if _, err := SetIssueLabels(db, 999, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown issue error = %v, want ErrNotFound", err)
	}
}

func TestListIssuesFilters(t *testing.T) {
	db := mustOpen(t)
	bug, _ := CreateLabel(db, "bug")
	ui, _ := CreateLabel(db, "ui")
	docs, _ := CreateLabel(db, "docs")

	a := createTestIssue(t, db, "a", model.StatusOpen)
	b := createTestIssue(t, db, "b", model.StatusOpen)
	c := createTestIssue(t, db, "c", model.StatusClosed)
	SetIssueLabels(db, a, []int{bug.ID})
	SetIssueLabels(db, b, []int{ui.ID})
	SetIssueLabels(db, c, []int{bug.ID, docs.ID})

	tests := []struct {
		name string
		opts ListOptions
		want []int
	}{
		{"all newest first", ListOptions{}, []int{c, b, a}},
		{"status", ListOptions{Status: "OPEN"}, []int{b, a}},
		{"any label", ListOptions{LabelIDs: []int{ui.ID, docs.ID}}, []int{c, b}},
		{"status and label", ListOptions{Status: "OPEN", LabelIDs: []int{bug.ID}}, []int{a}},
		{"label order irrelevant", ListOptions{LabelIDs: []int{docs.ID, ui.ID}}, []int{c, b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := ListIssues(db, tt.opts)
			if err != nil {
				t.Fatalf("ListIssues: %v", err)
			}
			if len(issues) != len(tt.want) {
				t.Fatalf("got %d issues, want %d", len(issues), len(tt.want))
			}
			for i, issue := range issues {
				if issue.ID != tt.want[i] {
					t.Errorf("issues[%d] = %d, want %d", i, issue.ID, tt.want[i])
				}
			}
		})
	}
}

func TestBulkUpdateScenario(t *testing.T) {
	db := mustOpen(t)
	ids := make([]int, 9)
	for i := range ids {
		ids[i] = createTestIssue(t, db, "issue", model.StatusOpen)
	}

	n, err := BulkUpdate(db, model.BulkUpdate{IssueIDs: []int{3, 7, 9}, Status: statusPtr(model.StatusClosed)})
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if n != 3 {
		t.Errorf("updated = %d, want 3", n)
	}

	for _, id := range ids {
		got, err := GetIssue(db, id)
		if err != nil {
			t.Fatalf("GetIssue(%d): %v", id, err)
		}
		inSet := id == 3 || id == 7 || id == 9
		if inSet && (got.Status != model.StatusClosed || got.Version != 2 || got.ClosedAt == nil) {
			t.Errorf("issue %d = %s v%d, want CLOSED v2", id, got.Status, got.Version)
		}
		if !inSet && (got.Status != model.StatusOpen || got.Version != 1) {
			t.Errorf("issue %d changed: %s v%d", id, got.Status, got.Version)
		}
	}
}

func TestBulkUpdateFailsWholeBatch(t *testing.T) {
	db := mustOpen(t)
	a := createTestIssue(t, db, "a", model.StatusOpen)

	_, err := BulkUpdate(db, model.BulkUpdate{IssueIDs: []int{a, 404}, Status: statusPtr(model.StatusClosed)})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
	_, err = BulkUpdate(db, model.BulkUpdate{IssueIDs: []int{a}, LabelIDs: []int{5}})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("unknown label error = %v, want ErrInvalidReference", err)
	}

	got, _ := GetIssue(db, a)
	if got.Status != model.StatusOpen || got.Version != 1 {
		t.Errorf("issue changed by failed batch: %s v%d", got.Status, got.Version)
	}
}

func TestBulkUpdateLabelsOnly(t *testing.T) {
	db := mustOpen(t)
	bug, _ := CreateLabel(db, "bug")
	a := createTestIssue(t, db, "a", model.StatusInProgress)

	if _, err := BulkUpdate(db, model.BulkUpdate{IssueIDs: []int{a}, LabelIDs: []int{bug.ID}}); err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	got, _ := GetIssue(db, a)
	if got.Status != model.StatusInProgress {
		t.Errorf("status = %s, want unchanged IN_PROGRESS", got.Status)
	}
	if len(got.Labels) != 1 || got.Labels[0].ID != bug.ID {
		t.Errorf("labels = %v, want [bug]", got.Labels)
	}
}

func TestBulkUpdateWithoutChangesIsNoOp(t *testing.T) {
	db := mustOpen(t)
	a := createTestIssue(t, db, "a", model.StatusOpen)

	n, err := BulkUpdate(db, model.BulkUpdate{IssueIDs: []int{a}})
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if n != 0 {
		t.Errorf("updated = %d, want 0", n)
	}

	got, _ := GetIssue(db, a)
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	entries, err := ListAuditLogs(db, a, 0)
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != model.ActionCreate {
		t.Errorf("audit entries = %v, want only the create entry", entries)
	}

	if _, err := BulkUpdate(db, model.BulkUpdate{IssueIDs: []int{a, 404}}); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown issue error = %v, want ErrInvalidReference", err)
	}
}

func TestImportCSVScenario(t *testing.T) {
	db := mustOpen(t)

	csvData := "title,description,status\n" +
		"One,first,OPEN\n" +
		"Two,second,\n" +
		",third has no title,OPEN\n" +
		"Four,fourth,IN_PROGRESS\n" +
		"Five,fifth,closed\n"

	outcome, err := ImportCSV(db, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Created != 4 || outcome.Failed != 1 {
		t.Fatalf("outcome = %+v, want created 4 failed 1", outcome)
	}
	if len(outcome.Errors) != 1 || outcome.Errors[0].Row != 3 || outcome.Errors[0].Error != "title required" {
		t.Errorf("errors = %+v, want [{3 title required}]", outcome.Errors)
	}
	if n, _ := CountIssues(db); n != 4 {
		t.Errorf("CountIssues = %d, want 4", n)
	}
}

func TestImportCSVReportsEveryBadRow(t *testing.T) {
	db := mustOpen(t)

	csvData := "status,description,title\n" +
		"OPEN,,no description\n" +
		"DONE,bad status,x\n" +
		"OPEN,ok,Fine\n" +
		"OPEN,too,many,fields\n"

	outcome, err := ImportCSV(db, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Created != 1 || outcome.Failed != 3 || !outcome.Consistent() {
		t.Fatalf("outcome = %+v", outcome)
	}
	wantRows := []int{1, 2, 4}
	wantMsgs := []string{"description required", `invalid status "DONE"`, "expected 3 fields, got 4"}
	for i, f := range outcome.Errors {
		if f.Row != wantRows[i] || f.Error != wantMsgs[i] {
			t.Errorf("errors[%d] = %+v, want row %d %q", i, f, wantRows[i], wantMsgs[i])
		}
	}
}

func TestImportCSVEmptyFile(t *testing.T) {
	db := mustOpen(t)
	outcome, err := ImportCSV(db, strings.NewReader(""))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Created != 0 || outcome.Failed != 0 || outcome.Errors == nil {
		t.Errorf("outcome = %+v, want zero with empty error list", outcome)
	}
}

func TestCommentsAppendOnly(t *testing.T) {
	db := mustOpen(t)
	id := createTestIssue(t, db, "a", model.StatusOpen)

	if _, err := CreateComment(db, id, "   "); err == nil {
		t.Error("blank comment accepted, want error")
	}
	if _, err := CreateComment(db, 999, "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("comment on missing issue error = %v, want ErrNotFound", err)
	}

	first, err := CreateComment(db, id, "first")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := CreateComment(db, id, "second"); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	comments, err := ListComments(db, id)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != first.ID || comments[1].Body != "second" {
		t.Errorf("comments = %+v", comments)
	}

	got, _ := GetIssue(db, id)
	if got.Version != 1 {
		t.Errorf("Version = %d after comments, want 1", got.Version)
	}
}

func TestReports(t *testing.T) {
	db := mustOpen(t)
	alice, _ := CreateUser(db, "alice")
	bob, _ := CreateUser(db, "bob")
	CreateUser(db, "carol")

	for i := 0; i < 2; i++ {
		CreateIssue(db, model.Draft{Title: "a", Description: "d", AssigneeID: &alice.ID})
	}
	CreateIssue(db, model.Draft{Title: "b", Description: "d", AssigneeID: &bob.ID})

	top, err := TopAssignees(db, 0)
	if err != nil {
		t.Fatalf("TopAssignees: %v", err)
	}
	if len(top) != 2 || top[0].Name != "alice" || top[0].IssueCount != 2 || top[1].Name != "bob" {
		t.Errorf("TopAssignees = %+v", top)
	}

	latency, err := ResolutionLatency(db)
	if err != nil {
		t.Fatalf("ResolutionLatency: %v", err)
	}
	if latency.AverageHours != 0 {
		t.Errorf("AverageHours = %v with nothing closed, want 0", latency.AverageHours)
	}

	if _, err := db.Exec(`UPDATE issues SET created_at = '2026-01-01T00:00:00Z', closed_at = '2026-01-01T06:00:00Z' WHERE id = 1`); err != nil {
		t.Fatalf("seeding closed issue: %v", err)
	}
	latency, err = ResolutionLatency(db)
	if err != nil {
		t.Fatalf("ResolutionLatency: %v", err)
	}
	if latency.AverageHours != 6 {
		t.Errorf("AverageHours = %v, want 6", latency.AverageHours)
	}
}
