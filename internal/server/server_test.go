package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ALT-F4-LLC/issuedesk/internal/db"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ts := httptest.NewServer(New(conn, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, conn
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestCreateAndGetIssue(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/issues", map[string]any{
		"title": "Login bug", "description": "Cannot log in", "status": "OPEN", "label_ids": []int{},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /issues status = %d, want 201", resp.StatusCode)
	}
	created := decode[model.Issue](t, resp)
	if created.Version != 1 {
		t.Errorf("version = %d, want 1", created.Version)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/issues/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /issues/1 status = %d", resp.StatusCode)
	}
	got := decode[model.Issue](t, resp)
	if got.Title != "Login bug" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/issues", map[string]any{"description": "no title"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Detail != "title is required" {
		t.Errorf("detail = %q", body.Detail)
	}
}

func TestGetMissingIssue(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/issues/42", "/issues/abc", "/issues/42/comments", "/issues/42/audit-logs"} {
		resp := doJSON(t, http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestPatchVersionConflict(t *testing.T) {
	ts, conn := newTestServer(t)
	id, err := db.CreateIssue(conn, model.Draft{Title: "a", Description: "b"})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	url := fmt.Sprintf("%s/issues/%d", ts.URL, id)

	resp := doJSON(t, http.MethodPatch, url, map[string]any{"status": "IN_PROGRESS", "version": 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first PATCH status = %d, want 200", resp.StatusCode)
	}
	if got := decode[model.Issue](t, resp); got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}

	resp = doJSON(t, http.MethodPatch, url, map[string]any{"status": "CLOSED", "version": 1})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale PATCH status = %d, want 409", resp.StatusCode)
	}
}

func TestListIssuesQuery(t *testing.T) {
	ts, conn := newTestServer(t)
	bug, _ := db.CreateLabel(conn, "bug")
	a, _ := db.CreateIssue(conn, model.Draft{Title: "a", Description: "d", LabelIDs: []int{bug.ID}})
	db.CreateIssue(conn, model.Draft{Title: "b", Description: "d", Status: model.StatusClosed})

	resp := doJSON(t, http.MethodGet, ts.URL+"/issues?status=OPEN&label_ids=1", nil)
	issues := decode[[]model.Issue](t, resp)
	if len(issues) != 1 || issues[0].ID != a {
		t.Errorf("filtered list = %+v, want only issue %d", issues, a)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/issues?status=DONE", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid status filter = %d, want 400", resp.StatusCode)
	}
}

func TestBulkUpdateEndpoint(t *testing.T) {
	ts, conn := newTestServer(t)
	for i := 0; i < 3; i++ {
		db.CreateIssue(conn, model.Draft{Title: "a", Description: "d"})
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/issues/bulk-update", map[string]any{
		"issue_ids": []int{1, 3}, "status": "CLOSED", "label_ids": nil,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if res := decode[model.BulkResult](t, resp); res.Updated != 2 {
		t.Errorf("updated = %d, want 2", res.Updated)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/issues/bulk-update", map[string]any{
		"issue_ids": []int{1, 99}, "status": "OPEN",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown id status = %d, want 400", resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	upload := func(filename, content string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(content))
		mw.Close()

		resp, err := http.Post(ts.URL+"/issues/import", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("POST import: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := upload("issues.txt", "title,description\n")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-csv upload = %d, want 400", resp.StatusCode)
	}

	resp = upload("issues.CSV", "title,description\nA,a\n,missing\n")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csv upload = %d, want 200", resp.StatusCode)
	}
	outcome := decode[model.ImportOutcome](t, resp)
	if outcome.Created != 1 || outcome.Failed != 1 || outcome.Errors[0].Row != 2 {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestCommentsEndpoint(t *testing.T) {
	ts, conn := newTestServer(t)
	db.CreateIssue(conn, model.Draft{Title: "a", Description: "d"})

	resp := doJSON(t, http.MethodPost, ts.URL+"/issues/1/comments", map[string]string{"body": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/issues/1/comments", map[string]string{"body": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add comment = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/issues/1/comments", nil)
	comments := decode[[]model.Comment](t, resp)
	if len(comments) != 1 || comments[0].Body != "hello" {
		t.Errorf("comments = %+v", comments)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/issues/1/audit-logs", nil)
	entries := decode[[]model.AuditLogEntry](t, resp)
	if len(entries) != 2 || entries[0].Action != model.ActionComment {
		t.Errorf("audit = %+v", entries)
	}
}

func TestReportsEndpoints(t *testing.T) {
	ts, conn := newTestServer(t)
	alice, _ := db.CreateUser(conn, "alice")
	db.CreateIssue(conn, model.Draft{Title: "a", Description: "d", AssigneeID: &alice.ID})

	resp := doJSON(t, http.MethodGet, ts.URL+"/reports/top-assignees", nil)
	top := decode[[]model.AssigneeCount](t, resp)
	if len(top) != 1 || top[0].Name != "alice" || top[0].IssueCount != 1 {
		t.Errorf("top assignees = %+v", top)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/reports/latency", nil)
	body, _ := json.Marshal(decode[map[string]any](t, resp))
	if !strings.Contains(string(body), "average_hours") {
		t.Errorf("latency body = %s", body)
	}
}
