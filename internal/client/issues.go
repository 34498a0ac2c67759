package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// ListParams are the server-side filters for List. A zero value lists
// everything.
type ListParams struct {
	Status   model.Status
	LabelIDs []int
}

// Query encodes the params with label IDs sorted and deduplicated, so equal
// filters always produce the same request.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	ids := append([]int(nil), p.LabelIDs...)
	sort.Ints(ids)
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		q.Add("label_ids", strconv.Itoa(id))
	}
	return q
}

func issuePath(id int) string {
	return "/issues/" + strconv.Itoa(id)
}

// validation converts a model field error into a ValidationError.
func validation(err error) error {
	var fe *model.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return &ValidationError{Message: err.Error()}
}

// Create validates draft and creates the issue. Missing title or
// description fails with a ValidationError and sends nothing.
func (c *Client) Create(ctx context.Context, draft model.Draft) (*model.Issue, error) {
	if err := draft.Validate(); err != nil {
		return nil, validation(err)
	}
	var issue model.Issue
	if err := c.doJSON(ctx, http.MethodPost, "/issues", nil, draft, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Get fetches one issue. A missing issue matches ErrNotFound.
func (c *Client) Get(ctx context.Context, id int) (*model.Issue, error) {
	var issue model.Issue
	if err := c.doJSON(ctx, http.MethodGet, issuePath(id), nil, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// List fetches the issues matching params in the order the store returns.
func (c *Client) List(ctx context.Context, params ListParams) ([]model.Issue, error) {
	var issues []model.Issue
	if err := c.doJSON(ctx, http.MethodGet, "/issues", params.Query(), nil, &issues); err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []model.Issue{}
	}
	return issues, nil
}

// Update applies a version-checked change to an issue's core fields. A
// stale version matches ErrVersionConflict.
func (c *Client) Update(ctx context.Context, id int, update model.IssueUpdate) (*model.Issue, error) {
	if err := update.Validate(); err != nil {
		return nil, validation(err)
	}
	var issue model.Issue
	if err := c.doJSON(ctx, http.MethodPatch, issuePath(id), nil, update, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// SetLabels replaces the issue's full label set. It is not version checked.
func (c *Client) SetLabels(ctx context.Context, id int, labelIDs []int) (*model.Issue, error) {
	if labelIDs == nil {
		labelIDs = []int{}
	}
	body := struct {
		LabelIDs []int `json:"label_ids"`
	}{labelIDs}

	var issue model.Issue
	if err := c.doJSON(ctx, http.MethodPut, issuePath(id)+"/labels", nil, body, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// BulkUpdate sends one batch change. The request is forwarded as given,
// including one that carries neither a status nor labels.
func (c *Client) BulkUpdate(ctx context.Context, req model.BulkUpdate) (*model.BulkResult, error) {
	if req.IssueIDs == nil {
		req.IssueIDs = []int{}
	}
	var result model.BulkResult
	if err := c.doJSON(ctx, http.MethodPost, "/issues/bulk-update", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportCSV uploads r as the multipart field "file" named filename. The
// store reports each row independently; failed rows are part of a
// successful result.
func (c *Client) ImportCSV(ctx context.Context, filename string, r io.Reader) (*model.ImportOutcome, error) {
	if strings.TrimSpace(filename) == "" || r == nil {
		return nil, &ValidationError{Field: "file", Message: "a CSV file is required"}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/issues/import", nil, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	var outcome model.ImportOutcome
	if err := json.Unmarshal(respBody, &outcome); err != nil {
		return nil, fmt.Errorf("POST /issues/import: failed to parse response: %w", err)
	}
	if outcome.Errors == nil {
		outcome.Errors = []model.RowFailure{}
	}
	return &outcome, nil
}

// ListComments fetches an issue's comments.
func (c *Client) ListComments(ctx context.Context, id int) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.doJSON(ctx, http.MethodGet, issuePath(id)+"/comments", nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment appends a comment. A blank body fails with a ValidationError.
func (c *Client) AddComment(ctx context.Context, id int, body string) (*model.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, &ValidationError{Field: "body", Message: "comment body is required"}
	}
	in := struct {
		Body string `json:"body"`
	}{body}

	var comment model.Comment
	if err := c.doJSON(ctx, http.MethodPost, issuePath(id)+"/comments", nil, in, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListAuditLog fetches an issue's audit trail, newest first.
func (c *Client) ListAuditLog(ctx context.Context, id int) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	if err := c.doJSON(ctx, http.MethodGet, issuePath(id)+"/audit-logs", nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Labels fetches the label reference data.
func (c *Client) Labels(ctx context.Context) ([]model.LabelWithCount, error) {
	var labels []model.LabelWithCount
	if err := c.doJSON(ctx, http.MethodGet, "/labels", nil, nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// Users fetches the user reference data.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// TopAssignees fetches the top-assignees report.
func (c *Client) TopAssignees(ctx context.Context) ([]model.AssigneeCount, error) {
	var counts []model.AssigneeCount
	if err := c.doJSON(ctx, http.MethodGet, "/reports/top-assignees", nil, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// ResolutionLatency fetches the average-resolution report.
func (c *Client) ResolutionLatency(ctx context.Context) (*model.ResolutionLatency, error) {
	var latency model.ResolutionLatency
	if err := c.doJSON(ctx, http.MethodGet, "/reports/latency", nil, nil, &latency); err != nil {
		return nil, err
	}
	return &latency, nil
}
