package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ALT-F4-LLC/issuedesk/internal/db"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if !decodeBody(w, r, &draft) {
		return
	}

	id, err := db.CreateIssue(s.db, draft)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	issue, err := db.GetIssue(s.db, id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := db.ListOptions{}

	if v := q.Get("status"); v != "" {
		if err := model.ValidateStatus(model.Status(v)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Status = v
	}
	for _, raw := range q["label_ids"] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid label id "+strconv.Quote(raw))
			return
		}
		opts.LabelIDs = append(opts.LabelIDs, id)
	}

	issues, err := db.ListIssues(s.db, opts)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	issue, err := db.GetIssue(s.db, id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var update model.IssueUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	issue, err := db.UpdateIssue(s.db, id, update)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// labelsRequest is the body of PUT /issues/{id}/labels.
type labelsRequest struct {
	LabelIDs []int `json:"label_ids"`
}

func (s *Server) handleSetLabels(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req labelsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	issue, err := db.SetIssueLabels(s.db, id, req.LabelIDs)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req model.BulkUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	n, err := db.BulkUpdate(s.db, req)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BulkResult{Updated: n})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "file must be a CSV")
		return
	}

	outcome, err := db.ImportCSV(s.db, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("csv import", "file", header.Filename, "created", outcome.Created, "failed", outcome.Failed)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	comments, err := db.ListComments(s.db, id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// commentRequest is the body of POST /issues/{id}/comments.
type commentRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	comment, err := db.CreateComment(s.db, id, req.Body)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := db.ListAuditLogs(s.db, id, queryLimit(r))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := db.ListLabels(s.db)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := db.ListUsers(s.db)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleTopAssignees(w http.ResponseWriter, r *http.Request) {
	counts, err := db.TopAssignees(s.db, queryLimit(r))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleLatency(w http.ResponseWriter, r *http.Request) {
	latency, err := db.ResolutionLatency(s.db)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, latency)
}

// decodeBody decodes the JSON request body into v, writing a 400 and
// returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// pathID parses the {id} path segment, writing a 404 for anything that is
// not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "issue not found")
		return 0, false
	}
	return id, true
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
