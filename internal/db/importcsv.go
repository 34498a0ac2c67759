package db

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// RowError is a failure confined to one CSV data row. Row is 1-based over
// data rows; the header is not counted.
type RowError struct {
	Row int
	Msg string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Msg)
}

// ImportCSV reads issues from CSV and inserts each data row independently. A
// row that fails validation or insertion is reported in the outcome and does
// not stop the rows after it. The header names the columns title,
// description, and status (optional, default OPEN) in any order.
func ImportCSV(db *sql.DB, r io.Reader) (*model.ImportOutcome, error) {
	outcome := &model.ImportOutcome{Errors: []model.RowFailure{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return outcome, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	row := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++

		var rowErr *RowError
		var parseErr *csv.ParseError
		switch {
		case errors.As(err, &parseErr):
			rowErr = &RowError{Row: row, Msg: parseErr.Err.Error()}
		case err != nil:
			return nil, fmt.Errorf("reading csv row %d: %w", row, err)
		case len(record) > len(header):
			rowErr = &RowError{Row: row, Msg: fmt.Sprintf("expected %d fields, got %d", len(header), len(record))}
		default:
			rowErr = importRow(db, row, draftFromRecord(record, columns))
		}

		if rowErr != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, model.RowFailure{Row: rowErr.Row, Error: rowErr.Msg})
			continue
		}
		outcome.Created++
	}

	return outcome, nil
}

// csvDraft holds the raw cell values of one row.
type csvDraft struct {
	title       string
	description string
	status      string
}

func draftFromRecord(record []string, columns map[string]int) csvDraft {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return csvDraft{
		title:       cell("title"),
		description: cell("description"),
		status:      cell("status"),
	}
}

// importRow validates and inserts one row in its own transaction.
func importRow(db *sql.DB, row int, d csvDraft) *RowError {
	if d.title == "" {
		return &RowError{Row: row, Msg: "title required"}
	}
	if d.description == "" {
		return &RowError{Row: row, Msg: "description required"}
	}

	status := model.StatusOpen
	if d.status != "" {
		s, err := model.ParseStatus(d.status)
		if err != nil {
			return &RowError{Row: row, Msg: fmt.Sprintf("invalid status %q", d.status)}
		}
		status = s
	}

	draft := model.Draft{Title: d.title, Description: d.description, Status: status}
	id, err := CreateIssue(db, draft)
	if err != nil {
		return &RowError{Row: row, Msg: err.Error()}
	}
	if err := RecordAudit(db, id, model.ActionImport, map[string]any{"row": row}); err != nil {
		return &RowError{Row: row, Msg: err.Error()}
	}
	return nil
}
