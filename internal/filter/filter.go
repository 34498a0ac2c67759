// Package filter holds the list filter: canonical criteria plus the state
// that re-lists on every change and applies only the newest response.
package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// Criteria is a canonical filter: an optional status and a label-ID set
// kept sorted and free of duplicates. Build it with NewCriteria.
type Criteria struct {
	Status   model.Status
	LabelIDs []int
}

// NewCriteria returns the canonical form of status and labelIDs. Label
// order and repetition do not matter.
func NewCriteria(status model.Status, labelIDs []int) Criteria {
	return Criteria{Status: status, LabelIDs: canonicalIDs(labelIDs)}
}

// Validate rejects an unknown status. An empty status means "any".
func (c Criteria) Validate() error {
	if c.Status == "" {
		return nil
	}
	if err := model.ValidateStatus(c.Status); err != nil {
		return &client.ValidationError{Field: "status", Message: err.Error()}
	}
	return nil
}

// Equal reports whether both criteria select the same issues.
func (c Criteria) Equal(o Criteria) bool {
	return c.Key() == o.Key()
}

// Key is a stable string form, identical for equivalent criteria.
func (c Criteria) Key() string {
	return c.Query().Encode()
}

// Params converts the criteria to store list parameters.
func (c Criteria) Params() client.ListParams {
	return client.ListParams{Status: c.Status, LabelIDs: canonicalIDs(c.LabelIDs)}
}

// Query returns the request query for the criteria.
func (c Criteria) Query() url.Values {
	return c.Params().Query()
}

// String renders the criteria for humans, e.g. "status=OPEN labels=1,2".
func (c Criteria) String() string {
	var parts []string
	if c.Status != "" {
		parts = append(parts, "status="+string(c.Status))
	}
	if ids := canonicalIDs(c.LabelIDs); len(ids) > 0 {
		s := make([]string, len(ids))
		for i, id := range ids {
			s[i] = strconv.Itoa(id)
		}
		parts = append(parts, "labels="+strings.Join(s, ","))
	}
	if len(parts) == 0 {
		return "all issues"
	}
	return strings.Join(parts, " ")
}

// Matches reports whether issue satisfies the criteria the way the store
// filters: equal status and at least one of the labels.
func (c Criteria) Matches(issue *model.Issue) bool {
	if c.Status != "" && issue.Status != c.Status {
		return false
	}
	if len(c.LabelIDs) == 0 {
		return true
	}
	return HasAnyLabel(issue, ToIntSet(c.LabelIDs))
}

// ToIntSet converts a slice of IDs to a set for O(1) membership checks.
func ToIntSet(ids []int) map[int]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// HasAnyLabel returns true if the issue carries at least one label in the set.
func HasAnyLabel(issue *model.Issue, wanted map[int]struct{}) bool {
	for _, l := range issue.Labels {
		if _, ok := wanted[l.ID]; ok {
			return true
		}
	}
	return false
}

func canonicalIDs(ids []int) []int {
	set := ToIntSet(ids)
	if set == nil {
		return nil
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
