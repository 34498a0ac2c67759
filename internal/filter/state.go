package filter

import (
	"context"
	"sync"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
	"github.com/ALT-F4-LLC/issuedesk/internal/selection"
)

// Lister is the subset of the issue store the filter needs.
type Lister interface {
	List(ctx context.Context, params client.ListParams) ([]model.Issue, error)
}

// State owns the current criteria and the list last applied for them. Every
// change issues exactly one List call; a response is applied only if no
// later call has been issued since, whatever order responses arrive in.
type State struct {
	lister Lister

	// deliver serializes apply-and-notify so listeners see lists in issue order.
	deliver sync.Mutex

	mu        sync.Mutex
	criteria  Criteria
	shown     Criteria // criteria the applied list was fetched with
	issued    uint64
	applied   uint64
	issues    []model.Issue
	listeners []func([]model.Issue)
	unsub     func()
}

// New creates a State with empty criteria. When bus is non-nil the state
// re-lists on every invalidation event.
func New(lister Lister, bus *refresh.Bus) *State {
	s := &State{lister: lister}
	if bus != nil {
		s.unsub = bus.Subscribe(func(ctx context.Context, _ refresh.Event) error {
			_, err := s.Refresh(ctx)
			return err
		})
	}
	return s
}

// Close detaches the state from its bus.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// OnApply registers fn to receive each applied list. fn must not change the
// criteria.
func (s *State) OnApply(fn func(issues []model.Issue)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Bind keeps sel scoped to the displayed list: every applied list drops
// selected IDs that are no longer visible.
func (s *State) Bind(sel *selection.Set) {
	s.OnApply(func(issues []model.Issue) {
		sel.Retain(issueIDs(issues))
	})
}

// Criteria returns the current criteria.
func (s *State) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Issues returns the last applied list.
func (s *State) Issues() []model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Issue(nil), s.issues...)
}

// Loaded reports whether any list has been applied.
func (s *State) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied > 0
}

// SetStatus changes the status filter. Setting the current value issues no
// request and returns false.
func (s *State) SetStatus(ctx context.Context, status model.Status) (bool, error) {
	return s.update(ctx, func(cur Criteria) Criteria {
		return NewCriteria(status, cur.LabelIDs)
	})
}

// SetLabels changes the label filter. An equivalent set in any order issues
// no request and returns false.
func (s *State) SetLabels(ctx context.Context, labelIDs []int) (bool, error) {
	return s.update(ctx, func(cur Criteria) Criteria {
		return NewCriteria(cur.Status, labelIDs)
	})
}

// Set replaces the criteria and re-lists when they differ from those of the
// displayed list. It reports whether the response was applied; a response
// overtaken by a later request is dropped and reported as (false, nil).
func (s *State) Set(ctx context.Context, c Criteria) (bool, error) {
	return s.update(ctx, func(Criteria) Criteria { return c })
}

// update derives the next criteria from the current ones under s.mu, so
// concurrent single-dimension changes compose instead of overwriting.
func (s *State) update(ctx context.Context, derive func(cur Criteria) Criteria) (bool, error) {
	s.mu.Lock()
	c := derive(s.criteria)
	c = NewCriteria(c.Status, c.LabelIDs)
	if err := c.Validate(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.applied > 0 && s.shown.Equal(c) && s.criteria.Equal(c) {
		s.mu.Unlock()
		return false, nil
	}
	s.criteria = c
	seq := s.next()
	s.mu.Unlock()

	return s.fetch(ctx, seq, c)
}

// Refresh re-lists with the current criteria.
func (s *State) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	c := s.criteria
	seq := s.next()
	s.mu.Unlock()

	return s.fetch(ctx, seq, c)
}

// next issues a sequence number. Callers hold s.mu.
func (s *State) next() uint64 {
	s.issued++
	return s.issued
}

func (s *State) fetch(ctx context.Context, seq uint64, c Criteria) (bool, error) {
	issues, err := s.lister.List(ctx, c.Params())

	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if seq != s.issued {
		s.mu.Unlock()
		return false, nil
	}
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.issues = issues
	s.shown = c
	s.applied = seq
	listeners := append([]func([]model.Issue){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(issues)
	}
	return true, nil
}

func issueIDs(issues []model.Issue) []int {
	ids := make([]int, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	return ids
}
