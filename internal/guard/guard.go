// Package guard implements optimistic-concurrency edit sessions for a single
// issue. A session remembers the version it last fetched and presents it on
// every update; a stale version is surfaced as a conflict that requires an
// explicit reload, never retried.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
)

var (
	// ErrReloadRequired is returned by Submit when the session holds no
	// trusted version: never loaded, conflicted, or invalidated.
	ErrReloadRequired = errors.New("reload required before submitting")

	// ErrSubmitting is returned when a submit is already in flight.
	ErrSubmitting = errors.New("submit already in progress")
)

// PartialUpdateError reports that the core-field update was applied but the
// label update that followed it failed. The core change is not rolled back.
type PartialUpdateError struct {
	Issue *model.Issue // state after the core update
	Err   error        // label-phase failure
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("%s: fields saved but labels not updated: %v", model.FormatID(e.Issue.ID), e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }

// State is the phase of an edit session.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateSubmitting
	StateConflicted
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateSubmitting:
		return "submitting"
	case StateConflicted:
		return "conflicted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the subset of the issue store a session needs.
type Store interface {
	Get(ctx context.Context, id int) (*model.Issue, error)
	Update(ctx context.Context, id int, update model.IssueUpdate) (*model.Issue, error)
	SetLabels(ctx context.Context, id int, labelIDs []int) (*model.Issue, error)
}

// Edit is the change a user submits. Nil fields are left as they are.
// LabelIDs replaces the label set when non-nil; an empty non-nil slice
// clears it.
type Edit struct {
	Title       *string
	Description *string
	Status      *model.Status
	LabelIDs    []int
}

// Session is one edit session on one issue.
type Session struct {
	store Store
	bus   *refresh.Bus
	id    int

	mu    sync.Mutex
	state State
	issue *model.Issue
	unsub func()
}

// NewSession creates an unloaded session for issue id. When bus is non-nil
// the session publishes an event after each successful submit and drops to
// Unloaded when another publisher invalidates its issue.
func NewSession(store Store, id int, bus *refresh.Bus) *Session {
	s := &Session{store: store, bus: bus, id: id}
	if bus != nil {
		s.unsub = bus.Subscribe(s.Invalidate)
	}
	return s
}

// Close detaches the session from its bus.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// ID returns the issue the session edits.
func (s *Session) ID() int { return s.id }

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Issue returns a copy of the last fetched issue, or nil when unloaded.
func (s *Session) Issue() *model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issue == nil {
		return nil
	}
	cp := *s.issue
	cp.Labels = append([]model.Label(nil), s.issue.Labels...)
	return &cp
}

// Version returns the version the next submit will present, or 0.
func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issue == nil {
		return 0
	}
	return s.issue.Version
}

// Load fetches the issue and captures its version. It is the only way out
// of Conflicted.
func (s *Session) Load(ctx context.Context) (*model.Issue, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmitting
	}
	s.mu.Unlock()

	issue, err := s.store.Get(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUnloaded
		s.issue = nil
		return nil, err
	}
	s.state = StateLoaded
	s.issue = issue
	return issue, nil
}

// Submit sends edit as a version-checked update, then replaces the label set
// when edit.LabelIDs is non-nil, then re-fetches the issue to resync.
//
// A stale version leaves the session Conflicted and returns an error
// matching client.ErrVersionConflict. A label failure after a successful
// core update returns *PartialUpdateError. Validation failures return before
// any request and leave the session Loaded. When the saved edit cannot be
// propagated to other views, the issue is returned with an error wrapping
// refresh.ErrRefreshFailed.
func (s *Session) Submit(ctx context.Context, edit Edit) (*model.Issue, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitting
	case StateLoaded:
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("%s is %s: %w", model.FormatID(s.id), s.state, ErrReloadRequired)
	}

	update := model.IssueUpdate{
		Title:       edit.Title,
		Description: edit.Description,
		Status:      edit.Status,
		Version:     s.issue.Version,
	}
	if err := update.Validate(); err != nil {
		s.mu.Unlock()
		var fe *model.FieldError
		if errors.As(err, &fe) {
			return nil, &client.ValidationError{Field: fe.Field, Message: fe.Message}
		}
		return nil, err
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	updated, err := s.store.Update(ctx, s.id, update)
	if err != nil {
		s.mu.Lock()
		switch {
		case errors.Is(err, client.ErrVersionConflict):
			s.state = StateConflicted
		case errors.Is(err, client.ErrValidation):
			s.state = StateLoaded
		default:
			// Whether the store applied the change is unknown.
			s.state = StateUnloaded
			s.issue = nil
		}
		s.mu.Unlock()
		return nil, err
	}

	var labelErr error
	if edit.LabelIDs != nil {
		_, labelErr = s.store.SetLabels(ctx, s.id, edit.LabelIDs)
	}

	fresh, getErr := s.store.Get(ctx, s.id)

	s.mu.Lock()
	if getErr != nil {
		s.state = StateUnloaded
		s.issue = nil
		fresh = updated
	} else {
		s.state = StateLoaded
		s.issue = fresh
	}
	s.mu.Unlock()

	reason := refresh.ReasonUpdated
	if edit.LabelIDs != nil && labelErr == nil {
		reason = refresh.ReasonLabels
	}
	refreshErr := s.bus.Publish(ctx, refresh.Event{Reason: reason, IssueIDs: []int{s.id}, Origin: s})

	if labelErr != nil {
		var err error = &PartialUpdateError{Issue: updated, Err: labelErr}
		if refreshErr != nil {
			err = errors.Join(err, refreshErr)
		}
		return fresh, err
	}
	return fresh, refreshErr
}

// Invalidate drops a loaded session to Unloaded when e covers its issue.
// Events the session published itself are ignored. It satisfies
// refresh.Handler.
func (s *Session) Invalidate(_ context.Context, e refresh.Event) error {
	if e.Origin == s || !e.Covers(s.id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoaded {
		s.state = StateUnloaded
	}
	return nil
}
