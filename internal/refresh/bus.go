// Package refresh broadcasts "server state changed" signals after a
// successful mutation so dependent views can refetch what they show.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrRefreshFailed marks a Publish error: the mutation behind the event
// succeeded but at least one dependent view could not refetch.
var ErrRefreshFailed = errors.New("refresh failed")

// Reason names the mutation behind an Event.
type Reason string

const (
	ReasonCreated Reason = "created"
	ReasonUpdated Reason = "updated"
	ReasonLabels  Reason = "labels"
	ReasonBulk    Reason = "bulk"
	ReasonImport  Reason = "import"
	ReasonComment Reason = "comment"
)

// Event invalidates cached views of the listed issues. An empty IssueIDs
// invalidates every issue, including ones the publisher cannot name.
// Origin identifies the publisher so it can skip its own events.
type Event struct {
	Reason   Reason
	IssueIDs []int
	Origin   any
}

// Covers reports whether the event invalidates issue id.
func (e Event) Covers(id int) bool {
	if len(e.IssueIDs) == 0 {
		return true
	}
	for _, v := range e.IssueIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Handler reacts to an Event. A returned error is reported to the publisher
// but does not stop delivery to other handlers.
type Handler func(ctx context.Context, e Event) error

type subscription struct {
	id int
	fn Handler
}

// Bus delivers events to subscribers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every subscriber. Handler errors are joined and
// returned after all handlers have run, wrapped in ErrRefreshFailed.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("refresh: context cancelled: %w", err))
			break
		}
		if err := s.fn(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", e.Reason, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRefreshFailed, errors.Join(errs...))
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
