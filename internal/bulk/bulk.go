// Package bulk applies one status change across a selection of issues as a
// single store-side batch.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
	"github.com/ALT-F4-LLC/issuedesk/internal/selection"
)

var (
	// ErrBusy is returned when a batch is already in flight.
	ErrBusy = errors.New("a bulk update is already in progress")

	// ErrEmptySelection is returned when there is nothing to update.
	ErrEmptySelection = errors.New("no issues selected")
)

// Store is the subset of the issue store the coordinator needs.
type Store interface {
	BulkUpdate(ctx context.Context, req model.BulkUpdate) (*model.BulkResult, error)
}

// Coordinator sends at most one batch at a time.
type Coordinator struct {
	store    Store
	bus      *refresh.Bus
	inFlight atomic.Bool
}

// New creates a coordinator. bus may be nil.
func New(store Store, bus *refresh.Bus) *Coordinator {
	return &Coordinator{store: store, bus: bus}
}

// Busy reports whether a batch is pending.
func (c *Coordinator) Busy() bool {
	return c.inFlight.Load()
}

// Apply sets status on every selected issue in one request. The batch
// succeeds or fails as a whole. On success the selection is cleared and an
// invalidation is published so the list is refetched; if that refetch fails
// the result is still returned, with an error wrapping
// refresh.ErrRefreshFailed.
func (c *Coordinator) Apply(ctx context.Context, sel *selection.Set, status model.Status) (*model.BulkResult, error) {
	if sel == nil || sel.Empty() {
		return nil, ErrEmptySelection
	}
	if err := model.ValidateStatus(status); err != nil {
		return nil, &client.ValidationError{Field: "status", Message: err.Error()}
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.inFlight.Store(false)

	ids := sel.IDs()
	result, err := c.store.BulkUpdate(ctx, model.BulkUpdate{IssueIDs: ids, Status: &status})
	if err != nil {
		return nil, fmt.Errorf("bulk update of %d issues: %w", len(ids), err)
	}

	sel.Clear()
	if err := c.bus.Publish(ctx, refresh.Event{Reason: refresh.ReasonBulk, IssueIDs: ids, Origin: c}); err != nil {
		return result, err
	}
	return result, nil
}
