// Package csvimport submits CSV files to the store and returns the per-row
// outcome. Failed rows are part of a successful result.
package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
)

// ErrBusy is returned when an import is already in flight.
var ErrBusy = errors.New("an import is already in progress")

// Store is the subset of the issue store the coordinator needs.
type Store interface {
	ImportCSV(ctx context.Context, filename string, r io.Reader) (*model.ImportOutcome, error)
}

// Coordinator sends at most one import at a time.
type Coordinator struct {
	store    Store
	bus      *refresh.Bus
	inFlight atomic.Bool
}

// New creates a coordinator. bus may be nil.
func New(store Store, bus *refresh.Bus) *Coordinator {
	return &Coordinator{store: store, bus: bus}
}

// Busy reports whether an import is pending.
func (c *Coordinator) Busy() bool {
	return c.inFlight.Load()
}

// ImportFile opens path and imports it. An empty path is a validation
// failure and nothing is sent.
func (c *Coordinator) ImportFile(ctx context.Context, path string) (*model.ImportOutcome, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &client.ValidationError{Field: "file", Message: "a CSV file is required"}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return c.Import(ctx, filepath.Base(path), f)
}

// Import uploads r under filename. When any row was created an invalidation
// is published so lists refetch; a failed refetch returns the outcome with
// an error wrapping refresh.ErrRefreshFailed.
func (c *Coordinator) Import(ctx context.Context, filename string, r io.Reader) (*model.ImportOutcome, error) {
	if strings.TrimSpace(filename) == "" || r == nil {
		return nil, &client.ValidationError{Field: "file", Message: "a CSV file is required"}
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.inFlight.Store(false)

	outcome, err := c.store.ImportCSV(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", filename, err)
	}

	if outcome.Created > 0 {
		if err := c.bus.Publish(ctx, refresh.Event{Reason: refresh.ReasonImport, Origin: c}); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}
