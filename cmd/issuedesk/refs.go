package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// refs is the store's reference data: labels and users.
type refs struct {
	labels []model.LabelWithCount
	users  []model.User
}

// loadRefs fetches labels and users concurrently.
func loadRefs(ctx context.Context, c *client.Client) (*refs, error) {
	var r refs
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		labels, err := c.Labels(ctx)
		if err != nil {
			return fmt.Errorf("loading labels: %w", err)
		}
		r.labels = labels
		return nil
	})
	g.Go(func() error {
		users, err := c.Users(ctx)
		if err != nil {
			return fmt.Errorf("loading users: %w", err)
		}
		r.users = users
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &r, nil
}

// labelIDs resolves label names or numeric IDs. Names match case-insensitively.
func (r *refs) labelIDs(inputs []string) ([]int, error) {
	ids := make([]int, 0, len(inputs))
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		id, ok := r.labelID(in)
		if !ok {
			return nil, &client.ValidationError{Field: "label", Message: fmt.Sprintf("unknown label %q", in)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *refs) labelID(in string) (int, bool) {
	n, numErr := strconv.Atoi(in)
	for _, l := range r.labels {
		if (numErr == nil && l.ID == n) || strings.EqualFold(l.Name, in) {
			return l.ID, true
		}
	}
	return 0, false
}

// userID resolves a user name or numeric ID. An empty input means unassigned.
func (r *refs) userID(in string) (*int, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return nil, nil
	}
	n, numErr := strconv.Atoi(in)
	for _, u := range r.users {
		if (numErr == nil && u.ID == n) || strings.EqualFold(u.Name, in) {
			id := u.ID
			return &id, nil
		}
	}
	return nil, &client.ValidationError{Field: "assignee", Message: fmt.Sprintf("unknown user %q", in)}
}
