package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage issue labels",
}

var labelSetCmd = &cobra.Command{
	Use:   "set <id> [label...]",
	Short: "Replace an issue's labels (no labels clears them)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		c := getClient(cmd)
		ctx := cmd.Context()

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		r := &refs{}
		if len(args) > 1 {
			if r.labels, err = c.Labels(ctx); err != nil {
				return fail(fmt.Errorf("loading labels: %w", err))
			}
		}
		ids, err := r.labelIDs(args[1:])
		if err != nil {
			return fail(err)
		}

		issue, err := c.SetLabels(ctx, id, ids)
		if err != nil {
			return fail(fmt.Errorf("setting labels on %s: %w", model.FormatID(id), err))
		}

		warnStale(w, getBus(cmd).Publish(ctx, refresh.Event{Reason: refresh.ReasonLabels, IssueIDs: []int{id}}))

		names := "none"
		if len(issue.Labels) > 0 {
			names = strings.Join(issue.LabelNames(), ", ")
		}
		w.Success(issue, fmt.Sprintf("%s labels: %s (version %d)", model.FormatID(id), names, issue.Version))
		return nil
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List labels with usage counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		labels, err := getClient(cmd).Labels(cmd.Context())
		if err != nil {
			return fail(fmt.Errorf("listing labels: %w", err))
		}
		if labels == nil {
			labels = []model.LabelWithCount{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderLabels(labels)
		}
		w.Success(labels, message)
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		users, err := getClient(cmd).Users(cmd.Context())
		if err != nil {
			return fail(fmt.Errorf("listing users: %w", err))
		}
		if users == nil {
			users = []model.User{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderUsers(users)
		}
		w.Success(users, message)
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelSetCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(usersCmd)
}
