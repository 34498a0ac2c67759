package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		c := getClient(cmd)
		ctx := cmd.Context()

		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")
		labelFlag, _ := cmd.Flags().GetStringSlice("label")
		assignee, _ := cmd.Flags().GetString("assignee")

		// Both lookups are needed for the form and for name resolution.
		r, err := loadRefs(ctx, c)
		if err != nil {
			return fail(err)
		}

		if title == "" && interactive(w) {
			if err := runCreateForm(r, &title, &description, &status, &assignee, &labelFlag); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
		}

		if description == "-" {
			const maxStdinSize = 1 << 20
			data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinSize))
			if err != nil {
				return cmdErr(fmt.Errorf("reading description from stdin: %w", err), output.ErrGeneral)
			}
			description = strings.TrimRight(string(data), "\n")
		}

		st, err := model.ParseStatus(status)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		labelIDs, err := r.labelIDs(labelFlag)
		if err != nil {
			return fail(err)
		}
		assigneeID, err := r.userID(assignee)
		if err != nil {
			return fail(err)
		}

		issue, err := c.Create(ctx, model.Draft{
			Title:       title,
			Description: description,
			Status:      st,
			LabelIDs:    labelIDs,
			AssigneeID:  assigneeID,
		})
		if err != nil {
			return fail(fmt.Errorf("creating issue: %w", err))
		}

		warnStale(w, getBus(cmd).Publish(ctx, refresh.Event{Reason: refresh.ReasonCreated, IssueIDs: []int{issue.ID}}))

		w.Success(issue, fmt.Sprintf("Created %s: %s", model.FormatID(issue.ID), issue.Title))
		return nil
	},
}

func runCreateForm(r *refs, title, description, status, assignee *string, labels *[]string) error {
	statusOpts := make([]huh.Option[string], 0, len(model.Statuses))
	for _, s := range model.Statuses {
		statusOpts = append(statusOpts, huh.NewOption(string(s), string(s)))
	}
	*status = strings.ToUpper(*status)

	userOpts := []huh.Option[string]{huh.NewOption("(unassigned)", "")}
	for _, u := range r.users {
		userOpts = append(userOpts, huh.NewOption(u.Name, u.Name))
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Value(title).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("title is required")
				}
				return nil
			}),
		huh.NewText().
			Title("Description").
			Value(description).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("description is required")
				}
				return nil
			}),
		huh.NewSelect[string]().
			Title("Status").
			Options(statusOpts...).
			Value(status),
		huh.NewSelect[string]().
			Title("Assignee").
			Options(userOpts...).
			Value(assignee),
	}

	if len(r.labels) > 0 {
		labelOpts := make([]huh.Option[string], 0, len(r.labels))
		for _, l := range r.labels {
			labelOpts = append(labelOpts, huh.NewOption(l.Name, l.Name))
		}
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Labels").
			Options(labelOpts...).
			Value(labels))
	}

	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func init() {
	createCmd.Flags().StringP("title", "t", "", "Issue title")
	createCmd.Flags().StringP("description", "d", "", "Issue description (use \"-\" for stdin)")
	createCmd.Flags().StringP("status", "s", string(model.StatusOpen), "Issue status")
	createCmd.Flags().StringSliceP("label", "l", nil, "Label name or ID (repeatable)")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee name or ID")
	rootCmd.AddCommand(createCmd)
}
