package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/guard"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an issue with a version check",
	Long: `Edit loads the issue, applies the given changes against the loaded
version, and re-fetches the result. If someone else changed the issue in the
meantime the edit is rejected with a version conflict and nothing is retried;
run the command again against the fresh issue.

--version pins the edit to the version you last saw. Without it the edit is
checked against the version loaded at the start of the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		c := getClient(cmd)
		ctx := cmd.Context()

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		session := guard.NewSession(c, id, getBus(cmd))
		defer session.Close()

		current, err := session.Load(ctx)
		if err != nil {
			return fail(fmt.Errorf("loading %s: %w", model.FormatID(id), err))
		}

		if cmd.Flags().Changed("version") {
			seen, _ := cmd.Flags().GetInt("version")
			if seen != current.Version {
				return cmdErr(fmt.Errorf("%s is at version %d, not %d: %w",
					model.FormatID(id), current.Version, seen, client.ErrVersionConflict), output.ErrConflict)
			}
		}

		edit, err := editFromFlags(cmd)
		if err != nil {
			return err
		}

		if coreUnset(edit) && editLabelsUnset(cmd) && interactive(w) {
			edit, err = runEditForm(current)
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
		}

		if cmd.Flags().Changed("label") || cmd.Flags().Changed("clear-labels") {
			labels, _ := cmd.Flags().GetStringSlice("label")
			r := &refs{}
			if len(labels) > 0 {
				if r.labels, err = c.Labels(ctx); err != nil {
					return fail(fmt.Errorf("loading labels: %w", err))
				}
			}
			if edit.LabelIDs, err = r.labelIDs(labels); err != nil {
				return fail(err)
			}
		}

		if coreUnset(edit) && edit.LabelIDs == nil {
			return cmdErr(&client.ValidationError{Message: "nothing to change"}, output.ErrValidation)
		}

		updated, err := session.Submit(ctx, edit)
		var partial *guard.PartialUpdateError
		if errors.As(err, &partial) {
			warnStale(w, err)
			return &CmdError{
				Err:     err,
				Code:    output.ErrPartial,
				Data:    updated,
				Message: fmt.Sprintf("Updated %s to version %d (labels unchanged)", model.FormatID(id), updated.Version),
			}
		}
		if err != nil && !warnStale(w, err) {
			if errors.Is(err, client.ErrVersionConflict) {
				return cmdErr(fmt.Errorf("%s changed since version %d; reload with 'issuedesk show %s' and edit again: %w",
					model.FormatID(id), current.Version, model.FormatID(id), err), output.ErrConflict)
			}
			return fail(fmt.Errorf("updating %s: %w", model.FormatID(id), err))
		}

		w.Success(updated, fmt.Sprintf("Updated %s to version %d", model.FormatID(id), updated.Version))
		return nil
	},
}

func coreUnset(e guard.Edit) bool {
	return e.Title == nil && e.Description == nil && e.Status == nil
}

// editLabelsUnset reports whether no label flag was given.
func editLabelsUnset(cmd *cobra.Command) bool {
	return !cmd.Flags().Changed("label") && !cmd.Flags().Changed("clear-labels")
}

func editFromFlags(cmd *cobra.Command) (guard.Edit, error) {
	var edit guard.Edit
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		edit.Title = &v
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		edit.Description = &v
	}
	if cmd.Flags().Changed("status") {
		v, _ := cmd.Flags().GetString("status")
		st, err := model.ParseStatus(v)
		if err != nil {
			return edit, cmdErr(err, output.ErrValidation)
		}
		edit.Status = &st
	}
	return edit, nil
}

// runEditForm prompts for core fields prefilled from the loaded issue and
// returns only the fields the user changed.
func runEditForm(issue *model.Issue) (guard.Edit, error) {
	title, description, status := issue.Title, issue.Description, string(issue.Status)

	statusOpts := make([]huh.Option[string], 0, len(model.Statuses))
	for _, s := range model.Statuses {
		statusOpts = append(statusOpts, huh.NewOption(string(s), string(s)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Title (%s v%d)", model.FormatID(issue.ID), issue.Version)).
				Value(&title),
			huh.NewText().
				Title("Description").
				Value(&description),
			huh.NewSelect[string]().
				Title("Status").
				Options(statusOpts...).
				Value(&status),
		),
	)
	if err := form.Run(); err != nil {
		return guard.Edit{}, err
	}

	var edit guard.Edit
	if title != issue.Title {
		edit.Title = &title
	}
	if strings.TrimRight(description, "\n") != issue.Description {
		edit.Description = &description
	}
	if status != string(issue.Status) {
		st := model.Status(status)
		edit.Status = &st
	}
	return edit, nil
}

func init() {
	editCmd.Flags().StringP("title", "t", "", "New title")
	editCmd.Flags().StringP("description", "d", "", "New description")
	editCmd.Flags().StringP("status", "s", "", "New status")
	editCmd.Flags().StringSliceP("label", "l", nil, "Replace labels (name or ID, repeatable)")
	editCmd.Flags().Bool("clear-labels", false, "Remove every label")
	editCmd.Flags().Int("version", 0, "Version the edit is based on")
	rootCmd.AddCommand(editCmd)
}
