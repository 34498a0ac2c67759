package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/bulk"
	"github.com/ALT-F4-LLC/issuedesk/internal/filter"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
	"github.com/ALT-F4-LLC/issuedesk/internal/selection"
)

type bulkResult struct {
	Status   model.Status `json:"status"`
	IssueIDs []int        `json:"issue_ids"`
	Updated  int          `json:"updated"`
}

var bulkCmd = &cobra.Command{
	Use:   "bulk [id...]",
	Short: "Set the status of many issues in one request",
	Long: `Bulk lists the issues matching --where-status/--where-label, selects the
given IDs among them (or all of them when no IDs are given), and sets
--status on the whole selection in a single request. IDs that are not in the
listed issues are dropped from the selection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		c := getClient(cmd)
		ctx := cmd.Context()

		statusFlag, _ := cmd.Flags().GetString("status")
		yes, _ := cmd.Flags().GetBool("yes")

		status, err := model.ParseStatus(statusFlag)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		ids, err := model.ParseIDs(args)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		crit, err := criteriaFromFlags(cmd, c, "where-status", "where-label")
		if err != nil {
			return err
		}

		bus := getBus(cmd)
		state := filter.New(c, bus)
		defer state.Close()

		sel := selection.New(ids...)
		state.Bind(sel)

		if _, err := state.Set(ctx, crit); err != nil {
			return fail(fmt.Errorf("listing issues: %w", err))
		}
		visible := state.Issues()

		if len(ids) == 0 {
			for _, issue := range visible {
				sel.Toggle(issue.ID)
			}
		} else if dropped := len(ids) - sel.Len(); dropped > 0 {
			w.Warn("%d issue(s) not in %s were skipped", dropped, crit)
		}

		if sel.Empty() {
			return fail(bulk.ErrEmptySelection)
		}

		if !yes && interactive(w) {
			selected := make(map[int]bool, sel.Len())
			for _, id := range sel.IDs() {
				selected[id] = true
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.RenderTable(visible, render.TableOptions{Selected: selected}))

			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Set %d issue(s) to %s?", sel.Len(), status)).
						Affirmative("Yes").
						Negative("Cancel").
						Value(&confirmed),
				),
			)
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		targets := sel.IDs()
		res, err := bulk.New(c, bus).Apply(ctx, sel, status)
		if err != nil && !warnStale(w, err) {
			return fail(err)
		}

		w.Success(bulkResult{Status: status, IssueIDs: targets, Updated: res.Updated},
			fmt.Sprintf("Set %d issue(s) to %s", res.Updated, status))
		return nil
	},
}

func init() {
	bulkCmd.Flags().StringP("status", "s", "", "Status to apply (required)")
	bulkCmd.Flags().String("where-status", "", "Only consider issues with this status")
	bulkCmd.Flags().StringSlice("where-label", nil, "Only consider issues with any of these labels")
	bulkCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	_ = bulkCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(bulkCmd)
}
