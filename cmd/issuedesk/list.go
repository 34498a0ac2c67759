package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/filter"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

type listResult struct {
	Filter string        `json:"filter"`
	Issues []model.Issue `json:"issues"`
	Total  int           `json:"total"`
}

// boardColumn is one status column in the board JSON output.
type boardColumn struct {
	Status model.Status  `json:"status"`
	Count  int           `json:"count"`
	Issues []model.Issue `json:"issues"`
}

// criteriaFromFlags reads --status and --label into filter criteria,
// resolving label names through the store's label catalog.
func criteriaFromFlags(cmd *cobra.Command, c *client.Client, statusFlag, labelFlag string) (filter.Criteria, error) {
	status, _ := cmd.Flags().GetString(statusFlag)
	labels, _ := cmd.Flags().GetStringSlice(labelFlag)

	var crit filter.Criteria
	if status != "" {
		st, err := model.ParseStatus(status)
		if err != nil {
			return crit, cmdErr(err, output.ErrValidation)
		}
		crit.Status = st
	}
	if len(labels) > 0 {
		r := &refs{}
		all, err := c.Labels(cmd.Context())
		if err != nil {
			return crit, fail(fmt.Errorf("loading labels: %w", err))
		}
		r.labels = all
		ids, err := r.labelIDs(labels)
		if err != nil {
			return crit, fail(err)
		}
		crit.LabelIDs = ids
	}
	return filter.NewCriteria(crit.Status, crit.LabelIDs), nil
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List issues",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		c := getClient(cmd)

		boardMode, _ := cmd.Flags().GetBool("board")
		expand, _ := cmd.Flags().GetBool("expand")

		crit, err := criteriaFromFlags(cmd, c, "status", "label")
		if err != nil {
			return err
		}

		state := filter.New(c, getBus(cmd))
		defer state.Close()

		if _, err := state.Set(cmd.Context(), crit); err != nil {
			return fail(fmt.Errorf("listing issues: %w", err))
		}
		issues := state.Issues()
		if issues == nil {
			issues = []model.Issue{}
		}

		if boardMode {
			columns := make([]boardColumn, 0, len(model.Statuses))
			for _, st := range model.Statuses {
				col := boardColumn{Status: st, Issues: []model.Issue{}}
				for _, issue := range issues {
					if issue.Status == st {
						col.Issues = append(col.Issues, issue)
					}
				}
				col.Count = len(col.Issues)
				columns = append(columns, col)
			}
			var message string
			if !w.JSONMode {
				message = render.RenderBoard(issues, render.BoardOptions{Expand: expand})
			}
			w.Success(columns, message)
			return nil
		}

		var message string
		if !w.JSONMode {
			message = render.RenderTable(issues, render.TableOptions{})
			if !crit.Equal(filter.Criteria{}) && len(issues) > 0 {
				w.Info("Showing %s", crit)
			}
		}
		w.Success(listResult{Filter: crit.Key(), Issues: issues, Total: len(issues)}, message)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringSliceP("label", "l", nil, "Filter by label name or ID (repeatable, matches any)")
	listCmd.Flags().BoolP("board", "b", false, "Display as a status board")
	listCmd.Flags().Bool("expand", false, "Show every card on the board")
	rootCmd.AddCommand(listCmd)
}
