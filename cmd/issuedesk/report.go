package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Store-wide reports",
}

var reportAssigneesCmd = &cobra.Command{
	Use:   "assignees",
	Short: "Users ranked by number of assigned issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		rows, err := getClient(cmd).TopAssignees(cmd.Context())
		if err != nil {
			return fail(fmt.Errorf("loading top assignees: %w", err))
		}
		if rows == nil {
			rows = []model.AssigneeCount{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderTopAssignees(rows)
		}
		w.Success(rows, message)
		return nil
	},
}

var reportLatencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Average time from creation to close",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		latency, err := getClient(cmd).ResolutionLatency(cmd.Context())
		if err != nil {
			return fail(fmt.Errorf("loading resolution latency: %w", err))
		}

		var message string
		if !w.JSONMode {
			message = render.RenderLatency(latency)
		}
		w.Success(latency, message)
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportAssigneesCmd)
	reportCmd.AddCommand(reportLatencyCmd)
	rootCmd.AddCommand(reportCmd)
}
