package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Add or list comments on an issue",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <id> [text]",
	Short: "Add a comment (text \"-\" or omitted reads stdin)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		ctx := cmd.Context()

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		body := "-"
		if len(args) == 2 {
			body = args[1]
		}
		if body == "-" {
			const maxStdinSize = 1 << 20
			data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinSize))
			if err != nil {
				return cmdErr(fmt.Errorf("reading comment from stdin: %w", err), output.ErrGeneral)
			}
			body = strings.TrimRight(string(data), "\n")
		}

		comment, err := getClient(cmd).AddComment(ctx, id, body)
		if err != nil {
			return fail(fmt.Errorf("commenting on %s: %w", model.FormatID(id), err))
		}

		warnStale(w, getBus(cmd).Publish(ctx, refresh.Event{Reason: refresh.ReasonComment, IssueIDs: []int{id}}))

		w.Success(comment, fmt.Sprintf("Added comment #%d to %s", comment.ID, model.FormatID(id)))
		return nil
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List comments, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		comments, err := getClient(cmd).ListComments(cmd.Context(), id)
		if err != nil {
			return fail(fmt.Errorf("listing comments on %s: %w", model.FormatID(id), err))
		}
		if comments == nil {
			comments = []model.Comment{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderCommentList(comments)
		}
		w.Success(comments, message)
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Show an issue's audit log, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		entries, err := getClient(cmd).ListAuditLog(cmd.Context(), id)
		if err != nil {
			return fail(fmt.Errorf("loading audit log of %s: %w", model.FormatID(id), err))
		}
		if entries == nil {
			entries = []model.AuditLogEntry{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderAuditLog(entries)
		}
		w.Success(entries, message)
		return nil
	},
}

func init() {
	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(logCmd)
}
