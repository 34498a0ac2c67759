package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

type showResult struct {
	*model.Issue
	Comments []model.Comment       `json:"comments"`
	AuditLog []model.AuditLogEntry `json:"audit_log"`
}

// MarshalJSON flattens the issue fields alongside comments and audit log.
func (r showResult) MarshalJSON() ([]byte, error) {
	return marshalWith(r.Issue, map[string]any{
		"comments":  r.Comments,
		"audit_log": r.AuditLog,
	})
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show issue detail with comments and audit log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		c := getClient(cmd)

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		var (
			issue    *model.Issue
			comments []model.Comment
			audit    []model.AuditLogEntry
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			var err error
			issue, err = c.Get(ctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			comments, err = c.ListComments(ctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			audit, err = c.ListAuditLog(ctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return fail(fmt.Errorf("loading %s: %w", model.FormatID(id), err))
		}

		if comments == nil {
			comments = []model.Comment{}
		}
		if audit == nil {
			audit = []model.AuditLogEntry{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderDetail(issue, comments, audit)
		}
		w.Success(showResult{Issue: issue, Comments: comments, AuditLog: audit}, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
