package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/csvimport"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import issues from a CSV file",
	Long: `Import uploads a CSV file whose header names the columns title,
description and (optionally) status. Each row is imported on its own: rows
that fail are reported by row number and do not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		outcome, err := csvimport.New(getClient(cmd), getBus(cmd)).ImportFile(cmd.Context(), args[0])
		if err != nil && !warnStale(w, err) {
			if errors.Is(err, os.ErrNotExist) {
				return cmdErr(err, output.ErrNotFound)
			}
			return fail(err)
		}

		if !outcome.Consistent() {
			w.Warn("store reported %d failed row(s) but listed %d", outcome.Failed, len(outcome.Errors))
		}

		var message string
		if !w.JSONMode {
			message = render.RenderImportOutcome(outcome)
		}
		w.Success(outcome, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
