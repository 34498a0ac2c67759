package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ALT-F4-LLC/issuedesk/internal/bulk"
	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/config"
	"github.com/ALT-F4-LLC/issuedesk/internal/csvimport"
	"github.com/ALT-F4-LLC/issuedesk/internal/guard"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/refresh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	cfgKey    contextKey = "cfg"
	clientKey contextKey = "client"
	busKey    contextKey = "bus"
)

// CmdError wraps an error with a machine-readable error code for structured
// output. Data and Message are only used for partial results.
type CmdError struct {
	Err     error
	Code    output.ErrorCode
	Data    any
	Message string
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

var rootCmd = &cobra.Command{
	Use:     "issuedesk",
	Short:   "Client for a shared issue store",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)

		if _, ok := cmd.Annotations["skipClient"]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		if url, _ := cmd.Flags().GetString("url"); url != "" {
			cfg.BaseURL = url
			cfg.Sources["base_url"] = config.SourceFlag
		}

		c := client.New(cfg.BaseURL).WithTimeout(cfg.Timeout)
		ctx = context.WithValue(ctx, clientKey, c)
		ctx = context.WithValue(ctx, busKey, refresh.New())
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().String("url", "", "Issue store base URL (overrides config)")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getClient(cmd *cobra.Command) *client.Client {
	c, _ := cmd.Context().Value(clientKey).(*client.Client)
	return c
}

// getBus returns the per-invocation invalidation bus shared by the
// coordinators a command builds.
func getBus(cmd *cobra.Command) *refresh.Bus {
	b, _ := cmd.Context().Value(busKey).(*refresh.Bus)
	return b
}

// interactive reports whether prompts may be shown.
func interactive(w *output.Writer) bool {
	return !w.JSONMode && term.IsTerminal(int(os.Stdin.Fd()))
}

// errorCode classifies errors that commands return without wrapping them
// in a CmdError.
func errorCode(err error) output.ErrorCode {
	switch {
	case errors.Is(err, client.ErrValidation), errors.Is(err, bulk.ErrEmptySelection):
		return output.ErrValidation
	case errors.Is(err, client.ErrNotFound):
		return output.ErrNotFound
	case errors.Is(err, client.ErrVersionConflict), errors.Is(err, guard.ErrReloadRequired):
		return output.ErrConflict
	case errors.Is(err, bulk.ErrBusy), errors.Is(err, csvimport.ErrBusy), errors.Is(err, guard.ErrSubmitting):
		return output.ErrBusy
	default:
		return output.ErrGeneral
	}
}

// warnStale reports a refresh failure after a saved mutation as a warning
// and returns true. Any other error is left to the caller.
func warnStale(w *output.Writer, err error) bool {
	if err == nil || !errors.Is(err, refresh.ErrRefreshFailed) {
		return false
	}
	w.Warn("change saved, but other views may be stale: %v", err)
	return true
}

// fail wraps err with the code errorCode assigns it.
func fail(err error) *CmdError {
	return cmdErr(err, errorCode(err))
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode)

		var ce *CmdError
		if errors.As(err, &ce) {
			if ce.Code == output.ErrPartial {
				return w.Partial(ce.Data, ce.Message, ce.Err)
			}
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, errorCode(err))
	}
	return 0
}
