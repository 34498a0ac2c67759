package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/db"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the reference issue store over a sqlite database",
	Annotations: map[string]string{"skipClient": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getCfg(cmd)

		addr, _ := cmd.Flags().GetString("addr")
		dbPath, _ := cmd.Flags().GetString("db")
		labels, _ := cmd.Flags().GetStringSlice("label")
		users, _ := cmd.Flags().GetStringSlice("user")
		levelFlag, _ := cmd.Flags().GetString("log-level")

		if dbPath == "" {
			dbPath = cfg.DBPath
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(levelFlag)); err != nil {
			return cmdErr(fmt.Errorf("invalid --log-level %q", levelFlag), output.ErrValidation)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		conn, err := db.Open(dbPath)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		defer conn.Close()

		for _, name := range labels {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			l, err := db.EnsureLabel(conn, name)
			if err != nil {
				return cmdErr(fmt.Errorf("seeding label %q: %w", name, err), output.ErrGeneral)
			}
			logger.Debug("label ready", "id", l.ID, "name", l.Name)
		}
		for _, name := range users {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			u, err := db.EnsureUser(conn, name)
			if err != nil {
				return cmdErr(fmt.Errorf("seeding user %q: %w", name, err), output.ErrGeneral)
			}
			logger.Debug("user ready", "id", u.ID, "name", u.Name)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("opened database", "path", dbPath)
		return server.New(conn, logger).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8000", "Listen address")
	serveCmd.Flags().String("db", "", "SQLite database path (default from config)")
	serveCmd.Flags().StringSlice("label", nil, "Ensure a label exists (repeatable)")
	serveCmd.Flags().StringSlice("user", nil, "Ensure a user exists (repeatable)")
	serveCmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd)
}
