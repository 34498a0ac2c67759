package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/issuedesk/internal/client"
	"github.com/ALT-F4-LLC/issuedesk/internal/config"
	"github.com/ALT-F4-LLC/issuedesk/internal/output"
	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

type configInfo struct {
	BaseURL     string                   `json:"base_url"`
	Timeout     string                   `json:"timeout"`
	DBPath      string                   `json:"db_path"`
	ConfigPath  string                   `json:"config_path"`
	ConfigFound bool                     `json:"config_found"`
	Sources     map[string]config.Source `json:"sources"`
	Reachable   *bool                    `json:"reachable,omitempty"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display resolved configuration",
	Annotations: map[string]string{"skipClient": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		check, _ := cmd.Flags().GetBool("check")

		if url, _ := cmd.Flags().GetString("url"); url != "" {
			cfg.BaseURL = url
			cfg.Sources["base_url"] = config.SourceFlag
		}

		found, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking config file: %w", err), output.ErrGeneral)
		}
		if !found {
			w.Info("No config file at %s; run 'issuedesk init' to create one.", cfg.ConfigPath)
		}

		info := configInfo{
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout.String(),
			DBPath:      cfg.DBPath,
			ConfigPath:  cfg.ConfigPath,
			ConfigFound: found,
			Sources:     cfg.Sources,
		}

		if check {
			ok := client.New(cfg.BaseURL).WithTimeout(cfg.Timeout).Health(cmd.Context()) == nil
			info.Reachable = &ok
		}

		w.Success(info, formatConfigHuman(info))
		return nil
	},
}

func formatConfigHuman(info configInfo) string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	src := func(key string) string {
		return render.StyledText(fmt.Sprintf("(%s)", info.Sources[key]), label)
	}

	lines := []string{
		fmt.Sprintf("%s %s %s", render.StyledText("Store URL:", label), info.BaseURL, src("base_url")),
		fmt.Sprintf("%s %s %s", render.StyledText("Timeout:", label), info.Timeout, src("timeout")),
		fmt.Sprintf("%s %s %s", render.StyledText("Database:", label), info.DBPath, src("db_path")),
		fmt.Sprintf("%s %s", render.StyledText("Config file:", label), info.ConfigPath),
	}
	if info.Reachable != nil {
		state := render.StyledText("reachable", lipgloss.NewStyle().Foreground(lipgloss.Color("2")))
		if !*info.Reachable {
			state = render.StyledText("unreachable", lipgloss.NewStyle().Foreground(lipgloss.Color("1")))
		}
		lines = append(lines, fmt.Sprintf("%s %s", render.StyledText("Store:", label), state))
	}
	return strings.Join(lines, "\n")
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a config file",
	Annotations: map[string]string{"skipClient": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		force, _ := cmd.Flags().GetBool("force")
		url, _ := cmd.Flags().GetString("url")
		timeout, _ := cmd.Flags().GetString("timeout")
		dbPath, _ := cmd.Flags().GetString("db")

		found, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking config file: %w", err), output.ErrGeneral)
		}
		if found && !force {
			w.Warn("Config file already exists at %s (use --force to overwrite)", cfg.ConfigPath)
			w.Success(struct {
				Path    string `json:"path"`
				Created bool   `json:"created"`
			}{cfg.ConfigPath, false}, render.StyledText("Config already initialized", lipgloss.NewStyle().Foreground(lipgloss.Color("3"))))
			return nil
		}

		if url == "" {
			url = config.DefaultBaseURL
		}
		f := &config.File{BaseURL: url, Timeout: timeout, DBPath: dbPath}
		if err := config.Write(cfg.ConfigPath, f); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		w.Success(struct {
			Path    string       `json:"path"`
			Created bool         `json:"created"`
			Config  *config.File `json:"config"`
		}{cfg.ConfigPath, true, f}, fmt.Sprintf("Wrote %s", cfg.ConfigPath))
		return nil
	},
}

func init() {
	configCmd.Flags().Bool("check", false, "Also check that the store is reachable")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().String("timeout", "", "Request timeout, e.g. 10s")
	initCmd.Flags().String("db", "", "SQLite path used by 'issuedesk serve'")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
}
