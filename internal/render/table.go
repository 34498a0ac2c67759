package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

const (
	maxTitleWidth  = 40
	maxLabelsWidth = 24
)

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// statusLabel returns a status string with icon, e.g. "✔ CLOSED".
func statusLabel(s model.Status) string {
	return s.Icon() + " " + string(s)
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// TableOptions configures issue table rendering.
type TableOptions struct {
	// Selected marks rows whose issue ID is in the set with a check column.
	Selected map[int]bool
}

// RenderTable renders a list of issues as a formatted table in the order given.
func RenderTable(issues []model.Issue, opts TableOptions) string {
	if len(issues) == 0 {
		return EmptyState("No issues found.", "Create one with: issuedesk create", false)
	}

	if !ColorsEnabled() {
		return renderPlainTable(issues, opts)
	}

	headers := []string{"ID", "Status", "Title", "Assignee", "Labels", "Ver", "Created"}
	if opts.Selected != nil {
		headers = append([]string{" "}, headers...)
	}
	offset := len(headers) - 7

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueToRow(issue, opts))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}

			if row < 0 || row >= len(issues) {
				return s
			}

			switch col - offset {
			case 0: // ID
				return s.Foreground(lipgloss.Color("15"))
			case 1: // Status
				return s.Foreground(ColorFromName(issues[row].Status.Color()))
			case 2: // Title
				return s.Bold(true)
			case 4, 5, 6: // Labels, Ver, Created
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func issueToRow(issue model.Issue, opts TableOptions) []string {
	row := []string{
		model.FormatID(issue.ID),
		statusLabel(issue.Status),
		truncate(issue.Title, maxTitleWidth),
		issue.AssigneeName(),
		truncate(strings.Join(issue.LabelNames(), ", "), maxLabelsWidth),
		strconv.Itoa(issue.Version),
		humanize.Time(issue.CreatedAt),
	}
	if opts.Selected != nil {
		row = append([]string{checkbox(opts.Selected[issue.ID])}, row...)
	}
	return row
}

func checkbox(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

func renderPlainTable(issues []model.Issue, opts TableOptions) string {
	var b strings.Builder

	sel := ""
	if opts.Selected != nil {
		sel = "    "
	}
	fmt.Fprintf(&b, "%s%-10s %-16s %-40s %-15s %-24s %-4s %s\n",
		sel, "ID", "Status", "Title", "Assignee", "Labels", "Ver", "Created")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 120+len(sel)))

	for _, issue := range issues {
		if opts.Selected != nil {
			sel = checkbox(opts.Selected[issue.ID]) + " "
		}
		fmt.Fprintf(&b, "%s%-10s %-16s %-40s %-15s %-24s %-4d %s\n",
			sel,
			model.FormatID(issue.ID),
			statusLabel(issue.Status),
			truncate(issue.Title, maxTitleWidth),
			issue.AssigneeName(),
			truncate(strings.Join(issue.LabelNames(), ", "), maxLabelsWidth),
			issue.Version,
			humanize.Time(issue.CreatedAt),
		)
	}

	return b.String()
}
