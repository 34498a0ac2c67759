package render

import (
	"fmt"
	"strconv"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// simpleTable renders headers and rows as a bordered table, or as aligned
// plain text when colors are disabled.
func simpleTable(headers []string, rows [][]string) string {
	if !ColorsEnabled() {
		widths := make([]int, len(headers))
		for i, h := range headers {
			widths[i] = len(h)
		}
		for _, r := range rows {
			for i, c := range r {
				widths[i] = max(widths[i], len(c))
			}
		}

		var b strings.Builder
		writeRow := func(cells []string) {
			parts := make([]string, len(cells))
			for i, c := range cells {
				parts[i] = fmt.Sprintf("%-*s", widths[i], c)
			}
			b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " ") + "\n")
		}
		writeRow(headers)
		for _, r := range rows {
			writeRow(r)
		}
		return b.String()
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			return s
		}).
		Render()
}

// RenderLabels renders the label catalog with usage counts.
func RenderLabels(labels []model.LabelWithCount) string {
	if len(labels) == 0 {
		return EmptyState("No labels.", "Seed some with: issuedesk serve --label bug", false)
	}
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{strconv.Itoa(l.ID), l.Name, humanize.Comma(int64(l.IssueCount))})
	}
	return simpleTable([]string{"ID", "Name", "Issues"}, rows)
}

// RenderUsers renders the user directory.
func RenderUsers(users []model.User) string {
	if len(users) == 0 {
		return EmptyState("No users.", "Seed some with: issuedesk serve --user alice", false)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{strconv.Itoa(u.ID), u.Name})
	}
	return simpleTable([]string{"ID", "Name"}, rows)
}

// RenderTopAssignees renders the top-assignees report in rank order.
func RenderTopAssignees(rows []model.AssigneeCount) string {
	if len(rows) == 0 {
		return EmptyState("No assigned issues.", "", false)
	}
	out := make([][]string, 0, len(rows))
	for i, r := range rows {
		out = append(out, []string{
			humanize.Ordinal(i + 1),
			r.Name,
			humanize.Comma(int64(r.IssueCount)),
		})
	}
	return simpleTable([]string{"Rank", "Assignee", "Issues"}, out)
}

// RenderLatency renders the average resolution latency.
func RenderLatency(l *model.ResolutionLatency) string {
	text := fmt.Sprintf("Average resolution time: %s hours", humanize.FtoaWithDigits(l.AverageHours, 2))
	return StyledText(text, lipgloss.NewStyle().Bold(true))
}
