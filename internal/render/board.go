package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

const (
	maxCardsPerColumn = 10
	minColumnWidth    = 24
	defaultTermWidth  = 100
	cardPadding       = 2 // left+right padding inside cards
)

// BoardOptions configures board rendering behavior.
type BoardOptions struct {
	// Expand shows every card instead of capping each column.
	Expand bool
}

// RenderBoard renders issues as a board with one column per status, in
// workflow order. Every status gets a column, even when empty.
func RenderBoard(issues []model.Issue, opts BoardOptions) string {
	if len(issues) == 0 {
		return EmptyState("No issues on the board.", "Create one with: issuedesk create", false)
	}

	if !ColorsEnabled() {
		return renderPlainBoard(issues, opts)
	}

	return renderColorBoard(issues, opts)
}

// terminalWidth returns the current terminal width, falling back to a default.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

// groupByStatus groups issues into a map keyed by status, keeping input order.
func groupByStatus(issues []model.Issue) map[model.Status][]model.Issue {
	groups := make(map[model.Status][]model.Issue)
	for _, issue := range issues {
		groups[issue.Status] = append(groups[issue.Status], issue)
	}
	return groups
}

// visibleCards caps a column unless expanded and returns the overflow count.
func visibleCards(issues []model.Issue, expand bool) ([]model.Issue, int) {
	if expand || len(issues) <= maxCardsPerColumn {
		return issues, 0
	}
	return issues[:maxCardsPerColumn], len(issues) - maxCardsPerColumn
}

func renderColorBoard(issues []model.Issue, opts BoardOptions) string {
	groups := groupByStatus(issues)

	tw := terminalWidth()
	gaps := len(model.Statuses) - 1
	colWidth := max((tw-gaps)/len(model.Statuses), minColumnWidth)

	// Inner width available for card content (minus border/padding).
	cardContentWidth := max(colWidth-cardPadding-2, 5)

	columns := make([]string, 0, len(model.Statuses))
	for _, status := range model.Statuses {
		columns = append(columns, renderColorColumn(status, groups[status], colWidth, cardContentWidth, opts))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func renderColorColumn(status model.Status, issues []model.Issue, colWidth, contentWidth int, opts BoardOptions) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorFromName(status.Color())).
		Width(colWidth).
		Align(lipgloss.Center)

	header := headerStyle.Render(fmt.Sprintf("%s %s (%d)", status.Icon(), string(status), len(issues)))

	visible, overflow := visibleCards(issues, opts.Expand)

	cards := make([]string, 0, len(visible)+2)
	cards = append(cards, header)

	for _, issue := range visible {
		cards = append(cards, renderColorCard(issue, colWidth, contentWidth))
	}

	if overflow > 0 {
		moreStyle := lipgloss.NewStyle().
			Width(colWidth).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color("8"))
		cards = append(cards, moreStyle.Render(fmt.Sprintf("+%d more", overflow)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderColorCard(issue model.Issue, colWidth, contentWidth int) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	line1 := fmt.Sprintf("%s %s", model.FormatID(issue.ID), dim.Render(fmt.Sprintf("v%d", issue.Version)))
	lines := []string{line1, truncate(issue.Title, contentWidth)}

	if name := issue.AssigneeName(); name != "" {
		lines = append(lines, dim.Render(truncate("@"+name, contentWidth)))
	}
	if len(issue.Labels) > 0 {
		lines = append(lines, truncate(strings.Join(issue.LabelNames(), ", "), contentWidth))
	}

	cardStyle := lipgloss.NewStyle().
		Width(colWidth-2).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFromName(issue.Status.Color()))

	return cardStyle.Render(strings.Join(lines, "\n"))
}

// --- Plain text fallback ---

func renderPlainBoard(issues []model.Issue, opts BoardOptions) string {
	groups := groupByStatus(issues)

	var b strings.Builder

	for i, status := range model.Statuses {
		if i > 0 {
			b.WriteString("\n")
		}

		inCol := groups[status]
		fmt.Fprintf(&b, "=== %s %s (%d) ===\n", status.Icon(), string(status), len(inCol))

		visible, overflow := visibleCards(inCol, opts.Expand)
		for _, issue := range visible {
			renderPlainCard(&b, issue)
		}

		if overflow > 0 {
			fmt.Fprintf(&b, "  +%d more\n", overflow)
		}
	}

	return b.String()
}

func renderPlainCard(b *strings.Builder, issue model.Issue) {
	fmt.Fprintf(b, "  %s (v%d)", model.FormatID(issue.ID), issue.Version)
	if name := issue.AssigneeName(); name != "" {
		fmt.Fprintf(b, " @%s", name)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "  %s\n", truncate(issue.Title, maxTitleWidth))

	if len(issue.Labels) > 0 {
		fmt.Fprintf(b, "  %s\n", strings.Join(issue.LabelNames(), ", "))
	}

	b.WriteString("\n")
}
