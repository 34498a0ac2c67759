package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// RenderImportOutcome renders the created and failed counts of a CSV import
// followed by every failed row. Failures are never truncated.
func RenderImportOutcome(o *model.ImportOutcome) string {
	summary := fmt.Sprintf("Imported %d issue(s), %d row(s) failed", o.Created, o.Failed)

	if !ColorsEnabled() {
		var b strings.Builder
		b.WriteString(summary + "\n")
		for _, f := range o.Errors {
			fmt.Fprintf(&b, "  row %d: %s\n", f.Row, f.Error)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	color := "green"
	switch {
	case o.Created == 0 && o.Failed > 0:
		color = "red"
	case o.Failed > 0:
		color = "yellow"
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(ColorFromName(color)).Render(summary)
	if len(o.Errors) == 0 {
		return head
	}

	rows := make([][]string, 0, len(o.Errors))
	for _, f := range o.Errors {
		rows = append(rows, []string{strconv.Itoa(f.Row), f.Error})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("Row", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if col == 1 {
				return s.Foreground(lipgloss.Color("9"))
			}
			return s
		})

	return head + "\n" + t.Render()
}
