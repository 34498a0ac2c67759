package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

// writeHumanSuccess writes a success message to w. One-liners get a check
// mark; multi-line views (tables, boards, detail) are printed untouched.
func writeHumanSuccess(w io.Writer, message string) {
	switch {
	case message == "":
		return
	case strings.Contains(message, "\n") || !render.ColorsEnabled():
		fmt.Fprintln(w, message)
	default:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("\u2714")
		fmt.Fprintf(w, "%s %s\n", icon, message)
	}
}

// writeHumanError writes err to w under the given label, e.g. "Error:".
func writeHumanError(w io.Writer, label string, err error) {
	if !render.ColorsEnabled() {
		fmt.Fprintf(w, "%s %s\n", label, err)
		return
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	fmt.Fprintf(w, "%s %s %s\n", style.Render("\u2718"), style.Render(label), err)
}
