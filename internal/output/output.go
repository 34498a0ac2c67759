package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/issuedesk/internal/render"
)

// Writer is the single output channel of a command. In JSON mode every
// result is one envelope on Stdout; otherwise results go to Stdout and
// diagnostics to Stderr.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// New returns a Writer on os.Stdout and os.Stderr.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Success reports a result: data in JSON mode, message otherwise.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	writeHumanSuccess(w.Stdout, message)
}

// Error reports err and returns the exit code for code.
func (w *Writer) Error(err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code, nil)
	} else {
		writeHumanError(w.Stderr, "Error:", err)
	}
	return ExitCodeForError(code)
}

// Partial reports a change that was only partly applied. The resulting
// state is still shown (data in JSON mode, message otherwise) along with
// err, and ExitPartial is returned.
func (w *Writer) Partial(data any, message string, err error) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, err, ErrPartial, data)
		return ExitPartial
	}
	if message != "" {
		fmt.Fprintln(w.Stdout, message)
	}
	writeHumanError(w.Stderr, "Partially applied:", err)
	return ExitPartial
}

// Info writes a dim note to Stderr. Quiet and JSON modes drop it.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !render.ColorsEnabled() {
		fmt.Fprintln(w.Stderr, msg)
		return
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	fmt.Fprintf(w.Stderr, "%s %s\n", dim.Render("\u2139"), dim.Render(msg))
}

// Warn writes a warning to Stderr. Quiet mode keeps warnings; JSON mode
// drops them so the envelope stays the only output.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !render.ColorsEnabled() {
		fmt.Fprintf(w.Stderr, "Warning: %s\n", msg)
		return
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	fmt.Fprintf(w.Stderr, "%s %s %s\n", style.Render("\u26a0"), style.Render("Warning:"), msg)
}
