package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/solsim/pkg/results"
)

const defaultWidth = 100

// NewRenderer returns a function that renders markdown using glamour,
// wrapped at width columns.
func NewRenderer(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// Summary is the markdown header describing a table.
func Summary(t *results.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Simulation results\n\n")
	fmt.Fprintf(&b, "- **Runs:** %d\n", t.Runs())
	fmt.Fprintf(&b, "- **Steps per run:** %d\n", t.StepsPerRun())
	fmt.Fprintf(&b, "- **Quantities:** %s\n\n", strings.Join(t.Quantities(), ", "))
	return b.String()
}

// RenderTable writes the table as markdown. On a terminal the markdown is
// styled with glamour; anywhere else it is written as is.
func RenderTable(w io.Writer, t *results.Table) error {
	markdown := Summary(t) + t.Markdown()

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, markdown)
		return err
	}

	width := defaultWidth
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
		width = cols
	}
	out, err := NewRenderer(width)(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
