package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the solsim banner in a blue-to-green gradient.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"            _     _           ", "#38bdf8"},
		{"  ___  ___ | |___(_)_ __ ___  ", "#22d3ee"},
		{" / __|/ _ \\| / __| | '_ ` _ \\ ", "#2dd4bf"},
		{" \\__ \\ (_) | \\__ \\ | | | | | |", "#34d399"},
		{" |___/\\___/|_|___/_|_| |_| |_|", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
