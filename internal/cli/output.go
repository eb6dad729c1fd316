package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/internal/presentation/tui"
	"github.com/aretw0/solsim/pkg/results"
)

// Output formats.
const (
	FormatTable   = "table"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatFeather = "feather"
)

var errNoOutput = errors.New("feather output needs --output")

// formatFor resolves the output format from the flag or the file extension.
func formatFor(format, output string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(output)) {
		case ".csv":
			return FormatCSV, nil
		case ".json":
			return FormatJSON, nil
		case ".feather", ".arrow":
			return FormatFeather, nil
		default:
			return FormatTable, nil
		}
	}
	switch f := strings.ToLower(format); f {
	case FormatTable, FormatCSV, FormatJSON, FormatFeather:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

// writeResults writes table to output, or to the command's stdout when
// output is empty.
func writeResults(cmd *cobra.Command, table *results.Table, output, format string) error {
	format, err := formatFor(format, output)
	if err != nil {
		return err
	}
	if output == "" {
		if format == FormatFeather {
			return errNoOutput
		}
		return encode(cmd.OutOrStdout(), table, format)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encode(f, table, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encode(w io.Writer, table *results.Table, format string) error {
	switch format {
	case FormatCSV:
		return table.WriteCSV(w)
	case FormatJSON:
		return table.WriteJSON(w)
	case FormatFeather:
		ws, ok := w.(io.WriteSeeker)
		if !ok {
			return errNoOutput
		}
		return table.WriteFeather(ws)
	default:
		return tui.RenderTable(w, table)
	}
}
