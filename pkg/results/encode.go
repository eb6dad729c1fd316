package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/solsim/pkg/domain"
)

// WriteCSV writes a header row followed by one line per record.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	line := make([]string, len(t.columns))
	for i := range t.records {
		for j, v := range t.Row(i) {
			line[j] = FormatValue(v)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// tableJSON is the wire form: columns plus row-major values.
type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table in column order.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]any, len(t.records))
	for i := range t.records {
		rows[i] = t.Row(i)
	}
	return json.Marshal(tableJSON{Columns: t.columns, Rows: rows})
}

// UnmarshalJSON decodes the wire form. Whole numbers come back as int so
// the index columns round-trip.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw tableJSON
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	records := make([]domain.State, len(raw.Rows))
	for i, row := range raw.Rows {
		if len(row) != len(raw.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(raw.Columns))
		}
		rec := make(domain.State, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			rec[raw.Columns[j]] = fromJSON(v)
		}
		records[i] = rec
	}
	t.columns = OrderColumns(raw.Columns)
	t.records = records
	return nil
}

// WriteJSON writes the table as a single JSON document.
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// ReadJSON decodes a table written by WriteJSON.
func ReadJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	t := &Table{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return t, nil
}

func fromJSON(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	f, _ := n.Float64()
	return f
}

// FormatValue renders a cell for text output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// Markdown renders the table as a GitHub-flavored markdown table.
func (t *Table) Markdown() string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(t.columns, " | ") + " |\n")
	b.WriteString("|")
	for range t.columns {
		b.WriteString(" ---: |")
	}
	b.WriteString("\n")
	for i := range t.records {
		cells := make([]string, len(t.columns))
		for j, v := range t.Row(i) {
			cells[j] = FormatValue(v)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}
