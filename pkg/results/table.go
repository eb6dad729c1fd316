package results

import (
	"maps"
	"slices"

	"github.com/aretw0/solsim/pkg/domain"
)

// IndexColumns lead every table, in this order.
var IndexColumns = []string{domain.KeyRun, domain.KeyStep}

// Table is the flat result of a simulation: one record per (run, step).
// Columns are ordered run, step, then every other quantity alphabetically,
// independent of the order systems produced their keys in.
type Table struct {
	columns []string
	records []domain.State
}

// New builds a table from filtered records. The records are not copied;
// callers hand ownership over.
func New(records []domain.State) *Table {
	keys := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	return &Table{
		columns: OrderColumns(slices.Collect(maps.Keys(keys))),
		records: records,
	}
}

// OrderColumns returns the canonical order of the given column names:
// the index columns first, then the rest sorted.
func OrderColumns(names []string) []string {
	rest := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(IndexColumns, n) {
			rest = append(rest, n)
		}
	}
	slices.Sort(rest)
	rest = slices.Compact(rest)
	return append(slices.Clone(IndexColumns), rest...)
}

// Columns returns the ordered column names.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Quantities returns the non-index columns.
func (t *Table) Quantities() []string {
	return slices.Clone(t.columns[len(IndexColumns):])
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.records)
}

// Record returns row i as a state.
func (t *Table) Record(i int) domain.State {
	return t.records[i].Clone()
}

// Records returns a copy of every row as a state.
func (t *Table) Records() []domain.State {
	out := make([]domain.State, len(t.records))
	for i, r := range t.records {
		out[i] = r.Clone()
	}
	return out
}

// Row returns row i's values in column order. Absent values are nil.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = t.records[i][c]
	}
	return row
}

// Column returns every value of a column, top to bottom.
func (t *Table) Column(name string) []any {
	col := make([]any, len(t.records))
	for i, r := range t.records {
		col[i] = r[name]
	}
	return col
}

// Runs returns the number of runs covered by the table.
func (t *Table) Runs() int {
	return t.maxIndex(domain.KeyRun) + 1
}

// StepsPerRun returns the number of steps covered by the longest run.
func (t *Table) StepsPerRun() int {
	return t.maxIndex(domain.KeyStep) + 1
}

func (t *Table) maxIndex(key string) int {
	highest := -1
	for _, r := range t.records {
		var v int
		if key == domain.KeyRun {
			v = r.Run()
		} else {
			v = r.Step()
		}
		highest = max(highest, v)
	}
	return highest
}

// Select returns a table restricted to the index columns and the given
// quantities. Unknown names are ignored.
func (t *Table) Select(quantities ...string) *Table {
	keep := slices.Clone(IndexColumns)
	for _, q := range quantities {
		if slices.Contains(t.columns, q) {
			keep = append(keep, q)
		}
	}
	records := make([]domain.State, len(t.records))
	for i, r := range t.records {
		rec := make(domain.State, len(keep))
		for _, k := range keep {
			if v, ok := r[k]; ok {
				rec[k] = v
			}
		}
		records[i] = rec
	}
	return &Table{columns: OrderColumns(keep), records: records}
}
