package results

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/aretw0/solsim/pkg/domain"
)

// columnKind is the storage type inferred for a column.
type columnKind int

const (
	kindString columnKind = iota
	kindInt
	kindFloat
	kindBool
)

func (k columnKind) dataType() arrow.DataType {
	switch k {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// inferKind picks the narrowest type holding every non-nil value.
// Mixed ints and floats widen to float; anything else falls back to string.
func inferKind(values []any) columnKind {
	seenInt, seenFloat, seenBool, seenOther := false, false, false, false
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			seenInt = true
		case float32, float64:
			seenFloat = true
		case bool:
			seenBool = true
		default:
			seenOther = true
		}
	}
	switch {
	case seenOther, seenBool && (seenInt || seenFloat):
		return kindString
	case seenBool:
		return kindBool
	case seenFloat:
		return kindFloat
	case seenInt:
		return kindInt
	default:
		return kindString
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	}
	return 0
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	}
	return float64(toInt64(v))
}

func appendColumn(b array.Builder, kind columnKind, values []any) {
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		switch kind {
		case kindInt:
			b.(*array.Int64Builder).Append(toInt64(v))
		case kindFloat:
			b.(*array.Float64Builder).Append(toFloat64(v))
		case kindBool:
			b.(*array.BooleanBuilder).Append(v.(bool))
		default:
			b.(*array.StringBuilder).Append(FormatValue(v))
		}
	}
}

// WriteFeather writes the table as a Feather v2 (Arrow IPC file) document,
// the format the results viewer reads. The Arrow file footer needs a
// seekable destination such as *os.File.
func (t *Table) WriteFeather(w io.WriteSeeker) error {
	mem := memory.DefaultAllocator

	kinds := make([]columnKind, len(t.columns))
	fields := make([]arrow.Field, len(t.columns))
	for i, c := range t.columns {
		kinds[i] = inferKind(t.Column(c))
		fields[i] = arrow.Field{Name: c, Type: kinds[i].dataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i, c := range t.columns {
		appendColumn(b.Field(i), kinds[i], t.Column(c))
	}
	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("failed to create feather writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write feather record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to finalize feather file: %w", err)
	}
	return nil
}

// ReadAtSeeker is what the Arrow file reader needs; *os.File satisfies it.
type ReadAtSeeker interface {
	io.Reader
	io.Seeker
	io.ReaderAt
}

// ReadFeather decodes a table written by WriteFeather.
func ReadFeather(r ReadAtSeeker) (*Table, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open feather file: %w", err)
	}
	defer fr.Close()

	var records []domain.State
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read feather record %d: %w", i, err)
		}
		rows := int(rec.NumRows())
		base := len(records)
		for j := 0; j < rows; j++ {
			records = append(records, domain.State{})
		}
		for c := 0; c < int(rec.NumCols()); c++ {
			name := rec.ColumnName(c)
			col := rec.Column(c)
			for j := 0; j < rows; j++ {
				if col.IsNull(j) {
					continue
				}
				records[base+j][name] = cellValue(col, j)
			}
		}
	}
	return New(records), nil
}

func cellValue(col arrow.Array, j int) any {
	switch a := col.(type) {
	case *array.Int64:
		return int(a.Value(j))
	case *array.Float64:
		return a.Value(j)
	case *array.Boolean:
		return a.Value(j)
	case *array.String:
		return a.Value(j)
	default:
		return col.ValueStr(j)
	}
}
