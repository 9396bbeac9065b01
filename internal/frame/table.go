package frame

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ColumnNames returns the field names of tbl in order.
func ColumnNames(tbl arrow.Table) []string {
	fields := tbl.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Select returns a new table holding only the named columns, in the given order.
// The result shares buffers with tbl and must be released separately.
func Select(tbl arrow.Table, names ...string) (arrow.Table, error) {
	idx, err := resolveColumns(ColumnNames(tbl), names)
	if err != nil {
		return nil, err
	}
	fields := make([]arrow.Field, len(idx))
	cols := make([]arrow.Column, len(idx))
	for i, c := range idx {
		col := tbl.Column(c)
		fields[i] = col.Field()
		cols[i] = *col
	}
	return array.NewTable(arrow.NewSchema(fields, nil), cols, tbl.NumRows()), nil
}

// StripMetadata returns a copy of tbl whose schema and fields carry no key/value
// metadata, e.g. the field ids a Parquet reader attaches.
func StripMetadata(tbl arrow.Table) arrow.Table {
	n := int(tbl.NumCols())
	fields := make([]arrow.Field, n)
	cols := make([]arrow.Column, n)
	for i := 0; i < n; i++ {
		col := tbl.Column(i)
		f := col.Field()
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type, Nullable: f.Nullable}
		nc := arrow.NewColumn(fields[i], col.Data())
		defer nc.Release()
		cols[i] = *nc
	}
	return array.NewTable(arrow.NewSchema(fields, nil), cols, tbl.NumRows())
}

// Equal reports whether two tables hold the same schema and values.
func Equal(a, b arrow.Table) bool {
	if a == nil || b == nil {
		return a == b
	}
	return array.TableEqual(a, b)
}

// Strings renders up to limit rows (all rows when limit < 0) as text, one slice per row.
func Strings(tbl arrow.Table, limit int) [][]string {
	rows := int(tbl.NumRows())
	if limit >= 0 && limit < rows {
		rows = limit
	}
	out := make([][]string, rows)
	for r := range out {
		out[r] = make([]string, tbl.NumCols())
	}
	for c := 0; c < int(tbl.NumCols()); c++ {
		r := 0
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len() && r < rows; i++ {
				out[r][c] = chunk.ValueStr(i)
				r++
			}
			if r >= rows {
				break
			}
		}
	}
	return out
}

// Head formats the first n rows as tab separated text with a header line.
func Head(tbl arrow.Table, n int) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(ColumnNames(tbl), "\t"))
	sb.WriteByte('\n')
	for _, row := range Strings(tbl, n) {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Describe renders the schema one "name: type" line per column.
func Describe(schema *arrow.Schema) string {
	var sb strings.Builder
	for _, f := range schema.Fields() {
		t, ok := TypeOf(f.Type)
		name := t.String()
		if !ok {
			name = f.Type.String()
		}
		fmt.Fprintf(&sb, "%s: %s\n", f.Name, name)
	}
	return sb.String()
}
