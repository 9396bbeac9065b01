package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrFieldCount marks a row whose width differs from the header.
var ErrFieldCount = errors.New("wrong number of fields")

// Options controls how raw rows become a table.
type Options struct {
	// Columns selects and orders the output columns. Empty keeps every column.
	Columns []string
	// Overrides forces column types instead of inferring them.
	Overrides Overrides
	// InferLength is the number of rows sampled for inference. Negative samples
	// every row; zero skips inference and makes every column String.
	InferLength int
	// Filter drops rows for which it returns false or fails.
	Filter Predicate
	// OnSkip is called for every row dropped because it could not be converted.
	// row is the zero-based index into the rows handed to Build.
	OnSkip func(row int, err error)
	// Allocator defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
}

// Stats describes what happened to the input rows.
type Stats struct {
	Rows     int // rows in the table
	Skipped  int // rows that failed conversion or filter evaluation
	Filtered int // rows the filter rejected
}

// NormalizeHeader strips a UTF-8 byte order mark, names empty headers column_<n>
// (1-based) and suffixes repeated names with _duplicated_<k>.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		if k, dup := seen[h]; dup {
			seen[h] = k + 1
			h = h + "_duplicated_" + strconv.Itoa(k)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

// BuildStrings builds a table from text rows, such as the records of a CSV file.
func BuildStrings(header []string, rows [][]string, opts Options) (arrow.Table, Stats, error) {
	src := source{
		n:     len(rows),
		width: func(r int) int { return len(rows[r]) },
		cell:  func(r, c int) any { return rows[r][c] },
	}
	return build(header, src, opts)
}

// BuildValues builds a table from typed Go values, such as database rows.
func BuildValues(header []string, rows [][]any, opts Options) (arrow.Table, Stats, error) {
	src := source{
		n:     len(rows),
		width: func(r int) int { return len(rows[r]) },
		cell:  func(r, c int) any { return rows[r][c] },
	}
	return build(header, src, opts)
}

type source struct {
	n     int
	width func(r int) int
	cell  func(r, c int) any
}

// resolveColumns maps the requested names onto header positions.
func resolveColumns(header, requested []string) ([]int, error) {
	if len(requested) == 0 {
		idx := make([]int, len(header))
		for i := range header {
			idx[i] = i
		}
		return idx, nil
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	idx := make([]int, 0, len(requested))
	var missing []string
	for _, name := range requested {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx = append(idx, i)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func build(rawHeader []string, src source, opts Options) (arrow.Table, Stats, error) {
	var stats Stats
	header := NormalizeHeader(rawHeader)
	idx, err := resolveColumns(header, opts.Columns)
	if err != nil {
		return nil, stats, err
	}
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = header[c]
	}
	if err := opts.Overrides.Validate(names); err != nil {
		return nil, stats, err
	}

	types := inferTypes(names, idx, len(header), src, opts)
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: types[i].DataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	skip := func(r int, err error) {
		stats.Skipped++
		if opts.OnSkip != nil {
			opts.OnSkip(r, err)
		}
	}

	vals := make([]any, len(idx))
	var params map[string]any
	if opts.Filter != nil {
		params = make(map[string]any, len(idx))
	}
	for r := 0; r < src.n; r++ {
		if w := src.width(r); w != len(header) {
			skip(r, fmt.Errorf("%w: expected %d, got %d", ErrFieldCount, len(header), w))
			continue
		}
		if err := convertRow(vals, r, idx, names, types, src); err != nil {
			skip(r, err)
			continue
		}
		if opts.Filter != nil {
			for i, name := range names {
				params[name] = goValue(vals[i])
			}
			keep, err := opts.Filter(params)
			if err != nil {
				skip(r, err)
				continue
			}
			if !keep {
				stats.Filtered++
				continue
			}
		}
		for i, v := range vals {
			appendValue(rb.Field(i), v)
		}
		stats.Rows++
	}

	rec := rb.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec}), stats, nil
}

func inferTypes(names []string, idx []int, width int, src source, opts Options) []Type {
	types := make([]Type, len(idx))
	cols := make([]column, len(idx))
	limit := opts.InferLength
	if limit < 0 || limit > src.n {
		limit = src.n
	}
	sampled := 0
	for r := 0; r < src.n && sampled < limit; r++ {
		if src.width(r) != width {
			continue
		}
		sampled++
		for i, c := range idx {
			if _, forced := opts.Overrides[names[i]]; forced {
				continue
			}
			cols[i].observe(src.cell(r, c))
		}
	}
	for i, name := range names {
		if t, forced := opts.Overrides[name]; forced {
			types[i] = t
			continue
		}
		types[i] = cols[i].result()
	}
	return types
}

func convertRow(dst []any, r int, idx []int, names []string, types []Type, src source) error {
	for i, c := range idx {
		v, err := Convert(types[i], src.cell(r, c))
		if err != nil {
			return fmt.Errorf("column '%s': %w", names[i], err)
		}
		dst[i] = v
	}
	return nil
}

// appendValue writes a converted cell; nil becomes a null slot.
func appendValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.Int64Builder:
		bb.Append(v.(int64))
	case *array.Float64Builder:
		bb.Append(v.(float64))
	case *array.BooleanBuilder:
		bb.Append(v.(bool))
	case *array.Date32Builder:
		bb.Append(v.(arrow.Date32))
	case *array.TimestampBuilder:
		bb.Append(v.(arrow.Timestamp))
	case *array.StringBuilder:
		bb.Append(v.(string))
	default:
		b.AppendNull()
	}
}
