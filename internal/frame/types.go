// Package frame holds the tabular model shared by loaders and writers: a closed set
// of column types mapped onto arrow, type inference over raw cells, and helpers to
// build, project and render arrow tables.
package frame

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Type is one of the scalar column types a frame supports.
type Type int

const (
	String Type = iota
	Int64
	Float64
	Boolean
	Date
	Datetime
)

// ErrUnknownColumn is returned when a requested or overridden column does not exist.
var ErrUnknownColumn = errors.New("unknown column")

var typeNames = map[Type]string{
	String:   "string",
	Int64:    "int64",
	Float64:  "float64",
	Boolean:  "bool",
	Date:     "date",
	Datetime: "datetime",
}

var typeAliases = map[string]Type{
	"string": String, "str": String, "utf8": String, "text": String,
	"int64": Int64, "int": Int64, "integer": Int64,
	"float64": Float64, "float": Float64, "double": Float64,
	"bool": Boolean, "boolean": Boolean,
	"date": Date,
	"datetime": Datetime, "timestamp": Datetime,
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// DataType returns the arrow type used to store columns of t.
func (t Type) DataType() arrow.DataType {
	switch t {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Date:
		return arrow.FixedWidthTypes.Date32
	case Datetime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// TypeOf maps an arrow type back onto the closed set.
func TypeOf(dt arrow.DataType) (Type, bool) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return String, true
	case arrow.INT64:
		return Int64, true
	case arrow.FLOAT64:
		return Float64, true
	case arrow.BOOL:
		return Boolean, true
	case arrow.DATE32:
		return Date, true
	case arrow.TIMESTAMP:
		return Datetime, true
	}
	return String, false
}

// ParseType converts a type name such as "int64", "float" or "timestamp".
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return String, fmt.Errorf("unsupported column type '%s'", name)
	}
	return t, nil
}

// Overrides forces the type of individual columns instead of inferring it.
type Overrides map[string]Type

// ParseOverrides builds Overrides from column -> type name pairs, e.g. a YAML map.
func ParseOverrides(raw map[string]string) (Overrides, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Overrides, len(raw))
	var errs []error
	for col, name := range raw {
		t, err := ParseType(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("column '%s': %w", col, err))
			continue
		}
		out[col] = t
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Validate reports every overridden column missing from columns.
func (o Overrides) Validate(columns []string) error {
	if len(o) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	var missing []string
	for col := range o {
		if _, ok := known[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w in type overrides: %s", ErrUnknownColumn, strings.Join(missing, ", "))
}
