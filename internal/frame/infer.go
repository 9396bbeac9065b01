package frame

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/araddon/dateparse"
)

// isNull reports whether a raw cell carries no value.
func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	}
	return false
}

// classify returns the narrowest type able to hold a single non-null cell.
func classify(v any) Type {
	switch x := v.(type) {
	case string:
		return classifyString(x)
	case []byte:
		return classifyString(string(x))
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return Int64
	case uint, uint64:
		if _, err := toInt64(x); err != nil {
			return Float64
		}
		return Int64
	case float32, float64:
		return Float64
	case bool:
		return Boolean
	case time.Time:
		return Datetime
	}
	return String
}

func classifyString(s string) Type {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int64
	}
	if isDecimal(s) {
		return Float64
	}
	if _, ok := parseStrictBool(s); ok {
		return Boolean
	}
	if t, err := parseTime(s); err == nil {
		if isDateOnly(s, t) {
			return Date
		}
		return Datetime
	}
	return String
}

// widen merges the types of two cells of the same column.
func widen(a, b Type) Type {
	if a == b {
		return a
	}
	if (a == Int64 && b == Float64) || (a == Float64 && b == Int64) {
		return Float64
	}
	if (a == Date && b == Datetime) || (a == Datetime && b == Date) {
		return Datetime
	}
	return String
}

// column accumulates inference state for one column.
type column struct {
	seen bool
	typ  Type
}

func (c *column) observe(v any) {
	if isNull(v) || (c.seen && c.typ == String) {
		return
	}
	t := classify(v)
	if !c.seen {
		c.seen, c.typ = true, t
		return
	}
	c.typ = widen(c.typ, t)
}

// result is String for columns that held only nulls.
func (c *column) result() Type {
	if !c.seen {
		return String
	}
	return c.typ
}

// Infer returns the type of a column from a sample of its cells.
func Infer(cells []any) Type {
	var c column
	for _, v := range cells {
		c.observe(v)
	}
	return c.result()
}

func parseStrictBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// decimalNumber excludes the nan, inf and hex forms strconv.ParseFloat also accepts.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

func isDecimal(s string) bool {
	if !decimalNumber.MatchString(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// fourDigitYear guards against times of day, ratios and version numbers, which
// dateparse reads as dates in year 0.
var fourDigitYear = regexp.MustCompile(`\d{4}`)

// parseTime recognises the date layouts dateparse knows; times without a zone are UTC.
// The text must carry a four digit year.
func parseTime(s string) (t time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unparseable date '%s'", s)
		}
	}()
	if !fourDigitYear.MatchString(s) {
		return time.Time{}, fmt.Errorf("unparseable date '%s': no year", s)
	}
	t, err = dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	if t.Year() == 0 {
		return time.Time{}, fmt.Errorf("unparseable date '%s': no year", s)
	}
	return t, nil
}

func isDateOnly(s string, t time.Time) bool {
	if strings.ContainsAny(s, ":") {
		return false
	}
	t = t.UTC()
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("value %v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		return parseDecimal(x)
	case []byte:
		return parseDecimal(string(x))
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
	return float64(i), nil
}

func parseDecimal(s string) (float64, error) {
	if !decimalNumber.MatchString(s) {
		return 0, fmt.Errorf("invalid number '%s'", s)
	}
	return strconv.ParseFloat(s, 64)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	case []byte:
		return strconv.ParseBool(string(x))
	}
	i, err := toInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
	return i != 0, nil
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to a date", v)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Convert turns a raw cell into the value stored for type t: int64, float64, bool,
// string, arrow.Date32 or arrow.Timestamp (microseconds). Null cells return nil.
func Convert(t Type, v any) (any, error) {
	if isNull(v) {
		return nil, nil
	}
	switch t {
	case Int64:
		return toInt64(v)
	case Float64:
		return toFloat64(v)
	case Boolean:
		return toBool(v)
	case Date:
		tm, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return arrow.Date32FromTime(tm), nil
	case Datetime:
		tm, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return arrow.Timestamp(tm.UnixMicro()), nil
	}
	return toString(v), nil
}

// goValue maps a stored value onto the plain Go value row filters see.
func goValue(v any) any {
	switch x := v.(type) {
	case arrow.Date32:
		return x.ToTime()
	case arrow.Timestamp:
		return x.ToTime(arrow.Microsecond)
	}
	return v
}
