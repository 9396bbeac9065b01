package frame

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
)

// Predicate decides whether a row is kept. Row values are keyed by column name and
// hold int64, float64, bool, string, time.Time or nil.
type Predicate func(row map[string]any) (bool, error)

// CompileFilter parses a boolean expression such as `amount > 100 && region == 'EU'`.
// Column names that are not valid identifiers can be written in brackets: `[unit price] > 2`.
func CompileFilter(expr string) (Predicate, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("filter expression is empty")
	}
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression '%s': %w", expr, err)
	}
	return func(row map[string]any) (bool, error) {
		res, err := e.Evaluate(row)
		if err != nil {
			return false, fmt.Errorf("filter evaluation failed: %w", err)
		}
		keep, ok := res.(bool)
		if !ok {
			return false, fmt.Errorf("filter returned %T (%v), expected bool", res, res)
		}
		return keep, nil
	}, nil
}

// FilterVars lists the parameter names an expression refers to.
func FilterVars(expr string) ([]string, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression '%s': %w", expr, err)
	}
	return e.Vars(), nil
}
