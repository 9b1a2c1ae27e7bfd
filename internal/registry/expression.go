// Package registry provides the condition and operation lookup services.
// The expr condition evaluates expr-lang expressions against cell values.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/rowfilter/engine/internal/conditions"
	"github.com/rowfilter/engine/internal/logger"
)

// Common errors for the expr condition
var (
	// ErrEmptyExpression is returned when the expression is empty or whitespace-only
	ErrEmptyExpression = fmt.Errorf("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid
	ErrInvalidExpression = fmt.Errorf("invalid expression syntax")
)

// newExprCondition builds a predicate from a single expression argument.
// The candidate is bound as "value" in the expression environment, e.g.
// "value > 10" or "len(value) >= 3".
//
// The store lower-cases string arguments before derivation, so expressions
// must be written in lower case; the builtin environment only exposes the
// lower-case "value" identifier.
func newExprCondition(args []any) (conditions.Predicate, error) {
	arg, err := oneArg("expr", args)
	if err != nil {
		return nil, err
	}
	source, ok := arg.(string)
	if !ok {
		return nil, fmt.Errorf("expr requires a string expression, got %T", arg)
	}
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyExpression
	}

	// AllowUndefinedVariables() handles missing identifiers gracefully
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	return func(candidate any) bool {
		output, err := expr.Run(program, map[string]any{"value": candidate})
		if err != nil {
			logger.Warn("expression evaluation failed",
				slog.String("expression", source),
				slog.String("error", err.Error()),
			)
			return false
		}
		result, ok := output.(bool)
		if !ok {
			// Non-boolean results are treated as a truthy check
			result = toBool(output)
		}
		return result
	}, nil
}

// toBool converts a value to boolean.
func toBool(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
