// Package registry provides the condition and operation lookup services.
// This file registers all built-in conditions and operations during
// initialization.
package registry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rowfilter/engine/internal/conditions"
)

func init() {
	registerBuiltinOperations()
	registerBuiltinConditions()
}

// registerBuiltinOperations registers the conjunction and disjunction
// combinators.
func registerBuiltinOperations() {
	// conjunction - every condition must match, short-circuits on false
	RegisterOperation(conditions.OperationConjunction, func(conds []conditions.Condition, candidate any) bool {
		for _, c := range conds {
			if !c.Matches(candidate) {
				return false
			}
		}
		return true
	})

	// disjunction - at least one condition must match, short-circuits on true
	RegisterOperation(conditions.OperationDisjunction, func(conds []conditions.Condition, candidate any) bool {
		for _, c := range conds {
			if c.Matches(candidate) {
				return true
			}
		}
		return false
	})
}

// registerBuiltinConditions registers all built-in condition types.
// Argument strings arrive lower-cased from the store; predicates lower the
// candidate side too, so string matching is case-insensitive throughout.
func registerBuiltinConditions() {
	RegisterCondition("isEqualTo", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("isEqualTo", args)
		if err != nil {
			return nil, err
		}
		return func(candidate any) bool {
			return valuesEqual(candidate, arg)
		}, nil
	})

	RegisterCondition("isNotEqualTo", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("isNotEqualTo", args)
		if err != nil {
			return nil, err
		}
		return func(candidate any) bool {
			return !valuesEqual(candidate, arg)
		}, nil
	})

	RegisterCondition("contains", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("contains", args)
		if err != nil {
			return nil, err
		}
		needle := lowerString(arg)
		return func(candidate any) bool {
			return strings.Contains(lowerString(candidate), needle)
		}, nil
	})

	RegisterCondition("notContains", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("notContains", args)
		if err != nil {
			return nil, err
		}
		needle := lowerString(arg)
		return func(candidate any) bool {
			return !strings.Contains(lowerString(candidate), needle)
		}, nil
	})

	RegisterCondition("startsWith", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("startsWith", args)
		if err != nil {
			return nil, err
		}
		prefix := lowerString(arg)
		return func(candidate any) bool {
			return strings.HasPrefix(lowerString(candidate), prefix)
		}, nil
	})

	RegisterCondition("endsWith", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("endsWith", args)
		if err != nil {
			return nil, err
		}
		suffix := lowerString(arg)
		return func(candidate any) bool {
			return strings.HasSuffix(lowerString(candidate), suffix)
		}, nil
	})

	RegisterCondition("greaterThan", comparisonCondition("greaterThan", func(cmp int) bool { return cmp > 0 }))
	RegisterCondition("greaterThanOrEqualTo", comparisonCondition("greaterThanOrEqualTo", func(cmp int) bool { return cmp >= 0 }))
	RegisterCondition("lessThan", comparisonCondition("lessThan", func(cmp int) bool { return cmp < 0 }))
	RegisterCondition("lessThanOrEqualTo", comparisonCondition("lessThanOrEqualTo", func(cmp int) bool { return cmp <= 0 }))

	RegisterCondition("between", func(args []any) (conditions.Predicate, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("between requires exactly 2 arguments, got %d", len(args))
		}
		low, high := args[0], args[1]
		return func(candidate any) bool {
			cmpLow, okLow := compareValues(candidate, low)
			cmpHigh, okHigh := compareValues(candidate, high)
			return okLow && okHigh && cmpLow >= 0 && cmpHigh <= 0
		}, nil
	})

	RegisterCondition("in", func(args []any) (conditions.Predicate, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("in requires at least 1 argument")
		}
		// A single list argument is treated as the value set
		values := args
		if len(args) == 1 {
			if list, ok := args[0].([]any); ok {
				values = list
			}
		}
		return func(candidate any) bool {
			for _, v := range values {
				if valuesEqual(candidate, v) {
					return true
				}
			}
			return false
		}, nil
	})

	RegisterCondition("isEmpty", func(args []any) (conditions.Predicate, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("isEmpty takes no arguments, got %d", len(args))
		}
		return isEmptyValue, nil
	})

	RegisterCondition("isNotEmpty", func(args []any) (conditions.Predicate, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("isNotEmpty takes no arguments, got %d", len(args))
		}
		return func(candidate any) bool {
			return !isEmptyValue(candidate)
		}, nil
	})

	RegisterCondition("matches", func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg("matches", args)
		if err != nil {
			return nil, err
		}
		pattern, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("matches requires a string pattern, got %T", arg)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("matches: invalid pattern: %w", err)
		}
		return func(candidate any) bool {
			return re.MatchString(lowerString(candidate))
		}, nil
	})

	RegisterCondition("expr", newExprCondition)
	RegisterCondition("script", newScriptCondition)
}

// comparisonCondition builds a factory for an ordering condition.
func comparisonCondition(name string, accept func(cmp int) bool) ConditionFactory {
	return func(args []any) (conditions.Predicate, error) {
		arg, err := oneArg(name, args)
		if err != nil {
			return nil, err
		}
		return func(candidate any) bool {
			cmp, ok := compareValues(candidate, arg)
			return ok && accept(cmp)
		}, nil
	}
}

// oneArg extracts the single argument of a unary condition.
func oneArg(name string, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s requires exactly 1 argument, got %d", name, len(args))
	}
	return args[0], nil
}

// valuesEqual compares two values: numerically when both coerce to a
// number, otherwise as lower-cased strings.
func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return lowerString(a) == lowerString(b)
}

// compareValues orders two values: numerically when both coerce to a
// number, otherwise as lower-cased strings. The second result is false
// when a is nil (nil is never ordered relative to anything).
func compareValues(a, b any) (int, bool) {
	if a == nil {
		return 0, false
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return strings.Compare(lowerString(a), lowerString(b)), true
}

// toFloat coerces numeric values (and numeric strings) to float64.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// lowerString renders a value as a lower-cased string for case-insensitive
// matching. nil renders as the empty string.
func lowerString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.ToLower(s)
	}
	return strings.ToLower(fmt.Sprint(value))
}

// isEmptyValue reports whether a value is nil, an empty string, or an
// empty slice/map.
func isEmptyValue(candidate any) bool {
	switch v := candidate.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
