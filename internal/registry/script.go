// Package registry provides the condition and operation lookup services.
// The script condition evaluates JavaScript predicates using the Goja
// engine.
package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/rowfilter/engine/internal/conditions"
	"github.com/rowfilter/engine/internal/logger"
)

// Security limits for script validation
const (
	// MaxScriptLength is the maximum allowed script length in bytes (100KB)
	MaxScriptLength = 100 * 1024
)

// Common errors for the script condition
var (
	// ErrScriptEmpty is returned when the script is empty or whitespace-only
	ErrScriptEmpty = fmt.Errorf("script cannot be empty")
	// ErrScriptTooLong is returned when the script exceeds MaxScriptLength
	ErrScriptTooLong = fmt.Errorf("script exceeds maximum length")
	// ErrMissingMatchFunc is returned when the script doesn't define a match function
	ErrMissingMatchFunc = fmt.Errorf("match function not found in script")
	// ErrMatchNotFunction is returned when match is defined but is not a function
	ErrMatchNotFunction = fmt.Errorf("match is not a function")
)

// newScriptCondition builds a predicate from a single JavaScript source
// argument. The script must define a match(value) function returning a
// truthy result for matching candidates, e.g.
//
//	function match(value) { return value != null && value.length > 3 }
//
// The store lower-cases string arguments before derivation, so scripts
// must be written entirely in lower case (the required function name
// "match" already is).
//
// Thread safety: Goja runtimes are not goroutine-safe. Each derived
// predicate owns its runtime and serializes calls with a mutex, so one
// predicate must not be shared across concurrently evaluating stores.
func newScriptCondition(args []any) (conditions.Predicate, error) {
	arg, err := oneArg("script", args)
	if err != nil {
		return nil, err
	}
	source, ok := arg.(string)
	if !ok {
		return nil, fmt.Errorf("script requires a string source, got %T", arg)
	}
	if strings.TrimSpace(source) == "" {
		return nil, ErrScriptEmpty
	}
	if len(source) > MaxScriptLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrScriptTooLong, len(source), MaxScriptLength)
	}

	runtime := goja.New()
	if _, err := runtime.RunString(source); err != nil {
		return nil, fmt.Errorf("script compilation failed: %w", err)
	}

	matchValue := runtime.Get("match")
	if matchValue == nil || goja.IsUndefined(matchValue) {
		return nil, ErrMissingMatchFunc
	}
	matchFn, ok := goja.AssertFunction(matchValue)
	if !ok {
		return nil, ErrMatchNotFunction
	}

	var mu sync.Mutex
	return func(candidate any) bool {
		mu.Lock()
		defer mu.Unlock()

		result, err := matchFn(goja.Undefined(), runtime.ToValue(candidate))
		if err != nil {
			logger.Warn("script evaluation failed",
				slog.String("error", err.Error()),
			)
			return false
		}
		return result.ToBoolean()
	}, nil
}
