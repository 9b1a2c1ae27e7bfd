// Package registry provides the condition and operation lookup services
// backing the condition store.
//
// # Overview
//
// Conditions register a factory that derives a predicate from an argument
// list; operations register a combinator that evaluates a condition
// sequence. Instead of hard-coded switch statements, both register by name
// so contributors can add condition types without modifying store code.
//
// # Adding a New Condition
//
// To add a new condition type (e.g. an "isWeekend" date condition):
//
//	package datecond
//
//	import (
//	    "github.com/rowfilter/engine/internal/conditions"
//	    "github.com/rowfilter/engine/internal/registry"
//	)
//
//	func init() {
//	    registry.RegisterCondition("isWeekend", newIsWeekend)
//	}
//
//	func newIsWeekend(args []any) (conditions.Predicate, error) {
//	    // Validate args and return your predicate
//	    return func(candidate any) bool { ... }, nil
//	}
//
// # Built-in Conditions and Operations
//
// Built-in conditions (isEqualTo, contains, between, expr, script, ...)
// and the conjunction/disjunction operations are registered automatically
// via init() functions in this package.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rowfilter/engine/internal/conditions"
)

// ConditionFactory derives a predicate from a normalized argument list.
// Returns an error if the arguments are invalid for the condition.
type ConditionFactory func(args []any) (conditions.Predicate, error)

// conditionRegistry holds registered condition factories.
var (
	conditionMu       sync.RWMutex
	conditionRegistry = make(map[string]ConditionFactory)
)

// operationRegistry holds registered operation combinators. operationOrder
// preserves registration order for deterministic enumeration.
var (
	operationMu       sync.RWMutex
	operationRegistry = make(map[conditions.Operation]conditions.Combinator)
	operationOrder    []conditions.Operation
)

// RegisterCondition registers a condition factory by name. Registering an
// already registered name overwrites the previous factory.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func RegisterCondition(name string, factory ConditionFactory) {
	conditionMu.Lock()
	defer conditionMu.Unlock()
	conditionRegistry[name] = factory
}

// RegisterOperation registers an operation combinator. Registering an
// already registered operation overwrites the previous combinator but
// keeps its enumeration position.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func RegisterOperation(op conditions.Operation, combinator conditions.Combinator) {
	operationMu.Lock()
	defer operationMu.Unlock()
	if _, exists := operationRegistry[op]; !exists {
		operationOrder = append(operationOrder, op)
	}
	operationRegistry[op] = combinator
}

// GetConditionFactory returns the registered factory for a condition name.
// Returns nil if no factory is registered for the given name.
func GetConditionFactory(name string) ConditionFactory {
	conditionMu.RLock()
	defer conditionMu.RUnlock()
	return conditionRegistry[name]
}

// GetOperationCombinator returns the registered combinator for an
// operation. Returns nil if the operation is not registered.
func GetOperationCombinator(op conditions.Operation) conditions.Combinator {
	operationMu.RLock()
	defer operationMu.RUnlock()
	return operationRegistry[op]
}

// ListConditionNames returns all registered condition names, sorted.
// Useful for documentation and CLI listings.
func ListConditionNames() []string {
	conditionMu.RLock()
	defer conditionMu.RUnlock()
	names := make([]string, 0, len(conditionRegistry))
	for name := range conditionRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListOperationTypes returns all registered operations in registration
// order.
func ListOperationTypes() []conditions.Operation {
	operationMu.RLock()
	defer operationMu.RUnlock()
	ops := make([]conditions.Operation, len(operationOrder))
	copy(ops, operationOrder)
	return ops
}

// ClearRegistries removes all registered factories and combinators.
// This is intended for testing purposes only.
func ClearRegistries() {
	conditionMu.Lock()
	conditionRegistry = make(map[string]ConditionFactory)
	conditionMu.Unlock()

	operationMu.Lock()
	operationRegistry = make(map[conditions.Operation]conditions.Combinator)
	operationOrder = nil
	operationMu.Unlock()
}

// UnknownConditionError is returned when a condition name has no
// registered factory.
type UnknownConditionError struct {
	// Name is the unregistered condition name
	Name string
}

func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("unknown condition name %q", e.Name)
}

// ConditionResolver adapts the condition registry to the store's condition
// lookup interface.
type ConditionResolver struct{}

// Resolve derives a predicate for the named condition. Fails with an
// UnknownConditionError if the name is unregistered.
func (ConditionResolver) Resolve(name string, args []any) (conditions.Predicate, error) {
	factory := GetConditionFactory(name)
	if factory == nil {
		return nil, &UnknownConditionError{Name: name}
	}
	return factory(args)
}

// OperationResolver adapts the operation registry to the store's operation
// lookup interface.
type OperationResolver struct{}

// Resolve returns the combinator for an operation, or an
// UnknownOperationError for unrecognized operations.
func (OperationResolver) Resolve(op conditions.Operation) (conditions.Combinator, error) {
	combinator := GetOperationCombinator(op)
	if combinator == nil {
		return nil, &conditions.UnknownOperationError{Operation: op}
	}
	return combinator, nil
}

// Operations enumerates all registered operations.
func (OperationResolver) Operations() []conditions.Operation {
	return ListOperationTypes()
}

// Verify the resolvers implement the store's lookup interfaces
var (
	_ conditions.ConditionResolver = ConditionResolver{}
	_ conditions.OperationResolver = OperationResolver{}
)
