// Package conditions implements the condition store: a per-column,
// operation-grouped collection of predicate conditions with evaluation,
// serialization, and change notification.
//
// The store is a pure accumulate/query structure. It is single-threaded by
// design: mutating calls (AddCondition, RemoveConditions, ClearConditions,
// Clean, ImportAllConditions, Destroy) share maps and slices without
// internal locking, so callers mutating one Store from multiple goroutines
// must serialize access externally. Read-only evaluation may run
// concurrently with other reads, but not with any mutation.
package conditions

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rowfilter/engine/internal/logger"
	"github.com/rowfilter/engine/pkg/filtering"
)

// Operation identifies a logical combination mode for a column's conditions.
type Operation string

// Built-in operation identifiers. The operation lookup service may know
// more; these two are the wire-format vocabulary.
const (
	OperationConjunction Operation = "conjunction"
	OperationDisjunction Operation = "disjunction"
)

// DefaultOperation is used when AddCondition is called with an empty
// operation.
const DefaultOperation = OperationConjunction

// Predicate reports whether a candidate cell value satisfies a condition.
type Predicate func(candidate any) bool

// Combinator evaluates a condition sequence against a candidate value,
// applying the operation's combination semantics (AND/OR and its
// short-circuit policy).
type Combinator func(conds []Condition, candidate any) bool

// ConditionResolver derives a predicate from a condition name and its
// (already normalized) argument list. Resolution fails for unregistered
// names; that failure propagates unmodified to the AddCondition caller.
type ConditionResolver interface {
	Resolve(name string, args []any) (Predicate, error)
}

// OperationResolver maps operation identifiers to combinators and
// enumerates the known operations. The enumeration pre-allocates store
// buckets and validates AddCondition's operation argument.
type OperationResolver interface {
	Resolve(op Operation) (Combinator, error)
	Operations() []Operation
}

// Condition is a named predicate with its derivation arguments. Immutable
// once created: the predicate is derived at add time and never re-derived.
type Condition struct {
	// Name is the condition name the predicate was derived from
	Name string
	// Args is the normalized argument list used for derivation
	Args []any

	predicate Predicate
}

// Matches evaluates the condition's predicate against a candidate value.
func (c Condition) Matches(candidate any) bool {
	if c.predicate == nil {
		return false
	}
	return c.predicate(candidate)
}

// Store accumulates per-column conditions grouped by operation and
// evaluates candidate values against them. Create with NewStore; a Store
// is unusable after Destroy.
type Store struct {
	condResolver ConditionResolver
	opResolver   OperationResolver

	// buckets maps operation -> column -> ordered condition sequence.
	// A column's conditions live under exactly one operation bucket,
	// determined by columnOps.
	buckets map[Operation]map[string][]Condition

	// columnOps records the single operation chosen for each column that
	// currently has conditions.
	columnOps map[string]Operation

	// order tracks columns with conditions in insertion order, without
	// duplicates. Drives export order and aggregate evaluation order.
	order []string

	listeners      []listenerEntry
	nextListenerID int
	destroyed      bool
}

// NewStore creates an empty condition store backed by the given lookup
// services. One empty bucket is pre-allocated per known operation.
func NewStore(condResolver ConditionResolver, opResolver OperationResolver) (*Store, error) {
	if condResolver == nil {
		return nil, errors.New("condition resolver is required")
	}
	if opResolver == nil {
		return nil, errors.New("operation resolver is required")
	}

	s := &Store{
		condResolver: condResolver,
		opResolver:   opResolver,
		columnOps:    make(map[string]Operation),
	}
	s.initBuckets()

	logger.Debug("condition store created",
		slog.Int("known_operations", len(s.buckets)),
	)
	return s, nil
}

// initBuckets allocates one empty bucket per known operation.
func (s *Store) initBuckets() {
	ops := s.opResolver.Operations()
	s.buckets = make(map[Operation]map[string][]Condition, len(ops))
	for _, op := range ops {
		s.buckets[op] = make(map[string][]Condition)
	}
}

// AddCondition derives a predicate for spec and appends the resulting
// condition to the column's sequence under the given operation. An empty
// operation means DefaultOperation.
//
// String arguments are lower-cased before derivation; non-string arguments
// pass through unchanged. The first add for a column records its operation
// for life; a later add with a different operation fails with an
// OperationConflictError and leaves the store unchanged. An operation the
// lookup service does not know fails with an UnknownOperationError.
// Resolver failures (unknown condition name) propagate unmodified.
//
// EventBeforeAdd and EventAfterAdd fire around the mutation. Neither fires
// when the call fails: a failed add changes nothing, observable state
// included.
func (s *Store) AddCondition(column string, spec filtering.ConditionSpec, op Operation) error {
	if s.destroyed {
		return ErrStoreDestroyed
	}
	if op == "" {
		op = DefaultOperation
	}

	recorded, tracked := s.columnOps[column]
	if tracked && recorded != op {
		return &OperationConflictError{Column: column, Recorded: recorded, Requested: op}
	}
	if !tracked {
		if _, err := s.opResolver.Resolve(op); err != nil {
			return &UnknownOperationError{Operation: op}
		}
	}

	args := normalizeArgs(spec.Args)

	predicate, err := s.condResolver.Resolve(spec.Name, args)
	if err != nil {
		return fmt.Errorf("deriving predicate for column %q: %w", column, err)
	}

	s.notify(EventBeforeAdd, column)

	s.pushColumn(column)
	s.columnOps[column] = op
	bucket := s.buckets[op]
	if bucket == nil {
		bucket = make(map[string][]Condition)
		s.buckets[op] = bucket
	}
	bucket[column] = append(bucket[column], Condition{
		Name:      spec.Name,
		Args:      args,
		predicate: predicate,
	})

	s.notify(EventAfterAdd, column)
	return nil
}

// IsMatch reports whether value satisfies the conditions of every tracked
// column: the AND over all columns, short-circuiting on the first false.
// Columns with no conditions trivially match. Iteration follows insertion
// order so aggregate evaluation is deterministic.
func (s *Store) IsMatch(value any) bool {
	for _, column := range s.order {
		if _, ok := s.columnOps[column]; !ok {
			continue
		}
		if !s.IsMatchColumn(value, column) {
			return false
		}
	}
	return true
}

// IsMatchColumn reports whether value satisfies one column's condition
// sequence under its recorded operation. A column with no recorded
// operation (which implies zero conditions) evaluates under the default
// operation and trivially matches.
func (s *Store) IsMatchColumn(value any, column string) bool {
	op, ok := s.columnOps[column]
	if !ok {
		op = DefaultOperation
	}
	return s.IsMatchInConditions(s.GetConditions(column), value, op)
}

// IsMatchInConditions evaluates a condition sequence against value using
// the combinator for op (DefaultOperation when empty). An empty sequence
// always matches: the absence of a constraint never excludes a value.
func (s *Store) IsMatchInConditions(conds []Condition, value any, op Operation) bool {
	if len(conds) == 0 {
		return true
	}
	if op == "" {
		op = DefaultOperation
	}

	combine, err := s.opResolver.Resolve(op)
	if err != nil {
		// Recorded operations are validated at add time, so this only
		// happens for unvalidated operations passed in directly.
		logger.Warn("unknown operation during evaluation",
			slog.String("operation", string(op)),
		)
		return false
	}
	return combine(conds, value)
}

// GetConditions returns the column's condition sequence, empty when the
// column has none. It lazily creates the bucket entry under the column's
// recorded operation but never records an operation for a column that has
// none.
func (s *Store) GetConditions(column string) []Condition {
	op, ok := s.columnOps[column]
	if !ok {
		return nil
	}
	bucket := s.buckets[op]
	if bucket == nil {
		bucket = make(map[string][]Condition)
		s.buckets[op] = bucket
	}
	if bucket[column] == nil {
		bucket[column] = []Condition{}
	}
	return bucket[column]
}

// HasConditions reports whether the column has at least one condition.
func (s *Store) HasConditions(column string) bool {
	op, ok := s.columnOps[column]
	if !ok {
		return false
	}
	return len(s.buckets[op][column]) > 0
}

// HasCondition reports whether the column has at least one condition with
// the given name.
func (s *Store) HasCondition(column, name string) bool {
	op, ok := s.columnOps[column]
	if !ok {
		return false
	}
	for _, c := range s.buckets[op][column] {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Columns returns the tracked column identifiers in insertion order.
func (s *Store) Columns() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// OperationFor returns the operation recorded for a column, if any.
func (s *Store) OperationFor(column string) (Operation, bool) {
	op, ok := s.columnOps[column]
	return op, ok
}

// ExportAllConditions produces one record per column with conditions, in
// insertion order. Predicates are excluded: the records are plain data
// suitable for persistence or transfer.
func (s *Store) ExportAllConditions() []filtering.ColumnConditions {
	records := make([]filtering.ColumnConditions, 0, len(s.order))
	for _, column := range s.order {
		op, ok := s.columnOps[column]
		if !ok {
			continue
		}
		conds := s.buckets[op][column]
		if len(conds) == 0 {
			continue
		}
		specs := make([]filtering.ConditionSpec, 0, len(conds))
		for _, c := range conds {
			specs = append(specs, filtering.ConditionSpec{Name: c.Name, Args: c.Args})
		}
		records = append(records, filtering.ColumnConditions{
			Column:     column,
			Operation:  string(op),
			Conditions: specs,
		})
	}
	return records
}

// ImportAllConditions cleans the store and replays the records through
// AddCondition, re-deriving predicates, re-validating operation
// consistency, and re-normalizing arguments. Import is equivalent to
// replaying a sequence of AddCondition calls from empty state, so add
// notifications still fire. The first replay failure stops the import and
// is returned; there is no rollback.
func (s *Store) ImportAllConditions(records []filtering.ColumnConditions) error {
	if s.destroyed {
		return ErrStoreDestroyed
	}

	s.Clean()
	for _, rec := range records {
		s.pushColumn(rec.Column)
		op := Operation(rec.Operation)
		for _, spec := range rec.Conditions {
			if err := s.AddCondition(rec.Column, spec, op); err != nil {
				return err
			}
		}
	}

	logger.Debug("conditions imported",
		slog.Int("columns", len(records)),
	)
	return nil
}

// RemoveConditions drops the column entirely: its condition sequence, its
// operation entry, and its order-stack slot. EventBeforeRemove and
// EventAfterRemove fire around the mutation.
func (s *Store) RemoveConditions(column string) {
	if s.destroyed {
		return
	}

	s.notify(EventBeforeRemove, column)

	s.dropColumn(column)
	s.clearColumn(column)

	s.notify(EventAfterRemove, column)
}

// ClearConditions empties the column's condition sequence and deletes its
// operation entry, but leaves the order stack untouched: a column can be
// reset without losing its position if re-populated. Callers needing full
// removal use RemoveConditions. EventBeforeClear and EventAfterClear fire
// around the mutation.
func (s *Store) ClearConditions(column string) {
	if s.destroyed {
		return
	}

	s.notify(EventBeforeClear, column)
	s.clearColumn(column)
	s.notify(EventAfterClear, column)
}

// Clean resets the store to its initial empty state: order stack, column
// operation map, and one empty bucket per known operation.
// EventBeforeClean and EventAfterClean fire around the reset, with no
// column payload.
func (s *Store) Clean() {
	if s.destroyed {
		return
	}

	s.notify(EventBeforeClean, "")

	s.order = nil
	s.columnOps = make(map[string]Operation)
	s.initBuckets()

	s.notify(EventAfterClean, "")
}

// Destroy releases all internal state and detaches all listeners. No
// further operations are valid: mutating calls return ErrStoreDestroyed
// or no-op, queries return zero values. Destroy is idempotent.
func (s *Store) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.order = nil
	s.columnOps = nil
	s.buckets = nil
	s.listeners = nil
}

// pushColumn appends the column to the order stack if absent.
func (s *Store) pushColumn(column string) {
	for _, c := range s.order {
		if c == column {
			return
		}
	}
	s.order = append(s.order, column)
}

// dropColumn removes the column from the order stack if present.
func (s *Store) dropColumn(column string) {
	for i, c := range s.order {
		if c == column {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// clearColumn deletes the column's condition sequence and operation entry.
func (s *Store) clearColumn(column string) {
	if op, ok := s.columnOps[column]; ok {
		if bucket := s.buckets[op]; bucket != nil {
			delete(bucket, column)
		}
		delete(s.columnOps, column)
	}
}

// normalizeArgs lower-cases string arguments and copies the rest through
// unchanged, preserving argument order.
func normalizeArgs(args []any) []any {
	if args == nil {
		return nil
	}
	normalized := make([]any, len(args))
	for i, arg := range args {
		if str, ok := arg.(string); ok {
			normalized[i] = strings.ToLower(str)
		} else {
			normalized[i] = arg
		}
	}
	return normalized
}
