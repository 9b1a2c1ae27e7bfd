package conditions

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/rowfilter/engine/pkg/filtering"
)

// fakeConditionResolver derives predicates for a small fixed vocabulary so
// store tests do not depend on the real registry.
type fakeConditionResolver struct{}

func (fakeConditionResolver) Resolve(name string, args []any) (Predicate, error) {
	switch name {
	case "isEqualTo":
		if len(args) != 1 {
			return nil, fmt.Errorf("isEqualTo requires exactly 1 argument, got %d", len(args))
		}
		want := fmt.Sprint(args[0])
		return func(candidate any) bool {
			return fmt.Sprint(candidate) == want
		}, nil
	case "always":
		return func(any) bool { return true }, nil
	case "never":
		return func(any) bool { return false }, nil
	default:
		return nil, fmt.Errorf("unknown condition %q", name)
	}
}

type fakeOperationResolver struct{}

func (fakeOperationResolver) Resolve(op Operation) (Combinator, error) {
	switch op {
	case OperationConjunction:
		return func(conds []Condition, candidate any) bool {
			for _, c := range conds {
				if !c.Matches(candidate) {
					return false
				}
			}
			return true
		}, nil
	case OperationDisjunction:
		return func(conds []Condition, candidate any) bool {
			for _, c := range conds {
				if c.Matches(candidate) {
					return true
				}
			}
			return false
		}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func (fakeOperationResolver) Operations() []Operation {
	return []Operation{OperationConjunction, OperationDisjunction}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(fakeConditionResolver{}, fakeOperationResolver{})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func equalTo(value any) filtering.ConditionSpec {
	return filtering.ConditionSpec{Name: "isEqualTo", Args: []any{value}}
}

func mustAdd(t *testing.T, s *Store, column string, spec filtering.ConditionSpec, op Operation) {
	t.Helper()
	if err := s.AddCondition(column, spec, op); err != nil {
		t.Fatalf("AddCondition(%q, %q) error = %v", column, spec.Name, err)
	}
}

func TestNewStoreRequiresResolvers(t *testing.T) {
	if _, err := NewStore(nil, fakeOperationResolver{}); err == nil {
		t.Error("NewStore(nil, opResolver) expected error, got nil")
	}
	if _, err := NewStore(fakeConditionResolver{}, nil); err == nil {
		t.Error("NewStore(condResolver, nil) expected error, got nil")
	}
}

func TestAddConditionDefaultsOperation(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "status", equalTo("active"), "")

	op, ok := s.OperationFor("status")
	if !ok {
		t.Fatal("OperationFor(status) not tracked after add")
	}
	if op != OperationConjunction {
		t.Errorf("OperationFor(status) = %q, want %q", op, OperationConjunction)
	}
}

func TestAddConditionOperationConflict(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "status", equalTo("active"), OperationConjunction)

	err := s.AddCondition("status", equalTo("pending"), OperationDisjunction)
	if !IsOperationConflict(err) {
		t.Fatalf("AddCondition with conflicting operation error = %v, want OperationConflictError", err)
	}

	// A failed add must leave the sequence unchanged
	if got := len(s.GetConditions("status")); got != 1 {
		t.Errorf("GetConditions(status) length = %d after conflict, want 1", got)
	}
	if op, _ := s.OperationFor("status"); op != OperationConjunction {
		t.Errorf("OperationFor(status) = %q after conflict, want %q", op, OperationConjunction)
	}
}

func TestAddConditionUnknownOperation(t *testing.T) {
	s := newTestStore(t)

	err := s.AddCondition("status", equalTo("active"), Operation("xor"))
	if !IsUnknownOperation(err) {
		t.Fatalf("AddCondition with unknown operation error = %v, want UnknownOperationError", err)
	}
	if s.HasConditions("status") {
		t.Error("HasConditions(status) = true after failed add, want false")
	}
	if len(s.Columns()) != 0 {
		t.Errorf("Columns() = %v after failed add, want empty", s.Columns())
	}
}

func TestAddConditionUnknownName(t *testing.T) {
	s := newTestStore(t)

	err := s.AddCondition("status", filtering.ConditionSpec{Name: "bogus"}, "")
	if err == nil {
		t.Fatal("AddCondition with unknown condition name expected error, got nil")
	}
	if s.HasConditions("status") {
		t.Error("HasConditions(status) = true after failed add, want false")
	}
}

func TestAddConditionLowercasesStringArgs(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "status", equalTo("ACTIVE"), "")

	conds := s.GetConditions("status")
	if len(conds) != 1 {
		t.Fatalf("GetConditions(status) length = %d, want 1", len(conds))
	}
	if got := conds[0].Args[0]; got != "active" {
		t.Errorf("stored argument = %v, want %q", got, "active")
	}
	if !s.IsMatchColumn("active", "status") {
		t.Error("IsMatchColumn(active) = false, want true")
	}
}

func TestAddConditionKeepsNonStringArgs(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "age", equalTo(42), "")

	conds := s.GetConditions("age")
	if got := conds[0].Args[0]; got != 42 {
		t.Errorf("stored argument = %v (%T), want 42", got, got)
	}
}

func TestIsMatchColumnEmpty(t *testing.T) {
	s := newTestStore(t)

	if !s.IsMatchColumn("anything", "untracked") {
		t.Error("IsMatchColumn on untracked column = false, want true")
	}
}

func TestIsMatchColumnOperations(t *testing.T) {
	tests := []struct {
		name  string
		op    Operation
		value any
		want  bool
	}{
		{"conjunction both fail", OperationConjunction, "x", false},
		{"conjunction neither", OperationConjunction, "z", false},
		{"disjunction first", OperationDisjunction, "x", true},
		{"disjunction second", OperationDisjunction, "y", true},
		{"disjunction neither", OperationDisjunction, "z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			mustAdd(t, s, "col", equalTo("x"), tt.op)
			mustAdd(t, s, "col", equalTo("y"), tt.op)

			if got := s.IsMatchColumn(tt.value, "col"); got != tt.want {
				t.Errorf("IsMatchColumn(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsMatchAggregatesAcrossColumns(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "a", filtering.ConditionSpec{Name: "always"}, "")
	mustAdd(t, s, "b", filtering.ConditionSpec{Name: "never"}, "")

	if s.IsMatch("anything") {
		t.Error("IsMatch = true with a failing column, want false")
	}

	s.RemoveConditions("b")
	if !s.IsMatch("anything") {
		t.Error("IsMatch = false after removing failing column, want true")
	}
}

func TestIsMatchEmptyStore(t *testing.T) {
	s := newTestStore(t)
	if !s.IsMatch("anything") {
		t.Error("IsMatch on empty store = false, want true")
	}
}

func TestIsMatchInConditions(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "col", equalTo("x"), "")
	conds := s.GetConditions("col")

	if !s.IsMatchInConditions(nil, "anything", OperationConjunction) {
		t.Error("IsMatchInConditions with empty sequence = false, want true")
	}
	if !s.IsMatchInConditions(conds, "x", "") {
		t.Error("IsMatchInConditions with empty operation = false, want true (default conjunction)")
	}
	if s.IsMatchInConditions(conds, "x", Operation("xor")) {
		t.Error("IsMatchInConditions with unknown operation = true, want false")
	}
}

func TestGetConditionsUntracked(t *testing.T) {
	s := newTestStore(t)
	if got := s.GetConditions("nope"); got != nil {
		t.Errorf("GetConditions(untracked) = %v, want nil", got)
	}
}

func TestHasCondition(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "status", equalTo("active"), "")

	if !s.HasCondition("status", "isEqualTo") {
		t.Error("HasCondition(status, isEqualTo) = false, want true")
	}
	if s.HasCondition("status", "contains") {
		t.Error("HasCondition(status, contains) = true, want false")
	}
	if s.HasCondition("other", "isEqualTo") {
		t.Error("HasCondition(other, isEqualTo) = true, want false")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "status", equalTo("active"), OperationConjunction)
	mustAdd(t, s, "status", equalTo("pending"), OperationConjunction)
	mustAdd(t, s, "name", equalTo("Alice"), OperationDisjunction)

	exported := s.ExportAllConditions()
	if len(exported) != 2 {
		t.Fatalf("ExportAllConditions() length = %d, want 2", len(exported))
	}
	if exported[0].Column != "status" || exported[1].Column != "name" {
		t.Errorf("export order = [%s %s], want [status name]", exported[0].Column, exported[1].Column)
	}
	// Arguments were normalized at add time
	if got := exported[1].Conditions[0].Args[0]; got != "alice" {
		t.Errorf("exported argument = %v, want %q", got, "alice")
	}

	fresh := newTestStore(t)
	if err := fresh.ImportAllConditions(exported); err != nil {
		t.Fatalf("ImportAllConditions() error = %v", err)
	}
	reExported := fresh.ExportAllConditions()
	if !reflect.DeepEqual(exported, reExported) {
		t.Errorf("round trip mismatch:\n  exported   = %+v\n  reExported = %+v", exported, reExported)
	}
}

func TestImportReplacesExistingState(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "old", equalTo("x"), "")

	records := []filtering.ColumnConditions{
		{Column: "new", Operation: "conjunction", Conditions: []filtering.ConditionSpec{
			{Name: "isEqualTo", Args: []any{"y"}},
		}},
	}
	if err := s.ImportAllConditions(records); err != nil {
		t.Fatalf("ImportAllConditions() error = %v", err)
	}

	if s.HasConditions("old") {
		t.Error("HasConditions(old) = true after import, want false")
	}
	if !s.HasConditions("new") {
		t.Error("HasConditions(new) = false after import, want true")
	}
}

func TestImportFirstFailureStops(t *testing.T) {
	s := newTestStore(t)

	records := []filtering.ColumnConditions{
		{Column: "a", Operation: "conjunction", Conditions: []filtering.ConditionSpec{
			{Name: "always"},
		}},
		{Column: "b", Operation: "conjunction", Conditions: []filtering.ConditionSpec{
			{Name: "bogus"},
		}},
		{Column: "c", Operation: "conjunction", Conditions: []filtering.ConditionSpec{
			{Name: "always"},
		}},
	}

	if err := s.ImportAllConditions(records); err == nil {
		t.Fatal("ImportAllConditions with unknown condition expected error, got nil")
	}

	// No rollback: records before the failure remain applied
	if !s.HasConditions("a") {
		t.Error("HasConditions(a) = false after partial import, want true")
	}
	if s.HasConditions("c") {
		t.Error("HasConditions(c) = true after partial import, want false")
	}
}

func TestClearConditionsRetainsPosition(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "a", equalTo("1"), "")
	mustAdd(t, s, "b", equalTo("2"), "")
	mustAdd(t, s, "c", equalTo("3"), "")

	s.ClearConditions("b")

	if s.HasConditions("b") {
		t.Error("HasConditions(b) = true after clear, want false")
	}
	if got := s.Columns(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Columns() = %v after clear, want [a b c]", got)
	}
	// Cleared column is skipped in export
	exported := s.ExportAllConditions()
	if len(exported) != 2 || exported[0].Column != "a" || exported[1].Column != "c" {
		t.Errorf("export after clear = %+v, want columns [a c]", exported)
	}

	// Re-populating keeps the original slot
	mustAdd(t, s, "b", equalTo("2"), OperationDisjunction)
	exported = s.ExportAllConditions()
	if len(exported) != 3 || exported[1].Column != "b" {
		t.Errorf("export after re-add = %+v, want b back in the middle", exported)
	}
	// The operation can differ from before the clear
	if exported[1].Operation != "disjunction" {
		t.Errorf("re-added operation = %q, want disjunction", exported[1].Operation)
	}
}

func TestRemoveConditionsDropsPosition(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "a", equalTo("1"), "")
	mustAdd(t, s, "b", equalTo("2"), "")
	mustAdd(t, s, "c", equalTo("3"), "")

	s.RemoveConditions("b")

	if got := s.Columns(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Columns() = %v after remove, want [a c]", got)
	}

	// Re-adding appends at the end
	mustAdd(t, s, "b", equalTo("2"), "")
	if got := s.Columns(); !reflect.DeepEqual(got, []string{"a", "c", "b"}) {
		t.Errorf("Columns() = %v after re-add, want [a c b]", got)
	}
}

func TestClean(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "a", equalTo("1"), "")
	mustAdd(t, s, "b", equalTo("2"), OperationDisjunction)

	s.Clean()

	if len(s.Columns()) != 0 {
		t.Errorf("Columns() = %v after clean, want empty", s.Columns())
	}
	if s.HasConditions("a") || s.HasConditions("b") {
		t.Error("HasConditions = true after clean, want false")
	}
	if got := s.ExportAllConditions(); len(got) != 0 {
		t.Errorf("ExportAllConditions() = %v after clean, want empty", got)
	}

	// Store remains usable
	mustAdd(t, s, "a", equalTo("1"), "")
	if !s.HasConditions("a") {
		t.Error("HasConditions(a) = false after clean and re-add, want true")
	}
}

func TestDestroy(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "a", equalTo("1"), "")

	s.Destroy()
	s.Destroy() // idempotent

	if err := s.AddCondition("a", equalTo("1"), ""); err != ErrStoreDestroyed {
		t.Errorf("AddCondition after destroy error = %v, want ErrStoreDestroyed", err)
	}
	if err := s.ImportAllConditions(nil); err != ErrStoreDestroyed {
		t.Errorf("ImportAllConditions after destroy error = %v, want ErrStoreDestroyed", err)
	}
	if len(s.Columns()) != 0 {
		t.Errorf("Columns() = %v after destroy, want empty", s.Columns())
	}
	if s.HasConditions("a") {
		t.Error("HasConditions(a) = true after destroy, want false")
	}

	// No-op mutations must not panic
	s.RemoveConditions("a")
	s.ClearConditions("a")
	s.Clean()
}
