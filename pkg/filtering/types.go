// Package filtering provides public types for condition-based row filtering.
// This package is intended to be importable by external projects that need
// to exchange condition sets with the rowfilter engine.
package filtering

// ConditionSpec describes a single condition by name and arguments.
// It is the serialized form of a condition: predicates are derived from
// name and args by the engine and are never part of the wire format.
type ConditionSpec struct {
	// Name is the registered condition name (e.g. "isEqualTo", "contains")
	Name string `json:"name"`

	// Args is the ordered argument list passed to the condition factory
	Args []any `json:"args,omitempty"`
}

// ColumnConditions groups the conditions recorded for one column together
// with the logical operation used to combine them.
// This is the only persisted/transferred representation of a column's
// condition state.
type ColumnConditions struct {
	// Column is the opaque column identifier
	Column string `json:"column"`

	// Operation is the logical combination mode: "conjunction" or "disjunction"
	Operation string `json:"operation"`

	// Conditions is the ordered condition list for the column
	Conditions []ConditionSpec `json:"conditions"`
}

// ConditionSet is a named, versioned collection of per-column conditions.
// It is the document format written by export and read by import.
type ConditionSet struct {
	// Version is the condition set format version
	Version string `json:"version,omitempty"`

	// Name is the human-readable name of the condition set
	Name string `json:"name,omitempty"`

	// Columns holds the per-column condition records in evaluation order
	Columns []ColumnConditions `json:"columns"`
}
