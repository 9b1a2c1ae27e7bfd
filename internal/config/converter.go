// Package config provides functionality for parsing and validating
// condition-set files (JSON/YAML).
package config

import (
	"fmt"

	"github.com/rowfilter/engine/pkg/filtering"
)

// ConvertToConditionSet converts parsed document data to a ConditionSet
// struct. The input data should have been validated against the schema
// before calling this function.
//
// The document is expected to have this structure:
//
//	{
//	  "version": "1.0.0",
//	  "name": "active-users",
//	  "columns": [
//	    {
//	      "column": "status",
//	      "operation": "conjunction",
//	      "conditions": [
//	        { "name": "isEqualTo", "args": ["active"] },
//	        { "contains": ["act"] }
//	      ]
//	    }
//	  ]
//	}
//
// Conditions accept two forms: the explicit {name, args} object, or the
// command form where a single key names the condition and maps to its
// argument list.
func ConvertToConditionSet(data map[string]interface{}) (*filtering.ConditionSet, error) {
	if data == nil {
		return nil, fmt.Errorf("condition set data is nil")
	}

	set := &filtering.ConditionSet{}

	if version, ok := data["version"].(string); ok {
		set.Version = version
	}
	if name, ok := data["name"].(string); ok {
		set.Name = name
	}

	columnsRaw, ok := data["columns"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'columns'")
	}
	columnsList, ok := columnsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field 'columns' must be an array, got %T", columnsRaw)
	}

	set.Columns = make([]filtering.ColumnConditions, 0, len(columnsList))
	for i, columnRaw := range columnsList {
		record, err := convertColumnRecord(columnRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid column record at index %d: %w", i, err)
		}
		set.Columns = append(set.Columns, record)
	}

	return set, nil
}

// convertColumnRecord converts one entry of the columns array.
func convertColumnRecord(raw interface{}) (filtering.ColumnConditions, error) {
	var record filtering.ColumnConditions

	columnMap, ok := raw.(map[string]interface{})
	if !ok {
		return record, fmt.Errorf("expected object, got %T", raw)
	}

	column, ok := columnMap["column"].(string)
	if !ok || column == "" {
		return record, fmt.Errorf("required field 'column' is missing or empty")
	}
	record.Column = column

	// Operation defaults to conjunction when omitted
	record.Operation = "conjunction"
	if operation, ok := columnMap["operation"].(string); ok && operation != "" {
		record.Operation = operation
	}

	conditionsRaw, ok := columnMap["conditions"]
	if !ok {
		return record, fmt.Errorf("required field 'conditions' is missing")
	}
	conditionsList, ok := conditionsRaw.([]interface{})
	if !ok {
		return record, fmt.Errorf("field 'conditions' must be an array, got %T", conditionsRaw)
	}

	record.Conditions = make([]filtering.ConditionSpec, 0, len(conditionsList))
	for i, conditionRaw := range conditionsList {
		spec, err := convertConditionSpec(conditionRaw)
		if err != nil {
			return record, fmt.Errorf("invalid condition at index %d: %w", i, err)
		}
		record.Conditions = append(record.Conditions, spec)
	}

	return record, nil
}

// convertConditionSpec converts one condition entry, accepting both the
// explicit {name, args} form and the single-key command form.
func convertConditionSpec(raw interface{}) (filtering.ConditionSpec, error) {
	var spec filtering.ConditionSpec

	conditionMap, ok := raw.(map[string]interface{})
	if !ok {
		return spec, fmt.Errorf("expected object, got %T", raw)
	}
	if len(conditionMap) == 0 {
		return spec, fmt.Errorf("condition object is empty")
	}

	// Explicit form: { "name": ..., "args": [...] }
	if nameRaw, hasName := conditionMap["name"]; hasName {
		name, ok := nameRaw.(string)
		if !ok || name == "" {
			return spec, fmt.Errorf("field 'name' must be a non-empty string, got %T", nameRaw)
		}
		spec.Name = name

		if argsRaw, hasArgs := conditionMap["args"]; hasArgs {
			args, ok := argsRaw.([]interface{})
			if !ok {
				return spec, fmt.Errorf("field 'args' must be an array, got %T", argsRaw)
			}
			spec.Args = args
		}
		return spec, nil
	}

	// Command form: { "<conditionName>": [args...] }
	if len(conditionMap) != 1 {
		return spec, fmt.Errorf("command form requires exactly one key, got %d", len(conditionMap))
	}
	for name, argsRaw := range conditionMap {
		spec.Name = name
		switch args := argsRaw.(type) {
		case nil:
			// Condition without arguments, e.g. { "isEmpty": null }
		case []interface{}:
			spec.Args = args
		default:
			// A scalar is shorthand for a single-argument list
			spec.Args = []interface{}{argsRaw}
		}
	}
	return spec, nil
}
