// Package schema turns free-form model output into validated structured
// records. Parsing tries a fixed list of strategies in order (whole text,
// fenced code block, outermost braces) and the first JSON object that
// decodes wins; the result is then checked against a declared FieldSpec.
package schema

import (
	"fmt"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

// FieldRule declares validation constraints for one field.
type FieldRule struct {
	Required bool

	// Numeric bounds, applied when the value decodes as a number.
	Min *float64
	Max *float64

	// List cardinality, applied when the value decodes as an array.
	// MaxItems of 0 means unbounded.
	MinItems int
	MaxItems int

	// MaxLength bounds string values. 0 means unbounded.
	MaxLength int
}

// FieldSpec declares the expected shape of an extracted record.
type FieldSpec struct {
	Name   string
	Fields map[string]FieldRule
}

// RequiredKeys returns the declared required field names.
func (s FieldSpec) RequiredKeys() []string {
	var keys []string
	for name, rule := range s.Fields {
		if rule.Required {
			keys = append(keys, name)
		}
	}
	return keys
}

// Bound returns a pointer to v, for declaring Min/Max inline.
func Bound(v float64) *float64 { return &v }

// Validate checks a decoded record against the field rules. It returns a
// SchemaViolation-kind error naming the first offending field.
func (s FieldSpec) Validate(record map[string]any) error {
	for name, rule := range s.Fields {
		val, present := record[name]
		if !present || val == nil {
			if rule.Required {
				return violation(s.Name, name, "required field missing")
			}
			continue
		}

		switch v := val.(type) {
		case float64:
			if rule.Min != nil && v < *rule.Min {
				return violation(s.Name, name, fmt.Sprintf("value %v below minimum %v", v, *rule.Min))
			}
			if rule.Max != nil && v > *rule.Max {
				return violation(s.Name, name, fmt.Sprintf("value %v above maximum %v", v, *rule.Max))
			}
		case string:
			if rule.Required && v == "" {
				return violation(s.Name, name, "required field empty")
			}
			if rule.MaxLength > 0 && len([]rune(v)) > rule.MaxLength {
				return violation(s.Name, name, fmt.Sprintf("length %d exceeds maximum %d", len([]rune(v)), rule.MaxLength))
			}
		case []any:
			if len(v) < rule.MinItems {
				return violation(s.Name, name, fmt.Sprintf("list has %d items, minimum %d", len(v), rule.MinItems))
			}
			if rule.MaxItems > 0 && len(v) > rule.MaxItems {
				return violation(s.Name, name, fmt.Sprintf("list has %d items, maximum %d", len(v), rule.MaxItems))
			}
		}
	}
	return nil
}

func violation(spec, field, detail string) error {
	return model.NewKindError(model.KindSchemaViolation, fmt.Sprintf("%s.%s: %s", spec, field, detail), nil)
}
