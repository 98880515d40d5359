// Package validate performs schema-based range and required checks over the
// collected values of a calculator form.
//
// Absence is not an error: a field whose rule is not Required and whose value
// is missing is valid, so a freshly loaded form shows a neutral "awaiting
// input" state instead of an error flash. Red-zone (Min/Max) violations block
// calculation; yellow-zone (WarnMin/WarnMax) violations produce warnings that
// allow calculation to proceed.
package validate

import (
	"fmt"
	"math"
	"sort"
)

// Rule is the validation rule for one field.
type Rule struct {
	Required bool
	Min      *float64
	Max      *float64
	WarnMin  *float64
	WarnMax  *float64
	// Message overrides the generated error text.
	Message string
	// WarningMessage overrides the generated warning text.
	WarningMessage string
}

// Schema maps field ids to rules.
type Schema map[string]Rule

// Status classifies a single field after validation.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Result is the outcome of validating a full value set.
type Result struct {
	Valid       bool
	Errors      []string
	Warnings    []string
	FieldStatus map[string]Status
}

// F is a shorthand for building rule bounds.
func F(v float64) *float64 { return &v }

// Validate checks each schema field independently against the supplied
// values. A nil value means the field is absent. The first failing check for
// a field contributes one message; the overall result is invalid iff any
// field fails a red-zone check.
func Validate(values map[string]*float64, schema Schema) Result {
	res := Result{
		Valid:       true,
		FieldStatus: make(map[string]Status, len(schema)),
	}

	// Deterministic message ordering.
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rule := schema[key]
		value := values[key]
		absent := value == nil || math.IsNaN(*value)

		if absent {
			if rule.Required {
				res.Errors = append(res.Errors, orDefault(rule.Message, fmt.Sprintf("%s is required", key)))
				res.FieldStatus[key] = StatusError
				res.Valid = false
			} else {
				res.FieldStatus[key] = StatusValid
			}
			continue
		}

		v := *value
		switch {
		case rule.Min != nil && v < *rule.Min:
			res.Errors = append(res.Errors, orDefault(rule.Message, fmt.Sprintf("%s must be at least %g", key, *rule.Min)))
			res.FieldStatus[key] = StatusError
			res.Valid = false
		case rule.Max != nil && v > *rule.Max:
			res.Errors = append(res.Errors, orDefault(rule.Message, fmt.Sprintf("%s must be at most %g", key, *rule.Max)))
			res.FieldStatus[key] = StatusError
			res.Valid = false
		case rule.WarnMin != nil && v < *rule.WarnMin:
			res.Warnings = append(res.Warnings, orDefault(rule.WarningMessage, fmt.Sprintf("%s is very low; double-check", key)))
			res.FieldStatus[key] = StatusWarning
		case rule.WarnMax != nil && v > *rule.WarnMax:
			res.Warnings = append(res.Warnings, orDefault(rule.WarningMessage, fmt.Sprintf("%s is very high; double-check", key)))
			res.FieldStatus[key] = StatusWarning
		default:
			res.FieldStatus[key] = StatusValid
		}
	}

	return res
}

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
