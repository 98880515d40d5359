package calculator

import "sort"

// Values is the read-only snapshot a scoring function receives. Numeric
// values are expressed in each field's default unit; absence is a nil
// pointer, never zero.
type Values struct {
	numbers map[string]*float64
	choices map[string]string
	checked map[string]map[string]bool
	points  map[string]int
}

// Number returns a numeric field's value in the field's default unit, or
// nil when the field is empty or its unit pair could not be converted.
func (v Values) Number(id string) *float64 {
	return v.numbers[id]
}

// NumberOr returns a numeric field's value or a fallback when absent.
func (v Values) NumberOr(id string, fallback float64) float64 {
	if n := v.numbers[id]; n != nil {
		return *n
	}
	return fallback
}

// Choice returns the selected option value of a choice or select field.
func (v Values) Choice(id string) (string, bool) {
	sel, ok := v.choices[id]
	return sel, ok
}

// Checked reports whether an option of a multi field is ticked.
func (v Values) Checked(id, option string) bool {
	return v.checked[id][option]
}

// CheckedOptions returns the ticked option values of a multi field, sorted.
func (v Values) CheckedOptions(id string) []string {
	var out []string
	for opt, on := range v.checked[id] {
		if on {
			out = append(out, opt)
		}
	}
	sort.Strings(out)
	return out
}

// Points returns the point contribution of one field: the points of the
// selected option for choice kinds, the sum over ticked options for multi.
func (v Values) Points(id string) int {
	return v.points[id]
}

// TotalPoints sums the point contributions of every field. Point-table
// calculators can use this directly as their score.
func (v Values) TotalPoints() int {
	total := 0
	for _, p := range v.points {
		total += p
	}
	return total
}
