package calculator

import (
	"fmt"

	"github.com/medcalc/medcalc/internal/units"
	"github.com/medcalc/medcalc/internal/validate"
)

// InputKind selects the control a field renders as.
type InputKind string

const (
	// KindNumber is a free numeric entry, optionally with a unit toggle.
	KindNumber InputKind = "number"
	// KindChoice is an exclusive choice group (radio buttons).
	KindChoice InputKind = "choice"
	// KindMulti is a multi-select group (checkboxes).
	KindMulti InputKind = "multi"
	// KindSelect is an enumerated drop-down.
	KindSelect InputKind = "select"
)

// Severity classifies a computed result for display.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityVeryHigh Severity = "very-high"
)

// UnitToggle declares the measurement units a numeric field accepts. The
// default unit is the one validation ranges and scoring functions see.
type UnitToggle struct {
	QuantityType string   `json:"quantityType"`
	Units        []string `json:"units"`
	Default      string   `json:"default"`
}

// ValueRange maps a fetched numeric observation onto a choice option.
// Nil bounds are open; bounds are inclusive.
type ValueRange struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Option string   `json:"option"`
}

// Demographic keys a Source may pre-fill a field from.
const (
	DemographicAge = "age"
	DemographicSex = "sex"
)

// Source declares where a field's initial value comes from in the external
// record. Code and Demographic are alternatives; when both are empty the
// field is manual-entry only.
type Source struct {
	// Code is an observation code, passed through to the external client
	// unchanged. Comma-separated alternatives are allowed.
	Code string `json:"code,omitempty"`
	// Component selects one component of a panel observation, such as the
	// systolic reading of a blood pressure panel.
	Component string `json:"component,omitempty"`
	// Demographic is DemographicAge or DemographicSex.
	Demographic string `json:"demographic,omitempty"`
	// TargetUnit converts the fetched quantity before it is written. Empty
	// means the field's default unit when a unit toggle is declared.
	TargetUnit string `json:"targetUnit,omitempty"`
	// UnitType overrides the quantity type derived from the code.
	UnitType string `json:"unitType,omitempty"`
	// ValueMap turns a fetched numeric value into a choice selection.
	ValueMap []ValueRange `json:"valueMap,omitempty"`
}

// Option is one selectable entry of a choice, multi or select field.
type Option struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Points int    `json:"points,omitempty"`
	// Condition holds condition codes (comma-separated alternatives) that
	// auto-tick this option of a multi field when the patient's problem
	// list carries an active matching entry.
	Condition string `json:"condition,omitempty"`
}

// Field is one input of a calculator form. ID doubles as the group name for
// choice kinds and is the stable handle every other component addresses the
// field by.
type Field struct {
	ID          string      `json:"id"`
	Kind        InputKind   `json:"kind"`
	Label       string      `json:"label"`
	Placeholder string      `json:"placeholder,omitempty"`
	Default     *float64    `json:"default,omitempty"`
	Unit        *UnitToggle `json:"unit,omitempty"`
	Source      *Source     `json:"source,omitempty"`
	Options     []Option    `json:"options,omitempty"`
}

// Section groups fields under a title.
type Section struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Icon     string  `json:"icon,omitempty"`
	Fields   []Field `json:"fields"`
}

// RiskLevel maps an inclusive score range to an interpretation. A nil Max
// is unbounded above, a nil Min unbounded below.
type RiskLevel struct {
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
	Severity       Severity `json:"severity"`
	Label          string   `json:"label"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Matches reports whether score falls inside the level's range.
func (l RiskLevel) Matches(score float64) bool {
	if l.Min != nil && score < *l.Min {
		return false
	}
	if l.Max != nil && score > *l.Max {
		return false
	}
	return true
}

// Formula is optional static reference content rendered after the form.
type Formula struct {
	Title      string   `json:"title"`
	Lines      []string `json:"lines"`
	References []string `json:"references,omitempty"`
}

// Score is what a scoring function produces. Display, when set, overrides
// the default numeric formatting. Extras carries named secondary results
// (a BSA alongside a BMI, a mortality percentage alongside a point total).
type Score struct {
	Value          float64           `json:"value"`
	Display        string            `json:"display,omitempty"`
	Interpretation string            `json:"interpretation,omitempty"`
	Extras         map[string]string `json:"extras,omitempty"`
}

// ScoreFunc computes a calculator's score from validated input. It must
// only read from v; it has no handle to the live form, so a recompute can
// never recurse. A panic is recovered by the engine and reported as a
// calculation error.
type ScoreFunc func(v Values) Score

// ResultRenderer optionally replaces the default result markup.
type ResultRenderer func(s Score, v Values) string

// Config is the declarative description of one calculator. It is immutable
// after construction and shared by every mounted instance.
type Config struct {
	ID          string
	Title       string
	Description string
	Sections    []Section
	RiskLevels  []RiskLevel
	Validation  validate.Schema
	Formula     *Formula

	Score        ScoreFunc
	RenderResult ResultRenderer
	// Initialize is an optional hook for bespoke auto-population beyond the
	// declarative field sources. It runs after the declarative populate pass
	// and must write through the instance, never the markup.
	Initialize InitFunc
}

// Validate checks the config invariants at registration time.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("calculator id is required")
	}
	if c.Title == "" {
		return fmt.Errorf("calculator %s: title is required", c.ID)
	}
	if c.Score == nil {
		return fmt.Errorf("calculator %s: scoring function is required", c.ID)
	}
	if len(c.Sections) == 0 {
		return fmt.Errorf("calculator %s: at least one section is required", c.ID)
	}

	seen := map[string]bool{}
	for _, sec := range c.Sections {
		for _, f := range sec.Fields {
			if f.ID == "" {
				return fmt.Errorf("calculator %s: field without id in section %q", c.ID, sec.Title)
			}
			if seen[f.ID] {
				return fmt.Errorf("calculator %s: duplicate field id %q", c.ID, f.ID)
			}
			seen[f.ID] = true

			switch f.Kind {
			case KindNumber:
				if len(f.Options) > 0 {
					return fmt.Errorf("calculator %s: numeric field %q has options", c.ID, f.ID)
				}
			case KindChoice, KindMulti, KindSelect:
				if len(f.Options) == 0 {
					return fmt.Errorf("calculator %s: field %q has no options", c.ID, f.ID)
				}
			default:
				return fmt.Errorf("calculator %s: field %q has unknown kind %q", c.ID, f.ID, f.Kind)
			}

			if f.Unit != nil {
				if err := validateUnitToggle(f); err != nil {
					return fmt.Errorf("calculator %s: %w", c.ID, err)
				}
			}
			if f.Source != nil {
				if err := validateSource(f); err != nil {
					return fmt.Errorf("calculator %s: %w", c.ID, err)
				}
			}
		}
	}

	for id, rule := range c.Validation {
		if !seen[id] {
			return fmt.Errorf("calculator %s: validation rule for unknown field %q", c.ID, id)
		}
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return fmt.Errorf("calculator %s: rule for %q has min > max", c.ID, id)
		}
	}
	return nil
}

func validateUnitToggle(f Field) error {
	if f.Kind != KindNumber {
		return fmt.Errorf("field %q: unit toggle on non-numeric field", f.ID)
	}
	u := f.Unit
	if !units.Registered(u.QuantityType) {
		return fmt.Errorf("field %q: unknown quantity type %q", f.ID, u.QuantityType)
	}
	if len(u.Units) < 2 {
		return fmt.Errorf("field %q: unit toggle needs at least two units", f.ID)
	}
	known := map[string]bool{}
	for _, unit := range units.Units(u.QuantityType) {
		known[unit] = true
	}
	for _, unit := range u.Units {
		if !known[unit] {
			return fmt.Errorf("field %q: unit %q has no conversions for %q", f.ID, unit, u.QuantityType)
		}
	}
	def := false
	for _, unit := range u.Units {
		if unit == u.Default {
			def = true
		}
	}
	if !def {
		return fmt.Errorf("field %q: default unit %q not in unit list", f.ID, u.Default)
	}
	return nil
}

func validateSource(f Field) error {
	src := f.Source
	if src.Code == "" && src.Demographic == "" {
		return fmt.Errorf("field %q: source declares neither code nor demographic", f.ID)
	}
	if src.Demographic != "" && src.Demographic != DemographicAge && src.Demographic != DemographicSex {
		return fmt.Errorf("field %q: unknown demographic %q", f.ID, src.Demographic)
	}
	if src.Demographic == DemographicSex && f.Kind == KindNumber {
		return fmt.Errorf("field %q: sex demographic on numeric field", f.ID)
	}
	if len(src.ValueMap) > 0 && f.Kind == KindNumber {
		return fmt.Errorf("field %q: value map on numeric field", f.ID)
	}
	for _, vr := range src.ValueMap {
		found := false
		for _, opt := range f.Options {
			if opt.Value == vr.Option {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("field %q: value map targets unknown option %q", f.ID, vr.Option)
		}
	}
	return nil
}

// fieldIndex flattens the sections into an ordered id list plus a lookup.
func (c *Config) fieldIndex() ([]string, map[string]*Field) {
	var order []string
	idx := map[string]*Field{}
	for si := range c.Sections {
		for fi := range c.Sections[si].Fields {
			f := &c.Sections[si].Fields[fi]
			order = append(order, f.ID)
			idx[f.ID] = f
		}
	}
	return order, idx
}

// LevelFor returns the first risk level whose range contains score.
func (c *Config) LevelFor(score float64) (RiskLevel, bool) {
	for _, l := range c.RiskLevels {
		if l.Matches(score) {
			return l, true
		}
	}
	return RiskLevel{}, false
}

// F is a convenience for building bound pointers in config literals.
func F(v float64) *float64 { return &v }
