package calculator

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/medcalc/medcalc/internal/staleness"
	"github.com/medcalc/medcalc/internal/units"
)

// FieldState is the live state of one rendered field. All access goes
// through the owning instance's lock; the rendered markup is a pure
// projection of the config and holds no state of its own.
type FieldState struct {
	Field *Field

	// Value is the raw numeric entry for KindNumber fields. Nil is absent.
	Value *float64
	// Unit is the currently selected unit when the field has a toggle.
	Unit string
	// Choice is the selected option value for KindChoice and KindSelect.
	Choice string
	// Checked tracks ticked options for KindMulti.
	Checked map[string]bool

	// AutoPopulated marks values written from the external record; a later
	// user edit clears it together with the staleness annotation.
	AutoPopulated bool
	Staleness     *staleness.Info
}

// StandardValue returns the field's value expressed in targetUnit, or nil
// when the value is absent or the unit pair is not registered. Callers must
// treat nil as "value unavailable", not as zero.
func (fs *FieldState) StandardValue(targetUnit string) *float64 {
	if fs.Value == nil || math.IsNaN(*fs.Value) || math.IsInf(*fs.Value, 0) {
		return nil
	}
	if fs.Field.Unit == nil || fs.Unit == targetUnit {
		v := *fs.Value
		return &v
	}
	converted, ok := units.Convert(*fs.Value, fs.Unit, targetUnit, fs.Field.Unit.QuantityType)
	if !ok {
		return nil
	}
	return &converted
}

// defaultUnit returns the unit scoring and validation operate in.
func (fs *FieldState) defaultUnit() string {
	if fs.Field.Unit == nil {
		return ""
	}
	return fs.Field.Unit.Default
}

func newFieldState(f *Field) *FieldState {
	fs := &FieldState{Field: f}
	if f.Unit != nil {
		fs.Unit = f.Unit.Default
	}
	if f.Default != nil {
		v := *f.Default
		fs.Value = &v
	}
	if f.Kind == KindMulti {
		fs.Checked = map[string]bool{}
	}
	return fs
}

// newFieldStates builds the field registry for one mounted instance: one
// mutable state per configured field, keyed by field id, in render order.
func newFieldStates(cfg *Config) ([]string, map[string]*FieldState) {
	order, idx := cfg.fieldIndex()
	states := make(map[string]*FieldState, len(order))
	for _, id := range order {
		states[id] = newFieldState(idx[id])
	}
	return order, states
}

// Render expands a config into its form markup. The output is a pure
// function of the config: rendering twice yields identical bytes. Every
// control carries the field id so the host can address it.
func Render(cfg *Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<form class="calculator" data-calculator="%s">`+"\n", esc(cfg.ID))
	fmt.Fprintf(&b, `<h2>%s</h2>`+"\n", esc(cfg.Title))
	if cfg.Description != "" {
		fmt.Fprintf(&b, `<p class="description">%s</p>`+"\n", esc(cfg.Description))
	}

	for _, sec := range cfg.Sections {
		renderSection(&b, &sec)
	}

	fmt.Fprintf(&b, `<div class="result" id="%s-result" hidden></div>`+"\n", esc(cfg.ID))
	fmt.Fprintf(&b, `<div class="error-banner" id="%s-error" hidden></div>`+"\n", esc(cfg.ID))

	if cfg.Formula != nil {
		renderFormula(&b, cfg.Formula)
	}
	b.WriteString("</form>\n")
	return b.String()
}

func renderSection(b *strings.Builder, sec *Section) {
	b.WriteString(`<fieldset class="section">` + "\n")
	if sec.Title != "" {
		if sec.Icon != "" {
			fmt.Fprintf(b, `<legend><span class="icon">%s</span>%s</legend>`+"\n", esc(sec.Icon), esc(sec.Title))
		} else {
			fmt.Fprintf(b, `<legend>%s</legend>`+"\n", esc(sec.Title))
		}
	}
	if sec.Subtitle != "" {
		fmt.Fprintf(b, `<p class="subtitle">%s</p>`+"\n", esc(sec.Subtitle))
	}
	for i := range sec.Fields {
		renderField(b, &sec.Fields[i])
	}
	b.WriteString("</fieldset>\n")
}

func renderField(b *strings.Builder, f *Field) {
	fmt.Fprintf(b, `<div class="field" data-field="%s">`+"\n", esc(f.ID))
	switch f.Kind {
	case KindNumber:
		fmt.Fprintf(b, `<label for="%s">%s</label>`+"\n", esc(f.ID), esc(f.Label))
		attrs := fmt.Sprintf(`type="number" id="%s" name="%s"`, esc(f.ID), esc(f.ID))
		if f.Placeholder != "" {
			attrs += fmt.Sprintf(` placeholder="%s"`, esc(f.Placeholder))
		}
		if f.Default != nil {
			attrs += fmt.Sprintf(` value="%s"`, formatNumber(*f.Default))
		}
		fmt.Fprintf(b, `<input %s>`+"\n", attrs)
		if f.Unit != nil {
			fmt.Fprintf(b, `<select class="unit" id="%s-unit" name="%s-unit">`+"\n", esc(f.ID), esc(f.ID))
			for _, u := range f.Unit.Units {
				sel := ""
				if u == f.Unit.Default {
					sel = " selected"
				}
				fmt.Fprintf(b, `<option value="%s"%s>%s</option>`+"\n", esc(u), sel, esc(u))
			}
			b.WriteString("</select>\n")
		}
	case KindChoice:
		fmt.Fprintf(b, `<span class="group-label">%s</span>`+"\n", esc(f.Label))
		for _, opt := range f.Options {
			id := f.ID + "-" + opt.Value
			fmt.Fprintf(b, `<input type="radio" id="%s" name="%s" value="%s">`, esc(id), esc(f.ID), esc(opt.Value))
			fmt.Fprintf(b, `<label for="%s">%s</label>`+"\n", esc(id), esc(opt.Label))
		}
	case KindMulti:
		fmt.Fprintf(b, `<span class="group-label">%s</span>`+"\n", esc(f.Label))
		for _, opt := range f.Options {
			id := f.ID + "-" + opt.Value
			fmt.Fprintf(b, `<input type="checkbox" id="%s" name="%s" value="%s">`, esc(id), esc(f.ID), esc(opt.Value))
			fmt.Fprintf(b, `<label for="%s">%s</label>`+"\n", esc(id), esc(opt.Label))
		}
	case KindSelect:
		fmt.Fprintf(b, `<label for="%s">%s</label>`+"\n", esc(f.ID), esc(f.Label))
		fmt.Fprintf(b, `<select id="%s" name="%s">`+"\n", esc(f.ID), esc(f.ID))
		fmt.Fprintf(b, `<option value=""></option>`+"\n")
		for _, opt := range f.Options {
			fmt.Fprintf(b, `<option value="%s">%s</option>`+"\n", esc(opt.Value), esc(opt.Label))
		}
		b.WriteString("</select>\n")
	}
	b.WriteString("</div>\n")
}

func renderFormula(b *strings.Builder, f *Formula) {
	b.WriteString(`<section class="formula">` + "\n")
	if f.Title != "" {
		fmt.Fprintf(b, `<h3>%s</h3>`+"\n", esc(f.Title))
	}
	for _, line := range f.Lines {
		fmt.Fprintf(b, `<p>%s</p>`+"\n", esc(line))
	}
	if len(f.References) > 0 {
		b.WriteString("<ol>\n")
		for _, ref := range f.References {
			fmt.Fprintf(b, `<li>%s</li>`+"\n", esc(ref))
		}
		b.WriteString("</ol>\n")
	}
	b.WriteString("</section>\n")
}

// renderDefaultResult builds the standard result markup from a score and
// its matched risk level. Calculators with a RenderResult hook replace it.
func renderDefaultResult(cfg *Config, s Score) string {
	var b strings.Builder
	display := s.Display
	if display == "" {
		display = formatNumber(s.Value)
	}
	b.WriteString(`<div class="score">` + esc(display) + "</div>\n")

	if level, ok := cfg.LevelFor(s.Value); ok {
		fmt.Fprintf(&b, `<div class="level %s">%s</div>`+"\n", esc(string(level.Severity)), esc(level.Label))
		if level.Description != "" {
			fmt.Fprintf(&b, `<p class="interpretation">%s</p>`+"\n", esc(level.Description))
		}
		if level.Recommendation != "" {
			fmt.Fprintf(&b, `<p class="recommendation">%s</p>`+"\n", esc(level.Recommendation))
		}
	}
	if s.Interpretation != "" {
		fmt.Fprintf(&b, `<p class="interpretation">%s</p>`+"\n", esc(s.Interpretation))
	}
	for _, k := range sortedKeys(s.Extras) {
		fmt.Fprintf(&b, `<div class="extra"><span>%s</span><span>%s</span></div>`+"\n", esc(k), esc(s.Extras[k]))
	}
	return b.String()
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func esc(s string) string { return html.EscapeString(s) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
