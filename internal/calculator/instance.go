package calculator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/staleness"
	"github.com/medcalc/medcalc/internal/units"
	"github.com/medcalc/medcalc/internal/validate"
)

// Instance is one mounted calculator: the live input surface, the bound
// data service and the current result. All mutation goes through the
// instance lock; fetch goroutines re-check the mounted guard under that
// lock before writing, so nothing lands after Unmount.
type Instance struct {
	id      string
	cfg     *Config
	log     zerolog.Logger
	svc     *DataService
	tracker *staleness.Tracker
	now     func() time.Time

	cancelFetches context.CancelFunc

	mu         sync.Mutex
	mounted    bool
	touched    bool
	order      []string
	fields     map[string]*FieldState
	result     *Result
	validation validate.Result
	calcErrMsg string

	fetches sync.WaitGroup
}

// ID returns the mount handle of this instance.
func (in *Instance) ID() string { return in.id }

// CalculatorID returns the id of the configuration this instance runs.
func (in *Instance) CalculatorID() string { return in.cfg.ID }

// DataService exposes the bound data service for custom initialize hooks.
func (in *Instance) DataService() *DataService { return in.svc }

// SetValue writes a numeric field. A nil value clears the field. Any user
// write discards the field's auto-population mark and staleness record.
func (in *Instance) SetValue(fieldID string, value *float64) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	fs, err := in.fieldLocked(fieldID, KindNumber)
	if err != nil {
		return err
	}
	if value != nil && (math.IsNaN(*value) || math.IsInf(*value, 0)) {
		return fmt.Errorf("field %s: value must be finite", fieldID)
	}

	fs.Value = value
	in.clearAutoPopulationLocked(fs)
	in.touched = true
	in.recomputeLocked()
	return nil
}

// SetUnit switches a numeric field's selected unit. The raw entry is kept
// as typed; conversion happens when values are collected.
func (in *Instance) SetUnit(fieldID, unit string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	fs, err := in.fieldLocked(fieldID, KindNumber)
	if err != nil {
		return err
	}
	if fs.Field.Unit == nil {
		return fmt.Errorf("field %s has no unit toggle", fieldID)
	}
	valid := false
	for _, u := range fs.Field.Unit.Units {
		if u == unit {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("field %s: unit %q is not offered", fieldID, unit)
	}

	fs.Unit = unit
	in.touched = true
	in.recomputeLocked()
	return nil
}

// Select picks an option of a choice or select field. An empty option
// clears the selection.
func (in *Instance) Select(fieldID, option string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	fs, err := in.fieldLocked(fieldID, KindChoice, KindSelect)
	if err != nil {
		return err
	}
	if option != "" && !hasOption(fs.Field, option) {
		return fmt.Errorf("field %s: unknown option %q", fieldID, option)
	}

	fs.Choice = option
	in.clearAutoPopulationLocked(fs)
	in.touched = true
	in.recomputeLocked()
	return nil
}

// SetChecked ticks or unticks one option of a multi field.
func (in *Instance) SetChecked(fieldID, option string, on bool) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	fs, err := in.fieldLocked(fieldID, KindMulti)
	if err != nil {
		return err
	}
	if !hasOption(fs.Field, option) {
		return fmt.Errorf("field %s: unknown option %q", fieldID, option)
	}

	fs.Checked[option] = on
	in.touched = true
	in.recomputeLocked()
	return nil
}

// Result returns the current computed result, if any.
func (in *Instance) Result() (*Result, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.result == nil {
		return nil, false
	}
	r := *in.result
	return &r, true
}

// Validation returns the current validation state. Before any input has
// been supplied the form is neutral: no errors are reported even when
// required fields are still empty.
func (in *Instance) Validation() validate.Result {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.touched {
		// Freshly mounted form: suppress messages until there is input.
		return validate.Result{Valid: in.validation.Valid, FieldStatus: map[string]validate.Status{}}
	}
	return in.validation
}

// CalculationError returns the user-visible banner text, empty when the
// last recompute succeeded or validation suppressed it.
func (in *Instance) CalculationError() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.calcErrMsg
}

// StaleFields lists the auto-populated fields whose observations are older
// than the staleness threshold, re-evaluated now.
func (in *Instance) StaleFields() []staleness.Record {
	return in.tracker.StaleItems()
}

// Mounted reports whether the instance still accepts writes.
func (in *Instance) Mounted() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.mounted
}

// Unmount tears the instance down. In-flight fetches are cancelled; any
// that complete anyway have their writes discarded by the mounted guard.
func (in *Instance) Unmount() {
	in.mu.Lock()
	in.mounted = false
	in.result = nil
	in.calcErrMsg = ""
	in.mu.Unlock()

	if in.cancelFetches != nil {
		in.cancelFetches()
	}
	in.tracker.ClearAll()
	in.svc.ClearCache()
}

// WaitForData blocks until every auto-population fetch started at mount has
// completed. Intended for hosts that want a settled form before reading.
func (in *Instance) WaitForData() {
	in.fetches.Wait()
}

// FieldView is a host-facing snapshot of one field's live state.
type FieldView struct {
	ID            string          `json:"id"`
	Kind          InputKind       `json:"kind"`
	Label         string          `json:"label"`
	Value         *float64        `json:"value,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	Choice        string          `json:"choice,omitempty"`
	Checked       []string        `json:"checked,omitempty"`
	AutoPopulated bool            `json:"autoPopulated,omitempty"`
	Stale         bool            `json:"stale,omitempty"`
	StaleNote     string          `json:"staleNote,omitempty"`
	Status        validate.Status `json:"status,omitempty"`
}

// Fields snapshots every field in render order.
func (in *Instance) Fields() []FieldView {
	in.mu.Lock()
	defer in.mu.Unlock()

	views := make([]FieldView, 0, len(in.order))
	for _, id := range in.order {
		fs := in.fields[id]
		view := FieldView{
			ID:            id,
			Kind:          fs.Field.Kind,
			Label:         fs.Field.Label,
			Unit:          fs.Unit,
			Choice:        fs.Choice,
			AutoPopulated: fs.AutoPopulated,
		}
		if fs.Value != nil {
			v := *fs.Value
			view.Value = &v
		}
		for _, opt := range fs.Field.Options {
			if fs.Checked[opt.Value] {
				view.Checked = append(view.Checked, opt.Value)
			}
		}
		if rec, ok := in.tracker.Lookup(id); ok {
			info := in.tracker.Check(rec.ObservedAt)
			if info.Stale {
				view.Stale = true
				view.StaleNote = fmt.Sprintf("%s is %s", rec.Label, staleness.FormatAge(info.Age))
			}
		}
		if in.touched {
			view.Status = in.validation.FieldStatus[id]
		}
		views = append(views, view)
	}
	return views
}

// AutoPopulate fetches one code and writes it into a field, firing the
// recompute cycle. Custom initialize hooks use it for fields outside the
// declarative source mapping.
func (in *Instance) AutoPopulate(ctx context.Context, fieldID, code string, opts ObservationOptions) {
	in.mu.Lock()
	fs, ok := in.fields[fieldID]
	if !ok || !in.mounted {
		in.mu.Unlock()
		return
	}
	if opts.TargetUnit == "" {
		opts.TargetUnit = fs.defaultUnit()
	}
	if opts.UnitType == "" && fs.Field.Unit != nil {
		opts.UnitType = fs.Field.Unit.QuantityType
	}
	opts.FieldID = fieldID
	if opts.Label == "" {
		opts.Label = fhir.CodeName(code)
	}
	in.mu.Unlock()

	reading := in.svc.GetObservation(ctx, code, opts)
	in.applyReading(fieldID, reading)
}

// applyReading writes a fetched reading into a field under the mounted
// guard. An empty reading leaves the field untouched for manual entry.
func (in *Instance) applyReading(fieldID string, r Reading) {
	if r.Value == nil {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.mounted {
		return
	}
	fs, ok := in.fields[fieldID]
	if !ok {
		return
	}

	src := fs.Field.Source
	if src != nil && len(src.ValueMap) > 0 {
		if opt, ok := mapValue(src.ValueMap, *r.Value); ok {
			fs.Choice = opt
			fs.AutoPopulated = true
			fs.Staleness = r.Staleness
		}
	} else {
		v := *r.Value
		if r.Unit != "" && fs.Field.Unit != nil {
			fs.Unit = r.Unit
			v = roundTo(v, units.DecimalPlaces(fs.Field.Unit.QuantityType, r.Unit))
		}
		fs.Value = &v
		fs.AutoPopulated = true
		fs.Staleness = r.Staleness
	}

	in.touched = true
	in.recomputeLocked()
}

// roundTo trims a converted value to its unit's display precision so the
// form shows what the scoring engine sees.
func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func mapValue(ranges []ValueRange, v float64) (string, bool) {
	for _, r := range ranges {
		if r.Min != nil && v < *r.Min {
			continue
		}
		if r.Max != nil && v > *r.Max {
			continue
		}
		return r.Option, true
	}
	return "", false
}

func (in *Instance) fieldLocked(fieldID string, kinds ...InputKind) (*FieldState, error) {
	if !in.mounted {
		return nil, fmt.Errorf("calculator %s: instance is unmounted", in.cfg.ID)
	}
	fs, ok := in.fields[fieldID]
	if !ok {
		return nil, fmt.Errorf("calculator %s: unknown field %q", in.cfg.ID, fieldID)
	}
	for _, k := range kinds {
		if fs.Field.Kind == k {
			return fs, nil
		}
	}
	return nil, fmt.Errorf("calculator %s: field %q is %s, not addressable this way", in.cfg.ID, fieldID, fs.Field.Kind)
}

func (in *Instance) clearAutoPopulationLocked(fs *FieldState) {
	if fs.AutoPopulated {
		fs.AutoPopulated = false
		fs.Staleness = nil
		in.tracker.Clear(fs.Field.ID)
	}
}

func hasOption(f *Field, value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
