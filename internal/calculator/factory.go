package calculator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/staleness"
)

// InitFunc is a calculator-supplied hook for bespoke auto-population beyond
// the declarative field sources. It runs concurrently with the declarative
// populate pass; writes go through the instance, which enforces the mounted
// guard.
type InitFunc func(ctx context.Context, in *Instance, svc *DataService)

// Calculator wires one immutable config to the runtime: it renders the form
// and mounts instances. One Calculator serves any number of instances; all
// mutable state lives on the Instance.
type Calculator struct {
	cfg          *Config
	log          zerolog.Logger
	threshold    time.Duration
	fetchTimeout time.Duration
}

// New validates a config and builds its calculator.
func New(cfg *Config, log zerolog.Logger) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{
		cfg:       cfg,
		log:       log.With().Str("calculator", cfg.ID).Logger(),
		threshold: staleness.DefaultThreshold,
	}, nil
}

func (c *Calculator) ID() string          { return c.cfg.ID }
func (c *Calculator) Title() string       { return c.cfg.Title }
func (c *Calculator) Description() string { return c.cfg.Description }

// SetStalenessThreshold overrides the age beyond which auto-populated
// values are flagged, for every instance mounted afterwards.
func (c *Calculator) SetStalenessThreshold(d time.Duration) {
	if d > 0 {
		c.threshold = d
	}
}

// SetFetchTimeout bounds each observation fetch of future instances.
func (c *Calculator) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		c.fetchTimeout = d
	}
}

// Render returns the calculator's form markup. Rendering has no side
// effects and the same config always yields the same bytes.
func (c *Calculator) Render() string {
	return Render(c.cfg)
}

// Initialize mounts a new instance bound to an external client and patient
// record, either of which may be nil. Declaratively sourced fields start
// fetching immediately; the instance is usable before they settle. The
// fetches outlive the caller's context (a host request ends long before
// they settle) and are cancelled only by Unmount.
func (c *Calculator) Initialize(ctx context.Context, client fhir.Client, patient *fhir.Patient) *Instance {
	tracker := staleness.NewTracker(c.threshold)
	svc := NewDataService(client, patient, tracker, c.log)
	if c.fetchTimeout > 0 {
		svc.SetFetchTimeout(c.fetchTimeout)
	}

	order, fields := newFieldStates(c.cfg)
	in := &Instance{
		id:      uuid.NewString(),
		cfg:     c.cfg,
		log:     c.log,
		svc:     svc,
		tracker: tracker,
		now:     time.Now,
		mounted: true,
		order:   order,
		fields:  fields,
	}

	in.mu.Lock()
	in.populateDemographicsLocked()
	in.recomputeLocked()
	in.mu.Unlock()

	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	in.cancelFetches = cancel
	in.startPopulate(pctx)
	return in
}

// populateDemographicsLocked pre-fills fields sourced from the bound
// patient record. No fetch is involved, so this happens synchronously at
// mount and carries no staleness annotation.
func (in *Instance) populateDemographicsLocked() {
	for _, id := range in.order {
		fs := in.fields[id]
		src := fs.Field.Source
		if src == nil || src.Demographic == "" {
			continue
		}
		switch src.Demographic {
		case DemographicAge:
			if age, ok := in.svc.PatientAge(); ok {
				v := float64(age)
				fs.Value = &v
				fs.AutoPopulated = true
			}
		case DemographicSex:
			if sex := in.svc.PatientGender(); sex != "" && hasOption(fs.Field, sex) {
				fs.Choice = sex
				fs.AutoPopulated = true
			}
		}
	}
}

// startPopulate launches the observation fetches for every field with a
// declared code source. Fetches are independent: each one writes its own
// field and triggers its own recompute on completion, and a failure in one
// never disturbs the others. Blood pressure fields share one panel fetch.
func (in *Instance) startPopulate(ctx context.Context) {
	var sysField, diaField string

	for _, id := range in.order {
		fs := in.fields[id]
		src := fs.Field.Source
		if src == nil || src.Code == "" {
			continue
		}

		if src.Code == fhir.CodeBPPanel {
			switch src.Component {
			case fhir.CodeSystolicBP:
				sysField = id
			case fhir.CodeDiastolicBP:
				diaField = id
			}
			continue
		}

		id := id
		in.fetches.Add(1)
		go func() {
			defer in.fetches.Done()
			in.AutoPopulate(ctx, id, src.Code, ObservationOptions{
				TargetUnit:     src.TargetUnit,
				UnitType:       src.UnitType,
				Component:      src.Component,
				TrackStaleness: true,
			})
		}()
	}

	if sysField != "" || diaField != "" {
		in.fetches.Add(1)
		go in.populateBloodPressure(ctx, sysField, diaField)
	}

	if bindings := in.conditionBindings(); len(bindings) > 0 {
		in.fetches.Add(1)
		go func() {
			defer in.fetches.Done()
			in.populateConditions(ctx, bindings)
		}()
	}

	if in.cfg.Initialize != nil {
		in.fetches.Add(1)
		go func() {
			defer in.fetches.Done()
			in.cfg.Initialize(ctx, in, in.svc)
		}()
	}
}

// conditionTick binds one condition code to the multi-field option it
// auto-ticks.
type conditionTick struct {
	fieldID string
	option  string
}

// conditionBindings collects every condition code declared on a multi
// option, keyed by individual code.
func (in *Instance) conditionBindings() map[string][]conditionTick {
	bindings := map[string][]conditionTick{}
	for _, id := range in.order {
		fs := in.fields[id]
		if fs.Field.Kind != KindMulti {
			continue
		}
		for _, opt := range fs.Field.Options {
			if opt.Condition == "" {
				continue
			}
			for _, code := range strings.Split(opt.Condition, ",") {
				code = strings.TrimSpace(code)
				if code != "" {
					bindings[code] = append(bindings[code], conditionTick{fieldID: id, option: opt.Value})
				}
			}
		}
	}
	return bindings
}

// populateConditions fetches the patient's active conditions for every
// bound code in one query and ticks the matching comorbidity options. A
// fetch miss leaves the checkboxes for manual entry.
func (in *Instance) populateConditions(ctx context.Context, bindings map[string][]conditionTick) {
	codes := make([]string, 0, len(bindings))
	for code := range bindings {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	conditions := in.svc.Conditions(ctx, codes)
	if len(conditions) == 0 {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.mounted {
		return
	}

	ticked := false
	for _, cond := range conditions {
		for _, coding := range cond.Code.Coding {
			for _, tick := range bindings[coding.Code] {
				fs := in.fields[tick.fieldID]
				if fs == nil || fs.Checked[tick.option] {
					continue
				}
				fs.Checked[tick.option] = true
				fs.AutoPopulated = true
				ticked = true
			}
		}
	}
	if ticked {
		in.touched = true
		in.recomputeLocked()
	}
}

func (in *Instance) populateBloodPressure(ctx context.Context, sysField, diaField string) {
	defer in.fetches.Done()

	sysOpts := in.panelOptions(sysField)
	diaOpts := in.panelOptions(diaField)
	sys, dia := in.svc.GetBloodPressure(ctx, sysOpts, diaOpts)
	if sysField != "" {
		in.applyReading(sysField, sys)
	}
	if diaField != "" {
		in.applyReading(diaField, dia)
	}
}

func (in *Instance) panelOptions(fieldID string) ObservationOptions {
	opts := ObservationOptions{TrackStaleness: fieldID != "", FieldID: fieldID}
	if fieldID == "" {
		return opts
	}

	in.mu.Lock()
	fs := in.fields[fieldID]
	in.mu.Unlock()

	src := fs.Field.Source
	opts.TargetUnit = src.TargetUnit
	if opts.TargetUnit == "" {
		opts.TargetUnit = fs.defaultUnit()
	}
	opts.UnitType = src.UnitType
	if opts.UnitType == "" && fs.Field.Unit != nil {
		opts.UnitType = fs.Field.Unit.QuantityType
	}
	opts.Label = fhir.CodeName(src.Component)
	return opts
}
