package calculator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/staleness"
	"github.com/medcalc/medcalc/internal/units"
)

// DataService fetches external observations and demographics for one
// mounted calculator instance. The client and patient handles may be nil,
// meaning no external data is available; every accessor then degrades to
// "value unavailable" without error. Fetched observations are cached in
// memory for the lifetime of the instance and torn down with it.
type DataService struct {
	client  fhir.Client
	patient *fhir.Patient
	tracker *staleness.Tracker
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]*fhir.Observation
}

// NewDataService binds a service to one external client and one patient
// record. The tracker receives a record for every auto-populated field.
func NewDataService(client fhir.Client, patient *fhir.Patient, tracker *staleness.Tracker, log zerolog.Logger) *DataService {
	return &DataService{
		client:  client,
		patient: patient,
		tracker: tracker,
		log:     log,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

// SetFetchTimeout bounds each individual observation fetch.
func (s *DataService) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// ObservationOptions tune one GetObservation call.
type ObservationOptions struct {
	// TargetUnit converts the fetched quantity before returning it. A
	// fetched value whose unit pair is not registered resolves to absent.
	TargetUnit string
	// UnitType overrides the quantity type derived from the code.
	UnitType string
	// Component reads one component of a panel observation.
	Component string
	// TrackStaleness registers the observation timestamp against FieldID.
	TrackStaleness bool
	FieldID        string
	Label          string
	// SkipCache forces a fresh fetch even when the code was seen before.
	SkipCache bool
}

// Reading is a normalized external observation result. Value is nil when
// no data is available for any reason; callers never see an error.
type Reading struct {
	Value      *float64
	Unit       string
	ObservedAt time.Time
	Staleness  *staleness.Info
}

// GetObservation fetches the most recent observation for a code. A missing
// record, a fetch failure or an unconvertible unit all resolve to an empty
// Reading; failures are logged at warning level and never propagate.
func (s *DataService) GetObservation(ctx context.Context, code string, opts ObservationOptions) Reading {
	obs := s.fetch(ctx, code, opts.SkipCache)
	if obs == nil {
		return Reading{}
	}
	return s.toReading(obs, code, opts)
}

// GetBloodPressure fetches the blood pressure panel once and decomposes it
// into the systolic and diastolic readings. The two option sets carry each
// side's own field id and unit handling; the component is forced.
func (s *DataService) GetBloodPressure(ctx context.Context, sysOpts, diaOpts ObservationOptions) (systolic, diastolic Reading) {
	obs := s.fetch(ctx, fhir.CodeBPPanel, sysOpts.SkipCache || diaOpts.SkipCache)
	if obs == nil {
		return Reading{}, Reading{}
	}

	sysOpts.Component = fhir.CodeSystolicBP
	diaOpts.Component = fhir.CodeDiastolicBP
	return s.toReading(obs, fhir.CodeBPPanel, sysOpts), s.toReading(obs, fhir.CodeBPPanel, diaOpts)
}

// GetObservations fetches several codes concurrently and returns the
// readings keyed by code. Codes with no data map to an empty Reading; one
// failed fetch never disturbs the others.
func (s *DataService) GetObservations(ctx context.Context, reqs map[string]ObservationOptions) map[string]Reading {
	out := make(map[string]Reading, len(reqs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for code, opts := range reqs {
		code, opts := code, opts
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := s.GetObservation(ctx, code, opts)
			mu.Lock()
			out[code] = r
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// Conditions returns the patient's active conditions matching any of the
// given codes. No client, no match and fetch failure all resolve to an
// empty slice; failures are logged and never propagate.
func (s *DataService) Conditions(ctx context.Context, codes []string) []fhir.Condition {
	if s.client == nil || len(codes) == 0 {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conditions, err := s.client.ActiveConditions(fctx, codes)
	if err != nil {
		s.log.Warn().Err(err).Strs("codes", codes).Msg("condition fetch failed")
		return nil
	}
	return conditions
}

// HasCondition reports whether the patient has an active condition under
// any of the given codes.
func (s *DataService) HasCondition(ctx context.Context, codes ...string) bool {
	return len(s.Conditions(ctx, codes)) > 0
}

// Medications returns the patient's active medication requests matching
// any of the given RxNorm codes, degrading to empty on any failure.
func (s *DataService) Medications(ctx context.Context, codes []string) []fhir.MedicationRequest {
	if s.client == nil || len(codes) == 0 {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	meds, err := s.client.ActiveMedications(fctx, codes)
	if err != nil {
		s.log.Warn().Err(err).Strs("codes", codes).Msg("medication fetch failed")
		return nil
	}
	return meds
}

// IsOnMedication reports whether the patient has an active medication
// request under any of the given RxNorm codes.
func (s *DataService) IsOnMedication(ctx context.Context, codes ...string) bool {
	return len(s.Medications(ctx, codes)) > 0
}

// PatientAge derives the patient's age in whole years from the bound
// record's birth date. Absent record or birth date yields (0, false).
func (s *DataService) PatientAge() (int, bool) {
	if s.patient == nil {
		return 0, false
	}
	return s.patient.AgeAt(s.now())
}

// PatientGender returns "male", "female" or "" from the bound record.
func (s *DataService) PatientGender() string {
	if s.patient == nil {
		return ""
	}
	return s.patient.NormalizedGender()
}

// ClearCache drops every cached observation.
func (s *DataService) ClearCache() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

func (s *DataService) fetch(ctx context.Context, code string, skipCache bool) *fhir.Observation {
	if s.client == nil {
		return nil
	}

	if !skipCache {
		s.mu.Lock()
		obs, hit := s.cache[code]
		s.mu.Unlock()
		if hit {
			return obs
		}
	}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obs, err := s.client.MostRecentObservation(fctx, code)
	if err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("observation fetch failed")
		return nil
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = map[string]*fhir.Observation{}
	}
	s.cache[code] = obs
	s.mu.Unlock()
	return obs
}

func (s *DataService) toReading(obs *fhir.Observation, code string, opts ObservationOptions) Reading {
	value, unit := obs.Value(opts.Component)
	if value == nil {
		return Reading{}
	}

	if opts.TargetUnit != "" && unit != "" && unit != opts.TargetUnit {
		qt := opts.UnitType
		if qt == "" {
			qt = fhir.QuantityTypeForCode(code)
		}
		converted, ok := units.Convert(*value, unit, opts.TargetUnit, qt)
		if !ok {
			s.log.Warn().
				Str("code", code).
				Str("from", unit).
				Str("to", opts.TargetUnit).
				Msg("no conversion registered for fetched unit")
			return Reading{}
		}
		value = &converted
		unit = opts.TargetUnit
	} else if opts.TargetUnit != "" {
		unit = opts.TargetUnit
	}

	r := Reading{Value: value, Unit: unit}
	if at, ok := obs.EffectiveTime(); ok {
		r.ObservedAt = at
		if opts.TrackStaleness && opts.FieldID != "" {
			info := s.tracker.Track(opts.FieldID, at, code, opts.Label)
			r.Staleness = &info
		} else {
			info := s.tracker.Check(at)
			r.Staleness = &info
		}
	}
	return r
}
