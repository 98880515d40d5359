// Package fhir provides the minimal FHIR R4 resource model and REST client
// the calculator framework needs to pull observations and patient
// demographics from an external clinical record.
//
// The rest of the framework only ever sees the normalized types in this
// package; the host record's native shape stops here.
package fhir

import (
	"encoding/json"
	"strings"
	"time"
)

// Quantity is a FHIR Quantity element.
type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

// Coding is a FHIR Coding element.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a FHIR CodeableConcept element.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// HasCode reports whether any coding carries the given code.
func (c CodeableConcept) HasCode(code string) bool {
	for _, coding := range c.Coding {
		if coding.Code == code {
			return true
		}
	}
	return false
}

// Period is a FHIR Period element.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ObservationComponent is one component of a panel observation, e.g. the
// systolic reading inside a blood-pressure panel.
type ObservationComponent struct {
	Code          CodeableConcept `json:"code"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
}

// Observation is the subset of a FHIR Observation the framework consumes.
type Observation struct {
	ResourceType      string                 `json:"resourceType,omitempty"`
	ID                string                 `json:"id,omitempty"`
	Status            string                 `json:"status,omitempty"`
	Code              CodeableConcept        `json:"code"`
	ValueQuantity     *Quantity              `json:"valueQuantity,omitempty"`
	Component         []ObservationComponent `json:"component,omitempty"`
	EffectiveDateTime string                 `json:"effectiveDateTime,omitempty"`
	EffectiveInstant  string                 `json:"effectiveInstant,omitempty"`
	EffectivePeriod   *Period                `json:"effectivePeriod,omitempty"`
	Issued            string                 `json:"issued,omitempty"`
}

// EffectiveTime resolves the observation timestamp. FHIR spreads it across
// effectiveDateTime, effectiveInstant, effectivePeriod and issued; the first
// parseable one wins, in that order (period end before start).
func (o *Observation) EffectiveTime() (time.Time, bool) {
	candidates := []string{o.EffectiveDateTime, o.EffectiveInstant}
	if o.EffectivePeriod != nil {
		candidates = append(candidates, o.EffectivePeriod.End, o.EffectivePeriod.Start)
	}
	candidates = append(candidates, o.Issued)

	for _, s := range candidates {
		if s == "" {
			continue
		}
		if t, err := parseFHIRTime(s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Value returns the observation's scalar value and unit. For a panel
// observation, pass the component code to read; with an empty code the
// top-level valueQuantity is used.
func (o *Observation) Value(componentCode string) (*float64, string) {
	if componentCode != "" {
		for _, comp := range o.Component {
			if comp.Code.HasCode(componentCode) && comp.ValueQuantity != nil {
				return comp.ValueQuantity.Value, comp.ValueQuantity.Unit
			}
		}
	}
	if o.ValueQuantity != nil {
		return o.ValueQuantity.Value, o.ValueQuantity.Unit
	}
	return nil, ""
}

// Condition is the subset of a FHIR Condition the framework consumes:
// enough to match a problem-list entry against a calculator's comorbidity
// codes.
type Condition struct {
	ResourceType   string           `json:"resourceType,omitempty"`
	ID             string           `json:"id,omitempty"`
	ClinicalStatus *CodeableConcept `json:"clinicalStatus,omitempty"`
	Code           CodeableConcept  `json:"code"`
	OnsetDateTime  string           `json:"onsetDateTime,omitempty"`
}

// MedicationRequest is the subset of a FHIR MedicationRequest the framework
// consumes when checking whether a patient is on a class of medication.
type MedicationRequest struct {
	ResourceType              string           `json:"resourceType,omitempty"`
	ID                        string           `json:"id,omitempty"`
	Status                    string           `json:"status,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
}

// HumanName is a FHIR HumanName element.
type HumanName struct {
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// Patient is the subset of a FHIR Patient the framework consumes: birth date
// to derive age and administrative sex to pre-select sex-specific options.
type Patient struct {
	ResourceType string      `json:"resourceType,omitempty"`
	ID           string      `json:"id,omitempty"`
	BirthDate    string      `json:"birthDate,omitempty"`
	Gender       string      `json:"gender,omitempty"`
	Name         []HumanName `json:"name,omitempty"`
}

// BundleEntry wraps one resource inside a search Bundle.
type BundleEntry struct {
	Resource json.RawMessage `json:"resource,omitempty"`
}

// Bundle is a FHIR searchset Bundle.
type Bundle struct {
	ResourceType string        `json:"resourceType,omitempty"`
	Type         string        `json:"type,omitempty"`
	Total        *int          `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// parseFHIRTime accepts the date/dateTime/instant shapes FHIR allows.
func parseFHIRTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006-01",
		"2006",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseDate parses a FHIR date string (birthDate and friends).
func ParseDate(s string) (time.Time, error) {
	return parseFHIRTime(s)
}

// normalizeGender maps FHIR administrative gender to "male"/"female",
// mirroring the binary split the sex-specific scoring options need.
// Unknown/other values and absence map to "".
func normalizeGender(g string) string {
	switch strings.ToLower(g) {
	case "female":
		return "female"
	case "male":
		return "male"
	default:
		return ""
	}
}

// NormalizedGender returns "male", "female" or "" for the patient.
func (p *Patient) NormalizedGender() string {
	if p == nil {
		return ""
	}
	return normalizeGender(p.Gender)
}

// AgeAt derives the patient's age in whole years at the given moment, or
// false when the birth date is absent or unparseable.
func (p *Patient) AgeAt(at time.Time) (int, bool) {
	if p == nil || p.BirthDate == "" {
		return 0, false
	}
	birth, err := ParseDate(p.BirthDate)
	if err != nil {
		return 0, false
	}
	age := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}
