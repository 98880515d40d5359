package fhir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestMostRecentObservation(t *testing.T) {
	var gotQuery string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(`{
			"resourceType": "Bundle",
			"type": "searchset",
			"entry": [{
				"resource": {
					"resourceType": "Observation",
					"id": "obs-1",
					"code": {"coding": [{"system": "http://loinc.org", "code": "29463-7"}]},
					"effectiveDateTime": "2026-08-20T10:00:00Z",
					"valueQuantity": {"value": 72.5, "unit": "kg"}
				}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123", WithToken("tok-abc"))
	obs, err := c.MostRecentObservation(context.Background(), CodeWeight)
	if err != nil {
		t.Fatalf("MostRecentObservation: %v", err)
	}
	if obs == nil {
		t.Fatal("expected an observation")
	}

	v, unit := obs.Value("")
	if v == nil || *v != 72.5 {
		t.Fatalf("value = %v, want 72.5", v)
	}
	if unit != "kg" {
		t.Fatalf("unit = %q, want kg", unit)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	for _, want := range []string{"patient=pat-123", "code=29463-7", "_sort=-date", "_count=1"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestMostRecentObservationEmptyBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resourceType": "Bundle", "type": "searchset"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123")
	obs, err := c.MostRecentObservation(context.Background(), CodeCreatinine)
	if err != nil {
		t.Fatalf("MostRecentObservation: %v", err)
	}
	if obs != nil {
		t.Fatalf("expected nil observation for empty bundle, got %+v", obs)
	}
}

func TestMostRecentObservationServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123")
	if _, err := c.MostRecentObservation(context.Background(), CodeWeight); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestActiveConditions(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(`{
			"resourceType": "Bundle",
			"type": "searchset",
			"entry": [{
				"resource": {
					"resourceType": "Condition",
					"id": "cond-1",
					"clinicalStatus": {"coding": [{"code": "active"}]},
					"code": {"coding": [{"system": "http://snomed.info/sct", "code": "42343007"}]}
				}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123")
	conditions, err := c.ActiveConditions(context.Background(), []string{"42343007", "13645005"})
	if err != nil {
		t.Fatalf("ActiveConditions: %v", err)
	}
	if len(conditions) != 1 || !conditions[0].Code.HasCode("42343007") {
		t.Fatalf("conditions = %+v, want one matching entry", conditions)
	}
	if gotPath != "/Condition" {
		t.Errorf("path = %q", gotPath)
	}
	for _, want := range []string{"patient=pat-123", "clinical-status=active", "code=42343007%2C13645005"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestActiveConditionsEmptyBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resourceType": "Bundle", "type": "searchset"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123")
	conditions, err := c.ActiveConditions(context.Background(), []string{"42343007"})
	if err != nil {
		t.Fatalf("ActiveConditions: %v", err)
	}
	if len(conditions) != 0 {
		t.Fatalf("expected no conditions, got %+v", conditions)
	}
}

func TestActiveMedications(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(`{
			"resourceType": "Bundle",
			"type": "searchset",
			"entry": [{
				"resource": {
					"resourceType": "MedicationRequest",
					"id": "mr-1",
					"status": "active",
					"medicationCodeableConcept": {"coding": [{"code": "11289"}]}
				}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123")
	meds, err := c.ActiveMedications(context.Background(), []string{"11289"})
	if err != nil {
		t.Fatalf("ActiveMedications: %v", err)
	}
	if len(meds) != 1 || meds[0].Status != "active" {
		t.Fatalf("medications = %+v, want one active entry", meds)
	}
	if gotPath != "/MedicationRequest" {
		t.Errorf("path = %q", gotPath)
	}
	for _, want := range []string{"patient=pat-123", "status=active", "code=" + url.QueryEscape(RxNormSystem+"|11289")} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestReadPatient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Patient/pat-123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"resourceType": "Patient",
			"id": "pat-123",
			"gender": "female",
			"birthDate": "1980-03-15"
		}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "pat-123")
	p, err := c.ReadPatient(context.Background())
	if err != nil {
		t.Fatalf("ReadPatient: %v", err)
	}
	if p.Gender != "female" {
		t.Errorf("gender = %q", p.Gender)
	}
	if p.BirthDate != "1980-03-15" {
		t.Errorf("birthDate = %q", p.BirthDate)
	}
}
