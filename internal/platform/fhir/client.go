package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the opaque handle to the external clinical record. It is
// supplied by the host at mount time and may be nil, meaning "no external
// data available". Implementations are scoped to one patient context.
type Client interface {
	// MostRecentObservation returns the newest observation for a clinical
	// code, or nil when the record holds none. The code is passed through
	// unchanged; comma-separated alternatives are the server's to resolve.
	MostRecentObservation(ctx context.Context, code string) (*Observation, error)

	// ActiveConditions returns the patient's active problem-list entries
	// matching any of the given codes. No match is an empty slice, not an
	// error.
	ActiveConditions(ctx context.Context, codes []string) ([]Condition, error)

	// ActiveMedications returns the patient's active medication requests
	// matching any of the given RxNorm codes.
	ActiveMedications(ctx context.Context, codes []string) ([]MedicationRequest, error)

	// ReadPatient returns the demographics of the patient in context.
	ReadPatient(ctx context.Context) (*Patient, error)
}

// RxNormSystem is the coding system medication codes are searched under.
const RxNormSystem = "http://www.nlm.nih.gov/research/umls/rxnorm"

// RESTClient talks to a FHIR R4 REST endpoint over HTTP.
type RESTClient struct {
	base      string
	patientID string
	token     string
	hc        *http.Client
}

// RESTOption configures a RESTClient.
type RESTOption func(*RESTClient)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) RESTOption {
	return func(c *RESTClient) { c.hc = hc }
}

// WithToken attaches a bearer token to every request. The token is opaque:
// it comes from the host's own authorization flow and is never inspected.
func WithToken(token string) RESTOption {
	return func(c *RESTClient) { c.token = token }
}

// NewRESTClient creates a client bound to one patient on one FHIR base URL.
func NewRESTClient(baseURL, patientID string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		base:      strings.TrimRight(baseURL, "/"),
		patientID: patientID,
		hc:        &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MostRecentObservation implements Client.
func (c *RESTClient) MostRecentObservation(ctx context.Context, code string) (*Observation, error) {
	q := url.Values{}
	q.Set("patient", c.patientID)
	q.Set("code", code)
	q.Set("_sort", "-date")
	q.Set("_count", "1")

	var bundle Bundle
	if err := c.get(ctx, "/Observation?"+q.Encode(), &bundle); err != nil {
		return nil, err
	}
	if len(bundle.Entry) == 0 {
		return nil, nil
	}

	var obs Observation
	if err := json.Unmarshal(bundle.Entry[0].Resource, &obs); err != nil {
		return nil, fmt.Errorf("decode observation for code %s: %w", code, err)
	}
	return &obs, nil
}

// ActiveConditions implements Client.
func (c *RESTClient) ActiveConditions(ctx context.Context, codes []string) ([]Condition, error) {
	q := url.Values{}
	q.Set("patient", c.patientID)
	q.Set("clinical-status", "active")
	q.Set("code", strings.Join(codes, ","))

	var bundle Bundle
	if err := c.get(ctx, "/Condition?"+q.Encode(), &bundle); err != nil {
		return nil, err
	}

	conditions := make([]Condition, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		var cond Condition
		if err := json.Unmarshal(entry.Resource, &cond); err != nil {
			return nil, fmt.Errorf("decode condition: %w", err)
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

// ActiveMedications implements Client.
func (c *RESTClient) ActiveMedications(ctx context.Context, codes []string) ([]MedicationRequest, error) {
	q := url.Values{}
	q.Set("patient", c.patientID)
	q.Set("status", "active")
	q.Set("code", RxNormSystem+"|"+strings.Join(codes, ","))

	var bundle Bundle
	if err := c.get(ctx, "/MedicationRequest?"+q.Encode(), &bundle); err != nil {
		return nil, err
	}

	meds := make([]MedicationRequest, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		var mr MedicationRequest
		if err := json.Unmarshal(entry.Resource, &mr); err != nil {
			return nil, fmt.Errorf("decode medication request: %w", err)
		}
		meds = append(meds, mr)
	}
	return meds, nil
}

// ReadPatient implements Client.
func (c *RESTClient) ReadPatient(ctx context.Context) (*Patient, error) {
	var p Patient
	if err := c.get(ctx, "/Patient/"+url.PathEscape(c.patientID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RESTClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("fhir request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return fmt.Errorf("fhir server returned %d for %s", res.StatusCode, path)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}
