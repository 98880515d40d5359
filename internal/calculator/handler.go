package calculator

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/staleness"
	"github.com/medcalc/medcalc/internal/validate"
	"github.com/medcalc/medcalc/pkg/pagination"
)

// ClientFactory builds an external-record client scoped to one patient.
// A nil factory (or a nil client from it) mounts instances without
// external data; manual entry still works.
type ClientFactory func(patientID string) fhir.Client

// Handler is the HTTP surface hosts drive calculators through: list and
// render calculators, mount instances, push field edits, read results.
type Handler struct {
	reg       *Registry
	clientFor ClientFactory
	log       zerolog.Logger

	mu        sync.Mutex
	instances map[string]*Instance
}

func NewHandler(reg *Registry, clientFor ClientFactory, log zerolog.Logger) *Handler {
	return &Handler{
		reg:       reg,
		clientFor: clientFor,
		log:       log,
		instances: map[string]*Instance{},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/calculators", h.ListCalculators)
	api.GET("/calculators/:id", h.GetCalculator)
	api.POST("/calculators/:id/instances", h.MountInstance)

	api.GET("/instances/:iid", h.GetInstance)
	api.PUT("/instances/:iid/fields/:field", h.UpdateField)
	api.GET("/instances/:iid/result", h.GetResult)
	api.DELETE("/instances/:iid", h.UnmountInstance)
}

func (h *Handler) ListCalculators(c echo.Context) error {
	pg := pagination.FromContext(c)
	all := h.reg.List()
	lo, hi := pg.Slice(len(all))
	return c.JSON(http.StatusOK, pagination.NewResponse(all[lo:hi], len(all), pg.Limit, pg.Offset))
}

func (h *Handler) GetCalculator(c echo.Context) error {
	calc, ok := h.reg.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "calculator not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":          calc.ID(),
		"title":       calc.Title(),
		"description": calc.Description(),
		"markup":      calc.Render(),
	})
}

type mountRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) MountInstance(c echo.Context) error {
	calc, ok := h.reg.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "calculator not found")
	}

	var req mountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The request context bounds the synchronous patient read only; the
	// populate fetches started by Initialize survive this request.
	ctx := c.Request().Context()
	var client fhir.Client
	var patient *fhir.Patient
	if req.PatientID != "" && h.clientFor != nil {
		client = h.clientFor(req.PatientID)
	}
	if client != nil {
		p, err := client.ReadPatient(ctx)
		if err != nil {
			// Demographics are optional: the form mounts without them.
			h.log.Warn().Err(err).Str("patient", req.PatientID).Msg("patient read failed")
		} else {
			patient = p
		}
	}

	in := calc.Initialize(ctx, client, patient)
	h.mu.Lock()
	h.instances[in.ID()] = in
	h.mu.Unlock()

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"instance_id": in.ID(),
		"calculator":  calc.ID(),
		"markup":      calc.Render(),
	})
}

func (h *Handler) GetInstance(c echo.Context) error {
	in, err := h.instance(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.snapshot(in))
}

type fieldUpdateRequest struct {
	// Exactly one of these actions applies, checked in order: unit switch,
	// multi-option tick, choice selection, clear, numeric value.
	Unit    string   `json:"unit,omitempty"`
	Option  *string  `json:"option,omitempty"`
	Checked *bool    `json:"checked,omitempty"`
	Clear   bool     `json:"clear,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

func (h *Handler) UpdateField(c echo.Context) error {
	in, err := h.instance(c)
	if err != nil {
		return err
	}
	fieldID := c.Param("field")

	var req fieldUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	switch {
	case req.Unit != "":
		err = in.SetUnit(fieldID, req.Unit)
	case req.Option != nil && req.Checked != nil:
		err = in.SetChecked(fieldID, *req.Option, *req.Checked)
	case req.Option != nil:
		err = in.Select(fieldID, *req.Option)
	case req.Clear:
		err = in.SetValue(fieldID, nil)
	case req.Value != nil:
		err = in.SetValue(fieldID, req.Value)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "no field action in request")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, h.snapshot(in))
}

func (h *Handler) GetResult(c echo.Context) error {
	in, err := h.instance(c)
	if err != nil {
		return err
	}

	res, ok := in.Result()
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"available":  false,
			"error":      in.CalculationError(),
			"validation": in.Validation(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"available": true,
		"score":     res.Score.Value,
		"display":   res.Score.Display,
		"level":     res.Level,
		"markup":    res.Markup,
	})
}

func (h *Handler) UnmountInstance(c echo.Context) error {
	iid := c.Param("iid")
	h.mu.Lock()
	in, ok := h.instances[iid]
	delete(h.instances, iid)
	h.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "instance not found")
	}

	in.Unmount()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) instance(c echo.Context) (*Instance, error) {
	h.mu.Lock()
	in, ok := h.instances[c.Param("iid")]
	h.mu.Unlock()
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "instance not found")
	}
	return in, nil
}

type instanceSnapshot struct {
	InstanceID string             `json:"instance_id"`
	Calculator string             `json:"calculator"`
	Fields     []FieldView        `json:"fields"`
	Validation validate.Result    `json:"validation"`
	Error      string             `json:"error,omitempty"`
	Stale      []staleness.Record `json:"stale,omitempty"`
	Result     *Result            `json:"result,omitempty"`
}

func (h *Handler) snapshot(in *Instance) instanceSnapshot {
	snap := instanceSnapshot{
		InstanceID: in.ID(),
		Calculator: in.CalculatorID(),
		Fields:     in.Fields(),
		Validation: in.Validation(),
		Error:      in.CalculationError(),
		Stale:      in.StaleFields(),
	}
	if res, ok := in.Result(); ok {
		snap.Result = res
	}
	return snap
}
