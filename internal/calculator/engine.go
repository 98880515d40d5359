package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/medcalc/medcalc/internal/validate"
)

// Result is one computed score with its interpretation and markup.
type Result struct {
	Score      Score      `json:"score"`
	Level      *RiskLevel `json:"level,omitempty"`
	Markup     string     `json:"markup"`
	ComputedAt time.Time  `json:"computedAt"`
}

// genericCalcError is the user-visible banner for a failed scoring run.
// The real cause goes to the log, never to the form.
const genericCalcError = "Unable to calculate a result. Please check the entered values."

// collectLocked reads the registry into a validation map and the read-only
// snapshot scoring functions receive. Numeric values are converted to each
// field's default unit; an unconvertible value stays absent. mu held.
func (in *Instance) collectLocked() (map[string]*float64, Values) {
	checkable := make(map[string]*float64, len(in.order))
	v := Values{
		numbers: map[string]*float64{},
		choices: map[string]string{},
		checked: map[string]map[string]bool{},
		points:  map[string]int{},
	}

	for _, id := range in.order {
		fs := in.fields[id]
		switch fs.Field.Kind {
		case KindNumber:
			std := fs.StandardValue(fs.defaultUnit())
			checkable[id] = std
			if std != nil {
				v.numbers[id] = std
			}
		case KindChoice, KindSelect:
			if fs.Choice == "" {
				checkable[id] = nil
				continue
			}
			v.choices[id] = fs.Choice
			for _, opt := range fs.Field.Options {
				if opt.Value == fs.Choice {
					v.points[id] = opt.Points
				}
			}
			// A selection satisfies a required rule; range checks do not
			// apply to choices.
			checkable[id] = validate.F(1)
		case KindMulti:
			ticked := map[string]bool{}
			points := 0
			for _, opt := range fs.Field.Options {
				if fs.Checked[opt.Value] {
					ticked[opt.Value] = true
					points += opt.Points
				}
			}
			v.checked[id] = ticked
			v.points[id] = points
			// An unticked multi group is a valid zero, not an absence.
			checkable[id] = validate.F(float64(points))
		}
	}
	return checkable, v
}

// recomputeLocked runs the full collect, validate, score, render cycle.
// Every field write path ends here. mu held.
func (in *Instance) recomputeLocked() {
	checkable, vals := in.collectLocked()
	in.validation = validate.Validate(checkable, in.cfg.Validation)

	if !in.validation.Valid {
		// Expected mid-entry state: hide the result, no banner, no log.
		in.result = nil
		in.calcErrMsg = ""
		return
	}

	score, err := in.runScore(vals)
	if err == nil && (math.IsNaN(score.Value) || math.IsInf(score.Value, 0)) {
		err = fmt.Errorf("score is not finite: %v", score.Value)
	}
	if err != nil {
		in.log.Error().
			Err(err).
			Str("calculator", in.cfg.ID).
			Str("action", "score").
			Msg("calculation failed")
		in.result = nil
		in.calcErrMsg = genericCalcError
		return
	}

	res := &Result{Score: score, ComputedAt: in.now()}
	if level, ok := in.cfg.LevelFor(score.Value); ok {
		res.Level = &level
	}
	if in.cfg.RenderResult != nil {
		res.Markup = in.cfg.RenderResult(score, vals)
	} else {
		res.Markup = renderDefaultResult(in.cfg, score)
	}
	in.result = res
	in.calcErrMsg = ""
}

// runScore invokes the calculator's scoring function with panic recovery.
func (in *Instance) runScore(vals Values) (score Score, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring function panicked: %v", r)
		}
	}()
	score = in.cfg.Score(vals)
	return score, nil
}
