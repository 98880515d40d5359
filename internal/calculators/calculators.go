// Package calculators collects the shipped calculator definitions.
package calculators

import (
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/calculator"
	"github.com/medcalc/medcalc/internal/calculators/bmibsa"
	"github.com/medcalc/medcalc/internal/calculators/curb65"
	"github.com/medcalc/medcalc/internal/calculators/meanap"
)

// Definitions returns every shipped calculator configuration.
func Definitions() []*calculator.Config {
	return []*calculator.Config{
		bmibsa.Definition(),
		curb65.Definition(),
		meanap.Definition(),
	}
}

// RegisterAll validates and registers every shipped calculator.
func RegisterAll(reg *calculator.Registry, log zerolog.Logger) error {
	for _, cfg := range Definitions() {
		calc, err := calculator.New(cfg, log)
		if err != nil {
			return err
		}
		if err := reg.Register(calc); err != nil {
			return err
		}
	}
	return nil
}
