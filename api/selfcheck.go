package api

import (
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

// =============================================================================
// SELF-CHECK - Worked scenarios against the live registry
// =============================================================================

// ScenarioCheck is the outcome of evaluating one scenario without storing it.
type ScenarioCheck struct {
	Scenario  ScenarioDTO
	Value     string
	Reference string
	Err       error
}

// Matches reports whether the scenario produced its published figure.
func (c ScenarioCheck) Matches() bool {
	return c.Err == nil &&
		c.Value == c.Scenario.ExpectedValue &&
		c.Reference == c.Scenario.ExpectedReference
}

// CheckScenarios evaluates every worked scenario against the registry.
// Nothing is persisted. Mismatches are logged and exported as
// regelmotor_scenario_mismatches; the caller decides whether to refuse traffic.
func (h *Handler) CheckScenarios() []ScenarioCheck {
	checks := make([]ScenarioCheck, len(scenarios))
	mismatches := 0
	for i, s := range scenarios {
		checks[i] = h.checkScenario(s)
		if checks[i].Matches() {
			continue
		}
		mismatches++
		h.Logger.Error("scenario self-check failed",
			"scenario", s.ID,
			"rule", s.LogicalID,
			"value", checks[i].Value,
			"expected_value", s.ExpectedValue,
			"reference", checks[i].Reference,
			"expected_reference", s.ExpectedReference,
			"error", checks[i].Err)
	}
	h.Metrics.ScenarioMismatches.Set(float64(mismatches))
	return checks
}

func (h *Handler) checkScenario(s ScenarioDTO) ScenarioCheck {
	c := ScenarioCheck{Scenario: s}

	g, err := h.Factory.Parse(s.Ytelse, s.Grunnlag)
	if err != nil {
		c.Err = err
		return c
	}

	var trace regler.Trace[regler.Beregningstall]
	if trace, err = g.Beregn(h.Registry, s.LogicalID); err != nil {
		c.Err = err
		return c
	}
	c.Value = trace.Value.String()
	c.Reference = trace.Header.Reference.ID
	return c
}
