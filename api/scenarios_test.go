/*
scenarios_test.go - Tests for worked scenarios and the self-check

PURPOSE:
	Every scenario must reproduce its published figure through the HTTP
	path, and the self-check must agree with it. A failure here means the
	rule set and the worked cases have drifted apart.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_ListAll(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/scenarier", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarios))
	assert.Equal(t, "bp-1967-trygdetidsfaktor", list[0].ID)
	for _, s := range list {
		assert.NotEmpty(t, s.ExpectedValue, s.ID)
		assert.True(t, json.Valid(s.Grunnlag), s.ID)
	}
}

func TestScenarios_EachRunMatches(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			// GIVEN: a fresh engine
			env := newTestEnv(t)

			// WHEN: the scenario is run over HTTP
			rec := env.do(t, http.MethodPost, "/api/scenarier/"+s.ID, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			// THEN: the stored figure and reference are the published ones
			result := decode[ScenarioResultDTO](t, rec)
			assert.True(t, result.Matches, "got %s (%s)", result.Beregning.Value, result.Beregning.Reference)
			assert.JSONEq(t, `"`+s.ExpectedValue+`"`, string(result.Beregning.Value))
			assert.Equal(t, s.ExpectedReference, result.Beregning.Reference)
			assert.NotEmpty(t, result.Beregning.Explanation)

			// AND: it is in the calculation log like any other beregning
			stored, err := env.store.Get(context.Background(), result.Beregning.ID)
			require.NoError(t, err)
			assert.Equal(t, s.LogicalID, stored.LogicalID)
			assert.Equal(t, s.Ytelse, stored.Ytelse)
		})
	}
}

func TestScenarios_UnknownScenario(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/scenarier/finnes-ikke", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckScenarios_AllMatch(t *testing.T) {
	env := newTestEnv(t)

	checks := env.handler.CheckScenarios()

	require.Len(t, checks, len(scenarios))
	for _, c := range checks {
		assert.True(t, c.Matches(), "%s: %s (%s) %v", c.Scenario.ID, c.Value, c.Reference, c.Err)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(env.handler.Metrics.ScenarioMismatches))

	// Nothing is persisted by the self-check
	list, err := env.store.ListByLogicalID(context.Background(), "BP-BELOEP")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScenarioCheck_Matches(t *testing.T) {
	s := ScenarioDTO{ExpectedValue: "6920", ExpectedReference: "BP-BEREGNING-2024-BELOEP"}

	assert.True(t, ScenarioCheck{Scenario: s, Value: "6920", Reference: "BP-BEREGNING-2024-BELOEP"}.Matches())
	assert.False(t, ScenarioCheck{Scenario: s, Value: "6919", Reference: "BP-BEREGNING-2024-BELOEP"}.Matches())
	assert.False(t, ScenarioCheck{Scenario: s, Value: "6920", Reference: "BP-BEREGNING-1967-BELOEP"}.Matches())
	assert.False(t, ScenarioCheck{Scenario: s, Value: "6920", Reference: "BP-BEREGNING-2024-BELOEP", Err: context.Canceled}.Matches())
}
