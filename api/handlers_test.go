/*
handlers_test.go - Tests for API handlers

Tests for:
- Calculation lifecycle (Beregn, GetBeregning, ListBeregninger)
- Error status mapping (400, 404, 422)
- Rule listing and version resolution
- Batch evaluation
- Metrics
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/barnepensjon"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/omstillingsstoenad"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testEnv struct {
	handler *Handler
	router  http.Handler
	store   *sqlite.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	b := regler.NewRegistryBuilder()
	require.NoError(t, barnepensjon.Register(b))
	require.NoError(t, omstillingsstoenad.Register(b))
	registry, err := b.Build()
	require.NoError(t, err)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := NewHandler(registry, store, NewMetrics(reg), logger)
	seq := 0
	h.newID = func() string {
		seq++
		return fmt.Sprintf("beregning-%d", seq)
	}
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	router := NewRouter(h, RouterOptions{
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testEnv{handler: h, router: router, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const bpGrunnlag1967 = `{
	"virkningstidspunkt": "2023-06-01",
	"grunnbeloep": "118620",
	"avdoed": {"trygdetid": 28},
	"soesken": {"antallBarn": 1}
}`

// =============================================================================
// CALCULATIONS
// =============================================================================

func TestBeregn_Success(t *testing.T) {
	// GIVEN: A barnepensjon grunnlag with 28 years trygdetid before the reform
	// WHEN: POST /api/beregninger/barnepensjon/BP-TRYGDETIDSFAKTOR
	// THEN: 201 with value 0.7000, the 1967 reference and the full trace

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-TRYGDETIDSFAKTOR", bpGrunnlag1967)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[BeregningDTO](t, rec)
	assert.Equal(t, "beregning-1", dto.ID)
	assert.Equal(t, "BP-TRYGDETIDSFAKTOR", dto.LogicalID)
	assert.Equal(t, "barnepensjon", dto.Ytelse)
	assert.Equal(t, "2023-06-01", dto.Virkningstidspunkt)
	assert.Equal(t, "BP-BEREGNING-1967-TRYGDETIDSFAKTOR", dto.Reference)
	assert.JSONEq(t, `"0.7000"`, string(dto.Value))
	assert.Len(t, dto.Fingerprint, 64)

	require.Len(t, dto.Trace.Children, 2)
	assert.Equal(t, "MAKS-TRYGDETID", dto.Trace.Children[0].Reference)
	assert.Equal(t, "BP-GRUNNLAG-TRYGDETID", dto.Trace.Children[1].Reference)

	stored, err := env.store.Get(context.Background(), "beregning-1")
	require.NoError(t, err)
	assert.Equal(t, dto.Fingerprint, stored.Fingerprint)
}

func TestBeregn_ThenGet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-BELOEP", bpGrunnlag1967)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[BeregningDTO](t, rec)
	assert.JSONEq(t, `"2768"`, string(created.Value))

	rec = env.do(t, http.MethodGet, "/api/beregninger/"+created.ID+"?forklaring=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[BeregningDTO](t, rec)
	assert.Equal(t, created.Fingerprint, got.Fingerprint)
	assert.Equal(t, created.Reference, got.Reference)
	assert.Contains(t, got.Explanation, "BP-BEREGNING-1967-BELOEP = 2768")
	assert.Contains(t, got.Explanation, "    MAKS-TRYGDETID = 40")
}

func TestBeregn_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{
			name:   "missing fact",
			path:   "/api/beregninger/barnepensjon/BP-TRYGDETIDSFAKTOR",
			body:   `{"virkningstidspunkt": "2023-06-01", "avdoed": {}}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "no applicable version",
			path:   "/api/beregninger/omstillingsstoenad/OMS-BELOEP",
			body:   `{"virkningstidspunkt": "2023-06-01", "grunnbeloep": "118620", "avdoed": {"trygdetid": 40}}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown rule",
			path:   "/api/beregninger/barnepensjon/BP-FINNES-IKKE",
			body:   bpGrunnlag1967,
			status: http.StatusNotFound,
		},
		{
			name:   "unknown ytelse",
			path:   "/api/beregninger/alderspensjon/BP-BELOEP",
			body:   bpGrunnlag1967,
			status: http.StatusNotFound,
		},
		{
			name:   "rule of other ytelse",
			path:   "/api/beregninger/barnepensjon/OMS-BELOEP",
			body:   bpGrunnlag1967,
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid json",
			path:   "/api/beregninger/barnepensjon/BP-BELOEP",
			body:   `{"virkningstidspunkt":`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)

			// Failed calculations are never logged as beregninger.
			_, err := env.store.Get(context.Background(), "beregning-1")
			assert.ErrorIs(t, err, regler.ErrBeregningNotFound)
		})
	}
}

func TestBeregn_MissingFactNamesAccessor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-BELOEP",
		`{"virkningstidspunkt": "2024-06-01", "avdoed": {"trygdetid": 40}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Details, "Grunnbeløp")
	assert.Contains(t, resp.Details, "BP-GRUNNLAG-GRUNNBELOEP")
}

func TestGetBeregning_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/beregninger/finnes-ikke", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBeregning_TamperedTrace(t *testing.T) {
	// GIVEN: A stored beregning whose trace was changed after the fact
	// WHEN: Fetching it
	// THEN: 500, the fingerprint no longer matches

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-TRYGDETIDSFAKTOR", bpGrunnlag1967)
	require.Equal(t, http.StatusCreated, rec.Code)

	original, err := env.store.Get(context.Background(), "beregning-1")
	require.NoError(t, err)

	tampered := original
	tampered.ID = "beregning-tampered"
	tampered.Trace.Children[1].Value = json.RawMessage(`"40"`)
	require.NoError(t, env.store.Append(context.Background(), tampered))

	rec = env.do(t, http.MethodGet, "/api/beregninger/beregning-tampered", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListBeregninger(t *testing.T) {
	env := newTestEnv(t)

	for _, virk := range []string{"2023-06-01", "2024-06-01"} {
		body := strings.Replace(bpGrunnlag1967, "2023-06-01", virk, 1)
		rec := env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-BELOEP", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/regler/BP-BELOEP/beregninger", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]BeregningDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "BP-BEREGNING-1967-BELOEP", list[0].Reference)
	assert.Equal(t, "BP-BEREGNING-2024-BELOEP", list[1].Reference)

	rec = env.do(t, http.MethodGet, "/api/regler/BP-FINNES-IKKE/beregninger", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// RULES
// =============================================================================

func TestListRegler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/regler", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rules := decode[[]RegelDTO](t, rec)
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.LogicalID
	}
	assert.Equal(t, []string{"BP-TRYGDETIDSFAKTOR", "BP-SATS", "BP-BELOEP", "OMS-TRYGDETIDSFAKTOR", "OMS-BELOEP"}, ids)

	require.Len(t, rules[0].Variants, 2)
	assert.Equal(t, "1967-01-01", rules[0].Variants[0].EffectiveFrom)
	assert.Equal(t, "2024-01-01", rules[0].Variants[1].EffectiveFrom)
}

func TestGetVersjon(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		reference string
	}{
		{"day before reform", "/api/regler/BP-SATS/versjon?dato=2023-12-31", http.StatusOK, "BP-BEREGNING-1967-SATS"},
		{"reform day", "/api/regler/BP-SATS/versjon?dato=2024-01-01", http.StatusOK, "BP-BEREGNING-2024-SATS"},
		{"before 1967", "/api/regler/BP-SATS/versjon?dato=1960-01-01", http.StatusUnprocessableEntity, ""},
		{"missing dato", "/api/regler/BP-SATS/versjon", http.StatusBadRequest, ""},
		{"bad dato", "/api/regler/BP-SATS/versjon?dato=31.12.2023", http.StatusBadRequest, ""},
		{"unknown rule", "/api/regler/BP-FINNES-IKKE/versjon?dato=2024-01-01", http.StatusNotFound, ""},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.reference != "" {
				assert.Equal(t, tt.reference, decode[VersjonDTO](t, rec).Variant.Reference)
			}
		})
	}
}

// =============================================================================
// BATCH
// =============================================================================

func TestBeregnBatch(t *testing.T) {
	env := newTestEnv(t)

	body := `[
		{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "124028", "avdoed": {"trygdetid": 40}},
		{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "124028", "avdoed": {"trygdetid": 28}},
		{"virkningstidspunkt": "2023-03-01", "grunnbeloep": "118620", "avdoed": {"trygdetid": 28}}
	]`

	rec := env.do(t, http.MethodPost, "/api/beregninger/omstillingsstoenad/OMS-BELOEP/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BatchResponse](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Failed)

	assert.JSONEq(t, `"23255"`, string(resp.Results[0].Value))
	assert.JSONEq(t, `"16279"`, string(resp.Results[1].Value))
	assert.Equal(t, OutcomeNoVersion, resp.Results[2].Outcome)
	assert.Empty(t, resp.Results[2].Value)

	// Batches are previews; nothing is logged.
	list, err := env.store.ListByLogicalID(context.Background(), "OMS-BELOEP")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestToBatchResultDTO(t *testing.T) {
	sats := regler.Constant[struct{}](regler.NewDato(2024, time.January, 1), "Sats",
		regler.MustReference("SATS", ""), regler.MustBeregningstall("2.25"))
	trace, err := regler.Evaluate(sats, struct{}{})
	require.NoError(t, err)

	// An evaluated item carries value, reference and fingerprint
	ok := toBatchResultDTO(3, regler.Result[regler.Beregningstall]{Trace: trace})
	assert.Equal(t, 3, ok.Index)
	assert.Equal(t, OutcomeOK, ok.Outcome)
	assert.Equal(t, "SATS", ok.Reference)
	assert.JSONEq(t, `"2.25"`, string(ok.Value))
	want, err := regler.Fingerprint(trace)
	require.NoError(t, err)
	assert.Equal(t, want, ok.Fingerprint)
	assert.Empty(t, ok.Error)

	// A failed item carries only the outcome and the error
	missing := &regler.MissingFactError{Reference: regler.MustReference("G", ""), Description: "Grunnbeløp"}
	failed := toBatchResultDTO(0, regler.Result[regler.Beregningstall]{Err: missing})
	assert.Equal(t, OutcomeMissingFact, failed.Outcome)
	assert.Contains(t, failed.Error, "Grunnbeløp")
	assert.Empty(t, failed.Value)
	assert.Empty(t, failed.Fingerprint)
	assert.Empty(t, failed.Reference)
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-TRYGDETIDSFAKTOR", bpGrunnlag1967)
	env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-TRYGDETIDSFAKTOR", `{"virkningstidspunkt": "2023-06-01"}`)
	env.do(t, http.MethodPost, "/api/beregninger/barnepensjon/BP-FINNES-IKKE", bpGrunnlag1967)

	evaluations := env.handler.Metrics.Evaluations
	assert.Equal(t, 1.0, testutil.ToFloat64(evaluations.WithLabelValues("BP-TRYGDETIDSFAKTOR", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(evaluations.WithLabelValues("BP-TRYGDETIDSFAKTOR", OutcomeMissingFact)))
	assert.Equal(t, 1.0, testutil.ToFloat64(evaluations.WithLabelValues("unknown", OutcomeUnknownRule)))

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "regelmotor_evaluations_total")
	assert.Contains(t, rec.Body.String(), "regelmotor_evaluation_duration_seconds")
}
