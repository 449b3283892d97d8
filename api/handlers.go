/*
handlers.go - HTTP API handlers for the rule engine

PURPOSE:
  Exposes rule resolution and calculation over REST so that case-processing
  systems can ask "what is the amount" and, later, "why is it this amount".

ENDPOINTS:
  Rules:
    GET    /api/regler                         List logical rules and variants
    GET    /api/regler/{id}/versjon?dato=      Variant in force at a date
    GET    /api/regler/{id}/beregninger        Calculation history of a rule

  Calculations:
    POST   /api/beregninger/{ytelse}/{id}       Evaluate and persist
    POST   /api/beregninger/{ytelse}/{id}/batch Evaluate many, not persisted
    GET    /api/beregninger/{beregningID}       Stored calculation (?forklaring=true)

  Worked cases (scenarios.go):
    GET    /api/scenarier                      List known cases
    POST   /api/scenarier/{scenarioID}         Evaluate, persist and compare

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Registry: Logical rules, built once at startup
  - Store: Append-only calculation log
  - Factory: JSON to Grunnlag conversion
  - Metrics, Logger

REQUEST FLOW (POST /api/beregninger):
  1. Decode the grunnlag for the ytelse in the path
  2. Resolve the rule at the grunnlag's virkningstidspunkt
  3. Evaluate
  4. Append the calculation (value, trace, fingerprint) to the log
  5. Return it

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid grunnlag or date, rule belongs to another ytelse
  - 404: Unknown rule, ytelse or calculation
  - 422: Missing fact, no rule version in force at the date
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/factory"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Registry         *regler.Registry
	Store            regler.BeregningStore
	Factory          *factory.GrunnlagFactory
	Metrics          *Metrics
	Logger           *slog.Logger
	BatchParallelism int

	now   func() time.Time
	newID func() string
}

// NewHandler creates a handler over the given registry and calculation log.
func NewHandler(registry *regler.Registry, store regler.BeregningStore, metrics *Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		Registry:         registry,
		Store:            store,
		Factory:          factory.NewGrunnlagFactory(),
		Metrics:          metrics,
		Logger:           logger,
		BatchParallelism: 4,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRegler returns every logical rule in registration order.
func (h *Handler) ListRegler(w http.ResponseWriter, r *http.Request) {
	descriptions := h.Registry.Describe()
	dtos := make([]RegelDTO, len(descriptions))
	for i, d := range descriptions {
		dtos[i] = toRegelDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVersjon returns the variant of a rule in force at ?dato=YYYY-MM-DD.
func (h *Handler) GetVersjon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	raw := r.URL.Query().Get("dato")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "dato is required", nil)
		return
	}
	dato, err := regler.ParseDato(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dato", err)
		return
	}

	set, err := h.Registry.Lookup(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Rule not found", err)
		return
	}

	header, err := set.ResolveHeader(dato)
	if err != nil {
		writeError(w, statusFor(err), "No applicable rule version", err)
		return
	}

	writeJSON(w, http.StatusOK, VersjonDTO{
		LogicalID: id,
		Dato:      dato.String(),
		Variant:   toVariantDTO(header),
	})
}

// ListBeregninger returns the stored calculations of a rule, oldest first.
func (h *Handler) ListBeregninger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Registry.Lookup(id); err != nil {
		writeError(w, http.StatusNotFound, "Rule not found", err)
		return
	}

	beregninger, err := h.Store.ListByLogicalID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list beregninger", err)
		return
	}
	writeJSON(w, http.StatusOK, toBeregningDTOs(beregninger))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Beregn evaluates rule {id} against the posted grunnlag and logs the result.
func (h *Handler) Beregn(w http.ResponseWriter, r *http.Request) {
	ytelse := chi.URLParam(r, "ytelse")
	id := chi.URLParam(r, "id")

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	b, herr := h.beregnOgLagre(r, ytelse, id, body)
	if herr != nil {
		writeError(w, herr.status, herr.message, herr.err)
		return
	}
	writeJSON(w, http.StatusCreated, toBeregningDTO(b, false))
}

// handlerError carries the HTTP status a failed step maps to.
type handlerError struct {
	status  int
	message string
	err     error
}

// beregnOgLagre parses, evaluates and appends one calculation.
func (h *Handler) beregnOgLagre(r *http.Request, ytelse, id string, body []byte) (regler.Beregning, *handlerError) {
	logger := h.requestLogger(r).With("ytelse", ytelse, "rule", id)

	g, err := h.Factory.Parse(ytelse, body)
	if err != nil {
		return regler.Beregning{}, &handlerError{parseStatus(err), "Invalid grunnlag", err}
	}

	start := time.Now()
	trace, err := g.Beregn(h.Registry, id)
	if err != nil {
		outcome := outcomeFor(err)
		h.Metrics.RecordEvaluation(metricRule(id, outcome), outcome)
		logger.Info("beregning failed",
			"virkningstidspunkt", g.Virkningstidspunkt().String(),
			"outcome", outcome,
			"error", err)
		return regler.Beregning{}, &handlerError{statusFor(err), "Beregning failed", err}
	}

	b, err := regler.NewBeregning(h.newID(), id, ytelse, g.Virkningstidspunkt(), trace, h.now())
	if err != nil {
		h.Metrics.RecordEvaluation(id, OutcomeError)
		logger.Error("failed to encode beregning", "error", err)
		return regler.Beregning{}, &handlerError{http.StatusInternalServerError, "Failed to encode beregning", err}
	}

	if err := h.Store.Append(r.Context(), b); err != nil {
		h.Metrics.RecordEvaluation(id, OutcomeError)
		logger.Error("failed to store beregning", "beregning_id", b.ID, "error", err)
		return regler.Beregning{}, &handlerError{http.StatusInternalServerError, "Failed to store beregning", err}
	}

	h.Metrics.RecordEvaluation(id, OutcomeOK)
	h.Metrics.ObserveEvaluation(start)
	logger.Info("beregning stored",
		"beregning_id", b.ID,
		"reference", b.Reference,
		"virkningstidspunkt", b.Virkningstidspunkt.String())
	return b, nil
}

// BeregnBatch evaluates rule {id} for every grunnlag in a posted JSON array.
// Nothing is persisted; this is for bulk recalculation previews.
func (h *Handler) BeregnBatch(w http.ResponseWriter, r *http.Request) {
	ytelse := chi.URLParam(r, "ytelse")
	id := chi.URLParam(r, "id")

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	batch, err := h.Factory.ParseBatch(ytelse, body)
	if err != nil {
		writeError(w, parseStatus(err), "Invalid grunnlag", err)
		return
	}
	h.Metrics.ObserveBatch(batch.Len())

	results, err := batch.Beregn(r.Context(), h.Registry, id, h.BatchParallelism)
	if err != nil {
		writeError(w, statusFor(err), "Beregning failed", err)
		return
	}

	resp := BatchResponse{
		LogicalID: id,
		Ytelse:    ytelse,
		Results:   make([]BatchResultDTO, len(results)),
	}
	for i, res := range results {
		dto := toBatchResultDTO(i, res)
		if dto.Outcome != OutcomeOK {
			resp.Failed++
		}
		h.Metrics.RecordEvaluation(id, dto.Outcome)
		resp.Results[i] = dto
	}

	h.requestLogger(r).Info("batch evaluated",
		"ytelse", ytelse, "rule", id, "size", len(results), "failed", resp.Failed)
	writeJSON(w, http.StatusOK, resp)
}

// GetBeregning returns a stored calculation after checking its fingerprint.
func (h *Handler) GetBeregning(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "beregningID")

	b, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if regler.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Beregning not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load beregning", err)
		return
	}

	if err := b.Verify(); err != nil {
		h.requestLogger(r).Error("stored beregning failed verification", "beregning_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Stored beregning failed verification", err)
		return
	}

	writeJSON(w, http.StatusOK, toBeregningDTO(b, r.URL.Query().Get("forklaring") == "true"))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		return h.Logger.With("request_id", reqID)
	}
	return h.Logger
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return body, nil
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case regler.IsClientError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, regler.ErrUnknownRule):
		return http.StatusNotFound
	case errors.Is(err, regler.ErrRuleTypeMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseStatus(err error) int {
	if errors.Is(err, factory.ErrUnknownYtelse) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, regler.ErrMissingFact):
		return OutcomeMissingFact
	case errors.Is(err, regler.ErrNoApplicableRuleVersion):
		return OutcomeNoVersion
	case errors.Is(err, regler.ErrUnknownRule):
		return OutcomeUnknownRule
	case errors.Is(err, regler.ErrRuleTypeMismatch):
		return OutcomeTypeMismatch
	default:
		return OutcomeError
	}
}

// metricRule keeps caller-supplied ids of unknown rules out of label values.
func metricRule(id, outcome string) string {
	if outcome == OutcomeUnknownRule {
		return "unknown"
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
