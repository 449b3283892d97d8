/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's Go types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers around lists

TYPES:
  Rules:
    RegelDTO, VariantDTO, VersjonDTO

  Calculations:
    BeregningDTO, BatchResultDTO, BatchResponse

  Scenarios:
    ScenarioDTO, ScenarioResultDTO

  Errors:
    ErrorResponse

VALUES:
  Beregningstall values are JSON strings ("0.7000"), never floats, so the
  scale a figure was computed at reaches the client unchanged.

SEE ALSO:
  - handlers.go: Uses these types
  - regler/trace.go: Node, the trace shape embedded in BeregningDTO
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

// =============================================================================
// RULES
// =============================================================================

// VariantDTO is one dated variant of a logical rule.
type VariantDTO struct {
	Reference     string `json:"reference"`
	Description   string `json:"description"`
	EffectiveFrom string `json:"effectiveFrom"`
}

// RegelDTO describes a logical rule and its variants.
type RegelDTO struct {
	LogicalID    string       `json:"logicalId"`
	GrunnlagType string       `json:"grunnlagType"`
	ValueType    string       `json:"valueType"`
	Variants     []VariantDTO `json:"variants"`
}

// VersjonDTO is the variant of a logical rule in force at a date.
type VersjonDTO struct {
	LogicalID string     `json:"logicalId"`
	Dato      string     `json:"dato"`
	Variant   VariantDTO `json:"variant"`
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// BeregningDTO is a persisted calculation.
type BeregningDTO struct {
	ID                 string          `json:"id"`
	LogicalID          string          `json:"logicalId"`
	Ytelse             string          `json:"ytelse"`
	Virkningstidspunkt string          `json:"virkningstidspunkt"`
	Reference          string          `json:"reference"`
	Value              json.RawMessage `json:"value"`
	Fingerprint        string          `json:"fingerprint"`
	CreatedAt          string          `json:"createdAt"`
	Trace              regler.Node     `json:"trace"`
	Explanation        string          `json:"explanation,omitempty"`
}

// BatchResultDTO is the outcome for one item of a batch. Exactly one of
// Value and Error is set.
type BatchResultDTO struct {
	Index       int             `json:"index"`
	Reference   string          `json:"reference,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Error       string          `json:"error,omitempty"`
	Outcome     string          `json:"outcome"`
}

// toBatchResultDTO converts one batch result. An OK result that cannot be
// encoded is reported as an error outcome without a value.
func toBatchResultDTO(i int, res regler.Result[regler.Beregningstall]) BatchResultDTO {
	dto := BatchResultDTO{Index: i}
	if !res.OK() {
		dto.Outcome = outcomeFor(res.Err)
		dto.Error = res.Err.Error()
		return dto
	}

	value, err := json.Marshal(res.Trace.Value)
	if err != nil {
		dto.Outcome = OutcomeError
		dto.Error = err.Error()
		return dto
	}
	fingerprint, err := regler.Fingerprint(res.Trace)
	if err != nil {
		dto.Outcome = OutcomeError
		dto.Error = err.Error()
		return dto
	}

	dto.Outcome = OutcomeOK
	dto.Reference = res.Trace.Header.Reference.ID
	dto.Value = value
	dto.Fingerprint = fingerprint
	return dto
}

type BatchResponse struct {
	LogicalID string           `json:"logicalId"`
	Ytelse    string           `json:"ytelse"`
	Results   []BatchResultDTO `json:"results"`
	Failed    int              `json:"failed"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO is a worked case with a known answer.
type ScenarioDTO struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Ytelse            string          `json:"ytelse"`
	LogicalID         string          `json:"logicalId"`
	Grunnlag          json.RawMessage `json:"grunnlag"`
	ExpectedValue     string          `json:"expectedValue"`
	ExpectedReference string          `json:"expectedReference"`
}

type ScenarioResultDTO struct {
	Scenario  ScenarioDTO  `json:"scenario"`
	Beregning BeregningDTO `json:"beregning"`
	Matches   bool         `json:"matches"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toVariantDTO(h regler.Header) VariantDTO {
	return VariantDTO{
		Reference:     h.Reference.ID,
		Description:   h.Description,
		EffectiveFrom: h.EffectiveFrom.String(),
	}
}

func toRegelDTO(d regler.RuleDescription) RegelDTO {
	variants := make([]VariantDTO, len(d.Variants))
	for i, h := range d.Variants {
		variants[i] = toVariantDTO(h)
	}
	return RegelDTO{
		LogicalID:    d.LogicalID,
		GrunnlagType: d.GrunnlagType,
		ValueType:    d.ValueType,
		Variants:     variants,
	}
}

func toBeregningDTO(b regler.Beregning, explain bool) BeregningDTO {
	dto := BeregningDTO{
		ID:                 b.ID,
		LogicalID:          b.LogicalID,
		Ytelse:             b.Ytelse,
		Virkningstidspunkt: b.Virkningstidspunkt.String(),
		Reference:          b.Reference,
		Value:              b.Value,
		Fingerprint:        b.Fingerprint,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
		Trace:              b.Trace,
	}
	if explain {
		var buf bytes.Buffer
		if err := b.Trace.Explain(&buf); err == nil {
			dto.Explanation = buf.String()
		}
	}
	return dto
}

func toBeregningDTOs(bs []regler.Beregning) []BeregningDTO {
	dtos := make([]BeregningDTO, len(bs))
	for i, b := range bs {
		dtos[i] = toBeregningDTO(b, false)
	}
	return dtos
}
