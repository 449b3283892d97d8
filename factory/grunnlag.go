/*
Package factory provides JSON to Go grunnlag conversion.

PURPOSE:
  Converts the JSON fact base posted by a case-processing system into the
  typed Grunnlag of the benefit it belongs to, and binds it to the rule
  registry. The API layer never needs to know the Go type behind a ytelse.

JSON SCHEMA (barnepensjon):
  {
    "virkningstidspunkt": "2024-03-01",
    "grunnbeloep": "124028",
    "avdoed": {"trygdetid": 28},
    "soesken": {"antallBarn": 2}
  }

  omstillingsstoenad has the same shape without "soesken". Decimal fields
  accept strings or numbers; strings are preferred since they keep the scale.

VALIDATION:
  - Unknown fields are rejected
  - virkningstidspunkt is required and must be YYYY-MM-DD
  - Numbers must not be negative
  - Decimals carry at most 10 fraction digits and 15 integer digits
  - The body is exactly one JSON value
  Absent records (no "avdoed") are NOT errors here. They are facts the
  engine will report as missing when a rule needs them.

USAGE:
  f := factory.NewGrunnlagFactory()
  g, err := f.Parse("barnepensjon", body)
  trace, err := g.Beregn(registry, "BP-BELOEP")

  batch, err := f.ParseBatch("barnepensjon", arrayBody)
  results, err := batch.Beregn(ctx, registry, "BP-BELOEP", 4)

SEE ALSO:
  - barnepensjon/types.go, omstillingsstoenad/types.go: Target types
  - api/handlers.go: The only production caller
*/
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/barnepensjon"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/omstillingsstoenad"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

var (
	// ErrUnknownYtelse is returned for a benefit type with no parser.
	ErrUnknownYtelse = errors.New("unknown ytelse")

	// ErrInvalidGrunnlag is returned when the JSON does not describe a valid grunnlag.
	ErrInvalidGrunnlag = errors.New("invalid grunnlag")
)

// =============================================================================
// PARSED GRUNNLAG
// =============================================================================

// Grunnlag is a decoded fact base bound to its benefit type.
type Grunnlag interface {
	Ytelse() string
	Virkningstidspunkt() regler.Dato
	Value() any

	// Beregn resolves logicalID at the virkningstidspunkt and evaluates it.
	Beregn(registry *regler.Registry, logicalID string) (regler.Trace[regler.Beregningstall], error)
}

type typed[G any] struct {
	ytelse string
	virk   regler.Dato
	value  G
}

func (t typed[G]) Ytelse() string                  { return t.ytelse }
func (t typed[G]) Virkningstidspunkt() regler.Dato { return t.virk }
func (t typed[G]) Value() any                      { return t.value }

func (t typed[G]) Beregn(registry *regler.Registry, logicalID string) (regler.Trace[regler.Beregningstall], error) {
	rule, err := regler.Resolve[G, regler.Beregningstall](registry, logicalID, t.virk)
	if err != nil {
		return regler.Trace[regler.Beregningstall]{}, err
	}
	return regler.Evaluate(rule, t.value)
}

// Batch is a list of decoded fact bases of one benefit type.
type Batch interface {
	Ytelse() string
	Len() int

	// Beregn evaluates logicalID for every item, each at its own
	// virkningstidspunkt, with at most parallelism evaluations in flight.
	// Results are in input order. The error is set only when logicalID
	// cannot be looked up for this ytelse at all.
	Beregn(ctx context.Context, registry *regler.Registry, logicalID string, parallelism int) ([]regler.Result[regler.Beregningstall], error)
}

type typedBatch[G any] struct {
	ytelse string
	items  []G
	virkOf func(G) regler.Dato
}

func (b typedBatch[G]) Ytelse() string { return b.ytelse }
func (b typedBatch[G]) Len() int       { return len(b.items) }

func (b typedBatch[G]) Beregn(ctx context.Context, registry *regler.Registry, logicalID string, parallelism int) ([]regler.Result[regler.Beregningstall], error) {
	versions, err := regler.LookupVersions[G, regler.Beregningstall](registry, logicalID)
	if err != nil {
		return nil, err
	}
	return versions.EvaluateBatchAt(ctx, b.items, b.virkOf, parallelism), nil
}

// =============================================================================
// GRUNNLAG FACTORY
// =============================================================================

type binding interface {
	parse(data []byte) (Grunnlag, error)
	parseBatch(data []byte) (Batch, error)
}

// ytelseBinding knows the Go type behind one ytelse.
type ytelseBinding[G any] struct {
	ytelse   string
	virkOf   func(G) regler.Dato
	validate func(G) error
}

func (b ytelseBinding[G]) parse(data []byte) (Grunnlag, error) {
	g, err := b.decode(data)
	if err != nil {
		return nil, err
	}
	return typed[G]{ytelse: b.ytelse, virk: b.virkOf(g), value: g}, nil
}

func (b ytelseBinding[G]) parseBatch(data []byte) (Batch, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: expected a JSON array: %v", ErrInvalidGrunnlag, b.ytelse, err)
	}
	items := make([]G, len(raw))
	for i, r := range raw {
		g, err := b.decode(r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = g
	}
	return typedBatch[G]{ytelse: b.ytelse, items: items, virkOf: b.virkOf}, nil
}

func (b ytelseBinding[G]) decode(data []byte) (G, error) {
	var g G
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return g, fmt.Errorf("%w: %s: %v", ErrInvalidGrunnlag, b.ytelse, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return g, fmt.Errorf("%w: %s: trailing data after grunnlag", ErrInvalidGrunnlag, b.ytelse)
	}
	if b.virkOf(g).IsZero() {
		return g, fmt.Errorf("%w: %s: virkningstidspunkt is required", ErrInvalidGrunnlag, b.ytelse)
	}
	if err := b.validate(g); err != nil {
		return g, fmt.Errorf("%w: %s: %v", ErrInvalidGrunnlag, b.ytelse, err)
	}
	return g, nil
}

// GrunnlagFactory converts JSON fact bases to typed Grunnlag values.
type GrunnlagFactory struct {
	bindings map[string]binding
}

// NewGrunnlagFactory creates a factory that knows every ytelse in this module.
func NewGrunnlagFactory() *GrunnlagFactory {
	return &GrunnlagFactory{
		bindings: map[string]binding{
			barnepensjon.Ytelse: ytelseBinding[barnepensjon.Grunnlag]{
				ytelse:   barnepensjon.Ytelse,
				virkOf:   func(g barnepensjon.Grunnlag) regler.Dato { return g.Virkningstidspunkt },
				validate: validateBarnepensjon,
			},
			omstillingsstoenad.Ytelse: ytelseBinding[omstillingsstoenad.Grunnlag]{
				ytelse:   omstillingsstoenad.Ytelse,
				virkOf:   func(g omstillingsstoenad.Grunnlag) regler.Dato { return g.Virkningstidspunkt },
				validate: validateOmstillingsstoenad,
			},
		},
	}
}

// Ytelser returns the supported benefit types, sorted.
func (f *GrunnlagFactory) Ytelser() []string {
	out := make([]string, 0, len(f.bindings))
	for y := range f.bindings {
		out = append(out, y)
	}
	sort.Strings(out)
	return out
}

// Parse decodes data as the Grunnlag of ytelse.
func (f *GrunnlagFactory) Parse(ytelse string, data []byte) (Grunnlag, error) {
	b, ok := f.bindings[ytelse]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownYtelse, ytelse)
	}
	return b.parse(data)
}

// ParseBatch decodes data as a JSON array of Grunnlag of ytelse.
// One invalid item rejects the whole batch.
func (f *GrunnlagFactory) ParseBatch(ytelse string, data []byte) (Batch, error) {
	b, ok := f.bindings[ytelse]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownYtelse, ytelse)
	}
	return b.parseBatch(data)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Bounds on decimal inputs. Arithmetic cost and trace size grow with the
// number of digits, and no grunnlag amount comes close to these.
const (
	maxScale         = 10
	maxIntegerDigits = 15
)

func validateBarnepensjon(g barnepensjon.Grunnlag) error {
	if err := boundedAmount("grunnbeloep", g.Grunnbeloep); err != nil {
		return err
	}
	if g.Avdoed != nil && g.Avdoed.Trygdetid != nil && *g.Avdoed.Trygdetid < 0 {
		return fmt.Errorf("avdoed.trygdetid must not be negative")
	}
	if g.Soesken != nil && g.Soesken.AntallBarn < 0 {
		return fmt.Errorf("soesken.antallBarn must not be negative")
	}
	return nil
}

func validateOmstillingsstoenad(g omstillingsstoenad.Grunnlag) error {
	if err := boundedAmount("grunnbeloep", g.Grunnbeloep); err != nil {
		return err
	}
	if g.Avdoed != nil && g.Avdoed.Trygdetid != nil && *g.Avdoed.Trygdetid < 0 {
		return fmt.Errorf("avdoed.trygdetid must not be negative")
	}
	return nil
}

// boundedAmount checks an optional decimal input for sign and size.
func boundedAmount(field string, v *regler.Beregningstall) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() {
		return fmt.Errorf("%s must not be negative", field)
	}
	if v.Scale() > maxScale {
		return fmt.Errorf("%s has more than %d decimals", field, maxScale)
	}
	d := v.Decimal()
	if int64(d.NumDigits())+int64(d.Exponent()) > maxIntegerDigits {
		return fmt.Errorf("%s has more than %d integer digits", field, maxIntegerDigits)
	}
	return nil
}
