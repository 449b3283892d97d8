/*
Package regler provides the legal-rule evaluation engine (regelmotor).

PURPOSE:
  Benefit figures such as trygdetidsfaktor or a barnepensjon amount are
  computed from dated legal formulas. Every figure must be explainable to a
  case worker and defensible in an appeal, so the engine never returns a bare
  number: it returns the number together with the full tree of sub-results
  that produced it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Reference: The legal-provision code stored next to every figure
  - Header: Effective-from date, description and reference of a rule
  - Rule[G, V]: An immutable, pure computation over a Grunnlag G yielding V
  - Kind: Constant, fact accessor or composite

BUILDING BLOCKS:
  - leaf.go:        Constant and FactFromBase
  - combine.go:     Map, Combine2..Combine6, CombineAll
  - evaluate.go:    Evaluate, EvaluateBatch, Trace
  - versions.go:    Versions (variants of one provision by gjelderFra)
  - registry.go:    Registry (closed set of logical rules, built at startup)

DESIGN PRINCIPLES:
  1. Immutability: Rule graphs are built once and shared by all goroutines
  2. Precision: All legal arithmetic uses Beregningstall
  3. Type Safety: Combinator arity and input types are checked by the compiler
  4. Auditability: Every evaluation returns a Trace mirroring the rule tree

USAGE:
  maks := regler.Constant[Grunnlag](gjelderFra, "Maks trygdetid", refMaks, regler.NewBeregningstall(40))
  tt := regler.FactFromBase(gjelderFra, "Avdødes trygdetid", refTT,
      func(g Grunnlag) *Avdoed { return g.Avdoed },
      func(a Avdoed) regler.Beregningstall { return a.Trygdetid })
  faktor := regler.Combine2(regler.NewHeader(gjelderFra, "Trygdetidsfaktor", refFaktor),
      maks, tt,
      func(maks, tt regler.Beregningstall) regler.Beregningstall {
          return tt.Min(maks).Divide(maks, 4, regler.HalfUp)
      })
  trace, err := regler.Evaluate(faktor, grunnlag)
*/
package regler

import (
	"fmt"
	"reflect"
	"regexp"
)

// =============================================================================
// REFERENCE - Legal provision identifier
// =============================================================================

// Reference identifies the legal provision a rule implements, for example
// BP-BEREGNING-1967-TRYGDETIDSFAKTOR. Downstream systems store the ID verbatim.
type Reference struct {
	ID          string
	Description string
}

var referenceIDPattern = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)*$`)

// NewReference validates the id format (uppercase, dash-separated).
func NewReference(id, description string) (Reference, error) {
	if !referenceIDPattern.MatchString(id) {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, id)
	}
	return Reference{ID: id, Description: description}, nil
}

// MustReference is NewReference for compiled-in rule definitions.
func MustReference(id, description string) Reference {
	r, err := NewReference(id, description)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Reference) String() string { return r.ID }

// =============================================================================
// HEADER - Metadata every rule carries
// =============================================================================

type Header struct {
	EffectiveFrom Dato
	Description   string
	Reference     Reference
}

func NewHeader(effectiveFrom Dato, description string, reference Reference) Header {
	return Header{EffectiveFrom: effectiveFrom, Description: description, Reference: reference}
}

func (h Header) validate() {
	if !referenceIDPattern.MatchString(h.Reference.ID) {
		panic(fmt.Errorf("%w: %q (%s)", ErrInvalidReference, h.Reference.ID, h.Description))
	}
	if h.EffectiveFrom.IsZero() {
		panic(fmt.Errorf("rule %s has no effective-from date", h.Reference.ID))
	}
}

// =============================================================================
// RULE
// =============================================================================

type Kind string

const (
	KindConstant  Kind = "constant"
	KindFact      Kind = "fact"
	KindComposite Kind = "composite"
)

// Rule is a pure computation over a Grunnlag G producing a V.
//
// The interface is sealed: rules are only created through Constant,
// FactFromBase and the combinators, which guarantees every rule produces a
// complete Trace. Rules hold no request state and are safe for concurrent use.
type Rule[G, V any] interface {
	Header() Header
	Kind() Kind

	evaluate(g G) (Trace[V], error)
}

// node is the type-erased form composites hold their inputs in.
// Evaluation only needs an ordered list of these plus a reducer.
type node[G any] interface {
	evaluateAny(g G) (AnyTrace, any, error)
}

type erased[G, V any] struct {
	rule Rule[G, V]
}

func (e erased[G, V]) evaluateAny(g G) (AnyTrace, any, error) {
	t, err := e.rule.evaluate(g)
	if err != nil {
		return nil, nil, err
	}
	return t, t.Value, nil
}

func erase[G, V any](r Rule[G, V]) node[G] {
	return erased[G, V]{rule: r}
}

// typeName renders a type parameter for listings and error messages.
func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
