/*
combine.go - Composite rules

PURPOSE:
  A composite rule "uses" a fixed list of already-built rules and combines
  their values with a pure function. The composite's Trace keeps every
  input's Trace as a child, in declaration order.

STATIC ARITY:
  The combining function's parameter list IS the declaration. Combine3 with
  inputs of type Rule[G, A], Rule[G, B], Rule[G, C] only accepts a
  func(A, B, C) V, so a composition with the wrong number or type of inputs
  does not compile. Inputs of one type and arbitrary count go through
  CombineAll.

EVALUATION:
  All the typed front-ends lower to the same representation: an ordered list
  of type-erased inputs plus one reducer over their values. Every input is
  evaluated, in order, before the reducer runs. No short-circuiting.

EXAMPLE:
  faktor := regler.Combine2(header, maksTrygdetid, trygdetid,
      func(maks, tt regler.Beregningstall) regler.Beregningstall {
          return tt.Min(maks).Divide(maks, 4, regler.HalfUp)
      })
*/
package regler

import "fmt"

// =============================================================================
// COMPOSITE RULE
// =============================================================================

type compositeRule[G, V any] struct {
	header Header
	inputs []node[G]
	reduce func(values []any) V
}

func newComposite[G, V any](h Header, reduce func([]any) V, inputs ...node[G]) Rule[G, V] {
	h.validate()
	return compositeRule[G, V]{header: h, inputs: inputs, reduce: reduce}
}

func (r compositeRule[G, V]) Header() Header { return r.header }
func (r compositeRule[G, V]) Kind() Kind     { return KindComposite }

func (r compositeRule[G, V]) evaluate(g G) (Trace[V], error) {
	children := make([]AnyTrace, 0, len(r.inputs))
	values := make([]any, 0, len(r.inputs))
	for _, in := range r.inputs {
		t, v, err := in.evaluateAny(g)
		if err != nil {
			return Trace[V]{}, fmt.Errorf("%s: %w", r.header.Reference.ID, err)
		}
		children = append(children, t)
		values = append(values, v)
	}
	return Trace[V]{
		Header:   r.header,
		Kind:     KindComposite,
		Value:    r.reduce(values),
		Children: children,
	}, nil
}

// as converts a reducer input back to its declared type. A nil interface
// value becomes the zero value instead of panicking.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

// =============================================================================
// TYPED FRONT-ENDS
// =============================================================================

// Map derives a value from a single rule.
func Map[G, A, V any](h Header, a Rule[G, A], f func(A) V) Rule[G, V] {
	return newComposite(h, func(v []any) V {
		return f(as[A](v[0]))
	}, erase(a))
}

func Combine2[G, A, B, V any](h Header, a Rule[G, A], b Rule[G, B], f func(A, B) V) Rule[G, V] {
	return newComposite(h, func(v []any) V {
		return f(as[A](v[0]), as[B](v[1]))
	}, erase(a), erase(b))
}

func Combine3[G, A, B, C, V any](h Header, a Rule[G, A], b Rule[G, B], c Rule[G, C], f func(A, B, C) V) Rule[G, V] {
	return newComposite(h, func(v []any) V {
		return f(as[A](v[0]), as[B](v[1]), as[C](v[2]))
	}, erase(a), erase(b), erase(c))
}

func Combine4[G, A, B, C, D, V any](h Header, a Rule[G, A], b Rule[G, B], c Rule[G, C], d Rule[G, D],
	f func(A, B, C, D) V) Rule[G, V] {
	return newComposite(h, func(v []any) V {
		return f(as[A](v[0]), as[B](v[1]), as[C](v[2]), as[D](v[3]))
	}, erase(a), erase(b), erase(c), erase(d))
}

func Combine5[G, A, B, C, D, E, V any](h Header, a Rule[G, A], b Rule[G, B], c Rule[G, C], d Rule[G, D],
	e Rule[G, E], f func(A, B, C, D, E) V) Rule[G, V] {
	return newComposite(h, func(v []any) V {
		return f(as[A](v[0]), as[B](v[1]), as[C](v[2]), as[D](v[3]), as[E](v[4]))
	}, erase(a), erase(b), erase(c), erase(d), erase(e))
}

func Combine6[G, A, B, C, D, E, F, V any](h Header, a Rule[G, A], b Rule[G, B], c Rule[G, C], d Rule[G, D],
	e Rule[G, E], f Rule[G, F], fn func(A, B, C, D, E, F) V) Rule[G, V] {
	return newComposite(h, func(v []any) V {
		return fn(as[A](v[0]), as[B](v[1]), as[C](v[2]), as[D](v[3]), as[E](v[4]), as[F](v[5]))
	}, erase(a), erase(b), erase(c), erase(d), erase(e), erase(f))
}

// CombineAll combines any number of rules of the same value type. The
// function receives their values in the order of rules. Panics if rules is empty.
func CombineAll[G, A, V any](h Header, rules []Rule[G, A], f func([]A) V) Rule[G, V] {
	if len(rules) == 0 {
		panic(fmt.Errorf("rule %s: CombineAll needs at least one input", h.Reference.ID))
	}
	inputs := make([]node[G], len(rules))
	for i, r := range rules {
		inputs[i] = erase(r)
	}
	return newComposite(h, func(v []any) V {
		typed := make([]A, len(v))
		for i := range v {
			typed[i] = as[A](v[i])
		}
		return f(typed)
	}, inputs...)
}
