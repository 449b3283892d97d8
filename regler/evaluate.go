/*
evaluate.go - Evaluation engine

PURPOSE:
  Walks a rule tree against one Grunnlag and returns the value together with
  a Trace that mirrors the tree. Leaves resolve directly; composites evaluate
  their inputs in declaration order and reduce the values.

GUARANTEES:
  - Pure: no shared mutable state, no I/O, no clock, no caching
  - Deterministic: value-equal Grunnlag gives value-equal Traces
  - Terminal errors: MissingFactError is returned as-is (wrapped with the
    references of the enclosing composites); retrying cannot help

CONCURRENCY:
  Rules are immutable, so any number of goroutines may evaluate the same
  rule at once. EvaluateBatch does exactly that for bulk recalculation.
*/
package regler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// TRACE - The audit artifact
// =============================================================================

// Trace is the result of evaluating a rule: its value, the rule's metadata
// and one child per consumed input, in declaration order.
type Trace[V any] struct {
	Header   Header
	Kind     Kind
	Value    V
	Children []AnyTrace
}

// AnyTrace is a Trace with its value type erased. Children of a composite
// usually have different value types, so they are held as AnyTrace.
type AnyTrace interface {
	Meta() Header
	NodeKind() Kind
	AnyValue() any
	Subtraces() []AnyTrace
	Node() (Node, error)
}

var _ AnyTrace = Trace[Beregningstall]{}

func (t Trace[V]) Meta() Header          { return t.Header }
func (t Trace[V]) NodeKind() Kind        { return t.Kind }
func (t Trace[V]) AnyValue() any         { return t.Value }
func (t Trace[V]) Subtraces() []AnyTrace { return t.Children }

// =============================================================================
// EVALUATE
// =============================================================================

// Evaluate computes rule against grunnlag.
func Evaluate[G, V any](rule Rule[G, V], grunnlag G) (Trace[V], error) {
	return rule.evaluate(grunnlag)
}

// Result is the outcome of one evaluation: either Trace or Err.
type Result[V any] struct {
	Trace Trace[V]
	Err   error
}

func (r Result[V]) OK() bool { return r.Err == nil }

// EvaluateBatch evaluates rule against every grunnlag concurrently, with at
// most parallelism evaluations in flight (unbounded if parallelism <= 0).
// Results are returned in input order. One failing grunnlag does not affect
// the others. Once ctx is done, items not yet started report ctx.Err().
func EvaluateBatch[G, V any](ctx context.Context, rule Rule[G, V], grunnlag []G, parallelism int) []Result[V] {
	return batch[V](ctx, len(grunnlag), parallelism, func(i int) (Trace[V], error) {
		return rule.evaluate(grunnlag[i])
	})
}

func batch[V any](ctx context.Context, n, parallelism int, eval func(i int) (Trace[V], error)) []Result[V] {
	results := make([]Result[V], n)

	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			results[i] = Result[V]{Err: err}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result[V]{Err: err}
				return nil
			}
			t, err := eval(i)
			results[i] = Result[V]{Trace: t, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
