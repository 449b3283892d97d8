/*
versions.go - Time-versioned rule resolution

PURPOSE:
  The same legal computation exists in several variants because the law
  changed: trygdetidsfaktor under the 1967 rules and after the 2024 reform.
  A Versions groups the variants of one logical rule and picks the one in
  force at a given date.

RESOLUTION:
  Resolve(dato) returns the variant with the greatest effective-from date
  that is <= dato. The date is the benefit's virkningstidspunkt, supplied by
  the caller; nothing here reads the wall clock. A date before every variant
  fails with NoApplicableRuleVersionError. There is no fallback to the
  earliest or latest variant.

CONSTRUCTION:
  Two variants with the same effective-from date are rejected when the set
  is built, since neither can be chosen over the other. So are two variants
  carrying the same reference id: the calculation log records the reference
  as the legal basis, and one code must not name two formulas.

EXAMPLE:
  faktor := regler.MustVersions("BP-TRYGDETIDSFAKTOR", faktor1967, faktor2024)
  rule, err := faktor.Resolve(grunnlag.Virkningstidspunkt)
*/
package regler

import (
	"context"
	"fmt"
	"sort"
)

// =============================================================================
// VERSIONS
// =============================================================================

// Versions is an immutable set of variants of one logical rule, sorted by
// effective-from date.
type Versions[G, V any] struct {
	logicalID string
	variants  []Rule[G, V]
}

// NewVersions builds a version set. Variants may be passed in any order.
func NewVersions[G, V any](logicalID string, variants ...Rule[G, V]) (*Versions[G, V], error) {
	if !referenceIDPattern.MatchString(logicalID) {
		return nil, fmt.Errorf("%w: logical id %q", ErrInvalidReference, logicalID)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoVariants, logicalID)
	}

	sorted := make([]Rule[G, V], len(variants))
	copy(sorted, variants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Header().EffectiveFrom.Before(sorted[j].Header().EffectiveFrom)
	})

	seen := make(map[string]Reference, len(sorted))
	for _, r := range sorted {
		ref := r.Header().Reference
		if first, ok := seen[ref.ID]; ok {
			return nil, &DuplicateReferenceError{LogicalID: logicalID, First: first, Second: ref}
		}
		seen[ref.ID] = ref
	}

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1].Header(), sorted[i].Header()
		if prev.EffectiveFrom.Equal(cur.EffectiveFrom) {
			return nil, &DuplicateEffectiveFromError{
				LogicalID:     logicalID,
				EffectiveFrom: cur.EffectiveFrom,
				First:         prev.Reference,
				Second:        cur.Reference,
			}
		}
	}

	return &Versions[G, V]{logicalID: logicalID, variants: sorted}, nil
}

// MustVersions is NewVersions for rule sets built during process start.
func MustVersions[G, V any](logicalID string, variants ...Rule[G, V]) *Versions[G, V] {
	v, err := NewVersions(logicalID, variants...)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Versions[G, V]) LogicalID() string { return v.logicalID }

// Variants returns the variants oldest first. The slice is a copy.
func (v *Versions[G, V]) Variants() []Rule[G, V] {
	out := make([]Rule[G, V], len(v.variants))
	copy(out, v.variants)
	return out
}

// Resolve returns the variant in force at virkningstidspunkt.
func (v *Versions[G, V]) Resolve(virkningstidspunkt Dato) (Rule[G, V], error) {
	// First variant strictly after the date; the one before it applies.
	i := sort.Search(len(v.variants), func(i int) bool {
		return v.variants[i].Header().EffectiveFrom.After(virkningstidspunkt)
	})
	if i == 0 {
		return nil, &NoApplicableRuleVersionError{
			LogicalID: v.logicalID,
			Date:      virkningstidspunkt,
			Earliest:  v.variants[0].Header().EffectiveFrom,
		}
	}
	return v.variants[i-1], nil
}

// EvaluateAt resolves the variant in force at virkningstidspunkt and evaluates it.
func (v *Versions[G, V]) EvaluateAt(grunnlag G, virkningstidspunkt Dato) (Trace[V], error) {
	rule, err := v.Resolve(virkningstidspunkt)
	if err != nil {
		return Trace[V]{}, err
	}
	return Evaluate(rule, grunnlag)
}

// EvaluateBatchAt evaluates many fact bases, each against the variant in
// force at its own virkningstidspunkt. Ordering, concurrency and
// cancellation behave as in EvaluateBatch.
func (v *Versions[G, V]) EvaluateBatchAt(ctx context.Context, grunnlag []G, virkningstidspunkt func(G) Dato, parallelism int) []Result[V] {
	return batch[V](ctx, len(grunnlag), parallelism, func(i int) (Trace[V], error) {
		return v.EvaluateAt(grunnlag[i], virkningstidspunkt(grunnlag[i]))
	})
}

// headers lists variant metadata for registry descriptions.
func (v *Versions[G, V]) headers() []Header {
	out := make([]Header, len(v.variants))
	for i, r := range v.variants {
		out[i] = r.Header()
	}
	return out
}
