/*
registry.go - Closed registry of logical rules

PURPOSE:
  Maps logical rule ids (BP-TRYGDETIDSFAKTOR, OMS-BELOEP, ...) to their
  version sets so that callers can say "resolve BP-BELOEP at 2024-03-01"
  without importing the domain package that defined it.

HOW IT WORKS:
  1. Domain packages add their version sets to a RegistryBuilder
  2. Build() freezes the set; the Registry has no mutating methods
  3. Resolve[G, V] looks up, type-checks and resolves by date

  Registration order is the caller's, and Describe() reports entries in
  that order, so listings are deterministic.

WHY NOT A GLOBAL:
  The registry is an explicit value built once during process start and
  passed to whoever needs it. Tests build their own. There is no init()
  registration and no package-level mutable map.

USAGE:
  b := regler.NewRegistryBuilder()
  barnepensjon.Register(b)
  omstillingsstoenad.Register(b)
  registry, err := b.Build()

  rule, err := regler.Resolve[barnepensjon.Grunnlag, regler.Beregningstall](
      registry, "BP-BELOEP", grunnlag.Virkningstidspunkt)
*/
package regler

import (
	"errors"
	"fmt"
)

// =============================================================================
// VERSION SET - Type-erased view of Versions
// =============================================================================

// VersionSet is what the registry stores. *Versions[G, V] implements it.
type VersionSet interface {
	LogicalID() string
	Headers() []Header
	GrunnlagType() string
	ValueType() string
	ResolveHeader(virkningstidspunkt Dato) (Header, error)
}

var _ VersionSet = (*Versions[struct{}, Beregningstall])(nil)

func (v *Versions[G, V]) Headers() []Header    { return v.headers() }
func (v *Versions[G, V]) GrunnlagType() string { return typeName[G]() }
func (v *Versions[G, V]) ValueType() string    { return typeName[V]() }

// ResolveHeader resolves without exposing the typed rule.
func (v *Versions[G, V]) ResolveHeader(virkningstidspunkt Dato) (Header, error) {
	r, err := v.Resolve(virkningstidspunkt)
	if err != nil {
		return Header{}, err
	}
	return r.Header(), nil
}

// =============================================================================
// BUILDER
// =============================================================================

type RegistryBuilder struct {
	entries []VersionSet
	index   map[string]int
	errs    []error
}

func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{index: make(map[string]int)}
}

// Add appends version sets in order. Errors are collected and reported by Build.
func (b *RegistryBuilder) Add(sets ...VersionSet) *RegistryBuilder {
	for _, s := range sets {
		id := s.LogicalID()
		if _, dup := b.index[id]; dup {
			b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateLogicalID, id))
			continue
		}
		b.index[id] = len(b.entries)
		b.entries = append(b.entries, s)
	}
	return b
}

// Build returns the frozen registry, or every construction error joined.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	r := &Registry{
		entries: make([]VersionSet, len(b.entries)),
		index:   make(map[string]int, len(b.index)),
	}
	copy(r.entries, b.entries)
	for k, v := range b.index {
		r.index[k] = v
	}
	return r, nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is immutable after Build and safe for concurrent use.
type Registry struct {
	entries []VersionSet
	index   map[string]int
}

// Lookup returns the version set registered under logicalID.
func (r *Registry) Lookup(logicalID string) (VersionSet, error) {
	i, ok := r.index[logicalID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, logicalID)
	}
	return r.entries[i], nil
}

// IDs returns logical ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.LogicalID()
	}
	return out
}

// RuleDescription summarizes one logical rule for listings.
type RuleDescription struct {
	LogicalID    string
	GrunnlagType string
	ValueType    string
	Variants     []Header
}

// Describe returns every entry in registration order.
func (r *Registry) Describe() []RuleDescription {
	out := make([]RuleDescription, len(r.entries))
	for i, e := range r.entries {
		out[i] = RuleDescription{
			LogicalID:    e.LogicalID(),
			GrunnlagType: e.GrunnlagType(),
			ValueType:    e.ValueType(),
			Variants:     e.Headers(),
		}
	}
	return out
}

// LookupVersions returns the typed version set for logicalID.
func LookupVersions[G, V any](r *Registry, logicalID string) (*Versions[G, V], error) {
	set, err := r.Lookup(logicalID)
	if err != nil {
		return nil, err
	}
	v, ok := set.(*Versions[G, V])
	if !ok {
		return nil, &RuleTypeMismatchError{
			LogicalID: logicalID,
			Have:      fmt.Sprintf("Rule[%s, %s]", set.GrunnlagType(), set.ValueType()),
			Want:      fmt.Sprintf("Rule[%s, %s]", typeName[G](), typeName[V]()),
		}
	}
	return v, nil
}

// Resolve returns the variant of logicalID in force at virkningstidspunkt.
func Resolve[G, V any](r *Registry, logicalID string, virkningstidspunkt Dato) (Rule[G, V], error) {
	v, err := LookupVersions[G, V](r, logicalID)
	if err != nil {
		return nil, err
	}
	return v.Resolve(virkningstidspunkt)
}
