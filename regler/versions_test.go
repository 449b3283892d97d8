package regler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

// =============================================================================
// VERSIONS
// =============================================================================

var (
	faktor2024 = regler.Combine2(
		regler.NewHeader(fra2024, "Trygdetidsfaktor etter reformen", regler.MustReference("TRYGDETIDSFAKTOR-2024", "")),
		maksTrygdetid, trygdetid,
		func(maks, tt regler.Beregningstall) regler.Beregningstall {
			return tt.Min(maks).Divide(maks, 2, regler.HalfUp)
		})
)

func TestVersions_ResolvesByEffectiveFrom(t *testing.T) {
	// GIVEN: variants registered newest first
	versions, err := regler.NewVersions("FAKTOR", faktor2024, faktor)
	require.NoError(t, err)

	tests := []struct {
		dato     string
		expected string
	}{
		{"1967-01-01", "TRYGDETIDSFAKTOR"},
		{"2023-12-31", "TRYGDETIDSFAKTOR"},
		{"2024-01-01", "TRYGDETIDSFAKTOR-2024"},
		{"2031-05-17", "TRYGDETIDSFAKTOR-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.dato, func(t *testing.T) {
			rule, err := versions.Resolve(regler.MustParseDato(tt.dato))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rule.Header().Reference.ID)
		})
	}

	// THEN: variants are kept oldest first
	variants := versions.Variants()
	require.Len(t, variants, 2)
	assert.Equal(t, "TRYGDETIDSFAKTOR", variants[0].Header().Reference.ID)
}

func TestVersions_BeforeEarliestVariant(t *testing.T) {
	versions := regler.MustVersions("FAKTOR", faktor, faktor2024)

	// WHEN: the date precedes every variant
	_, err := versions.Resolve(regler.NewDato(1966, time.December, 31))

	// THEN: there is no fallback
	var noVersion *regler.NoApplicableRuleVersionError
	require.ErrorAs(t, err, &noVersion)
	assert.Equal(t, "FAKTOR", noVersion.LogicalID)
	assert.Equal(t, "1966-12-31", noVersion.Date.String())
	assert.Equal(t, "1967-01-01", noVersion.Earliest.String())
	assert.True(t, regler.IsClientError(err))
}

func TestVersions_EvaluateAt(t *testing.T) {
	versions := regler.MustVersions("FAKTOR", faktor, faktor2024)
	g := medTrygdetid(28)

	before, err := versions.EvaluateAt(g, regler.MustParseDato("2023-12-31"))
	require.NoError(t, err)
	after, err := versions.EvaluateAt(g, regler.MustParseDato("2024-01-01"))
	require.NoError(t, err)

	assert.Equal(t, "0.7000", before.Value.String())
	assert.Equal(t, "0.70", after.Value.String())
	assert.Equal(t, "TRYGDETIDSFAKTOR-2024", after.Header.Reference.ID)
}

func TestVersions_UsesCallerDateNotClock(t *testing.T) {
	// GIVEN: a variant that takes effect far in the future
	fremtid := regler.Constant[grunnlag](regler.NewDato(2999, time.January, 1), "Fremtidig", regler.MustReference("FREMTID", ""), regler.One)
	versions := regler.MustVersions("FREMTID", fremtid)

	// WHEN: resolved at a date inside its validity
	rule, err := versions.Resolve(regler.NewDato(3000, time.June, 1))

	// THEN: it applies, whatever today is
	require.NoError(t, err)
	assert.Equal(t, "FREMTID", rule.Header().Reference.ID)
}

func TestVersions_DuplicateEffectiveFrom(t *testing.T) {
	annen := regler.Constant[grunnlag](fra1967, "Annen", regler.MustReference("ANNEN", ""), regler.One)

	_, err := regler.NewVersions("FAKTOR", faktor, annen)

	var dup *regler.DuplicateEffectiveFromError
	require.ErrorAs(t, err, &dup)
	assert.ErrorIs(t, err, regler.ErrDuplicateEffectiveFrom)
	assert.Equal(t, "1967-01-01", dup.EffectiveFrom.String())
	assert.ElementsMatch(t, []string{"TRYGDETIDSFAKTOR", "ANNEN"}, []string{dup.First.ID, dup.Second.ID})
}

func TestVersions_DuplicateReference(t *testing.T) {
	// GIVEN: two formulas from different dates under one reference id
	gammel := regler.Constant[grunnlag](fra1967, "Gammel", regler.MustReference("SATS", "1967"), regler.One)
	ny := regler.Constant[grunnlag](fra2024, "Ny", regler.MustReference("SATS", "2024"), regler.Zero)

	// WHEN: they are grouped as variants of one logical rule
	_, err := regler.NewVersions("SATS-LOGISK", ny, gammel)

	// THEN: construction fails naming the shared reference
	var dup *regler.DuplicateReferenceError
	require.ErrorAs(t, err, &dup)
	assert.ErrorIs(t, err, regler.ErrDuplicateReference)
	assert.Equal(t, "SATS-LOGISK", dup.LogicalID)
	assert.Equal(t, "SATS", dup.First.ID)
	assert.Equal(t, "1967", dup.First.Description)
	assert.Equal(t, "2024", dup.Second.Description)
	assert.Contains(t, err.Error(), "reference SATS")
}

func TestVersions_ConstructionErrors(t *testing.T) {
	_, err := regler.NewVersions[grunnlag, regler.Beregningstall]("FAKTOR")
	assert.ErrorIs(t, err, regler.ErrNoVariants)

	_, err = regler.NewVersions("faktor", faktor)
	assert.ErrorIs(t, err, regler.ErrInvalidReference)

	assert.Panics(t, func() { regler.MustVersions[grunnlag, regler.Beregningstall]("FAKTOR") })
}

// =============================================================================
// REGISTRY
// =============================================================================

func newTestRegistry(t *testing.T) *regler.Registry {
	t.Helper()
	registry, err := regler.NewRegistryBuilder().
		Add(regler.MustVersions("FAKTOR", faktor, faktor2024)).
		Add(regler.MustVersions("MAKS", maksTrygdetid)).
		Build()
	require.NoError(t, err)
	return registry
}

func TestRegistry_ResolveTyped(t *testing.T) {
	registry := newTestRegistry(t)

	rule, err := regler.Resolve[grunnlag, regler.Beregningstall](registry, "FAKTOR", regler.MustParseDato("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "TRYGDETIDSFAKTOR-2024", rule.Header().Reference.ID)

	trace, err := regler.Evaluate(rule, medTrygdetid(10))
	require.NoError(t, err)
	assert.Equal(t, "0.25", trace.Value.String())
}

func TestRegistry_KeepsRegistrationOrder(t *testing.T) {
	registry := newTestRegistry(t)

	assert.Equal(t, []string{"FAKTOR", "MAKS"}, registry.IDs())

	descriptions := registry.Describe()
	require.Len(t, descriptions, 2)
	assert.Equal(t, "regler_test.grunnlag", descriptions[0].GrunnlagType)
	assert.Equal(t, "regler.Beregningstall", descriptions[0].ValueType)
	require.Len(t, descriptions[0].Variants, 2)
	assert.Equal(t, "1967-01-01", descriptions[0].Variants[0].EffectiveFrom.String())
	assert.Equal(t, "2024-01-01", descriptions[0].Variants[1].EffectiveFrom.String())
}

func TestRegistry_UnknownRule(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Lookup("BP-BELOEP")
	assert.ErrorIs(t, err, regler.ErrUnknownRule)
	assert.True(t, regler.IsNotFound(err))

	_, err = regler.Resolve[grunnlag, regler.Beregningstall](registry, "BP-BELOEP", fra2024)
	assert.ErrorIs(t, err, regler.ErrUnknownRule)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := regler.LookupVersions[grunnlag, string](registry, "FAKTOR")

	var mismatch *regler.RuleTypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Rule[regler_test.grunnlag, regler.Beregningstall]", mismatch.Have)
	assert.Equal(t, "Rule[regler_test.grunnlag, string]", mismatch.Want)
	assert.False(t, regler.IsClientError(err))
}

func TestRegistry_DuplicateLogicalID(t *testing.T) {
	_, err := regler.NewRegistryBuilder().
		Add(regler.MustVersions("MAKS", maksTrygdetid)).
		Add(regler.MustVersions("MAKS", maksTrygdetid)).
		Build()

	assert.ErrorIs(t, err, regler.ErrDuplicateLogicalID)
}

func TestRegistry_ResolveHeader(t *testing.T) {
	registry := newTestRegistry(t)
	set, err := registry.Lookup("FAKTOR")
	require.NoError(t, err)

	h, err := set.ResolveHeader(regler.MustParseDato("2000-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "TRYGDETIDSFAKTOR", h.Reference.ID)

	_, err = set.ResolveHeader(regler.MustParseDato("1900-01-01"))
	assert.ErrorIs(t, err, regler.ErrNoApplicableRuleVersion)
}
