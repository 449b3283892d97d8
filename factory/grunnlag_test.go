package factory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/barnepensjon"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/factory"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/omstillingsstoenad"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

func newRegistry(t *testing.T) *regler.Registry {
	b := regler.NewRegistryBuilder()
	require.NoError(t, barnepensjon.Register(b))
	require.NoError(t, omstillingsstoenad.Register(b))
	r, err := b.Build()
	require.NoError(t, err)
	return r
}

func TestParse_Barnepensjon(t *testing.T) {
	f := factory.NewGrunnlagFactory()

	g, err := f.Parse("barnepensjon", []byte(`{
		"virkningstidspunkt": "2024-03-01",
		"grunnbeloep": "118620",
		"avdoed": {"trygdetid": 28},
		"soesken": {"antallBarn": 2}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "barnepensjon", g.Ytelse())
	assert.Equal(t, "2024-03-01", g.Virkningstidspunkt().String())

	bp, ok := g.Value().(barnepensjon.Grunnlag)
	require.True(t, ok)
	require.NotNil(t, bp.Avdoed)
	assert.Equal(t, 28, *bp.Avdoed.Trygdetid)
	assert.Equal(t, 2, bp.Soesken.AntallBarn)
	assert.Equal(t, "118620", bp.Grunnbeloep.String())
}

func TestParse_NumberGrunnbeloep(t *testing.T) {
	f := factory.NewGrunnlagFactory()

	g, err := f.Parse("omstillingsstoenad", []byte(`{"virkningstidspunkt": "2024-03-01", "grunnbeloep": 124028}`))
	require.NoError(t, err)

	oms := g.Value().(omstillingsstoenad.Grunnlag)
	assert.Equal(t, "124028", oms.Grunnbeloep.String())
	assert.Nil(t, oms.Avdoed)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		ytelse string
		body   string
	}{
		{"not json", "barnepensjon", `{`},
		{"unknown field", "barnepensjon", `{"virkningstidspunkt": "2024-03-01", "foo": 1}`},
		{"missing virkningstidspunkt", "barnepensjon", `{"grunnbeloep": "118620"}`},
		{"bad date", "barnepensjon", `{"virkningstidspunkt": "01.03.2024"}`},
		{"bad decimal", "barnepensjon", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "mye"}`},
		{"negative trygdetid", "barnepensjon", `{"virkningstidspunkt": "2024-03-01", "avdoed": {"trygdetid": -1}}`},
		{"negative G", "omstillingsstoenad", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "-1"}`},
		{"soesken on oms", "omstillingsstoenad", `{"virkningstidspunkt": "2024-03-01", "soesken": {"antallBarn": 1}}`},
		{"tiny exponent", "barnepensjon", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "1e-2000000"}`},
		{"too many decimals", "omstillingsstoenad", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "124028.00000000001"}`},
		{"huge exponent", "omstillingsstoenad", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "1e2000000"}`},
		{"zero with huge exponent", "barnepensjon", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "0e100"}`},
		{"too many integer digits", "barnepensjon", `{"virkningstidspunkt": "2024-03-01", "grunnbeloep": "1234567890123456"}`},
		{"trailing value", "omstillingsstoenad", `{"virkningstidspunkt": "2024-03-01"} {"bogus": 1}`},
		{"trailing garbage", "barnepensjon", `{"virkningstidspunkt": "2024-03-01"} x`},
	}

	f := factory.NewGrunnlagFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Parse(tt.ytelse, []byte(tt.body))
			assert.ErrorIs(t, err, factory.ErrInvalidGrunnlag)
		})
	}
}

func TestParse_AcceptsAmountsWithinBounds(t *testing.T) {
	f := factory.NewGrunnlagFactory()

	for _, g := range []string{`"124028"`, `"124028.0000000001"`, `"123456789012345"`, `124028.5`, `"1.24028e5"`} {
		t.Run(g, func(t *testing.T) {
			_, err := f.Parse("omstillingsstoenad", []byte(`{"virkningstidspunkt": "2024-03-01", "grunnbeloep": `+g+`}`))
			assert.NoError(t, err)
		})
	}
}

func TestParse_UnknownYtelse(t *testing.T) {
	f := factory.NewGrunnlagFactory()

	_, err := f.Parse("alderspensjon", []byte(`{}`))
	assert.True(t, errors.Is(err, factory.ErrUnknownYtelse))
}

func TestYtelser(t *testing.T) {
	assert.Equal(t, []string{"barnepensjon", "omstillingsstoenad"}, factory.NewGrunnlagFactory().Ytelser())
}

func TestBeregn(t *testing.T) {
	// GIVEN: A parsed barnepensjon grunnlag dated before the reform
	// WHEN: Computing BP-TRYGDETIDSFAKTOR through the registry
	// THEN: The 1967 variant is used and yields 0.7000

	registry := newRegistry(t)
	g, err := factory.NewGrunnlagFactory().Parse("barnepensjon",
		[]byte(`{"virkningstidspunkt": "2023-06-01", "avdoed": {"trygdetid": 28}}`))
	require.NoError(t, err)

	trace, err := g.Beregn(registry, "BP-TRYGDETIDSFAKTOR")
	require.NoError(t, err)
	assert.Equal(t, "0.7000", trace.Value.String())
	assert.Equal(t, "BP-BEREGNING-1967-TRYGDETIDSFAKTOR", trace.Header.Reference.ID)
}

func TestBeregn_RuleOfOtherYtelse(t *testing.T) {
	registry := newRegistry(t)
	g, err := factory.NewGrunnlagFactory().Parse("barnepensjon",
		[]byte(`{"virkningstidspunkt": "2024-06-01", "avdoed": {"trygdetid": 28}}`))
	require.NoError(t, err)

	_, err = g.Beregn(registry, "OMS-TRYGDETIDSFAKTOR")
	assert.ErrorIs(t, err, regler.ErrRuleTypeMismatch)
}

func TestParseBatch_BeregnEachAtOwnDate(t *testing.T) {
	// GIVEN: Three barnepensjon grunnlag, one before and two after the reform,
	//        the last without trygdetid
	// WHEN: Computing BP-BELOEP for the whole batch
	// THEN: Results come back in input order, each from its own variant,
	//       and the missing fact only fails its own item

	registry := newRegistry(t)
	batch, err := factory.NewGrunnlagFactory().ParseBatch("barnepensjon", []byte(`[
		{"virkningstidspunkt": "2023-12-31", "grunnbeloep": "118620", "avdoed": {"trygdetid": 28}, "soesken": {"antallBarn": 1}},
		{"virkningstidspunkt": "2024-01-01", "grunnbeloep": "118620", "avdoed": {"trygdetid": 28}, "soesken": {"antallBarn": 1}},
		{"virkningstidspunkt": "2024-06-01", "grunnbeloep": "124028", "avdoed": {}}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Len())

	results, err := batch.Beregn(context.Background(), registry, "BP-BELOEP", 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.True(t, results[0].OK())
	assert.Equal(t, "BP-BEREGNING-1967-BELOEP", results[0].Trace.Header.Reference.ID)
	assert.Equal(t, "2768", results[0].Trace.Value.String())

	require.True(t, results[1].OK())
	assert.Equal(t, "BP-BEREGNING-2024-BELOEP", results[1].Trace.Header.Reference.ID)
	assert.Equal(t, "6920", results[1].Trace.Value.String())

	assert.False(t, results[2].OK())
	assert.True(t, regler.IsMissingFact(results[2].Err))
}

func TestParseBatch_RejectsInvalidItem(t *testing.T) {
	f := factory.NewGrunnlagFactory()

	_, err := f.ParseBatch("barnepensjon", []byte(`[{"virkningstidspunkt": "2024-01-01"}, {"foo": 1}]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, factory.ErrInvalidGrunnlag)
	assert.Contains(t, err.Error(), "item 1")

	_, err = f.ParseBatch("barnepensjon", []byte(`{"virkningstidspunkt": "2024-01-01"}`))
	assert.ErrorIs(t, err, factory.ErrInvalidGrunnlag)
}

func TestParseBatch_UnknownRule(t *testing.T) {
	batch, err := factory.NewGrunnlagFactory().ParseBatch("omstillingsstoenad", []byte(`[]`))
	require.NoError(t, err)

	_, err = batch.Beregn(context.Background(), newRegistry(t), "OMS-FINNES-IKKE", 1)
	assert.ErrorIs(t, err, regler.ErrUnknownRule)
}
