/*
regler.go - Barnepensjon calculation rules

PURPOSE:
  The legal formulas for barnepensjon, one Rule per provision, grouped into
  version sets by logical id so callers resolve the variant in force at the
  benefit's virkningstidspunkt.

PROVISIONS:
  MAKS-TRYGDETID                        40 years (constant)
  BP-BEREGNING-1967-TRYGDETIDSFAKTOR    min(trygdetid, 40) / 40, scale 4 half-up
  BP-BEREGNING-2024-TRYGDETIDSFAKTOR    same formula, reform variant
  BP-BEREGNING-1967-SATS                (0.40 + 0.25 * (n - 1)) / n, scale 4 half-up
  BP-BEREGNING-2024-SATS                1.00 per child (constant)
  BP-BEREGNING-1967-BELOEP              G * sats * faktor / 12, whole kroner half-up
  BP-BEREGNING-2024-BELOEP              G * sats * faktor / 12, whole kroner half-up

LOGICAL RULES:
  BP-TRYGDETIDSFAKTOR  1967-01-01, 2024-01-01
  BP-SATS              1967-01-01, 2024-01-01
  BP-BELOEP            1967-01-01, 2024-01-01

  A virkningstidspunkt on 2023-12-31 resolves the 1967 variant; one on
  2024-01-01 resolves the reform. Before 1967 nothing applies.

STATE:
  The package holds no rule values. NewRegelsett builds every provision
  when called, and the only way to reach a variant is through its
  version set.

SEE ALSO:
  - types.go: Grunnlag
  - omstillingsstoenad/regler.go: The adult survivor benefit
*/
package barnepensjon

import (
	"fmt"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

// Logical rule ids.
const (
	LogicalTrygdetidsfaktor = "BP-TRYGDETIDSFAKTOR"
	LogicalSats             = "BP-SATS"
	LogicalBeloep           = "BP-BELOEP"
)

// MaksTrygdetidAar is the number of years of trygdetid that gives full pension.
const MaksTrygdetidAar = 40

type rule = regler.Rule[Grunnlag, regler.Beregningstall]

// =============================================================================
// INPUTS - Constants and facts shared by the variants
// =============================================================================

type inputs struct {
	maksTrygdetid rule
	trygdetid     rule
	grunnbeloep   rule
	antallBarn    rule
}

func newInputs(fra regler.Dato) inputs {
	return inputs{
		maksTrygdetid: regler.Constant[Grunnlag](fra, "Maksimal trygdetid",
			regler.MustReference("MAKS-TRYGDETID", "Folketrygdloven § 3-5"),
			regler.NewBeregningstall(MaksTrygdetidAar)),

		trygdetid: regler.FactOptional(fra, "Avdødes trygdetid",
			regler.MustReference("BP-GRUNNLAG-TRYGDETID", "Avdødes fastsatte trygdetid i år"),
			func(g Grunnlag) *Avdoed { return g.Avdoed },
			func(a Avdoed) (regler.Beregningstall, bool) {
				if a.Trygdetid == nil {
					return regler.Zero, false
				}
				return regler.NewBeregningstall(int64(*a.Trygdetid)), true
			}),

		grunnbeloep: regler.FactFromBase(fra, "Grunnbeløp",
			regler.MustReference("BP-GRUNNLAG-GRUNNBELOEP", "Folketrygdens grunnbeløp (G) på virkningstidspunktet"),
			func(g Grunnlag) *regler.Beregningstall { return g.Grunnbeloep },
			func(g regler.Beregningstall) regler.Beregningstall { return g }),

		antallBarn: regler.FactOptional(fra, "Antall barn i kullet",
			regler.MustReference("BP-GRUNNLAG-ANTALL-BARN", "Søker og søsken med rett til barnepensjon"),
			func(g Grunnlag) *Kull { return g.Soesken },
			func(k Kull) (regler.Beregningstall, bool) {
				if k.AntallBarn < 1 {
					return regler.Zero, false
				}
				return regler.NewBeregningstall(int64(k.AntallBarn)), true
			}),
	}
}

// =============================================================================
// FORMULAS
// =============================================================================

func trygdetidsfaktor(maks, tt regler.Beregningstall) regler.Beregningstall {
	return tt.Min(maks).Divide(maks, 4, regler.HalfUp)
}

// sats1967 splits 40% of G for the first child and 25% for each further
// child equally across the kull.
func sats1967(n regler.Beregningstall) regler.Beregningstall {
	forsteBarn := regler.MustBeregningstall("0.40")
	ovrigeBarn := regler.MustBeregningstall("0.25")
	total := forsteBarn.Add(ovrigeBarn.Multiply(n.Sub(regler.One)))
	return total.Divide(n, 4, regler.HalfUp)
}

func maanedsbeloep(g, sats, faktor regler.Beregningstall) regler.Beregningstall {
	return g.Multiply(sats).Multiply(faktor).Divide(regler.NewBeregningstall(12), 0, regler.HalfUp)
}

// =============================================================================
// REGELSETT - Version sets and registration
// =============================================================================

// Regelsett groups the barnepensjon version sets.
type Regelsett struct {
	Trygdetidsfaktor *regler.Versions[Grunnlag, regler.Beregningstall]
	Sats             *regler.Versions[Grunnlag, regler.Beregningstall]
	Beloep           *regler.Versions[Grunnlag, regler.Beregningstall]
}

// NewRegelsett builds every barnepensjon provision and groups the variants
// by logical id.
func NewRegelsett() (*Regelsett, error) {
	fra1967 := regler.NewDato(1967, 1, 1)
	fra2024 := regler.NewDato(2024, 1, 1)
	in := newInputs(fra1967)

	faktor1967 := regler.Combine2(
		regler.NewHeader(fra1967, "Trygdetidsfaktor",
			regler.MustReference("BP-BEREGNING-1967-TRYGDETIDSFAKTOR", "Trygdetid delt på maksimal trygdetid")),
		in.maksTrygdetid, in.trygdetid, trygdetidsfaktor)
	faktor2024 := regler.Combine2(
		regler.NewHeader(fra2024, "Trygdetidsfaktor",
			regler.MustReference("BP-BEREGNING-2024-TRYGDETIDSFAKTOR", "Trygdetid delt på maksimal trygdetid etter regelverksendringen 2024")),
		in.maksTrygdetid, in.trygdetid, trygdetidsfaktor)

	satsFor1967 := regler.Map(
		regler.NewHeader(fra1967, "Sats per barn",
			regler.MustReference("BP-BEREGNING-1967-SATS", "40 % av G for første barn og 25 % for hvert av de øvrige, delt likt")),
		in.antallBarn, sats1967)
	satsFor2024 := regler.Constant[Grunnlag](fra2024, "Sats per barn",
		regler.MustReference("BP-BEREGNING-2024-SATS", "1 G per barn etter regelverksendringen 2024"),
		regler.MustBeregningstall("1.00"))

	beloep1967 := regler.Combine3(
		regler.NewHeader(fra1967, "Barnepensjon per måned",
			regler.MustReference("BP-BEREGNING-1967-BELOEP", "G ganger sats ganger trygdetidsfaktor, per måned")),
		in.grunnbeloep, satsFor1967, faktor1967, maanedsbeloep)
	beloep2024 := regler.Combine3(
		regler.NewHeader(fra2024, "Barnepensjon per måned",
			regler.MustReference("BP-BEREGNING-2024-BELOEP", "G ganger sats ganger trygdetidsfaktor, per måned, etter regelverksendringen 2024")),
		in.grunnbeloep, satsFor2024, faktor2024, maanedsbeloep)

	var (
		rs  Regelsett
		err error
	)
	if rs.Trygdetidsfaktor, err = regler.NewVersions(LogicalTrygdetidsfaktor, faktor1967, faktor2024); err != nil {
		return nil, err
	}
	if rs.Sats, err = regler.NewVersions(LogicalSats, satsFor1967, satsFor2024); err != nil {
		return nil, err
	}
	if rs.Beloep, err = regler.NewVersions(LogicalBeloep, beloep1967, beloep2024); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Register adds the barnepensjon rules to b.
func Register(b *regler.RegistryBuilder) error {
	rs, err := NewRegelsett()
	if err != nil {
		return fmt.Errorf("barnepensjon: %w", err)
	}
	b.Add(rs.Trygdetidsfaktor, rs.Sats, rs.Beloep)
	return nil
}
