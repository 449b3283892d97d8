/*
regler.go - Omstillingsstønad calculation rules

PROVISIONS:
  OMS-MAKS-TRYGDETID                    40 years (constant)
  OMS-BEREGNING-2024-TRYGDETIDSFAKTOR   min(trygdetid, 40) / 40, scale 4 half-up
  OMS-BEREGNING-2024-BELOEP             2.25 G * faktor / 12, whole kroner half-up

LOGICAL RULES:
  OMS-TRYGDETIDSFAKTOR  2024-01-01
  OMS-BELOEP            2024-01-01

  The benefit did not exist before 2024-01-01, so an earlier
  virkningstidspunkt fails with NoApplicableRuleVersionError rather than
  falling back to some older formula.
*/
package omstillingsstoenad

import (
	"fmt"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

const (
	LogicalTrygdetidsfaktor = "OMS-TRYGDETIDSFAKTOR"
	LogicalBeloep           = "OMS-BELOEP"
)

type rule = regler.Rule[Grunnlag, regler.Beregningstall]

// Regelsett groups the omstillingsstønad version sets.
type Regelsett struct {
	Trygdetidsfaktor *regler.Versions[Grunnlag, regler.Beregningstall]
	Beloep           *regler.Versions[Grunnlag, regler.Beregningstall]
}

// NewRegelsett builds the provisions. Omstillingsstønad replaced
// gjenlevendepensjon on 2024-01-01, so every variant starts there.
func NewRegelsett() (*Regelsett, error) {
	fra2024 := regler.NewDato(2024, 1, 1)
	sats := regler.MustBeregningstall("2.25")

	var maksTrygdetid rule = regler.Constant[Grunnlag](fra2024, "Maksimal trygdetid",
		regler.MustReference("OMS-MAKS-TRYGDETID", "Folketrygdloven § 3-5"),
		regler.NewBeregningstall(40))

	trygdetid := regler.FactOptional(fra2024, "Avdødes trygdetid",
		regler.MustReference("OMS-GRUNNLAG-TRYGDETID", "Avdødes fastsatte trygdetid i år"),
		func(g Grunnlag) *Avdoed { return g.Avdoed },
		func(a Avdoed) (regler.Beregningstall, bool) {
			if a.Trygdetid == nil {
				return regler.Zero, false
			}
			return regler.NewBeregningstall(int64(*a.Trygdetid)), true
		})

	grunnbeloep := regler.FactFromBase(fra2024, "Grunnbeløp",
		regler.MustReference("OMS-GRUNNLAG-GRUNNBELOEP", "Folketrygdens grunnbeløp (G) på virkningstidspunktet"),
		func(g Grunnlag) *regler.Beregningstall { return g.Grunnbeloep },
		func(g regler.Beregningstall) regler.Beregningstall { return g })

	faktor2024 := regler.Combine2(
		regler.NewHeader(fra2024, "Trygdetidsfaktor",
			regler.MustReference("OMS-BEREGNING-2024-TRYGDETIDSFAKTOR", "Trygdetid delt på maksimal trygdetid")),
		maksTrygdetid, trygdetid,
		func(maks, tt regler.Beregningstall) regler.Beregningstall {
			return tt.Min(maks).Divide(maks, 4, regler.HalfUp)
		})

	// 2.25 G per year at full trygdetid.
	beloep2024 := regler.Combine2(
		regler.NewHeader(fra2024, "Omstillingsstønad per måned",
			regler.MustReference("OMS-BEREGNING-2024-BELOEP", "2,25 G ganger trygdetidsfaktor, per måned")),
		grunnbeloep, faktor2024,
		func(g, faktor regler.Beregningstall) regler.Beregningstall {
			return g.Multiply(sats).Multiply(faktor).Divide(regler.NewBeregningstall(12), 0, regler.HalfUp)
		})

	var (
		rs  Regelsett
		err error
	)
	if rs.Trygdetidsfaktor, err = regler.NewVersions(LogicalTrygdetidsfaktor, faktor2024); err != nil {
		return nil, err
	}
	if rs.Beloep, err = regler.NewVersions(LogicalBeloep, beloep2024); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Register adds the omstillingsstønad rules to b.
func Register(b *regler.RegistryBuilder) error {
	rs, err := NewRegelsett()
	if err != nil {
		return fmt.Errorf("omstillingsstoenad: %w", err)
	}
	b.Add(rs.Trygdetidsfaktor, rs.Beloep)
	return nil
}
