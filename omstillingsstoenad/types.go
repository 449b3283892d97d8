// Package omstillingsstoenad implements the omstillingsstønad (adjustment
// allowance for surviving spouses) rule set introduced by the 2024 reform.
package omstillingsstoenad

import "github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"

const Ytelse = "omstillingsstoenad"

// Grunnlag is the fact base for one omstillingsstønad calculation.
type Grunnlag struct {
	Virkningstidspunkt regler.Dato            `json:"virkningstidspunkt"`
	Grunnbeloep        *regler.Beregningstall `json:"grunnbeloep,omitempty"`
	Avdoed             *Avdoed                `json:"avdoed,omitempty"`
}

type Avdoed struct {
	Trygdetid *int `json:"trygdetid,omitempty"` // whole years
}
