// Package barnepensjon implements the barnepensjon (children's pension) rule set.
// It uses the regler engine with the 1967 rules and the 2024 reform variants.
package barnepensjon

import "github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"

// Ytelse is the benefit type name used in calculation logs and API paths.
const Ytelse = "barnepensjon"

// =============================================================================
// GRUNNLAG - Facts a barnepensjon calculation reads
// =============================================================================

// Grunnlag is the fact base for one barnepensjon calculation.
// Nil records mean the fact is not known; rules that need it fail with
// regler.MissingFactError instead of assuming a value.
type Grunnlag struct {
	Virkningstidspunkt regler.Dato            `json:"virkningstidspunkt"`
	Grunnbeloep        *regler.Beregningstall `json:"grunnbeloep,omitempty"`
	Avdoed             *Avdoed                `json:"avdoed,omitempty"`
	Soesken            *Kull                  `json:"soesken,omitempty"`
}

// Avdoed holds facts about the deceased parent.
type Avdoed struct {
	Trygdetid *int `json:"trygdetid,omitempty"` // whole years
}

// Kull is the group of siblings sharing the pension under the 1967 rules.
type Kull struct {
	AntallBarn int `json:"antallBarn"` // including the applicant
}
