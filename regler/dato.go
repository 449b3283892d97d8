package regler

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATO - Calendar date (gjelderFra, virkningstidspunkt)
// =============================================================================

const datoLayout = "2006-01-02"

// Dato is a calendar day in UTC. Time of day is always normalized away, so
// two Dato values for the same day compare equal regardless of how they were built.
type Dato struct {
	t time.Time
}

func NewDato(year int, month time.Month, day int) Dato {
	return Dato{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DatoFromTime truncates t to its calendar day in t's own location.
func DatoFromTime(t time.Time) Dato {
	return NewDato(t.Year(), t.Month(), t.Day())
}

// ParseDato parses "YYYY-MM-DD".
func ParseDato(s string) (Dato, error) {
	t, err := time.Parse(datoLayout, s)
	if err != nil {
		return Dato{}, fmt.Errorf("invalid dato %q: %w", s, err)
	}
	return Dato{t: t}, nil
}

func MustParseDato(s string) Dato {
	d, err := ParseDato(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Dato) Before(o Dato) bool        { return d.t.Before(o.t) }
func (d Dato) After(o Dato) bool         { return d.t.After(o.t) }
func (d Dato) Equal(o Dato) bool         { return d.t.Equal(o.t) }
func (d Dato) BeforeOrEqual(o Dato) bool { return !d.After(o) }
func (d Dato) AfterOrEqual(o Dato) bool  { return !d.Before(o) }

// Properties
func (d Dato) Year() int          { return d.t.Year() }
func (d Dato) Month() time.Month  { return d.t.Month() }
func (d Dato) Day() int           { return d.t.Day() }
func (d Dato) IsZero() bool       { return d.t.IsZero() }
func (d Dato) Time() time.Time    { return d.t }
func (d Dato) AddDays(n int) Dato { return Dato{t: d.t.AddDate(0, 0, n)} }

func (d Dato) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(datoLayout)
}

func (d Dato) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Dato) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Dato{}
		return nil
	}
	parsed, err := ParseDato(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
