/*
beregningstall.go - Exact decimal arithmetic for legally significant numbers

PURPOSE:
  Every number that ends up in a benefit decision (trygdetid, faktor, sats,
  beløp) is a Beregningstall. It wraps decimal.Decimal so that nothing in a
  rule ever touches float64.

ROUNDING:
  Addition, subtraction and multiplication are exact. Division is the only
  inexact operation and ALWAYS takes an explicit scale and RoundingMode:

    faktor := trygdetid.Divide(maks, 4, regler.HalfUp) // 28/40 = 0.7000
    tredel := en.Divide(tre, 4, regler.HalfUp)         // 1/3   = 0.3333

  There is no package-level rounding configuration.

EQUALITY:
  Comparison ignores scale: 1.0 == 1.00. The scale is still preserved in
  String() and JSON so that an audited 0.7000 is rendered as 0.7000.

SEE ALSO:
  - trace.go: Values are serialized into traces via MarshalJSON
*/
package regler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING MODE
// =============================================================================

type RoundingMode int

const (
	HalfUp   RoundingMode = iota // ties away from zero: 0.33335 -> 0.3334
	HalfEven                     // ties to even digit: 0.33325 -> 0.3332
	Down                         // toward zero
	Up                           // away from zero
)

func (m RoundingMode) String() string {
	switch m {
	case HalfUp:
		return "half_up"
	case HalfEven:
		return "half_even"
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("rounding(%d)", int(m))
	}
}

// =============================================================================
// BEREGNINGSTALL
// =============================================================================

// Beregningstall is an immutable arbitrary-precision decimal.
// The zero value is 0.
type Beregningstall struct {
	d decimal.Decimal
}

var (
	Zero = Beregningstall{}
	One  = NewBeregningstall(1)

	two = decimal.NewFromInt(2)
)

func NewBeregningstall(v int64) Beregningstall {
	return Beregningstall{d: decimal.NewFromInt(v)}
}

// BeregningstallFromString parses a decimal literal such as "0.25" or "-12".
// The number of fraction digits in the literal becomes the scale.
func BeregningstallFromString(s string) (Beregningstall, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("invalid beregningstall %q: %w", s, err)
	}
	return Beregningstall{d: d}, nil
}

// MustBeregningstall parses a literal or panics. Use for compiled-in constants.
func MustBeregningstall(s string) Beregningstall {
	b, err := BeregningstallFromString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Beregningstall) Add(o Beregningstall) Beregningstall      { return Beregningstall{d: b.d.Add(o.d)} }
func (b Beregningstall) Sub(o Beregningstall) Beregningstall      { return Beregningstall{d: b.d.Sub(o.d)} }
func (b Beregningstall) Multiply(o Beregningstall) Beregningstall { return Beregningstall{d: b.d.Mul(o.d)} }
func (b Beregningstall) Negate() Beregningstall                   { return Beregningstall{d: b.d.Neg()} }

// Divide returns b / divisor rounded to scale fraction digits using mode.
// Non-terminating quotients are rounded, never rejected. The result always
// carries exactly scale fraction digits (for scale >= 0).
// Dividing by zero panics with ErrDivisionByZero.
func (b Beregningstall) Divide(divisor Beregningstall, scale int32, mode RoundingMode) Beregningstall {
	if divisor.d.IsZero() {
		panic(ErrDivisionByZero)
	}

	// q is truncated toward zero; r carries the sign of the dividend.
	q, r := b.d.QuoRem(divisor.d, scale)
	if !r.IsZero() {
		step := decimal.New(1, -scale)
		if b.d.Sign()*divisor.d.Sign() < 0 {
			step = step.Neg()
		}
		if roundAway(mode, r.Abs().Mul(two), divisor.d.Abs().Shift(-scale), q, scale) {
			q = q.Add(step)
		}
	}
	return Beregningstall{d: rescale(q, scale)}
}

// roundAway decides whether a truncated quotient moves one unit away from zero.
// twiceRem is 2*|r| and unit is |divisor|*10^-scale, so twiceRem/unit is
// twice the discarded fraction.
func roundAway(mode RoundingMode, twiceRem, unit, q decimal.Decimal, scale int32) bool {
	switch mode {
	case Down:
		return false
	case Up:
		return true
	case HalfEven:
		c := twiceRem.Cmp(unit)
		if c != 0 {
			return c > 0
		}
		last := q.Shift(scale).Abs().Mod(two)
		return !last.IsZero()
	default:
		return twiceRem.Cmp(unit) >= 0
	}
}

// Round rounds to scale fraction digits using mode.
func (b Beregningstall) Round(scale int32, mode RoundingMode) Beregningstall {
	var d decimal.Decimal
	switch mode {
	case HalfEven:
		d = b.d.RoundBank(scale)
	case Down:
		d = b.d.RoundDown(scale)
	case Up:
		d = b.d.RoundUp(scale)
	default:
		d = b.d.Round(scale)
	}
	return Beregningstall{d: rescale(d, scale)}
}

func rescale(d decimal.Decimal, scale int32) decimal.Decimal {
	if scale < 0 || d.Exponent() == -scale {
		return d
	}
	// StringFixed pads or rounds to exactly scale digits; the value is
	// already at that precision so this only normalizes the exponent.
	out, err := decimal.NewFromString(d.StringFixed(scale))
	if err != nil {
		return d
	}
	return out
}

// =============================================================================
// COMPARISON (scale-agnostic)
// =============================================================================

func (b Beregningstall) Compare(o Beregningstall) int      { return b.d.Cmp(o.d) }
func (b Beregningstall) Equal(o Beregningstall) bool       { return b.d.Equal(o.d) }
func (b Beregningstall) LessThan(o Beregningstall) bool    { return b.d.LessThan(o.d) }
func (b Beregningstall) GreaterThan(o Beregningstall) bool { return b.d.GreaterThan(o.d) }
func (b Beregningstall) IsZero() bool                      { return b.d.IsZero() }
func (b Beregningstall) IsNegative() bool                  { return b.d.IsNegative() }

// Min returns the smaller value. On a tie the receiver is returned, keeping its scale.
func (b Beregningstall) Min(o Beregningstall) Beregningstall {
	if o.LessThan(b) {
		return o
	}
	return b
}

func (b Beregningstall) Max(o Beregningstall) Beregningstall {
	if o.GreaterThan(b) {
		return o
	}
	return b
}

// Scale returns the number of fraction digits carried by the value.
func (b Beregningstall) Scale() int32 {
	if exp := b.d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// Decimal exposes the underlying value for callers that need it (storage, reporting).
func (b Beregningstall) Decimal() decimal.Decimal { return b.d }

// IntPart returns the integer part, truncated toward zero.
func (b Beregningstall) IntPart() int64 { return b.d.IntPart() }

// String renders the value with its scale preserved ("0.7000", "40").
func (b Beregningstall) String() string {
	if s := b.Scale(); s > 0 {
		return b.d.StringFixed(s)
	}
	return b.d.String()
}

// =============================================================================
// JSON
// =============================================================================

// MarshalJSON encodes as a JSON string so the scale survives round trips.
func (b Beregningstall) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts both a JSON string and a bare JSON number.
func (b *Beregningstall) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := BeregningstallFromString(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
