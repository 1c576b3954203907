package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/holiman/uint256"
)

// DecimalPlaces is the number of fractional digits carried by Decimal
const DecimalPlaces = 18

// ErrInvalidDecimal is returned for malformed or negative decimals
var ErrInvalidDecimal = errors.New("invalid decimal")

var decimalFractional = uint256.NewInt(1_000_000_000_000_000_000)

// Decimal is a non-negative fixed-point number with 18 fractional digits.
// Percentages, thresholds and delegation shares are Decimals.
type Decimal struct {
	d sdkmath.LegacyDec
}

// ZeroDecimal returns 0
func ZeroDecimal() Decimal {
	return Decimal{d: sdkmath.LegacyZeroDec()}
}

// OneDecimal returns 1
func OneDecimal() Decimal {
	return Decimal{d: sdkmath.LegacyOneDec()}
}

// DecimalPercent returns n/100
func DecimalPercent(n int64) Decimal {
	return Decimal{d: sdkmath.LegacyNewDecWithPrec(n, 2)}
}

// DecimalPermille returns n/1000
func DecimalPermille(n int64) Decimal {
	return Decimal{d: sdkmath.LegacyNewDecWithPrec(n, 3)}
}

// ParseDecimal parses strings such as "0.5" or "1"
func ParseDecimal(s string) (Decimal, error) {
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	if d.IsNegative() {
		return Decimal{}, fmt.Errorf("%w: %q is negative", ErrInvalidDecimal, s)
	}
	return Decimal{d: d}, nil
}

// MustParseDecimal panics on malformed input; intended for constants and tests
func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromRatio returns num/den rounded down
func DecimalFromRatio(num, den Uint128) (Decimal, error) {
	if den.IsZero() {
		return Decimal{}, ErrDivideByZero
	}
	var z uint256.Int
	if _, overflow := z.MulOverflow(&num.v, decimalFractional); overflow {
		return Decimal{}, ErrOverflow
	}
	z.Div(&z, &den.v)
	return decimalFromAtomics(z.ToBig()), nil
}

func (x Decimal) dec() sdkmath.LegacyDec {
	if x.d.IsNil() {
		return sdkmath.LegacyZeroDec()
	}
	return x.d
}

// Atomics returns the numerator over 10^18
func (x Decimal) Atomics() Uint256 {
	var u Uint256
	v, _ := uint256.FromBig(x.dec().BigInt())
	if v != nil {
		u.v = *v
	}
	return u
}

// IsZero checks for zero
func (x Decimal) IsZero() bool { return x.dec().IsZero() }

// GT is x > o
func (x Decimal) GT(o Decimal) bool { return x.dec().GT(o.dec()) }

// GTE is x >= o
func (x Decimal) GTE(o Decimal) bool { return x.dec().GTE(o.dec()) }

// LT is x < o
func (x Decimal) LT(o Decimal) bool { return x.dec().LT(o.dec()) }

// LTE is x <= o
func (x Decimal) LTE(o Decimal) bool { return x.dec().LTE(o.dec()) }

// Equal is x == o
func (x Decimal) Equal(o Decimal) bool { return x.dec().Equal(o.dec()) }

// Add returns x+o
func (x Decimal) Add(o Decimal) Decimal {
	return Decimal{d: x.dec().Add(o.dec())}
}

// Sub returns x-o or ErrOverflow when the result would be negative
func (x Decimal) Sub(o Decimal) (Decimal, error) {
	r := x.dec().Sub(o.dec())
	if r.IsNegative() {
		return Decimal{}, fmt.Errorf("%w: %s - %s", ErrOverflow, x, o)
	}
	return Decimal{d: r}, nil
}

// MulInt returns x*n exactly
func (x Decimal) MulInt(n int64) Decimal {
	return Decimal{d: x.dec().MulInt64(n)}
}

// MulFloor returns floor(u*x) computed on 256-bit atomics
func (x Decimal) MulFloor(u Uint128) (Uint128, error) {
	atomics := x.Atomics()
	var z uint256.Int
	if _, overflow := z.MulOverflow(&u.v, &atomics.v); overflow {
		return Uint128{}, ErrOverflow
	}
	z.Div(&z, decimalFractional)
	return uint128FromInt(&z)
}

// String prints the shortest exact form, e.g. "0.5" or "1"
func (x Decimal) String() string {
	s := x.dec().String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// MarshalJSON encodes as a string
func (x Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.String())
}

// UnmarshalJSON accepts a string
func (x *Decimal) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDecimal, b)
	}
	d, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*x = d
	return nil
}

// decimalFromAtomics builds a Decimal from a raw 10^-18 numerator
func decimalFromAtomics(a *big.Int) Decimal {
	return Decimal{d: sdkmath.LegacyNewDecFromBigIntWithPrec(a, DecimalPlaces)}
}
