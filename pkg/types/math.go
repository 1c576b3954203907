package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// Arithmetic errors
var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrDivideByZero   = errors.New("divide by zero")
	ErrInvalidInteger = errors.New("invalid integer")
)

// Uint128 is an unsigned 128-bit integer with checked arithmetic. Amounts of
// voting power and tokens are Uint128. It serialises as a decimal string.
type Uint128 struct {
	v uint256.Int
}

// NewUint128 creates a Uint128 from a uint64
func NewUint128(n uint64) Uint128 {
	var u Uint128
	u.v.SetUint64(n)
	return u
}

// ZeroUint128 returns 0
func ZeroUint128() Uint128 {
	return Uint128{}
}

// MaxUint128 returns 2^128-1
func MaxUint128() Uint128 {
	var u Uint128
	u.v.Lsh(uint256.NewInt(1), 128)
	u.v.SubUint64(&u.v, 1)
	return u
}

// ParseUint128 parses a decimal string
func ParseUint128(s string) (Uint128, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Uint128{}, fmt.Errorf("%w: %q", ErrInvalidInteger, s)
	}
	return uint128FromInt(v)
}

// MustParseUint128 panics on malformed input; intended for constants and tests
func MustParseUint128(s string) Uint128 {
	u, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Int returns a copy of the value as a 256-bit integer for widened arithmetic
func (u Uint128) Int() *uint256.Int {
	v := u.v
	return &v
}

// Uint128FromInt narrows a 256-bit integer, failing when it does not fit
func Uint128FromInt(v *uint256.Int) (Uint128, error) {
	return uint128FromInt(v)
}

func uint128FromInt(v *uint256.Int) (Uint128, error) {
	if v.BitLen() > 128 {
		return Uint128{}, ErrOverflow
	}
	return Uint128{v: *v}, nil
}

// IsZero checks for zero
func (u Uint128) IsZero() bool {
	return u.v.IsZero()
}

// Cmp returns -1, 0 or +1
func (u Uint128) Cmp(o Uint128) int {
	return u.v.Cmp(&o.v)
}

// LT is u < o
func (u Uint128) LT(o Uint128) bool { return u.v.Lt(&o.v) }

// LTE is u <= o
func (u Uint128) LTE(o Uint128) bool { return !u.v.Gt(&o.v) }

// GT is u > o
func (u Uint128) GT(o Uint128) bool { return u.v.Gt(&o.v) }

// GTE is u >= o
func (u Uint128) GTE(o Uint128) bool { return !u.v.Lt(&o.v) }

// Equal is u == o
func (u Uint128) Equal(o Uint128) bool { return u.v.Eq(&o.v) }

// Add returns u+o or ErrOverflow
func (u Uint128) Add(o Uint128) (Uint128, error) {
	var z uint256.Int
	z.Add(&u.v, &o.v)
	return uint128FromInt(&z)
}

// Sub returns u-o or ErrOverflow when o > u
func (u Uint128) Sub(o Uint128) (Uint128, error) {
	var z uint256.Int
	if _, underflow := z.SubOverflow(&u.v, &o.v); underflow {
		return Uint128{}, fmt.Errorf("%w: %s - %s", ErrOverflow, u, o)
	}
	return Uint128{v: z}, nil
}

// SaturatingSub returns max(u-o, 0)
func (u Uint128) SaturatingSub(o Uint128) Uint128 {
	if u.LTE(o) {
		return Uint128{}
	}
	var z uint256.Int
	z.Sub(&u.v, &o.v)
	return Uint128{v: z}
}

// Mul returns u*o or ErrOverflow
func (u Uint128) Mul(o Uint128) (Uint128, error) {
	var z uint256.Int
	z.Mul(&u.v, &o.v)
	// both operands fit in 128 bits so the 256-bit product is exact
	return uint128FromInt(&z)
}

// Div returns floor(u/o)
func (u Uint128) Div(o Uint128) (Uint128, error) {
	if o.IsZero() {
		return Uint128{}, ErrDivideByZero
	}
	var z uint256.Int
	z.Div(&u.v, &o.v)
	return Uint128{v: z}, nil
}

// MulRatio returns floor(u*num/den) computed in 256 bits
func (u Uint128) MulRatio(num, den Uint128) (Uint128, error) {
	if den.IsZero() {
		return Uint128{}, ErrDivideByZero
	}
	var z uint256.Int
	z.Mul(&u.v, &num.v)
	z.Div(&z, &den.v)
	return uint128FromInt(&z)
}

// FullMul widens the product into a Uint256
func (u Uint128) FullMul(o Uint128) Uint256 {
	var z Uint256
	z.v.Mul(&u.v, &o.v)
	return z
}

// Uint256 widens u
func (u Uint128) Uint256() Uint256 {
	return Uint256{v: u.v}
}

// Uint64 truncates to the low 64 bits
func (u Uint128) Uint64() uint64 {
	return u.v.Uint64()
}

// MinUint128 returns the smaller value
func MinUint128(a, b Uint128) Uint128 {
	if a.LT(b) {
		return a
	}
	return b
}

// SumUint128 adds all values with overflow checking
func SumUint128(values ...Uint128) (Uint128, error) {
	total := Uint128{}
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Uint128{}, err
		}
	}
	return total, nil
}

func (u Uint128) String() string {
	return u.v.Dec()
}

// MarshalJSON encodes as a decimal string
func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts a decimal string
func (u *Uint128) UnmarshalJSON(b []byte) error {
	s, err := unquoteNumber(b)
	if err != nil {
		return err
	}
	v, err := ParseUint128(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Uint256 is an unsigned 256-bit integer used for fixed-point reward
// accumulators
type Uint256 struct {
	v uint256.Int
}

// NewUint256 creates a Uint256 from a uint64
func NewUint256(n uint64) Uint256 {
	var u Uint256
	u.v.SetUint64(n)
	return u
}

// Pow10Uint256 returns 10^exp
func Pow10Uint256(exp uint64) Uint256 {
	var u Uint256
	u.v.Exp(uint256.NewInt(10), uint256.NewInt(exp))
	return u
}

// ParseUint256 parses a decimal string
func ParseUint256(s string) (Uint256, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Uint256{}, fmt.Errorf("%w: %q", ErrInvalidInteger, s)
	}
	return Uint256{v: *v}, nil
}

// Int returns a copy of the value as a raw 256-bit integer
func (u Uint256) Int() *uint256.Int {
	v := u.v
	return &v
}

// IsZero checks for zero
func (u Uint256) IsZero() bool { return u.v.IsZero() }

// Cmp returns -1, 0 or +1
func (u Uint256) Cmp(o Uint256) int { return u.v.Cmp(&o.v) }

// LT is u < o
func (u Uint256) LT(o Uint256) bool { return u.v.Lt(&o.v) }

// GT is u > o
func (u Uint256) GT(o Uint256) bool { return u.v.Gt(&o.v) }

// Equal is u == o
func (u Uint256) Equal(o Uint256) bool { return u.v.Eq(&o.v) }

// Add returns u+o or ErrOverflow
func (u Uint256) Add(o Uint256) (Uint256, error) {
	var z Uint256
	if _, overflow := z.v.AddOverflow(&u.v, &o.v); overflow {
		return Uint256{}, ErrOverflow
	}
	return z, nil
}

// Sub returns u-o or ErrOverflow when o > u
func (u Uint256) Sub(o Uint256) (Uint256, error) {
	var z Uint256
	if _, underflow := z.v.SubOverflow(&u.v, &o.v); underflow {
		return Uint256{}, fmt.Errorf("%w: %s - %s", ErrOverflow, u, o)
	}
	return z, nil
}

// Mul returns u*o or ErrOverflow
func (u Uint256) Mul(o Uint256) (Uint256, error) {
	var z Uint256
	if _, overflow := z.v.MulOverflow(&u.v, &o.v); overflow {
		return Uint256{}, ErrOverflow
	}
	return z, nil
}

// Div returns floor(u/o)
func (u Uint256) Div(o Uint256) (Uint256, error) {
	if o.IsZero() {
		return Uint256{}, ErrDivideByZero
	}
	var z Uint256
	z.v.Div(&u.v, &o.v)
	return z, nil
}

// Uint128 narrows u, failing when it does not fit
func (u Uint256) Uint128() (Uint128, error) {
	return uint128FromInt(&u.v)
}

func (u Uint256) String() string {
	return u.v.Dec()
}

// MarshalJSON encodes as a decimal string
func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts a decimal string
func (u *Uint256) UnmarshalJSON(b []byte) error {
	s, err := unquoteNumber(b)
	if err != nil {
		return err
	}
	v, err := ParseUint256(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// unquoteNumber accepts both "123" and 123
func unquoteNumber(b []byte) (string, error) {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidInteger, b)
		}
		return s, nil
	}
	return string(b), nil
}
