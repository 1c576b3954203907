package host

import (
	"errors"
	"fmt"

	"github.com/daodao/core/pkg/types"
)

// Payment errors
var (
	ErrNoFunds        = errors.New("no funds sent")
	ErrMultipleDenoms = errors.New("sent more than one denomination")
	ErrMissingDenom   = errors.New("must send reserve token")
	ErrNonPayable     = errors.New("this message does not accept funds")
)

// MustPay requires exactly one non-zero coin of denom and returns its amount
func MustPay(funds []types.Coin, denom string) (types.Uint128, error) {
	var paid []types.Coin
	for _, c := range funds {
		if !c.Amount.IsZero() {
			paid = append(paid, c)
		}
	}
	switch {
	case len(paid) == 0:
		return types.Uint128{}, ErrNoFunds
	case len(paid) > 1:
		return types.Uint128{}, ErrMultipleDenoms
	case paid[0].Denom != denom:
		return types.Uint128{}, fmt.Errorf("%w: %s", ErrMissingDenom, denom)
	}
	return paid[0].Amount, nil
}

// Nonpayable rejects any non-zero funds
func Nonpayable(funds []types.Coin) error {
	for _, c := range funds {
		if !c.Amount.IsZero() {
			return ErrNonPayable
		}
	}
	return nil
}
