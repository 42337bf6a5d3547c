package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the implied scale of every on-chain amount.
const TokenDecimals = 6

// maxUnitDigits is the decimal width of 2^256-1, the largest uint256.
const maxUnitDigits = 78

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// FormatUnits renders a smallest-unit amount as a decimal string with the
// token scale removed, e.g. 1500000 -> "1.5". nil renders as "0".
func FormatUnits(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -TokenDecimals).String()
}

// ParseUnits converts a human decimal amount ("1.5") into smallest units.
// Digits beyond the token scale are rounded half away from zero. Negative
// amounts and amounts that do not fit a uint256 are rejected; an empty string
// parses as zero.
func ParseUnits(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("domain: parse amount %q: %w: %v", s, ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("domain: parse amount %q: %w", s, ErrInvalidAmount)
	}
	// Integer digits of the amount once scaled to smallest units.
	digits := int64(d.NumDigits()) + int64(d.Exponent()) + TokenDecimals
	if digits > maxUnitDigits {
		return nil, fmt.Errorf("domain: parse amount %q: %w", s, ErrInvalidAmount)
	}
	if digits < 0 {
		return new(big.Int), nil
	}
	n := d.Shift(TokenDecimals).Round(0).BigInt()
	if n.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("domain: parse amount %q: %w", s, ErrInvalidAmount)
	}
	return n, nil
}
