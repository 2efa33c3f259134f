package engine

import (
	"fmt"
	"math"
	"strings"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	satsPerBTC = decimal.NewFromInt(domain.SatsPerBTC)
	maxSats    = decimal.NewFromInt(math.MaxInt64)
)

// ToSatoshis converts a shop-currency amount at the given rate.
// The result is rounded to a whole satoshi first and then to the nearest
// multiple of the rounding bucket. An invalid bucket falls back to 1 sat.
func ToSatoshis(amount decimal.Decimal, rate domain.EffectiveRate, rounding domain.Rounding) domain.Sats {
	if !rate.Available || !rate.Value.IsPositive() || amount.IsNegative() {
		return domain.Unavailable()
	}
	if !rounding.Valid() {
		rounding = 1
	}

	sats := amount.Mul(satsPerBTC).Div(rate.Value).Round(0)
	if rounding > 1 {
		sats = sats.Round(-rounding.Exponent())
	}
	if sats.GreaterThan(maxSats) {
		return domain.Unavailable()
	}
	return domain.SatsOf(sats.IntPart())
}

// AmountFromFloat converts a host-supplied float, rejecting NaN, infinities and
// negative values.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, f)
	}
	return decimal.NewFromFloat(f), nil
}

// ParseAmount parses a decimal string such as "19.99".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return d, nil
}
