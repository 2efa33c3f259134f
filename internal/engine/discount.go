package engine

import (
	"fmt"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ApplyDiscount skews the raw rate so bitcoin payers see a lower satoshi price:
// rate / (1 - pct/100) for 0 < pct < 100. A pct outside (0, 100] leaves the rate
// unchanged; pct == 100 has no finite answer and is reported as
// ErrDiscountOutOfRange.
func ApplyDiscount(raw, pct decimal.Decimal) (decimal.Decimal, error) {
	if !raw.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidRate, raw.String())
	}
	if !pct.IsPositive() || pct.GreaterThan(hundred) {
		return raw, nil
	}
	if pct.Equal(hundred) {
		return decimal.Zero, fmt.Errorf("%w: %s%%", domain.ErrDiscountOutOfRange, pct.String())
	}
	return raw.Div(one.Sub(pct.Div(hundred))), nil
}
