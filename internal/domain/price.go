package domain

import "github.com/shopspring/decimal"

// NotAvailable is rendered in place of a bitcoin price that could not be computed.
const NotAvailable = "N/A"

// Sats is a satoshi amount that may be unavailable.
// The zero value is unavailable, never "0 sats".
type Sats struct {
	Value     int64
	Available bool
}

// SatsOf wraps a computed amount.
func SatsOf(v int64) Sats {
	return Sats{Value: v, Available: true}
}

// Unavailable is the sentinel carried through conversion and formatting.
func Unavailable() Sats {
	return Sats{}
}

// FormattedPrice is the rendered result handed back to callers.
// HTML embeds Original and/or Bitcoin per Mode; the plain fields are kept for
// callers that build their own markup.
type FormattedPrice struct {
	Original string        `json:"original,omitempty"`
	Bitcoin  string        `json:"bitcoin"`
	HTML     string        `json:"html"`
	Mode     DisplayMode   `json:"mode"`
	Active   ActiveDisplay `json:"active,omitempty"`
}

// EffectiveRate is a discounted rate ready for conversion, or unavailable.
type EffectiveRate struct {
	Value     decimal.Decimal
	Available bool
}

// RateOf wraps a positive rate; anything else is unavailable.
func RateOf(v decimal.Decimal) EffectiveRate {
	if !v.IsPositive() {
		return EffectiveRate{}
	}
	return EffectiveRate{Value: v, Available: true}
}

// NoRate is the unavailable rate.
func NoRate() EffectiveRate {
	return EffectiveRate{}
}
