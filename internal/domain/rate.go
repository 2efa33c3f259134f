package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

// CurrencyPair identifies a quote such as BTC_USD.
type CurrencyPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// BTC returns the pair quoting one bitcoin in the given shop currency.
func BTC(currency string) CurrencyPair {
	return CurrencyPair{Base: "BTC", Quote: strings.ToUpper(strings.TrimSpace(currency))}
}

// String returns the wire form used by the rates endpoint ("BTC_USD").
func (p CurrencyPair) String() string {
	return p.Base + "_" + p.Quote
}

// ParseCurrencyPair parses "BTC_USD".
func ParseCurrencyPair(s string) (CurrencyPair, error) {
	base, quote, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "_")
	if !ok || base == "" || len(quote) != 3 {
		return CurrencyPair{}, fmt.Errorf("invalid currency pair %q", s)
	}
	return CurrencyPair{Base: base, Quote: quote}, nil
}

// ExchangeRate is the price of one BTC in the pair's quote currency.
type ExchangeRate struct {
	Pair      CurrencyPair    `json:"pair"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NewExchangeRate builds a rate, rejecting zero and negative values so that a
// stored rate can always be divided by.
func NewExchangeRate(pair CurrencyPair, rate decimal.Decimal, fetchedAt time.Time) (ExchangeRate, error) {
	if !rate.IsPositive() {
		return ExchangeRate{}, fmt.Errorf("%w: %s", ErrInvalidRate, rate.String())
	}
	return ExchangeRate{Pair: pair, Rate: rate, FetchedAt: fetchedAt}, nil
}

// CacheEntry wraps a raw rate with its expiration.
type CacheEntry struct {
	Rate      ExchangeRate `json:"rate"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Valid reports whether the entry may still be served.
func (e CacheEntry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Credentials authenticate against the rates endpoint.
type Credentials struct {
	ServerURL string `json:"server_url"`
	StoreID   string `json:"store_id"`
	APIKey    string `json:"-"`
}

// Validate reports which credential field is missing, if any.
func (c Credentials) Validate() error {
	switch {
	case c.ServerURL == "":
		return &ConfigError{Field: "btcpay_server", Err: ErrMissingCredentials}
	case c.StoreID == "":
		return &ConfigError{Field: "store_id", Err: ErrMissingCredentials}
	case c.APIKey == "":
		return &ConfigError{Field: "api_key", Err: ErrMissingCredentials}
	}
	return nil
}

// NormalizeServerURL trims whitespace and trailing slashes and defaults the
// scheme to https.
func NormalizeServerURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		u = "https://" + u
	}
	return u
}
