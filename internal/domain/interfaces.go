package domain

import (
	"context"
	"time"
)

// RateProvider fetches a raw rate from the remote price API
type RateProvider interface {
	FetchRate(ctx context.Context, pair CurrencyPair, creds Credentials) (ExchangeRate, error)
}

// RateCache stores raw rates with a fixed time-to-live.
// Get returns ok=false for missing or expired entries.
type RateCache interface {
	Get(ctx context.Context, pair CurrencyPair) (ExchangeRate, bool, error)
	Set(ctx context.Context, rate ExchangeRate, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// SettingsRepository persists settings overrides
type SettingsRepository interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	DeleteSettings(ctx context.Context, keys ...string) error
}
