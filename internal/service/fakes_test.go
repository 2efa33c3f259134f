package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
)

var errTransport = errors.New("connection refused")

// stubProvider returns a fixed rate or error and counts calls.
type stubProvider struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	err   error
	delay time.Duration
	calls atomic.Int32
	creds []domain.Credentials
}

func (p *stubProvider) FetchRate(ctx context.Context, pair domain.CurrencyPair, creds domain.Credentials) (domain.ExchangeRate, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.creds = append(p.creds, creds)
	rate, err, delay := p.rate, p.err, p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return domain.ExchangeRate{}, domain.NewNetworkError("fetch rate", err)
	}
	return domain.NewExchangeRate(pair, rate, time.Now())
}

func (p *stubProvider) set(rate int64, err error) {
	p.mu.Lock()
	p.rate = decimal.NewFromInt(rate)
	p.err = err
	p.mu.Unlock()
}

// memRepo is an in-memory SettingsRepository.
type memRepo struct {
	mu      sync.Mutex
	values  map[string]string
	saveErr error
}

func newMemRepo() *memRepo {
	return &memRepo{values: make(map[string]string)}
}

func (r *memRepo) LoadSettings(_ context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *memRepo) SaveSettings(_ context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for k, v := range values {
		r.values[k] = v
	}
	return nil
}

func (r *memRepo) DeleteSettings(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
