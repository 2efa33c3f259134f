package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"sats_display/internal/domain"
	"sats_display/internal/engine"
	"sats_display/internal/infra"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// RateOptions configures a RateService.
type RateOptions struct {
	TTL         time.Duration
	NegativeTTL time.Duration // 0 disables caching of failures
	Credentials domain.Credentials
	Currency    string
	Discount    decimal.Decimal
	Metrics     *infra.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
}

// RateService serves the BTC rate from cache, fetching upstream on a miss.
// The raw rate is cached; the discount is applied on every read.
type RateService struct {
	provider domain.RateProvider
	cache    domain.RateCache
	group    singleflight.Group

	ttl         time.Duration
	negativeTTL time.Duration
	metrics     *infra.Metrics
	logger      *slog.Logger
	now         func() time.Time

	mu          sync.RWMutex
	creds       domain.Credentials
	currency    string
	discount    decimal.Decimal
	failedUntil map[string]time.Time
	listeners   []func(domain.ExchangeRate)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRateService creates a new RateService instance
func NewRateService(provider domain.RateProvider, cache domain.RateCache, opts RateOptions) *RateService {
	if opts.TTL <= 0 {
		opts.TTL = infra.DefaultCacheTTL
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}

	return &RateService{
		provider:    provider,
		cache:       cache,
		ttl:         opts.TTL,
		negativeTTL: opts.NegativeTTL,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
		creds:       opts.Credentials,
		currency:    opts.Currency,
		discount:    opts.Discount,
		failedUntil: make(map[string]time.Time),
	}
}

// Pair returns the pair for the configured shop currency.
func (s *RateService) Pair() domain.CurrencyPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.BTC(s.currency)
}

// Discount returns the discount currently applied at read time.
func (s *RateService) Discount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discount
}

// RawRate returns the cached rate if fresh, otherwise performs exactly one
// upstream fetch. Concurrent misses for the same pair share that fetch.
// Failures are never cached unless a negative TTL is configured.
func (s *RateService) RawRate(ctx context.Context, pair domain.CurrencyPair) (domain.ExchangeRate, error) {
	rate, ok, err := s.cache.Get(ctx, pair)
	if err != nil {
		s.logger.Warn("Rate cache read failed", slog.String("pair", pair.String()), slog.Any("error", err))
	}
	if ok {
		s.metrics.RecordCacheHit()
		return rate, nil
	}
	s.metrics.RecordCacheMiss()

	if until, failed := s.recentFailure(pair); failed {
		return domain.ExchangeRate{}, fmt.Errorf("%w: upstream failed, retry after %s", domain.ErrRateUnavailable, until.Format(time.RFC3339))
	}

	v, err, _ := s.group.Do(pair.String(), func() (interface{}, error) {
		return s.fetch(ctx, pair)
	})
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	return v.(domain.ExchangeRate), nil
}

func (s *RateService) fetch(ctx context.Context, pair domain.CurrencyPair) (domain.ExchangeRate, error) {
	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()

	start := time.Now()
	rate, err := s.provider.FetchRate(ctx, pair, creds)
	if err != nil {
		s.metrics.RecordFetchFailure()
		s.recordFailure(pair)
		s.logger.Warn("Rate fetch failed",
			slog.String("pair", pair.String()),
			slog.Bool("retriable", domain.IsRetriable(err)),
			slog.Any("error", err),
		)
		return domain.ExchangeRate{}, fmt.Errorf("%w: %w", domain.ErrRateUnavailable, err)
	}
	s.metrics.RecordFetch(time.Since(start))

	if err := s.cache.Set(ctx, rate, s.ttl); err != nil {
		s.logger.Warn("Rate cache write failed", slog.String("pair", pair.String()), slog.Any("error", err))
	}

	s.logger.Info("Rate updated",
		slog.String("pair", pair.String()),
		slog.String("rate", rate.Rate.String()),
	)
	s.notify(rate)
	return rate, nil
}

// GetRate returns the effective (discounted) rate for pair.
func (s *RateService) GetRate(ctx context.Context, pair domain.CurrencyPair) (decimal.Decimal, error) {
	raw, err := s.RawRate(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}
	effective, err := engine.ApplyDiscount(raw.Rate, s.Discount())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", domain.ErrRateUnavailable, err)
	}
	return effective, nil
}

// Effective returns the discounted rate for the configured currency, or the
// unavailable rate on any failure.
func (s *RateService) Effective(ctx context.Context) domain.EffectiveRate {
	rate, err := s.GetRate(ctx, s.Pair())
	if err != nil {
		return domain.NoRate()
	}
	return domain.RateOf(rate)
}

// Invalidate clears the stored rate so the next read refetches.
func (s *RateService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.failedUntil = make(map[string]time.Time)
	s.mu.Unlock()

	if err := s.cache.Clear(ctx); err != nil {
		return err
	}
	s.metrics.RecordInvalidation()
	s.logger.Info("Rate cache invalidated")
	return nil
}

// SetDiscount changes the read-time discount. The cache is left alone.
func (s *RateService) SetDiscount(pct decimal.Decimal) {
	s.mu.Lock()
	s.discount = pct
	s.mu.Unlock()
}

// SetSource changes credentials and currency, invalidating the cache when
// either differs from the current value.
func (s *RateService) SetSource(ctx context.Context, creds domain.Credentials, currency string) error {
	s.mu.Lock()
	changed := s.creds != creds || s.currency != currency
	s.creds = creds
	s.currency = currency
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.Invalidate(ctx)
}

// OnUpdate registers fn to be called after every successful upstream fetch.
func (s *RateService) OnUpdate(fn func(domain.ExchangeRate)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *RateService) notify(rate domain.ExchangeRate) {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(rate)
	}
}

func (s *RateService) recentFailure(pair domain.CurrencyPair) (time.Time, bool) {
	if s.negativeTTL <= 0 {
		return time.Time{}, false
	}
	s.mu.RLock()
	until, ok := s.failedUntil[pair.String()]
	s.mu.RUnlock()
	return until, ok && s.now().Before(until)
}

func (s *RateService) recordFailure(pair domain.CurrencyPair) {
	if s.negativeTTL <= 0 {
		return
	}
	s.mu.Lock()
	s.failedUntil[pair.String()] = s.now().Add(s.negativeTTL)
	s.mu.Unlock()
}

// Start keeps the rate for the configured currency warm, reading it every interval.
// A fetch only happens once the cached entry has expired.
func (s *RateService) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Rate refresher panic recovered", slog.Any("panic", r))
			}
		}()

		if _, err := s.RawRate(ctx, s.Pair()); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Initial rate fetch failed", slog.Any("error", err))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Rate refresher stopped")
				return
			case <-ticker.C:
				_, _ = s.RawRate(ctx, s.Pair())
			}
		}
	}()
}

// Stop stops the refresher started by Start.
func (s *RateService) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
}
