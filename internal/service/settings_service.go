package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"sats_display/internal/domain"
	"sats_display/internal/infra"

	"github.com/shopspring/decimal"
)

// Setting keys accepted by Update.
const (
	KeyServer              = "btcpay_server"
	KeyStoreID             = "store_id"
	KeyAPIKey              = "api_key"
	KeyCurrency            = "currency"
	KeyDiscount            = "discount_percent"
	KeyDisplayMode         = "display_mode"
	KeyRounding            = "rounding"
	KeyThousandsCompaction = "thousands_compaction"
	KeyThousandsSuffix     = "thousands_suffix"
	KeyRangePolicy         = "range_policy"
	KeyPrefix              = "prefix"
	KeySuffix              = "suffix"
	KeyIcon                = "icon"
	KeyIconColor           = "icon_color"
	KeyIconAnimation       = "icon_animation"
	KeyLayout              = "layout"
)

// SettingKeys lists every key in display order.
var SettingKeys = []string{
	KeyServer, KeyStoreID, KeyAPIKey, KeyCurrency, KeyDiscount,
	KeyDisplayMode, KeyRounding, KeyThousandsCompaction, KeyThousandsSuffix,
	KeyRangePolicy, KeyPrefix, KeySuffix, KeyIcon, KeyIconColor, KeyIconAnimation, KeyLayout,
}

const maskedSecret = "********"

// Settings is the effective configuration after stored overrides are applied.
type Settings struct {
	Credentials domain.Credentials
	Currency    string
	Discount    decimal.Decimal
	Display     domain.DisplaySettings
}

// SettingsFromConfig builds the defaults that stored overrides are applied on.
func SettingsFromConfig(cfg *infra.Config) Settings {
	return Settings{
		Credentials: cfg.Credentials(),
		Currency:    cfg.BTCPay.Currency,
		Discount:    cfg.Pricing.DiscountPercent,
		Display:     cfg.Display,
	}
}

// Values renders the settings as key/value strings. The API key is masked.
func (s Settings) Values() map[string]string {
	apiKey := ""
	if s.Credentials.APIKey != "" {
		apiKey = maskedSecret
	}
	d := s.Display
	return map[string]string{
		KeyServer:              s.Credentials.ServerURL,
		KeyStoreID:             s.Credentials.StoreID,
		KeyAPIKey:              apiKey,
		KeyCurrency:            s.Currency,
		KeyDiscount:            s.Discount.String(),
		KeyDisplayMode:         string(d.Mode),
		KeyRounding:            strconv.FormatInt(int64(d.Rounding), 10),
		KeyThousandsCompaction: strconv.FormatBool(d.ThousandsCompaction),
		KeyThousandsSuffix:     d.ThousandsSuffix,
		KeyRangePolicy:         string(d.RangePolicy),
		KeyPrefix:              d.Prefix,
		KeySuffix:              d.Suffix,
		KeyIcon:                d.Icon,
		KeyIconColor:           d.IconColor,
		KeyIconAnimation:       d.IconAnimation,
		KeyLayout:              string(d.Layout),
	}
}

// apply parses one key into s and returns the normalized value to persist.
func (s *Settings) apply(key, value string) (string, error) {
	invalid := func(err error) error {
		return &domain.ConfigError{Field: key, Err: fmt.Errorf("%w: %v", domain.ErrInvalidSetting, err)}
	}

	switch key {
	case KeyServer:
		s.Credentials.ServerURL = domain.NormalizeServerURL(value)
		return s.Credentials.ServerURL, nil
	case KeyStoreID:
		s.Credentials.StoreID = strings.TrimSpace(value)
		return s.Credentials.StoreID, nil
	case KeyAPIKey:
		s.Credentials.APIKey = strings.TrimSpace(value)
		return s.Credentials.APIKey, nil
	case KeyCurrency:
		c := strings.ToUpper(strings.TrimSpace(value))
		if _, err := domain.ParseCurrencyPair("BTC_" + c); err != nil {
			return "", invalid(err)
		}
		s.Currency = c
		return c, nil
	case KeyDiscount:
		pct, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return "", invalid(err)
		}
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return "", &domain.ConfigError{Field: key, Err: domain.ErrDiscountOutOfRange}
		}
		s.Discount = pct
		return pct.String(), nil
	case KeyDisplayMode:
		s.Display.Mode = domain.DisplayMode(strings.TrimSpace(value))
	case KeyRounding:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "", invalid(err)
		}
		s.Display.Rounding = domain.Rounding(n)
	case KeyThousandsCompaction:
		b, err := parseBool(value)
		if err != nil {
			return "", invalid(err)
		}
		s.Display.ThousandsCompaction = b
		return strconv.FormatBool(b), nil
	case KeyThousandsSuffix:
		s.Display.ThousandsSuffix = value
	case KeyRangePolicy:
		s.Display.RangePolicy = domain.RangePolicy(strings.TrimSpace(value))
	case KeyPrefix:
		s.Display.Prefix = value
	case KeySuffix:
		s.Display.Suffix = value
	case KeyIcon:
		s.Display.Icon = strings.TrimSpace(value)
	case KeyIconColor:
		s.Display.IconColor = strings.TrimSpace(value)
	case KeyIconAnimation:
		s.Display.IconAnimation = strings.TrimSpace(value)
	case KeyLayout:
		s.Display.Layout = domain.Layout(strings.TrimSpace(value))
	default:
		return "", &domain.ConfigError{Field: key, Err: domain.ErrInvalidSetting}
	}

	// display fields are checked together by Validate
	return strings.TrimSpace(value), nil
}

// parseBool accepts the checkbox spellings an admin form may send.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", v)
}

// SettingsService owns the effective settings and keeps the rate source in sync.
type SettingsService struct {
	repo     domain.SettingsRepository
	rates    *RateService
	defaults Settings
	metrics  *infra.Metrics
	logger   *slog.Logger

	updateMu sync.Mutex // serializes Load, Update and Reset
	mu       sync.RWMutex
	current  Settings
}

// NewSettingsService creates a service starting from defaults. Call Load to apply stored overrides.
func NewSettingsService(repo domain.SettingsRepository, rates *RateService, defaults Settings, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{
		repo:     repo,
		rates:    rates,
		defaults: defaults,
		metrics:  infra.GlobalMetrics,
		logger:   logger,
		current:  defaults,
	}
}

// Load applies stored overrides on top of the defaults.
// Stored values that no longer validate are skipped.
func (s *SettingsService) Load(ctx context.Context) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	return s.load(ctx)
}

func (s *SettingsService) load(ctx context.Context) error {
	stored, err := s.repo.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	merged := s.defaults
	for _, key := range sortedKeys(stored) {
		next := merged
		if _, err := next.apply(key, stored[key]); err != nil {
			s.logger.Warn("Ignoring stored setting", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if err := next.Display.Validate(); err != nil {
			s.logger.Warn("Ignoring stored setting", slog.String("key", key), slog.Any("error", err))
			continue
		}
		merged = next
	}

	return s.swap(ctx, merged)
}

// Current returns a copy of the effective settings.
func (s *SettingsService) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Display returns the current presentation settings.
func (s *SettingsService) Display() domain.DisplaySettings {
	return s.Current().Display
}

// Update validates and persists values, then applies them.
// Either every value is applied or none is.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) (Settings, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	next := s.Current()
	normalized := make(map[string]string, len(values))

	for _, key := range sortedKeys(values) {
		v := values[key]
		if key == KeyAPIKey && v == maskedSecret {
			continue // unchanged secret echoed back by a form
		}
		n, err := next.apply(key, v)
		if err != nil {
			return Settings{}, err
		}
		normalized[key] = n
	}
	if err := next.Display.Validate(); err != nil {
		return Settings{}, err
	}

	if err := s.repo.SaveSettings(ctx, normalized); err != nil {
		return Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.metrics.RecordSettingsUpdate()
	s.logger.Info("Settings updated", slog.Any("keys", sortedKeys(normalized)))

	if err := s.swap(ctx, next); err != nil {
		return next, err
	}
	return next, nil
}

// Reset removes stored overrides for keys so they fall back to their defaults.
func (s *SettingsService) Reset(ctx context.Context, keys ...string) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	for _, k := range keys {
		if !isKnownKey(k) {
			return &domain.ConfigError{Field: k, Err: domain.ErrInvalidSetting}
		}
	}
	if err := s.repo.DeleteSettings(ctx, keys...); err != nil {
		return err
	}
	return s.load(ctx)
}

// swap installs next and pushes rate-affecting values to the rate service.
func (s *SettingsService) swap(ctx context.Context, next Settings) error {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	if s.rates == nil {
		return nil
	}
	s.rates.SetDiscount(next.Discount)
	return s.rates.SetSource(ctx, next.Credentials, next.Currency)
}

func isKnownKey(k string) bool {
	for _, key := range SettingKeys {
		if key == k {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
