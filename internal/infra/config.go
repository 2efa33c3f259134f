package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent identifies outbound requests to the rate source
	DefaultUserAgent = "sats-display/1.0"

	// DefaultCacheTTL is how long a fetched rate is served before refetching
	DefaultCacheTTL = 600 * time.Second
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Locale  string `yaml:"locale"`
	} `yaml:"app"`

	BTCPay struct {
		URL        string `yaml:"url"`
		StoreID    string `yaml:"store_id"`
		APIKey     string `yaml:"api_key"`
		Currency   string `yaml:"currency"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"btcpay"`

	Cache struct {
		Backend        string `yaml:"backend"` // memory | redis
		TTLSec         int    `yaml:"ttl_sec"`
		NegativeTTLSec int    `yaml:"negative_ttl_sec"`
		RefreshSec     int    `yaml:"refresh_sec"`
		MemoSize       int    `yaml:"memo_size"`
	} `yaml:"cache"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Pricing struct {
		DiscountPercent decimal.Decimal `yaml:"discount_percent"`
	} `yaml:"pricing"`

	Display domain.DisplaySettings `yaml:"display"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	HTTP struct {
		Listen     string `yaml:"listen"`
		AdminToken string `yaml:"admin_token"`
	} `yaml:"http"`

	Icons struct {
		Dir     string            `yaml:"dir"`
		SizePx  int               `yaml:"size_px"`
		Sources map[string]string `yaml:"sources"`
	} `yaml:"icons"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json | console
		Dir    string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with every optional field filled in.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "sats-display"
	cfg.App.Locale = "en"
	cfg.BTCPay.Currency = "USD"
	cfg.BTCPay.TimeoutSec = 10
	cfg.Cache.Backend = "memory"
	cfg.Cache.TTLSec = int(DefaultCacheTTL / time.Second)
	cfg.Cache.RefreshSec = 60
	cfg.Cache.MemoSize = 4096
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Prefix = "sats:"
	cfg.Display = domain.DefaultDisplaySettings()
	cfg.Storage.Path = "data/settings.db"
	cfg.HTTP.Listen = ":8080"
	cfg.Icons.Dir = "data/icons"
	cfg.Icons.SizePx = 16
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML on top of DefaultConfig, applies env overrides and validates.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)
	cfg.BTCPay.URL = domain.NormalizeServerURL(cfg.BTCPay.URL)
	cfg.BTCPay.Currency = strings.ToUpper(strings.TrimSpace(cfg.BTCPay.Currency))

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// BTCPay
	if c.BTCPay.URL != "" && !hasPrefix(c.BTCPay.URL, "https://") && !hasPrefix(c.BTCPay.URL, "http://") {
		return &domain.ConfigError{Field: "btcpay.url", Err: fmt.Errorf("invalid URL: %s", c.BTCPay.URL)}
	}
	if len(c.BTCPay.Currency) != 3 {
		return &domain.ConfigError{Field: "btcpay.currency", Err: fmt.Errorf("expected ISO 4217 code, got %q", c.BTCPay.Currency)}
	}

	// Cache
	if c.Cache.TTLSec <= 0 {
		return &domain.ConfigError{Field: "cache.ttl_sec", Err: errors.New("must be positive")}
	}
	if c.Cache.NegativeTTLSec < 0 {
		return &domain.ConfigError{Field: "cache.negative_ttl_sec", Err: errors.New("must not be negative")}
	}
	if c.Cache.RefreshSec < 0 {
		return &domain.ConfigError{Field: "cache.refresh_sec", Err: errors.New("must not be negative")}
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return &domain.ConfigError{Field: "redis.addr", Err: errors.New("required for redis backend")}
		}
	default:
		return &domain.ConfigError{Field: "cache.backend", Err: fmt.Errorf("unknown backend %q", c.Cache.Backend)}
	}

	// Pricing
	if c.Pricing.DiscountPercent.IsNegative() || c.Pricing.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return &domain.ConfigError{Field: "pricing.discount_percent", Err: domain.ErrDiscountOutOfRange}
	}

	// Display
	if err := c.Display.Validate(); err != nil {
		return err
	}

	// HTTP
	if c.HTTP.Listen == "" {
		return &domain.ConfigError{Field: "http.listen", Err: errors.New("required")}
	}

	return nil
}

// Credentials returns the configured rate source credentials.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		ServerURL: c.BTCPay.URL,
		StoreID:   c.BTCPay.StoreID,
		APIKey:    c.BTCPay.APIKey,
	}
}

// CacheTTL returns the rate cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// NegativeTTL returns how long a failed fetch suppresses refetching (0 = never).
func (c *Config) NegativeTTL() time.Duration {
	return time.Duration(c.Cache.NegativeTTLSec) * time.Second
}

// RefreshInterval returns the background refresh period (0 = disabled).
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Cache.RefreshSec) * time.Second
}

// RequestTimeout returns the outbound HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.BTCPay.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.BTCPay.TimeoutSec) * time.Second
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("SATS_BTCPAY_URL"); url != "" {
		cfg.BTCPay.URL = url
	}
	if store := os.Getenv("SATS_BTCPAY_STORE"); store != "" {
		cfg.BTCPay.StoreID = store
	}
	if key := os.Getenv("SATS_BTCPAY_KEY"); key != "" {
		cfg.BTCPay.APIKey = key
	}
	if pass := os.Getenv("SATS_REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
	if token := os.Getenv("SATS_ADMIN_TOKEN"); token != "" {
		cfg.HTTP.AdminToken = token
	}
}
