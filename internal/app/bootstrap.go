package app

import (
	"context"
	"fmt"
	"log/slog"

	"sats_display/internal/api"
	"sats_display/internal/domain"
	"sats_display/internal/engine"
	"sats_display/internal/infra"
	"sats_display/internal/infra/cache"
	"sats_display/internal/infra/storage"
	"sats_display/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config   *infra.Config
	Logger   *slog.Logger
	Storage  *storage.Storage
	Cache    domain.RateCache
	Icons    *infra.IconStore
	Rates    *service.RateService
	Settings *service.SettingsService
	Prices   *service.PriceService
	Hub      *api.RateHub

	redis *redis.Client
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads config and wires storage, cache and services.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	b.Logger.Info("Bootstrapping sats display", slog.String("config", b.ConfigPath))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	b.Logger.Info("Settings database initialized")

	// 4. Rate cache
	if err := b.initCache(ctx); err != nil {
		return err
	}

	// 5. Icon store
	icons, err := infra.NewIconStore(cfg.Icons.Dir, cfg.Icons.SizePx, cfg.Icons.Sources)
	if err != nil {
		return err
	}
	b.Icons = icons

	// 6. Services
	b.Rates = service.NewRateService(infra.NewBTCPayClient(cfg.RequestTimeout()), b.Cache, service.RateOptions{
		TTL:         cfg.CacheTTL(),
		NegativeTTL: cfg.NegativeTTL(),
		Credentials: cfg.Credentials(),
		Currency:    cfg.BTCPay.Currency,
		Discount:    cfg.Pricing.DiscountPercent,
		Logger:      b.Logger,
	})

	b.Settings = service.NewSettingsService(b.Storage, b.Rates, service.SettingsFromConfig(cfg), b.Logger)
	if err := b.Settings.Load(ctx); err != nil {
		return err
	}

	formatter := engine.NewFormatter(b.Icons, engine.NewMemo(cfg.Cache.MemoSize))
	b.Prices = service.NewPriceService(b.Rates, b.Settings, formatter, engine.NewOriginalFormatter(cfg.App.Locale))

	b.Hub = api.NewRateHub(b.Logger)
	b.Rates.OnUpdate(b.Hub.Broadcast)

	return nil
}

func (b *Bootstrap) initCache(ctx context.Context) error {
	cfg := b.Config
	switch cfg.Cache.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.redis = client
		b.Cache = cache.NewRedisRateCache(client, cfg.Redis.Prefix, b.Logger)
		b.Logger.Info("Redis rate cache ready", slog.String("addr", cfg.Redis.Addr))
	default:
		b.Cache = cache.NewMemoryRateCache()
		b.Logger.Info("Memory rate cache ready")
	}
	return nil
}

// SyncAssets downloads configured icons in the background.
func (b *Bootstrap) SyncAssets(ctx context.Context) {
	b.Logger.Info("Starting icon synchronization", slog.Int("icons", len(b.Config.Icons.Sources)))
	stored := b.Icons.EnsureAll(ctx)
	b.Logger.Info("Icon synchronization completed", slog.Int("stored", stored))
}

// Router builds the HTTP handler.
func (b *Bootstrap) Router() *gin.Engine {
	var health api.Pinger
	if p, ok := b.Cache.(api.Pinger); ok {
		health = p
	}
	h := api.NewHandler(b.Prices, b.Rates, b.Settings, health, b.Logger)
	return api.NewRouter(h, b.Hub, api.RouterConfig{
		AdminToken: b.Config.HTTP.AdminToken,
		IconsDir:   b.Icons.Dir(),
		Debug:      b.Config.Logging.Level == "debug",
	}, b.Logger)
}

// Close releases storage and cache connections.
func (b *Bootstrap) Close() {
	if b.Rates != nil {
		b.Rates.Stop()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			b.Logger.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
	if b.redis != nil {
		b.redis.Close()
	}
}
