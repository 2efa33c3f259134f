package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sats_display/internal/domain"
	"sats_display/internal/engine"
	"sats_display/internal/infra"
	"sats_display/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DisplayCookie stores the visitor's toggle selection.
const DisplayCookie = "price_display"

// Pinger is implemented by cache backends that depend on an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the public and admin endpoints.
type Handler struct {
	prices   *service.PriceService
	rates    *service.RateService
	settings *service.SettingsService
	metrics  *infra.Metrics
	health   Pinger
	logger   *slog.Logger
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(prices *service.PriceService, rates *service.RateService, settings *service.SettingsService, health Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		prices:   prices,
		rates:    rates,
		settings: settings,
		metrics:  infra.GlobalMetrics,
		health:   health,
		logger:   logger,
	}
}

// activeDisplay reads ?display= first, then the toggle cookie.
func activeDisplay(c *gin.Context) domain.ActiveDisplay {
	if v := c.Query("display"); v != "" {
		return domain.ParseActiveDisplay(v)
	}
	v, _ := c.Cookie(DisplayCookie)
	return domain.ParseActiveDisplay(v)
}

func amountParam(c *gin.Context, name string) (decimal.Decimal, bool) {
	amount, err := engine.ParseAmount(c.Query(name))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "validation_error", name+": "+err.Error())
		return decimal.Zero, false
	}
	return amount, true
}

// Quote handles GET /api/v1/quote?amount=
func (h *Handler) Quote(c *gin.Context) {
	amount, ok := amountParam(c, "amount")
	if !ok {
		return
	}
	SuccessResponse(c, h.prices.Quote(c.Request.Context(), amount, activeDisplay(c)))
}

// QuoteRange handles GET /api/v1/quote/range?min=&max=
func (h *Handler) QuoteRange(c *gin.Context) {
	min, ok := amountParam(c, "min")
	if !ok {
		return
	}
	max, ok := amountParam(c, "max")
	if !ok {
		return
	}
	SuccessResponse(c, h.prices.QuoteRange(c.Request.Context(), min, max, activeDisplay(c)))
}

// QuoteLine handles GET /api/v1/quote/line?price=&qty=
func (h *Handler) QuoteLine(c *gin.Context) {
	price, ok := amountParam(c, "price")
	if !ok {
		return
	}
	qty, err := strconv.ParseInt(c.DefaultQuery("qty", "1"), 10, 64)
	if err != nil || qty < 0 {
		ErrorResponse(c, http.StatusBadRequest, "validation_error", "qty must be a non-negative integer")
		return
	}
	SuccessResponse(c, h.prices.QuoteLine(c.Request.Context(), price, qty, activeDisplay(c)))
}

// RateResponse describes the current rate.
type RateResponse struct {
	Pair          string    `json:"pair"`
	Rate          string    `json:"rate"`
	EffectiveRate string    `json:"effective_rate"`
	Discount      string    `json:"discount_percent"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Rate handles GET /api/v1/rate. Responds 503 when no usable rate exists.
func (h *Handler) Rate(c *gin.Context) {
	ctx := c.Request.Context()
	pair := h.rates.Pair()

	raw, err := h.rates.RawRate(ctx, pair)
	if err != nil {
		ErrorResponseWithError(c, err)
		return
	}
	effective, err := h.rates.GetRate(ctx, pair)
	if err != nil {
		ErrorResponseWithError(c, err)
		return
	}

	SuccessResponse(c, RateResponse{
		Pair:          pair.String(),
		Rate:          raw.Rate.String(),
		EffectiveRate: effective.String(),
		Discount:      h.rates.Discount().String(),
		FetchedAt:     raw.FetchedAt,
	})
}

// ToggleResponse tells the storefront what is shown and what the button should say.
type ToggleResponse struct {
	Display    domain.ActiveDisplay `json:"display"`
	ButtonText string               `json:"button_text"`
}

// Toggle handles POST /api/v1/display/toggle by flipping the display cookie.
func (h *Handler) Toggle(c *gin.Context) {
	current, _ := c.Cookie(DisplayCookie)
	next := domain.ParseActiveDisplay(current).Flip()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(DisplayCookie, string(next), int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)

	SuccessResponse(c, ToggleResponse{Display: next, ButtonText: h.buttonText(next)})
}

// buttonText labels the action that the next click performs.
func (h *Handler) buttonText(active domain.ActiveDisplay) string {
	if active == domain.ShowBitcoin {
		return "Show " + h.settings.Current().Currency
	}
	return "Show Bitcoin"
}

// GetSettings handles GET /api/v1/admin/settings
func (h *Handler) GetSettings(c *gin.Context) {
	SuccessResponse(c, h.settings.Current().Values())
}

// UpdateSettings handles PUT /api/v1/admin/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "validation_error", "body must be a JSON object of strings")
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), values)
	if err != nil {
		ErrorResponseWithError(c, err)
		return
	}
	SuccessResponse(c, updated.Values())
}

// ResetSetting handles DELETE /api/v1/admin/settings/:key
func (h *Handler) ResetSetting(c *gin.Context) {
	if err := h.settings.Reset(c.Request.Context(), c.Param("key")); err != nil {
		ErrorResponseWithError(c, err)
		return
	}
	SuccessResponse(c, h.settings.Current().Values())
}

// InvalidateCache handles POST /api/v1/admin/cache/invalidate
func (h *Handler) InvalidateCache(c *gin.Context) {
	if err := h.rates.Invalidate(c.Request.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		ErrorResponseWithError(c, err)
		return
	}
	SuccessResponse(c, gin.H{"invalidated": true})
}

// Metrics handles GET /api/v1/admin/metrics
func (h *Handler) Metrics(c *gin.Context) {
	SuccessResponse(c, h.metrics.Snapshot())
}

// Health handles GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "cache": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
