package service

import (
	"context"

	"sats_display/internal/domain"
	"sats_display/internal/engine"
	"sats_display/internal/infra"

	"github.com/shopspring/decimal"
)

// PriceService renders shop prices with their satoshi equivalent.
// It never returns an error: any failure along the way is rendered as "N/A".
type PriceService struct {
	rates     *RateService
	settings  *SettingsService
	formatter *engine.Formatter
	original  *engine.OriginalFormatter
	metrics   *infra.Metrics
}

// NewPriceService creates a new PriceService instance
func NewPriceService(rates *RateService, settings *SettingsService, formatter *engine.Formatter, original *engine.OriginalFormatter) *PriceService {
	return &PriceService{
		rates:     rates,
		settings:  settings,
		formatter: formatter,
		original:  original,
		metrics:   infra.GlobalMetrics,
	}
}

// Formatter returns the formatter used for rendering.
func (s *PriceService) Formatter() *engine.Formatter {
	return s.formatter
}

func (s *PriceService) sats(ctx context.Context, amount decimal.Decimal, ds domain.DisplaySettings) domain.Sats {
	sats := engine.ToSatoshis(amount, s.rates.Effective(ctx), ds.Rounding)
	s.metrics.RecordConversion(sats.Available)
	return sats
}

// Quote renders a single price.
func (s *PriceService) Quote(ctx context.Context, amount decimal.Decimal, active domain.ActiveDisplay) domain.FormattedPrice {
	ds := s.settings.Display()
	bitcoin := s.formatter.FormatSatoshis(s.sats(ctx, amount, ds), ds)
	return s.formatter.FormatPrice(s.formatOriginal(amount), bitcoin, ds, active)
}

// QuoteRange renders a variable product spread. The ends are swapped when reversed.
func (s *PriceService) QuoteRange(ctx context.Context, min, max decimal.Decimal, active domain.ActiveDisplay) domain.FormattedPrice {
	if min.GreaterThan(max) {
		min, max = max, min
	}
	ds := s.settings.Display()

	r := engine.PriceRange{
		MinOriginal: s.formatOriginal(min),
		MaxOriginal: s.formatOriginal(max),
		MinBitcoin:  s.formatter.FormatSatoshis(s.sats(ctx, min, ds), ds),
		Equal:       min.Equal(max),
	}
	if r.Equal {
		r.MaxBitcoin = r.MinBitcoin
	} else {
		r.MaxBitcoin = s.formatter.FormatSatoshis(s.sats(ctx, max, ds), ds)
	}
	return s.formatter.FormatRange(r, ds, active)
}

// QuoteLine renders a cart line total (unit price times quantity).
func (s *PriceService) QuoteLine(ctx context.Context, unit decimal.Decimal, qty int64, active domain.ActiveDisplay) domain.FormattedPrice {
	return s.Quote(ctx, unit.Mul(decimal.NewFromInt(qty)), active)
}

func (s *PriceService) formatOriginal(amount decimal.Decimal) string {
	if s.original == nil {
		return ""
	}
	return s.original.Format(amount, s.settings.Current().Currency)
}
