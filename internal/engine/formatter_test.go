package engine

import (
	"strings"
	"testing"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
)

type staticIcons map[string]string

func (s staticIcons) IconURL(id string) (string, bool) {
	u, ok := s[id]
	return u, ok
}

func plainSettings() domain.DisplaySettings {
	s := domain.DefaultDisplaySettings()
	s.Rounding = 1
	s.Prefix = "~"
	s.Suffix = "Sats"
	return s
}

func TestFormatter_FormatSatoshis(t *testing.T) {
	f := NewFormatter(nil, nil)

	t.Run("Unavailable renders N/A without decoration", func(t *testing.T) {
		s := plainSettings()
		s.Icon = "bitcoin"
		if got := f.FormatSatoshis(domain.Unavailable(), s); got != "N/A" {
			t.Errorf("Expected N/A, got %q", got)
		}
	})

	t.Run("Zero has no icon or prefix", func(t *testing.T) {
		s := plainSettings()
		s.Icon = "bitcoin"
		if got := f.FormatSatoshis(domain.SatsOf(0), s); got != "0 Sats" {
			t.Errorf("Expected '0 Sats', got %q", got)
		}
	})

	t.Run("Grouping with prefix and suffix", func(t *testing.T) {
		if got := f.FormatSatoshis(domain.SatsOf(200000), plainSettings()); got != "~200,000 Sats" {
			t.Errorf("Expected '~200,000 Sats', got %q", got)
		}
	})

	t.Run("Compaction rounds to nearest thousand", func(t *testing.T) {
		s := domain.DisplaySettings{ThousandsCompaction: true, ThousandsSuffix: "K"}
		tests := map[int64]string{
			1500:    "2K",
			1499:    "1K",
			999:     "999",
			50000:   "50K",
			1234567: "1,235K",
		}
		for sats, want := range tests {
			if got := f.FormatSatoshis(domain.SatsOf(sats), s); got != want {
				t.Errorf("%d: expected %q, got %q", sats, want, got)
			}
		}
	})

	t.Run("Compaction keeps decoration", func(t *testing.T) {
		s := plainSettings()
		s.ThousandsCompaction = true
		if got := f.FormatSatoshis(domain.SatsOf(160000), s); got != "~160K Sats" {
			t.Errorf("Expected '~160K Sats', got %q", got)
		}
	})

	t.Run("Icon with color and animation", func(t *testing.T) {
		s := plainSettings()
		s.Icon = "Bitcoin"
		s.IconColor = "#f7931a"
		s.IconAnimation = "spin"
		want := `<i class="sats-icon sats-icon-bitcoin sats-anim-spin" style="color:#f7931a"></i> ~1,000 Sats`
		if got := f.FormatSatoshis(domain.SatsOf(1000), s); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("Safety: hostile decoration is neutralised", func(t *testing.T) {
		s := plainSettings()
		s.Icon = `x" onload="alert(1)`
		s.IconColor = `red;background:url(x)`
		s.Prefix = `<script>alert(1)</script>~`
		got := f.FormatSatoshis(domain.SatsOf(10), s)
		if strings.Contains(got, "<script") || strings.Contains(got, "onload=") || strings.Contains(got, "style=") {
			t.Errorf("Unsanitised output: %q", got)
		}
	})

	t.Run("Stored icon image", func(t *testing.T) {
		fi := NewFormatter(staticIcons{"btc": "/icons/btc.png"}, nil)
		s := plainSettings()
		s.Icon = "btc"
		want := `<img class="sats-icon sats-icon-btc" src="/icons/btc.png" alt=""> ~5 Sats`
		if got := fi.FormatSatoshis(domain.SatsOf(5), s); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("Deterministic across calls", func(t *testing.T) {
		fm := NewFormatter(nil, NewMemo(16))
		rate := domain.RateOf(decimal.NewFromInt(43210))
		amount := decimal.RequireFromString("77.77")
		first := fm.FormatSatoshis(ToSatoshis(amount, rate, 1), plainSettings())
		for i := 0; i < 5; i++ {
			if got := fm.FormatSatoshis(ToSatoshis(amount, rate, 1), plainSettings()); got != first {
				t.Fatalf("Call %d: %q != %q", i, got, first)
			}
		}
	})

	t.Run("Icon downloaded after first render", func(t *testing.T) {
		icons := staticIcons{}
		fm := NewFormatter(icons, NewMemo(16))
		s := plainSettings()
		s.Icon = "btc"

		before := fm.FormatSatoshis(domain.SatsOf(200000), s)
		if !strings.HasPrefix(before, "<i ") {
			t.Fatalf("Expected class icon fallback, got %q", before)
		}

		icons["btc"] = "/icons/btc.png"
		want := `<img class="sats-icon sats-icon-btc" src="/icons/btc.png" alt=""> ~200,000 Sats`
		if got := fm.FormatSatoshis(domain.SatsOf(200000), s); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})
}

func TestFormatter_FormatPrice(t *testing.T) {
	f := NewFormatter(nil, nil)
	const btc = "~200,000 Sats"
	const orig = "$100.00"

	t.Run("Bitcoin only", func(t *testing.T) {
		s := plainSettings()
		s.Mode = domain.ModeBitcoinOnly
		got := f.FormatPrice(orig, btc, s, domain.ShowBitcoin)
		want := `<span class="price-wrapper"><span class="bitcoin-price">~200,000 Sats</span></span>`
		if got.HTML != want {
			t.Errorf("Expected %q, got %q", want, got.HTML)
		}
	})

	t.Run("Empty original falls back to bitcoin only", func(t *testing.T) {
		s := plainSettings()
		s.Mode = domain.ModeBothPrices
		got := f.FormatPrice("", btc, s, domain.ShowBitcoin)
		if got.Mode != domain.ModeBitcoinOnly || strings.Contains(got.HTML, "original-price") {
			t.Errorf("Expected bitcoin only, got %+v", got)
		}
	})

	t.Run("Toggle emits both, hides the inactive one", func(t *testing.T) {
		s := plainSettings()
		s.Mode = domain.ModeToggle

		got := f.FormatPrice(orig, btc, s, domain.ShowBitcoin)
		want := `<span class="price-wrapper price-toggle" data-active="bitcoin">` +
			`<span class="original-price" hidden>$100.00</span>` +
			`<span class="bitcoin-price">~200,000 Sats</span></span>`
		if got.HTML != want {
			t.Errorf("Expected %q, got %q", want, got.HTML)
		}

		got = f.FormatPrice(orig, btc, s, domain.ShowOriginal)
		if !strings.Contains(got.HTML, `<span class="bitcoin-price" hidden>`) || got.Active != domain.ShowOriginal {
			t.Errorf("Expected bitcoin hidden, got %q", got.HTML)
		}
	})

	t.Run("Layouts", func(t *testing.T) {
		o := `<span class="original-price">$100.00</span>`
		b := `<span class="bitcoin-price">~200,000 Sats</span>`
		sep := `<span class="price-separator"> / </span>`
		tests := map[domain.Layout]string{
			domain.LayoutInlineBefore: b + sep + o,
			domain.LayoutInlineAfter:  o + sep + b,
			domain.LayoutStackedAbove: b + "<br>" + o,
			domain.LayoutStackedBelow: o + "<br>" + b,
		}
		for layout, inner := range tests {
			s := plainSettings()
			s.Mode = domain.ModeSideBySide
			s.Layout = layout
			got := f.FormatPrice(orig, btc, s, domain.ShowBitcoin)
			if !strings.HasSuffix(got.HTML, inner+"</span>") {
				t.Errorf("%s: expected inner %q, got %q", layout, inner, got.HTML)
			}
			if !strings.Contains(got.HTML, "price-side-by-side") {
				t.Errorf("%s: missing wrapper class in %q", layout, got.HTML)
			}
		}
	})

	t.Run("Original text is escaped", func(t *testing.T) {
		s := plainSettings()
		s.Mode = domain.ModeBothPrices
		got := f.FormatPrice("<b>$1</b>", btc, s, domain.ShowBitcoin)
		if strings.Contains(got.HTML, "<b>") {
			t.Errorf("Original should be escaped, got %q", got.HTML)
		}
	})

	t.Run("Unavailable embedded per mode", func(t *testing.T) {
		for _, mode := range []domain.DisplayMode{domain.ModeToggle, domain.ModeBitcoinOnly, domain.ModeBothPrices, domain.ModeSideBySide} {
			s := plainSettings()
			s.Mode = mode
			bitcoin := f.FormatSatoshis(ToSatoshis(decimal.NewFromInt(100), domain.NoRate(), 1), s)
			got := f.FormatPrice(orig, bitcoin, s, domain.ShowBitcoin)
			if !strings.Contains(got.HTML, `<span class="bitcoin-price">N/A</span>`) {
				t.Errorf("%s: expected N/A embedded, got %q", mode, got.HTML)
			}
		}
	})
}

func TestFormatter_FormatRange(t *testing.T) {
	f := NewFormatter(nil, nil)
	r := PriceRange{
		MinOriginal: "$10.00",
		MaxOriginal: "$50.00",
		MinBitcoin:  "~20,000 Sats",
		MaxBitcoin:  "~100,000 Sats",
	}

	t.Run("Equal ends render once", func(t *testing.T) {
		eq := r
		eq.Equal = true
		got := f.FormatRange(eq, plainSettings(), domain.ShowBitcoin)
		if got.Bitcoin != "~20,000 Sats" || got.Original != "$10.00" {
			t.Errorf("Expected single price, got %+v", got)
		}
	})

	t.Run("Both policy", func(t *testing.T) {
		s := plainSettings()
		s.RangePolicy = domain.RangeBoth
		got := f.FormatRange(r, s, domain.ShowBitcoin)
		if got.Bitcoin != "~20,000 Sats - ~100,000 Sats" || got.Original != "$10.00 - $50.00" {
			t.Errorf("Unexpected range %+v", got)
		}
	})

	t.Run("Lowest policy", func(t *testing.T) {
		s := plainSettings()
		s.RangePolicy = domain.RangeLowest
		got := f.FormatRange(r, s, domain.ShowBitcoin)
		if got.Bitcoin != "~20,000 Sats+" || got.Original != "$10.00+" {
			t.Errorf("Unexpected range %+v", got)
		}
	})

	t.Run("Unavailable end collapses to N/A", func(t *testing.T) {
		na := r
		na.MaxBitcoin = domain.NotAvailable
		got := f.FormatRange(na, plainSettings(), domain.ShowBitcoin)
		if got.Bitcoin != domain.NotAvailable {
			t.Errorf("Expected N/A, got %q", got.Bitcoin)
		}
	})
}

func TestFormatter_PlainText(t *testing.T) {
	f := NewFormatter(nil, nil)
	s := plainSettings()
	s.Icon = "bitcoin"
	got := f.PlainText(f.FormatSatoshis(domain.SatsOf(1234), s))
	if got != "~1,234 Sats" {
		t.Errorf("Expected '~1,234 Sats', got %q", got)
	}
}
