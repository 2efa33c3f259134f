package engine

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"sats_display/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var (
	thousand   = decimal.NewFromInt(1000)
	cssColorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20})$`)
)

// IconResolver maps an icon id to a served image, if one exists.
type IconResolver interface {
	IconURL(id string) (string, bool)
}

// Formatter renders satoshi amounts and combined price fragments.
// It holds no per-request state; settings are passed on every call.
type Formatter struct {
	policy *bluemonday.Policy
	icons  IconResolver
	memo   *Memo
}

// NewFormatter creates a formatter. icons and memo may be nil.
func NewFormatter(icons IconResolver, memo *Memo) *Formatter {
	return &Formatter{
		policy: bluemonday.StrictPolicy(),
		icons:  icons,
		memo:   memo,
	}
}

// FormatSatoshis renders sats with icon, prefix and suffix decoration.
func (f *Formatter) FormatSatoshis(sats domain.Sats, s domain.DisplaySettings) string {
	if !sats.Available {
		return domain.NotAvailable
	}
	// The icon markup depends on which icon files exist, so it is resolved
	// before the lookup and becomes part of the key.
	icon := f.iconMarkup(s)
	key := fmt.Sprintf("sats|%d|%s|%+v", sats.Value, icon, s)
	return f.memo.Do(key, func() string {
		return f.formatSatoshis(sats.Value, icon, s)
	})
}

func (f *Formatter) formatSatoshis(v int64, icon string, s domain.DisplaySettings) string {
	suffix := f.clean(s.Suffix)
	if v == 0 {
		return strings.TrimSpace("0 " + suffix)
	}

	var b strings.Builder
	if icon != "" {
		b.WriteString(icon)
		b.WriteByte(' ')
	}
	b.WriteString(f.clean(s.Prefix))
	b.WriteString(f.number(v, s))
	if suffix != "" {
		b.WriteByte(' ')
		b.WriteString(suffix)
	}
	return b.String()
}

// number applies thousands compaction (rounded to the nearest thousand, never
// truncated) or digit grouping.
func (f *Formatter) number(v int64, s domain.DisplaySettings) string {
	if s.ThousandsCompaction && v >= 1000 {
		k := decimal.NewFromInt(v).Div(thousand).Round(0).IntPart()
		return humanize.Comma(k) + f.clean(s.ThousandsSuffix)
	}
	return humanize.Comma(v)
}

func (f *Formatter) iconMarkup(s domain.DisplaySettings) string {
	id := sanitizeToken(s.Icon)
	if id == "" {
		return ""
	}

	classes := "sats-icon sats-icon-" + id
	if anim := sanitizeToken(s.IconAnimation); anim != "" {
		classes += " sats-anim-" + anim
	}
	style := ""
	if cssColorRe.MatchString(s.IconColor) {
		style = ` style="color:` + s.IconColor + `"`
	}

	if f.icons != nil {
		if src, ok := f.icons.IconURL(id); ok {
			return `<img class="` + classes + `" src="` + html.EscapeString(src) + `" alt=""` + style + `>`
		}
	}
	return `<i class="` + classes + `"` + style + `></i>`
}

func (f *Formatter) clean(s string) string {
	return strings.TrimSpace(f.policy.Sanitize(s))
}

// PlainText strips markup such as icons from a rendered fragment.
func (f *Formatter) PlainText(s string) string {
	return html.UnescapeString(strings.TrimSpace(f.policy.Sanitize(s)))
}

// FormatPrice combines the caller-rendered original price with the bitcoin
// string per display mode. original is treated as text and escaped; bitcoin is
// trusted output of FormatSatoshis. An empty original always renders bitcoin only.
func (f *Formatter) FormatPrice(original, bitcoin string, s domain.DisplaySettings, active domain.ActiveDisplay) domain.FormattedPrice {
	out := domain.FormattedPrice{Original: original, Bitcoin: bitcoin, Mode: s.Mode}
	orig := `<span class="original-price">` + html.EscapeString(original) + `</span>`
	btc := `<span class="bitcoin-price">` + bitcoin + `</span>`

	if original == "" || s.Mode == domain.ModeBitcoinOnly {
		out.Mode = domain.ModeBitcoinOnly
		out.HTML = `<span class="price-wrapper">` + btc + `</span>`
		return out
	}

	switch s.Mode {
	case domain.ModeToggle:
		out.Active = active
		if active == domain.ShowOriginal {
			btc = `<span class="bitcoin-price" hidden>` + bitcoin + `</span>`
		} else {
			out.Active = domain.ShowBitcoin
			orig = `<span class="original-price" hidden>` + html.EscapeString(original) + `</span>`
		}
		out.HTML = `<span class="price-wrapper price-toggle" data-active="` + string(out.Active) + `">` + orig + btc + `</span>`
	default:
		wrapper := "price-both"
		if s.Mode == domain.ModeSideBySide {
			wrapper = "price-side-by-side"
		}
		out.HTML = `<span class="price-wrapper ` + wrapper + ` layout-` + strings.ReplaceAll(string(s.Layout), "_", "-") + `">` +
			arrange(orig, btc, s.Layout) + `</span>`
	}
	return out
}

func arrange(orig, btc string, layout domain.Layout) string {
	const inline = `<span class="price-separator"> / </span>`
	const stacked = `<br>`
	switch layout {
	case domain.LayoutInlineBefore:
		return btc + inline + orig
	case domain.LayoutStackedAbove:
		return btc + stacked + orig
	case domain.LayoutStackedBelow:
		return orig + stacked + btc
	default:
		return orig + inline + btc
	}
}

// PriceRange holds both ends of a spread, already rendered.
type PriceRange struct {
	MinOriginal string
	MaxOriginal string
	MinBitcoin  string
	MaxBitcoin  string
	Equal       bool
}

// FormatRange renders a min/max spread per the range policy.
func (f *Formatter) FormatRange(r PriceRange, s domain.DisplaySettings, active domain.ActiveDisplay) domain.FormattedPrice {
	if r.Equal {
		return f.FormatPrice(r.MinOriginal, r.MinBitcoin, s, active)
	}

	unavailable := r.MinBitcoin == domain.NotAvailable || r.MaxBitcoin == domain.NotAvailable
	var original, bitcoin string
	switch s.RangePolicy {
	case domain.RangeLowest:
		original = plus(r.MinOriginal)
		bitcoin = r.MinBitcoin + "+"
	default:
		original = span(r.MinOriginal, r.MaxOriginal)
		bitcoin = r.MinBitcoin + " - " + r.MaxBitcoin
	}
	if unavailable {
		bitcoin = domain.NotAvailable
	}
	return f.FormatPrice(original, bitcoin, s, active)
}

func plus(s string) string {
	if s == "" {
		return ""
	}
	return s + "+"
}

func span(lo, hi string) string {
	if lo == "" || hi == "" {
		return ""
	}
	return lo + " - " + hi
}

// sanitizeToken keeps characters safe inside a CSS class name.
func sanitizeToken(s string) string {
	res := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			res = append(res, r)
		}
	}
	return string(res)
}
