package domain

import (
	"fmt"
)

// DisplayMode is the presentation strategy for original vs bitcoin prices.
type DisplayMode string

const (
	ModeToggle      DisplayMode = "toggle"
	ModeBitcoinOnly DisplayMode = "bitcoin_only"
	ModeBothPrices  DisplayMode = "both_prices"
	ModeSideBySide  DisplayMode = "side_by_side"
)

// Layout arranges the two representations in the combined modes.
type Layout string

const (
	LayoutInlineBefore Layout = "inline_before" // bitcoin / original
	LayoutInlineAfter  Layout = "inline_after"  // original / bitcoin
	LayoutStackedAbove Layout = "stacked_above" // bitcoin over original
	LayoutStackedBelow Layout = "stacked_below" // original over bitcoin
)

// RangePolicy controls how a min/max spread is shown.
type RangePolicy string

const (
	RangeBoth   RangePolicy = "both"   // "min - max"
	RangeLowest RangePolicy = "lowest" // "min+"
)

// ActiveDisplay is the visitor's current toggle selection.
type ActiveDisplay string

const (
	ShowBitcoin  ActiveDisplay = "bitcoin"
	ShowOriginal ActiveDisplay = "original"
)

// Flip returns the other toggle selection.
func (a ActiveDisplay) Flip() ActiveDisplay {
	if a == ShowOriginal {
		return ShowBitcoin
	}
	return ShowOriginal
}

// ParseActiveDisplay falls back to ShowBitcoin for anything unrecognized.
func ParseActiveDisplay(s string) ActiveDisplay {
	if ActiveDisplay(s) == ShowOriginal {
		return ShowOriginal
	}
	return ShowBitcoin
}

// Rounding is the satoshi bucket results are rounded to.
type Rounding int64

// Valid reports whether r is one of 1, 10, 100 or 1000.
func (r Rounding) Valid() bool {
	switch r {
	case 1, 10, 100, 1000:
		return true
	}
	return false
}

// Exponent returns k such that r == 10^k, i.e. digit count minus one.
func (r Rounding) Exponent() int32 {
	return int32(len(fmt.Sprint(int64(r))) - 1)
}

// DisplaySettings is the read-only presentation configuration for one request.
type DisplaySettings struct {
	Mode                DisplayMode `json:"display_mode" yaml:"display_mode"`
	Rounding            Rounding    `json:"rounding" yaml:"rounding"`
	ThousandsCompaction bool        `json:"thousands_compaction" yaml:"thousands_compaction"`
	ThousandsSuffix     string      `json:"thousands_suffix" yaml:"thousands_suffix"`
	RangePolicy         RangePolicy `json:"range_policy" yaml:"range_policy"`
	Prefix              string      `json:"prefix" yaml:"prefix"`
	Suffix              string      `json:"suffix" yaml:"suffix"`
	Icon                string      `json:"icon" yaml:"icon"`
	IconColor           string      `json:"icon_color" yaml:"icon_color"`
	IconAnimation       string      `json:"icon_animation" yaml:"icon_animation"`
	Layout              Layout      `json:"layout" yaml:"layout"`
}

// DefaultDisplaySettings mirrors a fresh install.
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		Mode:            ModeToggle,
		Rounding:        1000,
		ThousandsSuffix: "K",
		RangePolicy:     RangeBoth,
		Prefix:          "~",
		Suffix:          "Sats",
		Layout:          LayoutInlineAfter,
	}
}

// Validate checks every enumerated field.
func (s DisplaySettings) Validate() error {
	switch s.Mode {
	case ModeToggle, ModeBitcoinOnly, ModeBothPrices, ModeSideBySide:
	default:
		return &ConfigError{Field: "display_mode", Err: fmt.Errorf("%w: %q", ErrInvalidSetting, s.Mode)}
	}
	if !s.Rounding.Valid() {
		return &ConfigError{Field: "rounding", Err: fmt.Errorf("%w: %d", ErrInvalidRounding, s.Rounding)}
	}
	switch s.RangePolicy {
	case RangeBoth, RangeLowest:
	default:
		return &ConfigError{Field: "range_policy", Err: fmt.Errorf("%w: %q", ErrInvalidSetting, s.RangePolicy)}
	}
	switch s.Layout {
	case LayoutInlineBefore, LayoutInlineAfter, LayoutStackedAbove, LayoutStackedBelow:
	default:
		return &ConfigError{Field: "layout", Err: fmt.Errorf("%w: %q", ErrInvalidSetting, s.Layout)}
	}
	return nil
}
