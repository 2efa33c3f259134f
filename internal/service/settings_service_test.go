package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
)

func testDefaults() Settings {
	return Settings{
		Credentials: testCreds,
		Currency:    "USD",
		Discount:    decimal.Zero,
		Display:     domain.DefaultDisplaySettings(),
	}
}

func newTestSettings(t *testing.T) (*SettingsService, *memRepo, *stubProvider) {
	t.Helper()
	p := &stubProvider{}
	p.set(50000, nil)
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	rates := newTestRateService(p, clock, 0)
	repo := newMemRepo()
	svc := NewSettingsService(repo, rates, testDefaults(), nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return svc, repo, p
}

func TestSettingsService_Update(t *testing.T) {
	svc, repo, _ := newTestSettings(t)

	got, err := svc.Update(context.Background(), map[string]string{
		KeyRounding:            "100",
		KeyThousandsCompaction: "on",
		KeyDisplayMode:         "side_by_side",
		KeyCurrency:            "eur",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if got.Display.Rounding != 100 || !got.Display.ThousandsCompaction || got.Display.Mode != domain.ModeSideBySide {
		t.Errorf("Unexpected display %+v", got.Display)
	}
	if got.Currency != "EUR" {
		t.Errorf("Expected EUR, got %s", got.Currency)
	}
	if repo.values[KeyThousandsCompaction] != "true" || repo.values[KeyCurrency] != "EUR" {
		t.Errorf("Expected normalized values persisted, got %v", repo.values)
	}
}

func TestSettingsService_UpdateIsAtomic(t *testing.T) {
	svc, repo, _ := newTestSettings(t)
	before := svc.Current()

	_, err := svc.Update(context.Background(), map[string]string{
		KeySuffix:   "sat",
		KeyRounding: "7",
	})
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "rounding" {
		t.Fatalf("Expected rounding ConfigError, got %v", err)
	}
	if svc.Current() != before {
		t.Error("Rejected update must not change settings")
	}
	if len(repo.values) != 0 {
		t.Errorf("Rejected update must not persist, got %v", repo.values)
	}
}

func TestSettingsService_Validation(t *testing.T) {
	tests := map[string]string{
		KeyDiscount:            "101",
		KeyCurrency:            "dollars",
		KeyThousandsCompaction: "maybe",
		KeyLayout:              "diagonal",
		"unknown_key":          "x",
	}
	for key, value := range tests {
		svc, _, _ := newTestSettings(t)
		if _, err := svc.Update(context.Background(), map[string]string{key: value}); err == nil {
			t.Errorf("%s=%q: expected error", key, value)
		}
	}
}

func TestSettingsService_Invalidation(t *testing.T) {
	svc, _, p := newTestSettings(t)
	ctx := context.Background()
	rates := svc.rates

	rates.GetRate(ctx, rates.Pair())

	// Discount applies immediately without refetching
	if _, err := svc.Update(ctx, map[string]string{KeyDiscount: "20"}); err != nil {
		t.Fatal(err)
	}
	rate, _ := rates.GetRate(ctx, rates.Pair())
	if !rate.Equal(decimal.NewFromInt(62500)) {
		t.Errorf("Expected 62500, got %s", rate)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("Discount change should not refetch, got %d calls", got)
	}

	// Credential change invalidates
	if _, err := svc.Update(ctx, map[string]string{KeyAPIKey: "new-key"}); err != nil {
		t.Fatal(err)
	}
	rates.GetRate(ctx, rates.Pair())
	if got := p.calls.Load(); got != 2 {
		t.Errorf("Credential change should refetch, got %d calls", got)
	}
}

func TestSettingsService_LoadSkipsInvalid(t *testing.T) {
	p := &stubProvider{}
	rates := newTestRateService(p, &testClock{t: time.Unix(0, 0)}, 0)
	repo := newMemRepo()
	repo.values[KeyRounding] = "3"
	repo.values[KeySuffix] = "sat"

	svc := NewSettingsService(repo, rates, testDefaults(), nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	d := svc.Display()
	if d.Rounding != 1000 {
		t.Errorf("Invalid stored rounding should be ignored, got %d", d.Rounding)
	}
	if d.Suffix != "sat" {
		t.Errorf("Expected stored suffix, got %q", d.Suffix)
	}
}

func TestSettingsService_Reset(t *testing.T) {
	svc, _, _ := newTestSettings(t)
	ctx := context.Background()

	svc.Update(ctx, map[string]string{KeyPrefix: "≈"})
	if err := svc.Reset(ctx, KeyPrefix); err != nil {
		t.Fatal(err)
	}
	if got := svc.Display().Prefix; got != "~" {
		t.Errorf("Expected default prefix, got %q", got)
	}

	if err := svc.Reset(ctx, "nope"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestSettingsService_ConcurrentUpdates(t *testing.T) {
	svc, repo, _ := newTestSettings(t)
	ctx := context.Background()

	updates := []map[string]string{
		{KeyPrefix: "≈"},
		{KeySuffix: "sat"},
		{KeyRounding: "10"},
		{KeyThousandsSuffix: "k"},
		{KeyDisplayMode: "side_by_side"},
		{KeyIcon: "btc"},
	}

	var wg sync.WaitGroup
	for _, u := range updates {
		wg.Add(1)
		go func(u map[string]string) {
			defer wg.Done()
			if _, err := svc.Update(ctx, u); err != nil {
				t.Errorf("Update %v failed: %v", u, err)
			}
		}(u)
	}
	wg.Wait()

	values := svc.Current().Values()
	for _, u := range updates {
		for k, v := range u {
			if values[k] != v {
				t.Errorf("Expected %s=%s in memory, got %q", k, v, values[k])
			}
			if repo.values[k] != v {
				t.Errorf("Expected %s=%s persisted, got %q", k, v, repo.values[k])
			}
		}
	}
}

func TestSettings_ValuesMasksKey(t *testing.T) {
	svc, _, _ := newTestSettings(t)
	values := svc.Current().Values()
	if values[KeyAPIKey] != maskedSecret {
		t.Errorf("Expected masked key, got %q", values[KeyAPIKey])
	}

	// Echoing the mask back keeps the stored key
	got, err := svc.Update(context.Background(), values)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Credentials.APIKey != testCreds.APIKey {
		t.Errorf("Expected key kept, got %q", got.Credentials.APIKey)
	}
}
