package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *Storage {
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestSaveAndLoadSettings(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	// 1. Empty
	values, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty settings, got %v", values)
	}

	// 2. Save
	err = s.SaveSettings(ctx, map[string]string{
		"rounding":         "100",
		"discount_percent": "20",
	})
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	// 3. Load
	values, err = s.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if values["rounding"] != "100" || values["discount_percent"] != "20" {
		t.Errorf("unexpected settings %v", values)
	}
}

func TestSaveSettings_Overwrite(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	s.SaveSettings(ctx, map[string]string{"suffix": "Sats"})
	if err := s.SaveSettings(ctx, map[string]string{"suffix": "sat"}); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	values, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if len(values) != 1 || values["suffix"] != "sat" {
		t.Errorf("expected single 'sat' row, got %v", values)
	}
}

func TestLoadSettings_Empty(t *testing.T) {
	s := setupTestDB(t)

	values, err := s.LoadSettings(context.Background())
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if _, ok := values["missing"]; ok {
		t.Error("expected missing key")
	}
}

func TestDeleteSettings(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	s.SaveSettings(ctx, map[string]string{"prefix": "~", "suffix": "Sats"})
	if err := s.DeleteSettings(ctx, "prefix"); err != nil {
		t.Fatalf("DeleteSettings failed: %v", err)
	}

	values, _ := s.LoadSettings(ctx)
	if _, ok := values["prefix"]; ok {
		t.Error("prefix should be deleted")
	}
	if values["suffix"] != "Sats" {
		t.Error("suffix should remain")
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s1, err := NewStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	s1.SaveSettings(ctx, map[string]string{"display_mode": "bitcoin_only"})
	s1.Close()

	s2, err := NewStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	values, _ := s2.LoadSettings(ctx)
	if v := values["display_mode"]; v != "bitcoin_only" {
		t.Errorf("expected bitcoin_only after reopen, got %q", v)
	}
}
