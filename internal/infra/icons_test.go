package infra

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 247, G: 147, B: 26, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestIconStore_Download(t *testing.T) {
	body := pngBytes(t, 64, 64)
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer server.Close()

	store, err := NewIconStore(t.TempDir(), 16, map[string]string{"bitcoin": server.URL + "/btc.png"})
	if err != nil {
		t.Fatalf("NewIconStore failed: %v", err)
	}

	if _, ok := store.IconURL("bitcoin"); ok {
		t.Error("Icon should not resolve before download")
	}

	if n := store.EnsureAll(context.Background()); n != 1 {
		t.Fatalf("Expected 1 icon stored, got %d", n)
	}

	img, err := imaging.Open(store.Path("bitcoin"))
	if err != nil {
		t.Fatalf("Open stored icon: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 16, 16) {
		t.Errorf("Expected 16x16, got %v", img.Bounds())
	}

	url, ok := store.IconURL("Bitcoin")
	if !ok || url != "/icons/bitcoin.png" {
		t.Errorf("Expected /icons/bitcoin.png, got %q (%v)", url, ok)
	}

	// Second run is a cache hit
	store.EnsureAll(context.Background())
	if calls != 1 {
		t.Errorf("Expected 1 download, got %d", calls)
	}
}

func TestIconStore_BadSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store, err := NewIconStore(t.TempDir(), 16, map[string]string{"gone": server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if n := store.EnsureAll(context.Background()); n != 0 {
		t.Errorf("Expected 0 icons stored, got %d", n)
	}
}

func TestIconStore_EnsureAllConcurrencyLimit(t *testing.T) {
	body := pngBytes(t, 8, 8)
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Write(body)
	}))
	defer server.Close()

	sources := map[string]string{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		sources[id] = server.URL + "/" + id + ".png"
	}
	store, err := NewIconStore(t.TempDir(), 16, sources)
	if err != nil {
		t.Fatal(err)
	}

	if n := store.EnsureAll(context.Background()); n != len(sources) {
		t.Errorf("Expected %d icons stored, got %d", len(sources), n)
	}
	if p := peak.Load(); p > 4 {
		t.Errorf("Expected at most 4 concurrent downloads, got %d", p)
	}
}

func TestIconStore_EnsureAllCanceled(t *testing.T) {
	store, err := NewIconStore(t.TempDir(), 16, map[string]string{"a": "http://127.0.0.1:1/a.png"})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := store.EnsureAll(ctx); n != 0 {
		t.Errorf("Expected 0 icons stored, got %d", n)
	}
}

func TestSanitizeIconID(t *testing.T) {
	tests := map[string]string{
		"bitcoin":       "bitcoin",
		"../etc/passwd": "etcpasswd",
		"Sats_Icon-2":   "sats_icon-2",
		"":              "",
	}
	for in, want := range tests {
		if got := sanitizeIconID(in); got != want {
			t.Errorf("sanitizeIconID(%q): expected %q, got %q", in, want, got)
		}
	}
}
