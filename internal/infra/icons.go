package infra

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
)

// IconStore downloads and caches the small images that can decorate a sats amount.
// Icons are addressed by id and served from {dir}/{id}.png.
type IconStore struct {
	dir       string
	sizePx    int
	sources   map[string]string
	urlPrefix string
	client    *http.Client
}

// NewIconStore creates the icon directory if needed.
func NewIconStore(dir string, sizePx int, sources map[string]string) (*IconStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icon directory: %w", err)
	}
	if sizePx <= 0 {
		sizePx = 16
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.MaxConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second

	return &IconStore{
		dir:       dir,
		sizePx:    sizePx,
		sources:   sources,
		urlPrefix: "/icons/",
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Dir returns the directory icons are stored in.
func (s *IconStore) Dir() string {
	return s.dir
}

// EnsureAll downloads every configured icon that is not on disk yet, at most
// four at a time. Failures are logged and skipped; a missing icon falls back to
// the CSS class. Returns the number of icons available on disk.
func (s *IconStore) EnsureAll(ctx context.Context) int {
	var (
		wg     sync.WaitGroup
		stored atomic.Int32
	)
	semaphore := make(chan struct{}, 4) // Limit concurrent downloads

	for id, src := range s.sources {
		wg.Add(1)
		go func(id, src string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			if _, err := s.Download(ctx, id, src); err != nil {
				slog.Warn("Icon download failed", slog.String("icon", id), slog.Any("error", err))
				return
			}
			stored.Add(1)
		}(id, src)
	}

	wg.Wait()
	return int(stored.Load())
}

// Download fetches src, resizes it to a square of sizePx and stores it as {id}.png.
// Returns the local file path on success.
func (s *IconStore) Download(ctx context.Context, id, src string) (string, error) {
	// Security: Sanitize id to prevent path traversal
	safeID := sanitizeIconID(id)
	if safeID == "" {
		return "", fmt.Errorf("invalid icon id: %q", id)
	}

	filePath := s.Path(safeID)

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Resize(srcImg, s.sizePx, s.sizePx, imaging.Lanczos)

	if err := imaging.Save(resized, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// Path returns the local path for an icon id.
func (s *IconStore) Path(id string) string {
	return filepath.Join(s.dir, sanitizeIconID(id)+".png")
}

// IconURL implements engine.IconResolver. It only reports icons present on disk.
func (s *IconStore) IconURL(id string) (string, bool) {
	safeID := sanitizeIconID(id)
	if safeID == "" {
		return "", false
	}
	if _, err := os.Stat(s.Path(safeID)); err != nil {
		return "", false
	}
	return s.urlPrefix + safeID + ".png", true
}

func sanitizeIconID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			res = append(res, r)
		}
	}
	return string(res)
}
