package utils

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"watchface-scraper/internal/types"
)

// PageFetcher wraps a Renderer with retries, backoff and failure diagnostics
type PageFetcher struct {
	renderer Renderer
	config   *types.Config
	logger   types.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPageFetcher creates a fetcher over renderer
func NewPageFetcher(renderer Renderer, config *types.Config, logger types.Logger) *PageFetcher {
	return &PageFetcher{
		renderer: renderer,
		config:   config,
		logger:   logger,
		sleep:    Sleep,
		now:      time.Now,
	}
}

// Fetch renders url, retrying up to maxRetries times. Attempt n that fails
// is followed by a pause of n*RetryBackoff before the next one. After the
// last failure the current page is inspected for diagnostics and a
// *types.FetchError is returned.
func (f *PageFetcher) Fetch(ctx context.Context, url string, maxRetries int) (*Document, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts = attempt
		entry := f.logger.WithFields(logrus.Fields{"url": url, "attempt": attempt})
		entry.Infof("Scraping page (attempt %d/%d)", attempt, maxRetries)

		doc, err := f.renderer.Render(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		entry.Warnf("Attempt %d failed: %v", attempt, err)

		if attempt == maxRetries {
			break
		}
		if err := f.sleep(ctx, time.Duration(attempt)*f.config.RetryBackoff); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	if f.Diagnose(ctx, url) {
		lastErr = errors.Join(lastErr, types.ErrBlocked)
	}
	return nil, &types.FetchError{URL: url, Attempts: attempts, Err: lastErr}
}

// Diagnose logs what the renderer currently shows and, when debug capture is
// enabled, writes it to disk. It reports whether blocking markers were seen.
// Failures here are logged and never returned.
func (f *PageFetcher) Diagnose(ctx context.Context, url string) bool {
	entry := f.logger.WithField("url", url)

	snap, err := f.renderer.Snapshot(ctx, f.config.DebugCaptureEnabled)
	if err != nil {
		entry.Errorf("Could not get debug info: %v", err)
		return false
	}

	entry.Errorf("Page title: %s", snap.Title)
	entry.Errorf("Page content length: %d", len(snap.HTML))

	markers := DetectBlocking(snap.HTML)
	if len(markers) > 0 {
		entry.WithField("markers", markers).Error("Detected potential blocking or anti-bot protection")
	}

	if f.config.DebugCaptureEnabled {
		paths, err := WriteDebugCapture(f.config.DebugDir, snap, f.now())
		if err != nil {
			entry.Warnf("Failed to write debug capture: %v", err)
		} else {
			entry.Infof("Debug capture written: %v", paths)
		}
	}
	return len(markers) > 0
}
