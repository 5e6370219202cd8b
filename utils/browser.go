package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"watchface-scraper/internal/types"
)

// BrowserClient provides headless browser functionality over a single tab
// that lives for the whole run.
type BrowserClient struct {
	config *types.Config
	logger types.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// Start launches Chrome and prepares the tab with the configured identity
func (b *BrowserClient) Start(ctx context.Context) error {
	if b.tabCtx != nil {
		return errors.New("browser already started")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if ua := strings.TrimSpace(b.config.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}

	// The session outlives the caller's start context; Close releases it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	actions := []chromedp.Action{network.Enable()}
	if len(b.config.ExtraHeaders) > 0 {
		headers := network.Headers{}
		for k, v := range b.config.ExtraHeaders {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if b.config.ViewportWidth > 0 && b.config.ViewportHeight > 0 {
		actions = append(actions, emulation.SetDeviceMetricsOverride(
			int64(b.config.ViewportWidth), int64(b.config.ViewportHeight), 1, false))
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.tabCtx = tabCtx
	b.tabCancel = tabCancel
	b.logger.Debugf("Browser session started (headless=%v, viewport=%dx%d)", b.config.Headless, b.config.ViewportWidth, b.config.ViewportHeight)
	return nil
}

// Render navigates the tab to url and returns the rendered DOM
func (b *BrowserClient) Render(ctx context.Context, url string) (*Document, error) {
	if b.tabCtx == nil {
		return nil, errors.New("browser not started")
	}

	navCtx, cancel := context.WithTimeout(b.tabCtx, b.config.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	// Readiness is advisory: extraction runs on whatever has rendered.
	if sel := strings.Join(b.config.ContentWaitSelectors, ", "); sel != "" {
		waitCtx, waitCancel := context.WithTimeout(navCtx, b.config.ReadyTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			b.logger.Warnf("No %s elements found on %s, extracting anyway", sel, url)
		}
	}

	var html, location, title string
	err := chromedp.Run(navCtx,
		chromedp.Evaluate(annotateImagesJS, nil),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.Title(&title),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}
	if location == "" {
		location = url
	}

	b.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", location, len(html))
	doc, err := NewDocument(location, html)
	if err != nil {
		return nil, err
	}
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

// Snapshot captures the title, DOM and optionally a screenshot of the current tab
func (b *BrowserClient) Snapshot(ctx context.Context, withScreenshot bool) (*Snapshot, error) {
	if b.tabCtx == nil {
		return nil, errors.New("browser not started")
	}
	snapCtx, cancel := context.WithTimeout(b.tabCtx, 10*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	snap := &Snapshot{}
	actions := []chromedp.Action{
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	}
	if withScreenshot {
		actions = append(actions, chromedp.CaptureScreenshot(&snap.Screenshot))
	}
	if err := chromedp.Run(snapCtx, actions...); err != nil {
		return nil, fmt.Errorf("failed to capture snapshot: %w", err)
	}
	return snap, nil
}

// Close shuts the tab and the browser process down
func (b *BrowserClient) Close() error {
	if b.tabCancel != nil {
		b.tabCancel()
		b.tabCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.tabCtx = nil
	return nil
}
