package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"watchface-scraper/internal/types"
)

// RodClient renders pages through a rod-controlled Chrome with stealth
// evasions applied to its single page.
type RodClient struct {
	config *types.Config
	logger types.Logger

	launcher      *launcher.Launcher
	browser       *rod.Browser
	page          *rod.Page
	removeHeaders func()
}

// NewRodClient creates a rod renderer; Start launches the browser
func NewRodClient(config *types.Config, logger types.Logger) *RodClient {
	return &RodClient{
		config: config,
		logger: logger,
	}
}

// Start launches Chrome and opens a stealth page
func (r *RodClient) Start(ctx context.Context) error {
	if r.browser != nil {
		return errors.New("browser already started")
	}

	l := launcher.New().
		Headless(r.config.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("failed to connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return fmt.Errorf("failed to open stealth page: %w", err)
	}

	if ua := strings.TrimSpace(r.config.UserAgent); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			r.logger.Warnf("Failed to set user agent: %v", err)
		}
	}
	if r.config.ViewportWidth > 0 && r.config.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             r.config.ViewportWidth,
			Height:            r.config.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			r.logger.Warnf("Failed to set viewport: %v", err)
		}
	}
	if len(r.config.ExtraHeaders) > 0 {
		dict := make([]string, 0, len(r.config.ExtraHeaders)*2)
		for k, v := range r.config.ExtraHeaders {
			dict = append(dict, k, v)
		}
		remove, err := page.SetExtraHeaders(dict)
		if err != nil {
			r.logger.Warnf("Failed to set extra headers: %v", err)
		} else {
			r.removeHeaders = remove
		}
	}

	r.launcher = l
	r.browser = browser
	r.page = page
	r.logger.Debugf("Rod stealth session started (headless=%v)", r.config.Headless)
	return nil
}

// Render navigates the stealth page to url and returns the rendered DOM
func (r *RodClient) Render(ctx context.Context, url string) (*Document, error) {
	if r.page == nil {
		return nil, errors.New("browser not started")
	}

	page := r.page.Context(ctx).Timeout(r.config.NavigationTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for load: %w", err)
	}

	if sel := strings.Join(r.config.ContentWaitSelectors, ", "); sel != "" {
		if _, err := r.page.Context(ctx).Timeout(r.config.ReadyTimeout).Element(sel); err != nil {
			r.logger.Warnf("No %s elements found on %s, extracting anyway", sel, url)
		}
	}

	if _, err := page.Eval(`() => ` + annotateImagesJS); err != nil {
		r.logger.Debugf("Failed to annotate image sizes on %s: %v", url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}

	location, title := url, ""
	if info, err := page.Info(); err == nil {
		if info.URL != "" {
			location = info.URL
		}
		title = info.Title
	}

	r.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", location, len(html))
	doc, err := NewDocument(location, html)
	if err != nil {
		return nil, err
	}
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

// Snapshot captures the current page for diagnostics
func (r *RodClient) Snapshot(ctx context.Context, withScreenshot bool) (*Snapshot, error) {
	if r.page == nil {
		return nil, errors.New("browser not started")
	}
	page := r.page.Context(ctx).Timeout(10 * time.Second)
	defer page.CancelTimeout()

	snap := &Snapshot{}
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page info: %w", err)
	}
	snap.URL, snap.Title = info.URL, info.Title

	if snap.HTML, err = page.HTML(); err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}
	if withScreenshot {
		if snap.Screenshot, err = page.Screenshot(false, nil); err != nil {
			r.logger.Warnf("Failed to capture screenshot: %v", err)
		}
	}
	return snap, nil
}

// Close shuts the page, the browser and the launched process down
func (r *RodClient) Close() error {
	var errs []error
	if r.removeHeaders != nil {
		r.removeHeaders()
		r.removeHeaders = nil
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		r.browser = nil
		r.page = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher = nil
	}
	return errors.Join(errs...)
}
