package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"watchface-scraper/internal/types"
)

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 5 * 1024 * 1024

// HTTPClient renders pages with plain HTTP requests. It does not execute
// JavaScript, so it only suits listings that are server-rendered.
type HTTPClient struct {
	client *http.Client
	config *types.Config
	logger types.Logger

	mu   sync.Mutex
	last *Snapshot
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: config.NavigationTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPClient{
		client: client,
		config: config,
		logger: logger,
	}
}

// Start is a no-op; the transport connects lazily
func (h *HTTPClient) Start(ctx context.Context) error {
	return nil
}

// Render performs a single GET request and parses the body
func (h *HTTPClient) Render(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	for k, v := range h.config.ExtraHeaders {
		req.Header.Set(k, v)
	}

	h.logger.Debugf("Making request to %s", url)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	doc, parseErr := NewDocument(finalURL, string(body))
	h.remember(finalURL, string(body), doc)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	h.logger.Debugf("Successfully retrieved %d bytes from %s", len(body), finalURL)
	return doc, nil
}

// Snapshot returns the last response seen; screenshots are not supported
func (h *HTTPClient) Snapshot(ctx context.Context, withScreenshot bool) (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil, fmt.Errorf("no page fetched yet")
	}
	snap := *h.last
	return &snap, nil
}

// Close cleans up resources
func (h *HTTPClient) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTPClient) remember(url, body string, doc *Document) {
	snap := &Snapshot{URL: url, HTML: body}
	if doc != nil {
		snap.Title = doc.Title
	}
	h.mu.Lock()
	h.last = snap
	h.mu.Unlock()
}
