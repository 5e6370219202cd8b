package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"watchface-scraper/adapters"
	"watchface-scraper/internal/store"
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

// contentPreviewLength is how much page content an empty run logs
const contentPreviewLength = 500

// RunState is a step of a scrape run
type RunState int

const (
	StateIdle RunState = iota
	StateInitializing
	StateCrawlingPrimary
	StateDiscoveringPages
	StateCrawlingSecondary
	StateEnriching
	StateDeduplicating
	StateReconciling
	StateCleanup
	StateSucceeded
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateCrawlingPrimary:
		return "crawling-primary"
	case StateDiscoveringPages:
		return "discovering-pages"
	case StateCrawlingSecondary:
		return "crawling-secondary"
	case StateEnriching:
		return "enriching"
	case StateDeduplicating:
		return "deduplicating"
	case StateReconciling:
		return "reconciling"
	case StateCleanup:
		return "cleanup"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RendererFactory builds the renderer for a run
type RendererFactory func(config *types.Config, logger types.Logger) (utils.Renderer, error)

// StoreFactory connects to the store for a run
type StoreFactory func(ctx context.Context, dsn string) (store.Store, error)

// Option customizes a WatchfaceExtractor
type Option func(*WatchfaceExtractor)

// WithRendererFactory replaces the renderer selected from config.Engine
func WithRendererFactory(f RendererFactory) Option {
	return func(w *WatchfaceExtractor) { w.newRenderer = f }
}

// WithStoreFactory replaces the store selected from config.StoreDSN
func WithStoreFactory(f StoreFactory) Option {
	return func(w *WatchfaceExtractor) { w.openStore = f }
}

// WithStateHook registers a callback invoked on every state transition
func WithStateHook(hook func(RunState)) Option {
	return func(w *WatchfaceExtractor) { w.onState = hook }
}

// WatchfaceExtractor runs the crawl, extract and reconcile pipeline once per Run
type WatchfaceExtractor struct {
	config *types.Config
	logger types.Logger

	newRenderer RendererFactory
	openStore   StoreFactory
	onState     func(RunState)
	state       RunState
}

// NewWatchfaceExtractor creates a new extractor for config
func NewWatchfaceExtractor(config *types.Config, logger types.Logger, opts ...Option) *WatchfaceExtractor {
	w := &WatchfaceExtractor{
		config:      config,
		logger:      logger,
		newRenderer: utils.NewRenderer,
		openStore:   store.Open,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the state the last run reached
func (w *WatchfaceExtractor) State() RunState {
	return w.state
}

// Run crawls the listing and its further pages, enriches a bounded number of
// candidates from their detail pages, and reconciles the deduplicated result
// into the store. Initialization and primary-page failures abort the run;
// everything else is logged and skipped. The session and the store are
// released on every path.
func (w *WatchfaceExtractor) Run(ctx context.Context) (result types.ReconcileResult, err error) {
	startTime := time.Now()
	logger := w.logger.WithField("run_id", uuid.NewString())
	logger.Infof("Starting watch face scrape of %s", w.config.ListingURL)

	var (
		renderer utils.Renderer
		st       store.Store
	)
	defer func() {
		w.enter(logger, StateCleanup)
		if cerr := w.cleanup(renderer, st); cerr != nil {
			logger.Warnf("Cleanup failed: %v", cerr)
		}
		if err != nil {
			w.enter(logger, StateFailed)
			logger.Errorf("Scrape failed after %v: %v", time.Since(startTime), err)
			return
		}
		w.enter(logger, StateSucceeded)
		logger.Infof("Scrape completed in %v: %d saved, %d updated, %d skipped",
			time.Since(startTime), result.Saved, result.Updated, result.Skipped)
	}()

	// Step 1: Initialize session and storage
	w.enter(logger, StateInitializing)
	if err := w.config.Validate(); err != nil {
		return result, &types.InitializationError{Component: "config", Err: err}
	}
	if renderer, err = w.newRenderer(w.config, logger); err != nil {
		return result, &types.InitializationError{Component: "renderer", Err: err}
	}
	if err = renderer.Start(ctx); err != nil {
		return result, &types.InitializationError{Component: "renderer", Err: err}
	}
	if st, err = w.openStore(ctx, w.config.StoreDSN); err != nil {
		return result, &types.InitializationError{Component: "store", Err: err}
	}

	fetcher := utils.NewPageFetcher(renderer, w.config, logger)
	engine := adapters.NewExtractionEngine(w.config.Selectors, w.config.SiteBaseURL, logger)
	pagePacer := utils.NewPacer(w.config.InterPageDelay)

	// Step 2: Primary listing page
	w.enter(logger, StateCrawlingPrimary)
	primary, err := fetcher.Fetch(ctx, w.config.ListingURL, w.config.MaxRetries)
	pagePacer.Done()
	if err != nil {
		return result, fmt.Errorf("failed to crawl listing page: %w", err)
	}
	candidates := engine.Extract(primary)
	if len(candidates) == 0 && w.config.DebugCaptureEnabled {
		fetcher.Diagnose(ctx, primary.URL)
	}

	// Step 3: Further listing pages
	w.enter(logger, StateDiscoveringPages)
	links := adapters.NewPaginationDiscoverer(w.config.SiteBaseURL, logger).Discover(primary)
	if limit := w.config.MaxPages - 1; len(links) > limit {
		links = links[:limit]
	}

	w.enter(logger, StateCrawlingSecondary)
	for i, link := range links {
		if err := pagePacer.Wait(ctx); err != nil {
			return result, err
		}
		logger.Debugf("Crawling listing page %d/%d: %s", i+1, len(links), link)

		doc, ferr := fetcher.Fetch(ctx, link, w.config.MaxRetries)
		pagePacer.Done()
		if ferr != nil {
			logger.WithField("url", link).Warnf("Skipping listing page: %v", ferr)
			continue
		}
		candidates = append(candidates, engine.Extract(doc)...)
	}

	// Step 4: Detail pages
	w.enter(logger, StateEnriching)
	enricher := NewDetailEnricher(fetcher, w.config, logger)
	if _, err := enricher.EnrichAll(ctx, candidates); err != nil {
		return result, err
	}

	// Step 5: Deduplicate
	w.enter(logger, StateDeduplicating)
	unique := Deduplicate(candidates)
	logger.Infof("Found %d watch faces (%d before deduplication)", len(unique), len(candidates))

	if len(unique) == 0 {
		w.reportEmpty(logger, primary)
		return result, nil
	}

	// Step 6: Reconcile
	w.enter(logger, StateReconciling)
	result = NewReconciler(st, logger).Reconcile(ctx, unique)
	return result, nil
}

func (w *WatchfaceExtractor) enter(logger types.Logger, state RunState) {
	w.state = state
	logger.WithField("state", state.String()).Debug("Run state changed")
	if w.onState != nil {
		w.onState(state)
	}
}

// cleanup releases the session and the store; either may be nil
func (w *WatchfaceExtractor) cleanup(renderer utils.Renderer, st store.Store) error {
	var errs []error
	if renderer != nil {
		if err := renderer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close renderer: %w", err))
		}
	}
	if st != nil {
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// reportEmpty logs what the listing looked like when nothing was extracted
func (w *WatchfaceExtractor) reportEmpty(logger types.Logger, primary *utils.Document) {
	logger.Warn("No watch faces found on any listing page")
	logger.Warnf("Page title: %s", primary.Title)

	text := adapters.CleanText(primary.Find("body").Text())
	if utf8.RuneCountInString(text) > contentPreviewLength {
		text = adapters.Truncate(text, contentPreviewLength) + "..."
	}
	logger.Warnf("Page content preview: %s", text)
}
