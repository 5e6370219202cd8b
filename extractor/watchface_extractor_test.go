package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"watchface-scraper/internal/store"
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

const (
	listingURL = "https://www.watchfacely.com/latest"
	page2URL   = "https://www.watchfacely.com/latest?page=2"
)

const listingPage1 = `<html><head><title>Latest</title></head><body>
<div class="card">
  <a href="/face/123"><img src="https://assets.watchfacely.com/watchfaces/ocean/123/snapshot.png"></a>
  <div class="text-block-2">Ocean Blue</div>
</div>
<div class="card">
  <a href="/face/456"><img src="https://assets.watchfacely.com/watchfaces/sunset/456/snapshot.png"></a>
  <div class="text-block-2">Sunset</div>
</div>
<nav><a href="/latest?page=2">2</a></nav>
</body></html>`

const listingPage2 = `<html><head><title>Latest - page 2</title></head><body>
<div class="card">
  <a href="/face/123"><img src="https://assets.watchfacely.com/watchfaces/ocean/123/snapshot.png"></a>
  <div class="text-block-2">Ocean Blue</div>
</div>
<div class="card">
  <a href="/face/789"><img src="https://assets.watchfacely.com/watchfaces/night/789/snapshot.png"></a>
  <div class="text-block-2">Night</div>
</div>
</body></html>`

func runConfig() *types.Config {
	config := types.DefaultConfig()
	config.StoreDSN = "memory://"
	config.MaxRetries = 2
	config.RetryBackoff = 0
	config.InterPageDelay = 0
	config.InterDetailDelay = 0
	return config
}

func sitePages() map[string]string {
	return map[string]string{
		listingURL:                             listingPage1,
		page2URL:                               listingPage2,
		"https://www.watchfacely.com/face/123": oceanDetailPage,
	}
}

type harness struct {
	renderer *fakeRenderer
	store    *countingStore
	states   []RunState
	opened   int
}

func newHarness(pages map[string]string) *harness {
	return &harness{
		renderer: &fakeRenderer{pages: pages},
		store:    newCountingStore(),
	}
}

func (h *harness) extractor(config *types.Config, logger types.Logger) *WatchfaceExtractor {
	return NewWatchfaceExtractor(config, logger,
		WithRendererFactory(func(*types.Config, types.Logger) (utils.Renderer, error) {
			return h.renderer, nil
		}),
		WithStoreFactory(func(context.Context, string) (store.Store, error) {
			h.opened++
			return h.store, nil
		}),
		WithStateHook(func(s RunState) { h.states = append(h.states, s) }),
	)
}

func TestRun_FullPipeline(t *testing.T) {
	h := newHarness(sitePages())
	w := h.extractor(runConfig(), logrus.New())

	result, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.ReconcileResult{Saved: 3}, result)
	assert.Equal(t, []RunState{
		StateInitializing,
		StateCrawlingPrimary,
		StateDiscoveringPages,
		StateCrawlingSecondary,
		StateEnriching,
		StateDeduplicating,
		StateReconciling,
		StateCleanup,
		StateSucceeded,
	}, h.states)
	assert.Equal(t, StateSucceeded, w.State())
	assert.Equal(t, listingURL, h.renderer.renders[0])
	assert.Equal(t, page2URL, h.renderer.renders[1])
	assert.Equal(t, 1, h.renderer.started)
	assert.Equal(t, 1, h.renderer.closed)
	assert.Equal(t, 1, h.store.closed)

	records := h.store.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "Ocean Blue", records[0].Name)
	assert.Equal(t, "Jane Doe", records[0].Author)
	assert.Equal(t, []string{"Galaxy Watch", "Pixel Watch"}, records[0].Compatibility)
	assert.Equal(t, "face_123", records[0].Metadata.OriginalID)
	assert.Equal(t, "Sunset", records[1].Name)
	assert.Equal(t, "Night", records[2].Name)
}

func TestRun_SecondRunUpdates(t *testing.T) {
	h := newHarness(sitePages())

	_, err := h.extractor(runConfig(), logrus.New()).Run(context.Background())
	require.NoError(t, err)
	result, err := h.extractor(runConfig(), logrus.New()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.ReconcileResult{Updated: 3}, result)
	assert.Len(t, h.store.Records(), 3)
}

func TestRun_MaxPagesLimitsSecondaryCrawl(t *testing.T) {
	h := newHarness(sitePages())
	config := runConfig()
	config.MaxPages = 1

	result, err := h.extractor(config, logrus.New()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.NotContains(t, h.renderer.renders, page2URL)
}

func TestRun_PausesBetweenSlowPages(t *testing.T) {
	h := newHarness(sitePages())
	h.renderer.latency = 60 * time.Millisecond
	config := runConfig()
	config.MaxRetries = 1
	config.InterPageDelay = 40 * time.Millisecond
	config.InterDetailDelay = 30 * time.Millisecond

	_, err := h.extractor(config, logrus.New()).Run(context.Background())

	require.NoError(t, err)
	spans := h.renderer.spans
	require.GreaterOrEqual(t, len(spans), 4)
	assert.Equal(t, listingURL, spans[0].url)
	assert.Equal(t, page2URL, spans[1].url)

	gaps := gapsBetween(spans)
	assert.GreaterOrEqual(t, gaps[0], config.InterPageDelay, "gap between listing pages")
	for i := 2; i < len(gaps); i++ {
		assert.GreaterOrEqual(t, gaps[i], config.InterDetailDelay, "gap before %s", spans[i+1].url)
	}
}

func TestRun_SecondaryFailureIsSkipped(t *testing.T) {
	pages := sitePages()
	delete(pages, page2URL)
	h := newHarness(pages)

	result, err := h.extractor(runConfig(), logrus.New()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.ReconcileResult{Saved: 2}, result)
}

func TestRun_PrimaryFailureIsFatal(t *testing.T) {
	h := newHarness(map[string]string{})

	result, err := h.extractor(runConfig(), logrus.New()).Run(context.Background())

	var fetchErr *types.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 2, fetchErr.Attempts)
	assert.Equal(t, types.ReconcileResult{}, result)
	assert.Equal(t, StateFailed, h.states[len(h.states)-1])
	assert.Equal(t, 1, h.renderer.closed)
	assert.Equal(t, 1, h.store.closed)
	assert.Empty(t, h.store.Records())
}

func TestRun_StoreInitFailureAbortsBeforeCrawl(t *testing.T) {
	renderer := &fakeRenderer{pages: sitePages()}
	var states []RunState
	w := NewWatchfaceExtractor(runConfig(), logrus.New(),
		WithRendererFactory(func(*types.Config, types.Logger) (utils.Renderer, error) { return renderer, nil }),
		WithStoreFactory(func(context.Context, string) (store.Store, error) {
			return nil, errors.New("connection refused")
		}),
		WithStateHook(func(s RunState) { states = append(states, s) }),
	)

	_, err := w.Run(context.Background())

	var initErr *types.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "store", initErr.Component)
	assert.Empty(t, renderer.renders)
	assert.Equal(t, 1, renderer.closed)
	assert.Equal(t, []RunState{StateInitializing, StateCleanup, StateFailed}, states)
}

func TestRun_RendererStartFailure(t *testing.T) {
	h := newHarness(sitePages())
	h.renderer.startErr = errors.New("chrome not found")

	_, err := h.extractor(runConfig(), logrus.New()).Run(context.Background())

	var initErr *types.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "renderer", initErr.Component)
	assert.Zero(t, h.opened)
	assert.Empty(t, h.renderer.renders)
	assert.Equal(t, 1, h.renderer.closed)
}

func TestRun_InvalidConfig(t *testing.T) {
	h := newHarness(sitePages())
	config := runConfig()
	config.ListingURL = ""
	rendererBuilt := false
	w := NewWatchfaceExtractor(config, logrus.New(),
		WithRendererFactory(func(*types.Config, types.Logger) (utils.Renderer, error) {
			rendererBuilt = true
			return h.renderer, nil
		}),
	)

	_, err := w.Run(context.Background())

	var initErr *types.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "config", initErr.Component)
	assert.False(t, rendererBuilt)
	assert.Equal(t, StateFailed, w.State())
}

func TestRun_EmptyListingSucceedsWithDiagnostics(t *testing.T) {
	h := newHarness(map[string]string{
		listingURL: `<html><head><title>Just a moment...</title></head><body><p>Checking your browser</p></body></html>`,
	})
	logger, hook := test.NewNullLogger()

	result, err := h.extractor(runConfig(), logger).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.ReconcileResult{}, result)
	assert.NotContains(t, h.states, StateReconciling)
	assert.Equal(t, StateSucceeded, h.states[len(h.states)-1])

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "No watch faces found on any listing page")
	assert.Contains(t, messages, "Page title: Just a moment...")
	assert.Contains(t, messages, "Page content preview: Checking your browser")
}

func TestRun_TagsLogsWithRunID(t *testing.T) {
	h := newHarness(sitePages())
	logger, hook := test.NewNullLogger()

	_, err := h.extractor(runConfig(), logger).Run(context.Background())

	require.NoError(t, err)
	require.NotEmpty(t, hook.AllEntries())
	runID := hook.AllEntries()[0].Data["run_id"]
	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, hook.LastEntry().Data["run_id"])
}

func TestRunState_String(t *testing.T) {
	assert.Equal(t, "crawling-primary", StateCrawlingPrimary.String())
	assert.Equal(t, "state(99)", RunState(99).String())
}
