package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"watchface-scraper/internal/store"
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

// span records when one fake page load started and finished
type span struct {
	url        string
	start, end time.Time
}

// gapsBetween returns the idle time between each load and the one after it
func gapsBetween(spans []span) []time.Duration {
	var gaps []time.Duration
	for i := 1; i < len(spans); i++ {
		gaps = append(gaps, spans[i].start.Sub(spans[i-1].end))
	}
	return gaps
}

// fakeRenderer serves fixture HTML by URL; unknown URLs fail to navigate
type fakeRenderer struct {
	pages    map[string]string
	startErr error
	latency  time.Duration
	spans    []span

	started int
	closed  int
	renders []string
	last    *utils.Snapshot
}

func (f *fakeRenderer) Start(ctx context.Context) error {
	f.started++
	return f.startErr
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (*utils.Document, error) {
	f.renders = append(f.renders, url)
	if f.latency > 0 {
		s := span{url: url, start: time.Now()}
		time.Sleep(f.latency)
		s.end = time.Now()
		f.spans = append(f.spans, s)
	}
	html, ok := f.pages[url]
	if !ok {
		f.last = &utils.Snapshot{URL: url, Title: "Error", HTML: "<html><title>Error</title></html>"}
		return nil, fmt.Errorf("navigation to %s failed", url)
	}
	doc, err := utils.NewDocument(url, html)
	if err != nil {
		return nil, err
	}
	f.last = &utils.Snapshot{URL: url, Title: doc.Title, HTML: html}
	return doc, nil
}

func (f *fakeRenderer) Snapshot(ctx context.Context, withScreenshot bool) (*utils.Snapshot, error) {
	if f.last == nil {
		return nil, errors.New("no page")
	}
	snap := *f.last
	return &snap, nil
}

func (f *fakeRenderer) Close() error {
	f.closed++
	return nil
}

// fakeFetcher serves fixture HTML by URL without retries
type fakeFetcher struct {
	pages   map[string]string
	latency time.Duration
	calls   []string
	spans   []span
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, maxRetries int) (*utils.Document, error) {
	f.calls = append(f.calls, url)
	if f.latency > 0 {
		s := span{url: url, start: time.Now()}
		time.Sleep(f.latency)
		s.end = time.Now()
		f.spans = append(f.spans, s)
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, &types.FetchError{URL: url, Attempts: maxRetries, Err: errors.New("not found")}
	}
	return utils.NewDocument(url, html)
}

// countingStore wraps a memory store, counts closes and can fail inserts by name
type countingStore struct {
	*store.MemoryStore
	failInsert map[string]bool
	closed     int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: store.NewMemoryStore(), failInsert: map[string]bool{}}
}

func (c *countingStore) Insert(ctx context.Context, record *types.CandidateRecord) (*types.StoredRecord, error) {
	if c.failInsert[record.Name] {
		return nil, errors.New("constraint violation")
	}
	return c.MemoryStore.Insert(ctx, record)
}

func (c *countingStore) Close() error {
	c.closed++
	return nil
}
