package extractor

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"watchface-scraper/internal/types"
)

const oceanDetailPage = `<html><head><title>Ocean Blue</title></head><body>
<h1 class="heading-3">Ocean Blue</h1>
<div class="author_name">Composed by Jane Doe</div>
<img src="https://assets.watchfacely.com/watchfaces/ocean/123/snapshot.png">
<p>Full description.</p>
<div class="apps"><span>Galaxy Watch</span><span>Pixel Watch</span></div>
</body></html>`

func enricherConfig() *types.Config {
	config := types.DefaultConfig()
	config.InterDetailDelay = 0
	return config
}

func TestDetailEnricher_Enrich(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"https://www.watchfacely.com/face/123": oceanDetailPage}}
	enricher := NewDetailEnricher(fetcher, enricherConfig(), logrus.New())
	c := candidate("Ocean Blue", "https://assets.watchfacely.com/watchfaces/ocean/123/snapshot.png", "face_123")
	c.DownloadURL = "https://www.watchfacely.com/face/123"

	detail := enricher.Enrich(context.Background(), c)

	require.NotNil(t, detail)
	assert.Equal(t, "Jane Doe", detail.Author)
	assert.Equal(t, "Full description.", detail.Description)
	assert.Equal(t, []string{"Galaxy Watch", "Pixel Watch"}, detail.Compatibility)
	assert.Equal(t, "123", detail.Metadata.FaceID)
}

func TestDetailEnricher_EnrichFailureReturnsNil(t *testing.T) {
	enricher := NewDetailEnricher(&fakeFetcher{}, enricherConfig(), logrus.New())
	c := candidate("Ocean", "https://x/a.png", "face_1")
	c.DownloadURL = "https://www.watchfacely.com/face/1"

	assert.Nil(t, enricher.Enrich(context.Background(), c))
}

func TestDetailEnricher_EnrichAllBoundedToFacePages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"https://www.watchfacely.com/face/123": oceanDetailPage}}
	config := enricherConfig()
	config.MaxEnrichDetails = 2
	enricher := NewDetailEnricher(fetcher, config, logrus.New())

	listingOnly := candidate("Listing", "https://x/l.png", "watchface_x")
	listingOnly.DownloadURL = "https://www.watchfacely.com/latest"
	ocean := candidate("Ocean Blue", "https://assets.watchfacely.com/watchfaces/ocean/123/snapshot.png", "face_123")
	ocean.DownloadURL = "https://www.watchfacely.com/face/123"
	missing := candidate("Missing", "https://x/m.png", "face_9")
	missing.DownloadURL = "https://www.watchfacely.com/face/9"
	beyond := candidate("Beyond", "https://x/b.png", "face_10")
	beyond.DownloadURL = "https://www.watchfacely.com/face/10"

	enriched, err := enricher.EnrichAll(context.Background(), []*types.CandidateRecord{listingOnly, ocean, missing, beyond})

	require.NoError(t, err)
	assert.Equal(t, 1, enriched)
	assert.Equal(t, []string{
		"https://www.watchfacely.com/face/123",
		"https://www.watchfacely.com/face/9",
	}, fetcher.calls)
	assert.Equal(t, "Jane Doe", ocean.Author)
	assert.Equal(t, []string{"Galaxy Watch", "Pixel Watch"}, ocean.Tags)
	assert.Equal(t, "Missing", missing.Name)
	assert.Empty(t, listingOnly.Author)
}

func TestDetailEnricher_EnrichAllZeroBudget(t *testing.T) {
	fetcher := &fakeFetcher{}
	config := enricherConfig()
	config.MaxEnrichDetails = 0
	enricher := NewDetailEnricher(fetcher, config, logrus.New())
	c := candidate("Ocean", "https://x/a.png", "face_1")

	enriched, err := enricher.EnrichAll(context.Background(), []*types.CandidateRecord{c})

	require.NoError(t, err)
	assert.Zero(t, enriched)
	assert.Empty(t, fetcher.calls)
}

func TestDetailEnricher_EnrichAllPausesAfterSlowPages(t *testing.T) {
	fetcher := &fakeFetcher{
		pages:   map[string]string{"https://www.watchfacely.com/face/123": oceanDetailPage},
		latency: 60 * time.Millisecond,
	}
	config := enricherConfig()
	config.InterDetailDelay = 40 * time.Millisecond
	enricher := NewDetailEnricher(fetcher, config, logrus.New())

	var candidates []*types.CandidateRecord
	for _, id := range []string{"123", "124", "125"} {
		c := candidate("Face "+id, "https://x/"+id+".png", "face_"+id)
		c.DownloadURL = "https://www.watchfacely.com/face/" + id
		candidates = append(candidates, c)
	}

	_, err := enricher.EnrichAll(context.Background(), candidates)

	require.NoError(t, err)
	gaps := gapsBetween(fetcher.spans)
	require.Len(t, gaps, 2)
	for i, gap := range gaps {
		assert.GreaterOrEqual(t, gap, config.InterDetailDelay, "gap after detail page %d", i+1)
	}
}
