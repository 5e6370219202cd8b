package adapters

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

const (
	testSiteURL    = "https://www.watchfacely.com"
	testListingURL = "https://www.watchfacely.com/latest"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDoc(t *testing.T, url, html string) *utils.Document {
	t.Helper()
	doc, err := utils.NewDocument(url, html)
	require.NoError(t, err)
	return doc
}

func newTestBase() *BaseAdapter {
	base := NewBaseAdapter(types.DefaultSelectors(), testSiteURL+"/", logrus.New())
	base.now = func() time.Time { return testNow }
	return base
}

func assertEssentials(t *testing.T, candidates []*types.CandidateRecord) {
	t.Helper()
	for _, c := range candidates {
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.ImageURL)
		assert.NotEmpty(t, c.DownloadURL)
		assert.NotEmpty(t, c.Metadata.OriginalID)
		assert.Equal(t, types.DefaultCategory, c.Category)
		assert.Equal(t, types.FreePrice, c.Price)
		assert.LessOrEqual(t, len([]rune(c.Name)), types.MaxNameLength)
		assert.LessOrEqual(t, len([]rune(c.Description)), types.MaxDescriptionLength)
		assert.LessOrEqual(t, len([]rune(c.Author)), types.MaxAuthorLength)
	}
}

func TestBaseAdapter_ResolveURL(t *testing.T) {
	base := newTestBase()

	tests := []struct {
		name    string
		pageURL string
		href    string
		want    string
	}{
		{"relative to page", testListingURL, "/face/1", "https://www.watchfacely.com/face/1"},
		{"absolute", testListingURL, "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"no page url", "", "img/a.png", "https://www.watchfacely.com/img/a.png"},
		{"fragment only", testListingURL, "#top", ""},
		{"javascript", testListingURL, "javascript:void(0)", ""},
		{"empty", testListingURL, "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.ResolveURL(tt.pageURL, tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseAdapter_ImageSourcePrefersExplicitSource(t *testing.T) {
	base := newTestBase()
	doc := newTestDoc(t, testListingURL, `<body>
		<img id="a" src="/explicit.png" data-src="/lazy.png">
		<img id="b" src="data:image/gif;base64,R0lGOD" data-src="/lazy.png">
		<img id="c" data-lazy-src="/lazier.png">
	</body>`)

	assert.Equal(t, "/explicit.png", base.ImageSource(doc.Find("#a")))
	assert.Equal(t, "/lazy.png", base.ImageSource(doc.Find("#b")))
	assert.Equal(t, "/lazier.png", base.ImageSource(doc.Find("#c")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "åä", Truncate("åäö", 2))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Ocean Blue", CleanText("  Ocean \n\t Blue  "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestRemoveDuplicateURLs(t *testing.T) {
	got := RemoveDuplicateURLs([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSafeItem_RecoversPanic(t *testing.T) {
	base := newTestBase()

	err := base.safeItem("test", 3, func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})

	var itemErr *types.ExtractionItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "test", itemErr.Strategy)
	assert.Equal(t, 3, itemErr.Index)
	assert.Contains(t, err.Error(), "panic")
}

func TestBuildCandidate_RejectsMissingEssentials(t *testing.T) {
	base := newTestBase()

	_, ok := base.buildCandidate(candidateFields{name: "  ", imageURL: "https://x/a.png"})
	assert.False(t, ok)

	_, ok = base.buildCandidate(candidateFields{name: "Face"})
	assert.False(t, ok)
}

func TestBuildCandidate_Truncates(t *testing.T) {
	base := newTestBase()

	c, ok := base.buildCandidate(candidateFields{
		name:        strings.Repeat("n", 250),
		description: strings.Repeat("d", 600),
		author:      strings.Repeat("a", 150),
		imageURL:    "https://x/a.png",
		sourceURL:   testListingURL,
	})

	require.True(t, ok)
	assert.Len(t, c.Name, types.MaxNameLength)
	assert.Len(t, c.Description, types.MaxDescriptionLength)
	assert.Len(t, c.Author, types.MaxAuthorLength)
	assert.Equal(t, testListingURL, c.DownloadURL)
	assert.Equal(t, testNow, c.Metadata.ScrapedAt)
	assert.NotNil(t, c.Tags)
	assert.NotNil(t, c.Compatibility)
}
