package adapters

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"watchface-scraper/internal/types"
	"watchface-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// authorPrefix matches the attribution prefix shown before author names
var authorPrefix = regexp.MustCompile(`(?i)^(composed by|by)\s*`)

// BaseAdapter provides the helpers shared by every heuristic: URL
// resolution, text cleanup, image source selection and candidate assembly.
type BaseAdapter struct {
	selectors types.Selectors // Site markers (name class, containers, detail page markers)
	siteURL   string          // Site root without trailing slash, used for canonical detail URLs
	logger    types.Logger
	now       func() time.Time
}

// NewBaseAdapter creates a base adapter for the site rooted at siteURL
func NewBaseAdapter(selectors types.Selectors, siteURL string, logger types.Logger) *BaseAdapter {
	return &BaseAdapter{
		selectors: selectors,
		siteURL:   strings.TrimRight(strings.TrimSpace(siteURL), "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// SiteURL returns the normalized site root
func (b *BaseAdapter) SiteURL() string {
	return b.siteURL
}

// ResolveURL turns href into an absolute URL relative to pageURL, falling
// back to the site root when the page URL is unknown. Empty, fragment-only
// and javascript: links resolve to "".
func (b *BaseAdapter) ResolveURL(pageURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base := pageURL
	if base == "" {
		base = b.siteURL + "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// ImageSource returns the image's explicit src, or its lazy-load source when
// src is missing or an inline placeholder.
func (b *BaseAdapter) ImageSource(img *goquery.Selection) string {
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" && !strings.HasPrefix(src, "data:") {
		return src
	}
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original"} {
		if src := strings.TrimSpace(img.AttrOr(attr, "")); src != "" {
			return src
		}
	}
	return ""
}

// ImageURL resolves an image's source against the page
func (b *BaseAdapter) ImageURL(doc *utils.Document, img *goquery.Selection) (string, error) {
	if img.Length() == 0 {
		return "", nil
	}
	return b.ResolveURL(doc.URL, b.ImageSource(img))
}

// DetailLink finds the best detail link inside container: a face link when
// present, otherwise the first link.
func (b *BaseAdapter) DetailLink(doc *utils.Document, container *goquery.Selection) (string, error) {
	link := container.Find(b.selectors.FaceLink).First()
	if link.Length() == 0 {
		link = container.Find("a[href]").First()
	}
	if link.Length() == 0 {
		return "", nil
	}
	return b.ResolveURL(doc.URL, link.AttrOr("href", ""))
}

// Container returns the nearest container ancestor of s
func (b *BaseAdapter) Container(s *goquery.Selection) *goquery.Selection {
	return s.Parent().Closest(b.selectors.Container)
}

// imageDimension reads a rendered size annotation or the plain attribute
func imageDimension(img *goquery.Selection, renderedAttr, attr string) (int, bool) {
	for _, name := range []string{renderedAttr, attr} {
		raw := strings.TrimSuffix(strings.TrimSpace(img.AttrOr(name, "")), "px")
		if raw == "" {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return int(v), true
		}
	}
	return 0, false
}

// CleanText trims and collapses internal whitespace
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// RemoveDuplicateURLs removes duplicate URLs from the slice
func RemoveDuplicateURLs(urls []string) []string {
	seen := make(map[string]bool)
	var uniqueURLs []string

	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			uniqueURLs = append(uniqueURLs, u)
		}
	}

	return uniqueURLs
}

// candidateFields are the raw values a strategy found for one item
type candidateFields struct {
	name        string
	description string
	imageURL    string
	detailURL   string
	author      string
	sourceURL   string
}

// buildCandidate assembles a record and resolves its identity. Items without
// a name or an image are rejected here so they never leave extraction.
func (b *BaseAdapter) buildCandidate(f candidateFields) (*types.CandidateRecord, bool) {
	name := Truncate(CleanText(f.name), types.MaxNameLength)
	if name == "" || f.imageURL == "" {
		return nil, false
	}

	id := b.ResolveIdentity(name, f.imageURL, f.detailURL)
	downloadURL := id.DetailURL
	if downloadURL == "" {
		downloadURL = f.sourceURL
	}

	return &types.CandidateRecord{
		Name:          name,
		Description:   Truncate(CleanText(f.description), types.MaxDescriptionLength),
		Category:      types.DefaultCategory,
		ImageURL:      f.imageURL,
		DownloadURL:   downloadURL,
		Price:         types.FreePrice,
		Author:        Truncate(CleanText(f.author), types.MaxAuthorLength),
		Tags:          []string{},
		Compatibility: []string{},
		Metadata: types.Metadata{
			SourceURL:  f.sourceURL,
			OriginalID: id.OriginalID,
			FaceID:     id.FaceID,
			ScrapedAt:  b.now(),
		},
	}, true
}

// safeItem runs fn for one extracted item and converts failures, including
// panics from malformed markup, into an ExtractionItemError.
func (b *BaseAdapter) safeItem(strategy string, index int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &types.ExtractionItemError{Strategy: strategy, Index: index, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &types.ExtractionItemError{Strategy: strategy, Index: index, Err: ferr}
	}
	return nil
}
