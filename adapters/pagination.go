package adapters

import (
	"net/url"
	"strings"

	"watchface-scraper/internal/types"
	"watchface-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// MaxPaginationLinks caps the number of discovered listing pages
const MaxPaginationLinks = 5

// paginationSelectors are tried in order; anchors whose text reads like a
// "next" or "more" control are added after them.
var paginationSelectors = []string{
	`a[href*="page"]`,
	".pagination a",
	"a.next",
	".next a",
	".page-numbers a",
}

var paginationWords = []string{"next", "more"}

// PaginationDiscoverer finds further listing pages linked from a listing
type PaginationDiscoverer struct {
	*BaseAdapter
}

// NewPaginationDiscoverer creates a discoverer for the site rooted at siteURL
func NewPaginationDiscoverer(siteURL string, logger types.Logger) *PaginationDiscoverer {
	return &PaginationDiscoverer{BaseAdapter: NewBaseAdapter(types.DefaultSelectors(), siteURL, logger)}
}

// Discover returns up to MaxPaginationLinks distinct absolute URLs of other
// listing pages, in document order per pattern. The page itself, links
// without a target and links to other hosts are excluded.
func (p *PaginationDiscoverer) Discover(doc *utils.Document) []string {
	if doc == nil || doc.Document == nil {
		return []string{}
	}

	var links []string
	add := func(_ int, a *goquery.Selection) {
		href, err := p.ResolveURL(doc.URL, a.AttrOr("href", ""))
		if err != nil {
			p.logger.Debugf("Ignoring pagination link: %v", err)
			return
		}
		if p.acceptable(doc.URL, href) {
			links = append(links, href)
		}
	}

	for _, sel := range paginationSelectors {
		doc.Find(sel).Each(add)
	}
	doc.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(CleanText(a.Text()))
		for _, word := range paginationWords {
			if strings.Contains(text, word) {
				return true
			}
		}
		return false
	}).Each(add)

	links = RemoveDuplicateURLs(links)
	if len(links) > MaxPaginationLinks {
		links = links[:MaxPaginationLinks]
	}
	if links == nil {
		links = []string{}
	}
	p.logger.Infof("Found %d pagination links", len(links))
	return links
}

func (p *PaginationDiscoverer) acceptable(pageURL, href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if withoutFragment(href) == withoutFragment(pageURL) {
		return false
	}
	if site, err := url.Parse(p.siteURL); err == nil && site.Host != "" && !sameSite(site.Host, u.Host) {
		return false
	}
	return true
}

func withoutFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func sameSite(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}
