package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Image size annotations written by the browser renderers before the DOM is
// captured, so that heuristics working on static HTML can see rendered sizes.
const (
	RenderedWidthAttr  = "data-rendered-width"
	RenderedHeightAttr = "data-rendered-height"
)

// annotateImagesJS copies each image's rendered size onto data attributes
const annotateImagesJS = `(() => {
	document.querySelectorAll("img").forEach((img) => {
		img.setAttribute("` + RenderedWidthAttr + `", String(img.width || 0));
		img.setAttribute("` + RenderedHeightAttr + `", String(img.height || 0));
	});
	return true;
})()`

// Document is a rendered page ready for querying
type Document struct {
	URL   string
	Title string
	HTML  string
	*goquery.Document
}

// NewDocument parses rendered HTML fetched from url
func NewDocument(url, html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		URL:      url,
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		HTML:     html,
		Document: doc,
	}, nil
}

// Snapshot is the best-effort state of the renderer's current page
type Snapshot struct {
	URL        string
	Title      string
	HTML       string
	Screenshot []byte
}

// Renderer owns one page session and navigates it on request
type Renderer interface {
	// Start launches the session. It must be called once before Render.
	Start(ctx context.Context) error

	// Render navigates to url and returns the rendered document. A readiness
	// timeout is not an error.
	Render(ctx context.Context, url string) (*Document, error)

	// Snapshot captures the current page for diagnostics.
	Snapshot(ctx context.Context, withScreenshot bool) (*Snapshot, error)

	Close() error
}
