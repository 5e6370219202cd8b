package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/joho/godotenv"
	"watchface-scraper/adapters"
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

// Report is what inspect prints for one listing page
type Report struct {
	URL             string                   `json:"url"`
	Title           string                   `json:"title"`
	Markers         map[string]int           `json:"markers"`
	SampleLinks     []Link                   `json:"sample_links"`
	Candidates      []*types.CandidateRecord `json:"candidates"`
	PaginationLinks []string                 `json:"pagination_links"`
	Detail          *types.CandidateRecord   `json:"detail,omitempty"`
}

// Link is an anchor found on the page
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

func main() {
	_ = godotenv.Load()

	config, err := types.LoadConfig(os.Getenv("SCRAPER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.ApplyEnv()

	var (
		pageURL = flag.String("url", config.ListingURL, "Listing page to inspect")
		engine  = flag.String("engine", config.Engine, "Rendering engine (chromedp, rod, http)")
		enrich  = flag.Bool("enrich", false, "Also parse the first candidate's detail page")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()
	config.Engine = *engine

	logger := types.NewLogger(*verbose)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	renderer, err := utils.NewRenderer(config, logger)
	if err != nil {
		logger.Fatalf("Failed to create renderer: %v", err)
	}
	if err := renderer.Start(ctx); err != nil {
		logger.Fatalf("Failed to start renderer: %v", err)
	}
	defer renderer.Close()

	fetcher := utils.NewPageFetcher(renderer, config, logger)
	doc, err := fetcher.Fetch(ctx, *pageURL, config.MaxRetries)
	if err != nil {
		logger.Errorf("Failed to get listing page: %v", err)
		return
	}

	report := inspect(doc, config, logger)

	if *enrich {
		for _, c := range report.Candidates {
			if c.Metadata.FaceID == "" {
				continue
			}
			detailDoc, err := fetcher.Fetch(ctx, c.DownloadURL, config.DetailMaxRetries)
			if err != nil {
				logger.Warnf("Failed to get detail page: %v", err)
				break
			}
			report.Detail, err = adapters.NewDetailParser(config.Selectors, config.SiteBaseURL, logger).Parse(detailDoc)
			if err != nil {
				logger.Warnf("Failed to parse detail page: %v", err)
			}
			break
		}
	}

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to marshal report: %v", err)
	}
	fmt.Println(string(jsonData))
}

// inspect counts the site markers on doc and runs the heuristics over it
func inspect(doc *utils.Document, config *types.Config, logger types.Logger) *Report {
	sel := config.Selectors
	report := &Report{
		URL:   doc.URL,
		Title: doc.Title,
		Markers: map[string]int{
			"links":      doc.Find("a").Length(),
			"images":     doc.Find("img").Length(),
			"name":       doc.Find(sel.Name).Length(),
			"face_links": doc.Find(sel.FaceLink).Length(),
			"authors":    doc.Find(sel.Author).Length(),
		},
	}

	// Sample of all links
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if len(href) < 100 {
			report.SampleLinks = append(report.SampleLinks, Link{Href: href, Text: adapters.CleanText(s.Text())})
		}
		return len(report.SampleLinks) < 10
	})

	report.Candidates = adapters.NewExtractionEngine(sel, config.SiteBaseURL, logger).Extract(doc)
	report.PaginationLinks = adapters.NewPaginationDiscoverer(config.SiteBaseURL, logger).Discover(doc)
	return report
}
