package extractor

import (
	"context"
	"strings"

	"watchface-scraper/adapters"
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

// Fetcher renders a URL with retries
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxRetries int) (*utils.Document, error)
}

// DetailEnricher refines candidates from their detail pages
type DetailEnricher struct {
	fetcher Fetcher
	parser  *adapters.DetailParser
	config  *types.Config
	logger  types.Logger
	pacer   *utils.Pacer
}

// NewDetailEnricher creates an enricher that fetches through fetcher
func NewDetailEnricher(fetcher Fetcher, config *types.Config, logger types.Logger) *DetailEnricher {
	return &DetailEnricher{
		fetcher: fetcher,
		parser:  adapters.NewDetailParser(config.Selectors, config.SiteBaseURL, logger),
		config:  config,
		logger:  logger,
		pacer:   utils.NewPacer(config.InterDetailDelay),
	}
}

// Enrich returns the fields read from the candidate's detail page, or nil
// when the page could not be fetched or parsed.
func (e *DetailEnricher) Enrich(ctx context.Context, candidate *types.CandidateRecord) *types.CandidateRecord {
	entry := e.logger.WithField("url", candidate.DownloadURL)

	doc, err := e.fetcher.Fetch(ctx, candidate.DownloadURL, e.config.DetailMaxRetries)
	if err != nil {
		entry.Warnf("Error enriching watch face %q: %v", candidate.Name, err)
		return nil
	}

	detail, err := e.parser.Parse(doc)
	if err != nil {
		entry.Warnf("Error parsing detail page for %q: %v", candidate.Name, err)
		return nil
	}
	return detail
}

// EnrichAll enriches, in place, the first MaxEnrichDetails candidates that
// link to a detail page, pausing InterDetailDelay between the end of one
// page and the start of the next. It returns how many candidates were
// enriched.
func (e *DetailEnricher) EnrichAll(ctx context.Context, candidates []*types.CandidateRecord) (int, error) {
	targets := e.targets(candidates)
	e.logger.Infof("Enriching %d of %d watch faces with detail pages", len(targets), len(candidates))

	enriched := 0
	for i, c := range targets {
		if err := e.pacer.Wait(ctx); err != nil {
			return enriched, err
		}
		e.logger.Debugf("Enriching %d/%d: %s", i+1, len(targets), c.DownloadURL)

		detail := e.Enrich(ctx, c)
		e.pacer.Done()
		if detail == nil {
			continue
		}
		c.MergeFrom(detail)
		enriched++
	}
	return enriched, nil
}

func (e *DetailEnricher) targets(candidates []*types.CandidateRecord) []*types.CandidateRecord {
	marker := e.config.Selectors.FacePathMarker
	if marker == "" {
		marker = types.DefaultSelectors().FacePathMarker
	}

	var targets []*types.CandidateRecord
	for _, c := range candidates {
		if len(targets) >= e.config.MaxEnrichDetails {
			break
		}
		if c != nil && strings.Contains(c.DownloadURL, marker) {
			targets = append(targets, c)
		}
	}
	return targets
}
