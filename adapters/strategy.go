package adapters

import (
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"
)

// ExtractionStrategy turns a rendered listing into candidate records
type ExtractionStrategy interface {
	Name() string
	TryExtract(doc *utils.Document) []*types.CandidateRecord
}

// ExtractionEngine applies its strategies in order and keeps the output of
// the first one that finds anything.
type ExtractionEngine struct {
	strategies []ExtractionStrategy
	logger     types.Logger
}

// NewExtractionEngine creates the default engine: name-anchored extraction
// first, image-anchored extraction as the fallback.
func NewExtractionEngine(selectors types.Selectors, siteURL string, logger types.Logger) *ExtractionEngine {
	base := NewBaseAdapter(selectors, siteURL, logger)
	return NewExtractionEngineWith(logger, NewNameAnchorStrategy(base), NewImageAnchorStrategy(base))
}

// NewExtractionEngineWith creates an engine over the given strategies
func NewExtractionEngineWith(logger types.Logger, strategies ...ExtractionStrategy) *ExtractionEngine {
	return &ExtractionEngine{strategies: strategies, logger: logger}
}

// Extract returns the candidates found by the first productive strategy.
// A page where no strategy matches yields an empty slice.
func (e *ExtractionEngine) Extract(doc *utils.Document) []*types.CandidateRecord {
	if doc == nil || doc.Document == nil {
		return nil
	}
	for _, strategy := range e.strategies {
		candidates := strategy.TryExtract(doc)
		if len(candidates) > 0 {
			e.logger.WithField("strategy", strategy.Name()).Infof("Extracted %d watch faces from %s", len(candidates), doc.URL)
			return candidates
		}
		e.logger.Debugf("Strategy %s found nothing on %s", strategy.Name(), doc.URL)
	}
	e.logger.Warnf("No watch faces found on %s", doc.URL)
	return []*types.CandidateRecord{}
}
