package adapters

import (
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

const nameAnchorStrategy = "name-anchor"

// NameAnchorStrategy finds items by the site's name marker and reads the
// remaining fields from the nearest enclosing container.
type NameAnchorStrategy struct {
	*BaseAdapter
}

// NewNameAnchorStrategy creates a name-anchored strategy
func NewNameAnchorStrategy(base *BaseAdapter) *NameAnchorStrategy {
	return &NameAnchorStrategy{BaseAdapter: base}
}

// Name returns the strategy name
func (s *NameAnchorStrategy) Name() string {
	return nameAnchorStrategy
}

// TryExtract returns one candidate per name element that has a usable image
func (s *NameAnchorStrategy) TryExtract(doc *utils.Document) []*types.CandidateRecord {
	var candidates []*types.CandidateRecord
	allImages := doc.Find("img")

	doc.Find(s.selectors.Name).Each(func(i int, nameEl *goquery.Selection) {
		err := s.safeItem(nameAnchorStrategy, i, func() error {
			name := CleanText(nameEl.Text())
			if name == "" {
				return nil
			}

			fields := candidateFields{name: name, sourceURL: doc.URL}
			container := s.Container(nameEl)
			if container.Length() > 0 {
				var err error
				if fields.imageURL, err = s.ImageURL(doc, container.Find("img").First()); err != nil {
					return err
				}
				if fields.detailURL, err = s.DetailLink(doc, container); err != nil {
					return err
				}
				fields.author = s.author(container)
				fields.description = s.description(container, nameEl)
			}

			// Fall back to the image at the same position on the page
			if fields.imageURL == "" && i < allImages.Length() {
				var err error
				if fields.imageURL, err = s.ImageURL(doc, allImages.Eq(i)); err != nil {
					return err
				}
			}

			if candidate, ok := s.buildCandidate(fields); ok {
				candidates = append(candidates, candidate)
			}
			return nil
		})
		if err != nil {
			s.logger.Warnf("Skipping item: %v", err)
		}
	})

	return candidates
}

func (s *NameAnchorStrategy) author(container *goquery.Selection) string {
	text := CleanText(container.Find(s.selectors.Author).First().Text())
	return authorPrefix.ReplaceAllString(text, "")
}

// description takes the first description-like element that is not the name
func (s *NameAnchorStrategy) description(container, nameEl *goquery.Selection) string {
	nameNode := nameEl.Get(0)
	desc := container.Find(s.selectors.Description).FilterFunction(func(_ int, el *goquery.Selection) bool {
		return el.Get(0) != nameNode
	}).First()
	return CleanText(desc.Text())
}
