package adapters

import (
	"fmt"
	"strings"

	"watchface-scraper/internal/types"
	"watchface-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

const (
	imageAnchorStrategy = "image-anchor"

	// MinImageSize is the smallest rendered width or height of a listing image
	MinImageSize = 50

	maxHeadingNameLength = 100
)

// ImageAnchorStrategy treats every sizeable, non-decorative image as an item
// and looks for its name around it.
type ImageAnchorStrategy struct {
	*BaseAdapter
}

// NewImageAnchorStrategy creates an image-anchored strategy
func NewImageAnchorStrategy(base *BaseAdapter) *ImageAnchorStrategy {
	return &ImageAnchorStrategy{BaseAdapter: base}
}

// Name returns the strategy name
func (s *ImageAnchorStrategy) Name() string {
	return imageAnchorStrategy
}

// TryExtract returns one candidate per qualifying image. Images without a
// nearby name get a positional placeholder name.
func (s *ImageAnchorStrategy) TryExtract(doc *utils.Document) []*types.CandidateRecord {
	var candidates []*types.CandidateRecord

	doc.Find("img").Each(func(i int, img *goquery.Selection) {
		err := s.safeItem(imageAnchorStrategy, i, func() error {
			if tooSmall(img) {
				return nil
			}

			imageURL, err := s.ImageURL(doc, img)
			if err != nil {
				return err
			}
			if imageURL == "" || isDecorative(imageURL) {
				return nil
			}

			fields := candidateFields{imageURL: imageURL, sourceURL: doc.URL}
			container := s.Container(img)
			if container.Length() > 0 {
				fields.name = s.nameNear(container)
				if fields.detailURL, err = s.DetailLink(doc, container); err != nil {
					return err
				}
			}
			if fields.name == "" {
				fields.name = fmt.Sprintf("Watch Face %d", i+1)
			}

			if candidate, ok := s.buildCandidate(fields); ok {
				candidates = append(candidates, candidate)
			}
			return nil
		})
		if err != nil {
			s.logger.Warnf("Skipping image: %v", err)
		}
	})

	return candidates
}

// nameNear prefers the site's name marker and falls back to the first
// heading-like element with a short, non-empty text.
func (s *ImageAnchorStrategy) nameNear(container *goquery.Selection) string {
	if name := CleanText(container.Find(s.selectors.Name).First().Text()); name != "" {
		return name
	}

	var name string
	container.Find(s.selectors.Heading).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := CleanText(h.Text())
		if text != "" && len([]rune(text)) < maxHeadingNameLength {
			name = text
			return false
		}
		return true
	})
	return name
}

// tooSmall reports whether a known dimension is below MinImageSize. Images
// of unknown size pass.
func tooSmall(img *goquery.Selection) bool {
	if w, ok := imageDimension(img, utils.RenderedWidthAttr, "width"); ok && w < MinImageSize {
		return true
	}
	if h, ok := imageDimension(img, utils.RenderedHeightAttr, "height"); ok && h < MinImageSize {
		return true
	}
	return false
}

func isDecorative(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	return strings.Contains(lower, "logo") || strings.Contains(lower, "icon")
}
