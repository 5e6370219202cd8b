package adapters

import (
	"watchface-scraper/internal/types"
	"watchface-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// MaxDetailTags caps the tags taken from a detail page's compatibility list
const MaxDetailTags = 10

// DetailParser reads the richer fields shown on a watch face's detail page
type DetailParser struct {
	*BaseAdapter
}

// NewDetailParser creates a detail page parser
func NewDetailParser(selectors types.Selectors, siteURL string, logger types.Logger) *DetailParser {
	return &DetailParser{BaseAdapter: NewBaseAdapter(selectors, siteURL, logger)}
}

// Parse returns the fields found on doc as a partial record. Fields the page
// does not show are left empty so that merging keeps the listing values.
func (d *DetailParser) Parse(doc *utils.Document) (*types.CandidateRecord, error) {
	sel := d.selectors

	name := Truncate(firstText(doc.Find(sel.DetailName)), types.MaxNameLength)
	author := authorPrefix.ReplaceAllString(firstText(doc.Find(sel.DetailAuthor)), "")
	description := Truncate(firstText(doc.Find(sel.DetailDesc)), types.MaxDescriptionLength)

	imageURL, err := d.ImageURL(doc, doc.Find(sel.DetailImage).First())
	if err != nil {
		return nil, err
	}

	apps := d.compatibility(doc)
	tags := apps
	if len(tags) > MaxDetailTags {
		tags = tags[:MaxDetailTags]
	}

	record := &types.CandidateRecord{
		Name:          name,
		Description:   description,
		ImageURL:      imageURL,
		DownloadURL:   doc.URL,
		Author:        Truncate(author, types.MaxAuthorLength),
		Tags:          append([]string(nil), tags...),
		Compatibility: apps,
		Metadata: types.Metadata{
			FaceID: ExtractFaceID(doc.URL),
		},
	}
	switch {
	case record.Metadata.FaceID != "":
		record.Metadata.OriginalID = "face_" + record.Metadata.FaceID
		record.DownloadURL = d.siteURL + "/face/" + record.Metadata.FaceID
	case name != "" && imageURL != "":
		record.Metadata.OriginalID = FallbackOriginalID(name, imageURL)
	}
	return record, nil
}

// compatibility collects the distinct leaf texts of the apps section
func (d *DetailParser) compatibility(doc *utils.Document) []string {
	section := doc.Find(d.selectors.DetailApps).First()
	if section.Length() == 0 {
		return nil
	}

	leaves := section.Find("*").FilterFunction(func(_ int, el *goquery.Selection) bool {
		return el.Children().Length() == 0
	})
	if leaves.Length() == 0 {
		leaves = section
	}

	var apps []string
	seen := make(map[string]bool)
	leaves.Each(func(_ int, el *goquery.Selection) {
		text := CleanText(el.Text())
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		apps = append(apps, text)
	})
	return apps
}

// firstText returns the first non-empty cleaned text among s
func firstText(s *goquery.Selection) string {
	var text string
	s.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text = CleanText(el.Text())
		return text == ""
	})
	return text
}
