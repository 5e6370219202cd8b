package types

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultCategory is assigned to every record; the source site exposes none.
	DefaultCategory = "General"

	// FreePrice is the price sentinel used when no price is shown.
	FreePrice = "Free"

	MaxNameLength        = 200
	MaxDescriptionLength = 500
	MaxAuthorLength      = 100
)

// Metadata describes where and when a record was scraped
type Metadata struct {
	SourceURL  string    `json:"source_url"`
	OriginalID string    `json:"original_id"`
	FaceID     string    `json:"face_id,omitempty"`
	ScrapedAt  time.Time `json:"scraped_at"`
}

// CandidateRecord is an extracted watch face that has not been persisted yet
type CandidateRecord struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	ImageURL      string   `json:"image_url"`
	DownloadURL   string   `json:"download_url"`
	Price         string   `json:"price"`
	Author        string   `json:"author"`
	Rating        *float64 `json:"rating,omitempty"`
	Downloads     int      `json:"downloads"`
	Tags          []string `json:"tags"`
	Compatibility []string `json:"compatibility"`
	Metadata      Metadata `json:"metadata"`
}

// DedupKey returns the (name, imageUrl) pair identifying a record
func (c *CandidateRecord) DedupKey() DedupKey {
	return DedupKey{Name: c.Name, ImageURL: c.ImageURL}
}

// HasEssentials reports whether the record carries the fields every stored
// record needs.
func (c *CandidateRecord) HasEssentials() bool {
	return c.Name != "" && c.ImageURL != ""
}

// MergeFrom overwrites fields of c with the non-empty fields of incoming.
// Empty strings, empty lists, a nil rating and zero downloads never replace
// an existing value.
func (c *CandidateRecord) MergeFrom(incoming *CandidateRecord) {
	if incoming == nil {
		return
	}
	mergeString(&c.Name, incoming.Name)
	mergeString(&c.Description, incoming.Description)
	mergeString(&c.Category, incoming.Category)
	mergeString(&c.ImageURL, incoming.ImageURL)
	mergeString(&c.DownloadURL, incoming.DownloadURL)
	mergeString(&c.Price, incoming.Price)
	mergeString(&c.Author, incoming.Author)
	if incoming.Rating != nil {
		rating := *incoming.Rating
		c.Rating = &rating
	}
	if incoming.Downloads > 0 {
		c.Downloads = incoming.Downloads
	}
	if len(incoming.Tags) > 0 {
		c.Tags = append([]string(nil), incoming.Tags...)
	}
	if len(incoming.Compatibility) > 0 {
		c.Compatibility = append([]string(nil), incoming.Compatibility...)
	}
	mergeString(&c.Metadata.SourceURL, incoming.Metadata.SourceURL)
	mergeString(&c.Metadata.OriginalID, incoming.Metadata.OriginalID)
	mergeString(&c.Metadata.FaceID, incoming.Metadata.FaceID)
	if !incoming.Metadata.ScrapedAt.IsZero() {
		c.Metadata.ScrapedAt = incoming.Metadata.ScrapedAt
	}
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// DedupKey is the identity used to collapse duplicates and to match stored records
type DedupKey struct {
	Name     string
	ImageURL string
}

// StoredRecord is a persisted watch face as returned by the store
type StoredRecord struct {
	ID string `json:"id"`
	CandidateRecord
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// Lookup selects a stored record by dedup key or by original id
type Lookup struct {
	Name       string
	ImageURL   string
	OriginalID string
}

// ReconcileResult holds the counts produced by a reconciliation pass
type ReconcileResult struct {
	Saved   int `json:"saved"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
}
