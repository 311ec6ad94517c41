package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/util"
)

// MediaType distinguishes movies from series
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// ParseMediaType parses a media type string, defaulting to movie for
// unknown or missing values. Malformed input never fails here.
func ParseMediaType(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "series", "show", "tv", "tvseries":
		return MediaTypeSeries
	default:
		return MediaTypeMovie
	}
}

// CreditRole is the role a credited person played
type CreditRole string

const (
	RoleDirector CreditRole = "director"
	RoleProducer CreditRole = "producer"
	RoleActor    CreditRole = "actor"
)

// ParseCreditRole parses a role string, defaulting to actor
func ParseCreditRole(s string) CreditRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "director":
		return RoleDirector
	case "producer":
		return RoleProducer
	default:
		return RoleActor
	}
}

// Credit is one credited person on a scraped listing
type Credit struct {
	Role  CreditRole `json:"role"`
	Name  string     `json:"name"`
	Order int        `json:"order"`
}

// ScrapedRecord is the fixed input shape produced by the platform scrapers.
// Optional fields are zero-valued when the platform did not supply them;
// missing optional data is never fatal.
type ScrapedRecord struct {
	Platform   string          `json:"platform"`
	SourceID   string          `json:"source_id"`
	Title      string          `json:"title"`
	ExternalID string          `json:"external_id,omitempty"` // industry id, e.g. IMDB
	Year       int             `json:"year,omitempty"`
	MediaType  MediaType       `json:"media_type,omitempty"`
	Genres     []string        `json:"genres,omitempty"`
	Credits    []Credit        `json:"credits,omitempty"`
	SourceURL  string          `json:"url,omitempty"`
	ScrapedAt  time.Time       `json:"scraped_at,omitempty"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// Validate checks the fields the engine cannot proceed without.
// Optional fields are normalized in place (media type default, year
// sanity window, trimmed strings).
func (r *ScrapedRecord) Validate() error {
	r.Platform = strings.ToLower(strings.TrimSpace(r.Platform))
	r.SourceID = strings.TrimSpace(r.SourceID)
	r.Title = strings.TrimSpace(r.Title)
	r.ExternalID = strings.TrimSpace(r.ExternalID)

	if r.Platform == "" {
		return fmt.Errorf("%w: missing platform name", util.ErrInvalidRecord)
	}
	if r.SourceID == "" {
		return fmt.Errorf("%w: missing platform-local source id", util.ErrInvalidRecord)
	}
	if r.Title == "" {
		return fmt.Errorf("%w: missing title", util.ErrInvalidRecord)
	}

	// Implausible years are treated as unknown, not as errors
	if r.Year < 1880 || r.Year > time.Now().Year()+2 {
		r.Year = 0
	}

	r.MediaType = ParseMediaType(string(r.MediaType))

	if r.ScrapedAt.IsZero() {
		r.ScrapedAt = time.Now()
	}

	return nil
}
