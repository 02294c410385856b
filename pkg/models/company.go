package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant record. A company is identified externally by its
// Pipeline company id (assigned by the tracking-data provider) and optionally
// by a display brand. EnableMap and EnableDocuments are legacy mirrors of the
// feature assignment set; see LegacyMirroredSlugs.
type Company struct {
	ID                int64     `json:"id"`
	UUID              uuid.UUID `json:"uuid"`
	Name              string    `json:"name"`
	IsActive          bool      `json:"is_active"`
	PipelineCompanyID int64     `json:"pipeline_company_id"`
	Brand             *string   `json:"brand"`
	RequiresBrand     bool      `json:"requires_brand"`
	EnableMap         bool      `json:"enable_map"`
	EnableDocuments   bool      `json:"enable_documents"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Features is the eagerly loaded assignment set. FeaturesLoaded
	// distinguishes "loaded and empty" from "not loaded".
	Features       []Feature `json:"features"`
	FeaturesLoaded bool      `json:"-"`

	// APIToken is the per-company Pipeline document credential.
	// Never serialized.
	APIToken *string `json:"-"`
}

// HasAPIToken reports whether a Pipeline API token is on record.
func (c *Company) HasAPIToken() bool {
	return c.APIToken != nil && *c.APIToken != ""
}

// HasLoadedFeature checks slug membership in the materialized feature set.
// Only meaningful when FeaturesLoaded is true; callers that may hold an
// unloaded company go through the feature service instead.
func (c *Company) HasLoadedFeature(slug string) bool {
	for _, f := range c.Features {
		if f.Slug == slug {
			return true
		}
	}
	return false
}

// FeatureSlugs returns the slugs of the loaded feature set.
func (c *Company) FeatureSlugs() []string {
	slugs := make([]string, 0, len(c.Features))
	for _, f := range c.Features {
		slugs = append(slugs, f.Slug)
	}
	return slugs
}
