package models

import "time"

// Feature slugs that are hardwired into the tracking flow. The catalog may
// hold arbitrary admin-defined slugs beyond these.
const (
	FeatureEnableMap       = "enable_map"
	FeatureEnableDocuments = "enable_documents"
)

// LegacyMirroredSlugs is the fixed set of feature slugs that are additionally
// exposed as boolean columns on the companies table for older readers. The
// assignment set is authoritative; the columns are a denormalized cache
// recomputed transactionally on every feature write.
var LegacyMirroredSlugs = []string{FeatureEnableMap, FeatureEnableDocuments}

// IsLegacyMirrored reports whether the slug has a boolean mirror column.
func IsLegacyMirrored(slug string) bool {
	for _, s := range LegacyMirroredSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// Feature is a catalog entry for a toggleable company capability.
type Feature struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    *string   `json:"description"`
	DefaultEnabled bool      `json:"default_enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FeatureAssignment links a company to a catalog feature. At most one
// assignment exists per (company, feature) pair.
type FeatureAssignment struct {
	CompanyID int64     `json:"company_id"`
	FeatureID int64     `json:"feature_id"`
	CreatedAt time.Time `json:"created_at"`
}
