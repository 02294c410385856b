package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/repositories"
)

// FeatureService is the single source of truth for "is feature F enabled for
// company C". All feature mutations flow through it; the legacy boolean
// columns are kept consistent with the assignment set by the repository's
// transactional writes, and the resolver cache is invalidated after every
// mutation.
type FeatureService interface {
	// ListCatalog returns the full feature catalog.
	ListCatalog(ctx context.Context) ([]models.Feature, error)
	// AssignedSlugs returns the slugs currently assigned to a company.
	AssignedSlugs(ctx context.Context, companyID int64) ([]string, error)
	// ValidateSlugs returns apperrors.ErrValidation naming the first slugs
	// that have no catalog entry.
	ValidateSlugs(ctx context.Context, slugs []string) error

	HasFeature(ctx context.Context, company *models.Company, slug string) (bool, error)
	HasAnyFeature(ctx context.Context, company *models.Company, slugs []string) (bool, error)
	HasAllFeatures(ctx context.Context, company *models.Company, slugs []string) (bool, error)

	EnableFeatures(ctx context.Context, companyID int64, slugs []string) error
	DisableFeatures(ctx context.Context, companyID int64, slugs []string) error
	// SyncFeatures replaces the assignment set with exactly the given slugs.
	SyncFeatures(ctx context.Context, companyID int64, slugs []string) error
	// ToggleFeature flips one feature and returns the new state.
	ToggleFeature(ctx context.Context, companyID int64, slug string) (bool, error)
	// SetLegacyField drives a legacy mirror boolean through the assignment
	// set, so both representations change in one transaction.
	SetLegacyField(ctx context.Context, companyID int64, slug string, enabled bool) error
	// SeedDefaults assigns all default-enabled catalog features to a newly
	// created company.
	SeedDefaults(ctx context.Context, companyID int64) error
}

type featureService struct {
	features  repositories.FeatureRepository
	companies repositories.CompanyRepository
	cache     *CompanyCache
	logger    *zap.Logger
}

// NewFeatureService creates a new feature service. cache may be nil.
func NewFeatureService(
	features repositories.FeatureRepository,
	companies repositories.CompanyRepository,
	cache *CompanyCache,
	logger *zap.Logger,
) FeatureService {
	return &featureService{
		features:  features,
		companies: companies,
		cache:     cache,
		logger:    logger.Named("feature-service"),
	}
}

var _ FeatureService = (*featureService)(nil)

// ListCatalog returns all catalog entries.
func (s *featureService) ListCatalog(ctx context.Context) ([]models.Feature, error) {
	return s.features.ListFeatures(ctx)
}

// AssignedSlugs returns the assigned slugs for a company in stable order.
func (s *featureService) AssignedSlugs(ctx context.Context, companyID int64) ([]string, error) {
	return s.features.AssignedSlugs(ctx, companyID)
}

// ValidateSlugs rejects slugs that are absent from the catalog so that sync
// endpoints can fail whole requests instead of silently dropping entries.
func (s *featureService) ValidateSlugs(ctx context.Context, slugs []string) error {
	missing, err := s.features.MissingSlugs(ctx, dedupe(slugs))
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown feature slugs: %s", apperrors.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// HasFeature reports whether an assignment exists. Uses the materialized
// feature set when the company carries one, avoiding a round trip.
func (s *featureService) HasFeature(ctx context.Context, company *models.Company, slug string) (bool, error) {
	if company == nil {
		return false, nil
	}
	if company.FeaturesLoaded {
		return company.HasLoadedFeature(slug), nil
	}
	return s.features.HasAssignment(ctx, company.ID, slug)
}

// HasAnyFeature reports whether at least one of the slugs is assigned.
func (s *featureService) HasAnyFeature(ctx context.Context, company *models.Company, slugs []string) (bool, error) {
	for _, slug := range slugs {
		has, err := s.HasFeature(ctx, company, slug)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// HasAllFeatures reports whether every slug is assigned. An empty input is
// vacuously true.
func (s *featureService) HasAllFeatures(ctx context.Context, company *models.Company, slugs []string) (bool, error) {
	for _, slug := range slugs {
		has, err := s.HasFeature(ctx, company, slug)
		if err != nil {
			return false, err
		}
		if !has {
			return false, nil
		}
	}
	return true, nil
}

// EnableFeatures adds the given slugs to the assignment set. Idempotent;
// unknown slugs are silently ignored.
func (s *featureService) EnableFeatures(ctx context.Context, companyID int64, slugs []string) error {
	if err := s.features.EnableAssignments(ctx, companyID, dedupe(slugs)); err != nil {
		return err
	}
	s.invalidate(ctx, companyID)
	return nil
}

// DisableFeatures removes the given slugs from the assignment set.
func (s *featureService) DisableFeatures(ctx context.Context, companyID int64, slugs []string) error {
	if err := s.features.DisableAssignments(ctx, companyID, dedupe(slugs)); err != nil {
		return err
	}
	s.invalidate(ctx, companyID)
	return nil
}

// SyncFeatures overwrites the assignment set; everything not listed is
// removed, unknown slugs are dropped.
func (s *featureService) SyncFeatures(ctx context.Context, companyID int64, slugs []string) error {
	if err := s.features.SyncAssignments(ctx, companyID, dedupe(slugs)); err != nil {
		return err
	}
	s.invalidate(ctx, companyID)
	return nil
}

// ToggleFeature flips one feature under the repository's row lock.
func (s *featureService) ToggleFeature(ctx context.Context, companyID int64, slug string) (bool, error) {
	enabled, err := s.features.ToggleAssignment(ctx, companyID, slug)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, companyID)
	return enabled, nil
}

// SetLegacyField applies a direct write of a legacy boolean by enabling or
// disabling the matching single-feature assignment; the mirror column follows
// inside the same repository transaction.
func (s *featureService) SetLegacyField(ctx context.Context, companyID int64, slug string, enabled bool) error {
	if !models.IsLegacyMirrored(slug) {
		return fmt.Errorf("field %s is not feature-backed", slug)
	}
	if enabled {
		return s.EnableFeatures(ctx, companyID, []string{slug})
	}
	return s.DisableFeatures(ctx, companyID, []string{slug})
}

// SeedDefaults assigns the catalog's default-enabled features to a company.
// Called once at company creation.
func (s *featureService) SeedDefaults(ctx context.Context, companyID int64) error {
	slugs, err := s.features.DefaultEnabledSlugs(ctx)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		return nil
	}
	return s.EnableFeatures(ctx, companyID, slugs)
}

// invalidate reloads the company to learn its cache keys and drops them.
// Skipped entirely when the cache is off, so mutations do not pay the reload.
func (s *featureService) invalidate(ctx context.Context, companyID int64) {
	if !s.cache.Enabled() {
		return
	}
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		s.logger.Warn("Failed to reload company for cache invalidation",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return
	}
	s.cache.Invalidate(ctx, company)
}

func dedupe(slugs []string) []string {
	seen := make(map[string]bool, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
