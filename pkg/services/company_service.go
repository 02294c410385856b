package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/repositories"
)

// CompanyService covers the thin company admin surface: creation with
// default-feature seeding, listing, deletion and the legacy boolean toggles.
// Everything that touches feature state delegates to the FeatureService.
type CompanyService interface {
	// Create inserts the company and seeds the catalog's default-enabled
	// features. Non-nil enableMap/enableDocuments override the seeded state
	// for that flag.
	Create(ctx context.Context, company *models.Company, enableMap, enableDocuments *bool) (*models.Company, error)
	List(ctx context.Context) ([]*models.Company, error)
	Get(ctx context.Context, id int64) (*models.Company, error)
	Delete(ctx context.Context, id int64) error
	ToggleActive(ctx context.Context, id int64) (*models.Company, error)
	// ToggleLegacyField flips one of the feature-backed boolean fields; the
	// matching assignment follows in the same transaction.
	ToggleLegacyField(ctx context.Context, id int64, slug string) (*models.Company, error)
}

type companyService struct {
	companies repositories.CompanyRepository
	features  FeatureService
	cache     *CompanyCache
	logger    *zap.Logger
}

// NewCompanyService creates a new company service. cache may be nil.
func NewCompanyService(
	companies repositories.CompanyRepository,
	features FeatureService,
	cache *CompanyCache,
	logger *zap.Logger,
) CompanyService {
	return &companyService{
		companies: companies,
		features:  features,
		cache:     cache,
		logger:    logger.Named("company-service"),
	}
}

var _ CompanyService = (*companyService)(nil)

// Create inserts the company, seeds the catalog's default-enabled features,
// then applies the caller's explicit legacy booleans over the seeded state.
func (s *companyService) Create(ctx context.Context, company *models.Company, enableMap, enableDocuments *bool) (*models.Company, error) {
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}

	if err := s.features.SeedDefaults(ctx, company.ID); err != nil {
		return nil, fmt.Errorf("failed to seed default features: %w", err)
	}

	// An explicit flag on the way in wins over the seeded default, going
	// through the assignment set like any direct boolean write.
	overrides := map[string]*bool{
		models.FeatureEnableMap:       enableMap,
		models.FeatureEnableDocuments: enableDocuments,
	}
	for _, slug := range models.LegacyMirroredSlugs {
		want := overrides[slug]
		if want == nil {
			continue
		}
		if err := s.features.SetLegacyField(ctx, company.ID, slug, *want); err != nil {
			return nil, err
		}
	}

	return s.companies.GetByID(ctx, company.ID)
}

func (s *companyService) List(ctx context.Context) ([]*models.Company, error) {
	return s.companies.List(ctx)
}

func (s *companyService) Get(ctx context.Context, id int64) (*models.Company, error) {
	return s.companies.GetByID(ctx, id)
}

// Delete removes the company; assignments and the API token cascade.
func (s *companyService) Delete(ctx context.Context, id int64) error {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.companies.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, company)
	return nil
}

// ToggleActive flips the active flag. Inactive companies never resolve, so
// the resolver cache is invalidated.
func (s *companyService) ToggleActive(ctx context.Context, id int64) (*models.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.companies.SetActive(ctx, id, !company.IsActive); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, company)
	return s.companies.GetByID(ctx, id)
}

func (s *companyService) ToggleLegacyField(ctx context.Context, id int64, slug string) (*models.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var current bool
	switch slug {
	case models.FeatureEnableMap:
		current = company.EnableMap
	case models.FeatureEnableDocuments:
		current = company.EnableDocuments
	default:
		return nil, fmt.Errorf("field %s is not feature-backed", slug)
	}

	if err := s.features.SetLegacyField(ctx, id, slug, !current); err != nil {
		return nil, err
	}
	return s.companies.GetByID(ctx, id)
}
