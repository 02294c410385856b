package handlers

import (
	"context"
	"encoding/json"

	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/services"
)

// mockTrackingService implements services.TrackingService for handler tests.
type mockTrackingService struct {
	trackResult *models.AggregatedTrackingResult
	trackErr    error
	trackQuery  *models.TrackingQuery

	coordsPayload json.RawMessage
	coordsErr     error
	coordsNumber  string
	coordsPID     int64
}

var _ services.TrackingService = (*mockTrackingService)(nil)

func (m *mockTrackingService) Track(ctx context.Context, query *models.TrackingQuery) (*models.AggregatedTrackingResult, error) {
	m.trackQuery = query
	if m.trackErr != nil {
		return nil, m.trackErr
	}
	return m.trackResult, nil
}

func (m *mockTrackingService) CoordinatesOnly(ctx context.Context, trackingNumber string, pipelineCompanyID int64) (json.RawMessage, error) {
	m.coordsNumber = trackingNumber
	m.coordsPID = pipelineCompanyID
	if m.coordsErr != nil {
		return nil, m.coordsErr
	}
	return m.coordsPayload, nil
}

// mockFeatureService implements services.FeatureService for handler tests.
type mockFeatureService struct {
	catalog     []models.Feature
	catalogErr  error
	assigned    []string
	assignedErr error
	validateErr error
	syncErr     error
	syncedSlugs []string
	toggleState bool
	toggleErr   error
	toggledSlug string
}

var _ services.FeatureService = (*mockFeatureService)(nil)

func (m *mockFeatureService) ListCatalog(ctx context.Context) ([]models.Feature, error) {
	return m.catalog, m.catalogErr
}

func (m *mockFeatureService) AssignedSlugs(ctx context.Context, companyID int64) ([]string, error) {
	return m.assigned, m.assignedErr
}

func (m *mockFeatureService) ValidateSlugs(ctx context.Context, slugs []string) error {
	return m.validateErr
}

func (m *mockFeatureService) HasFeature(ctx context.Context, company *models.Company, slug string) (bool, error) {
	return false, nil
}

func (m *mockFeatureService) HasAnyFeature(ctx context.Context, company *models.Company, slugs []string) (bool, error) {
	return false, nil
}

func (m *mockFeatureService) HasAllFeatures(ctx context.Context, company *models.Company, slugs []string) (bool, error) {
	return true, nil
}

func (m *mockFeatureService) EnableFeatures(ctx context.Context, companyID int64, slugs []string) error {
	return nil
}

func (m *mockFeatureService) DisableFeatures(ctx context.Context, companyID int64, slugs []string) error {
	return nil
}

func (m *mockFeatureService) SyncFeatures(ctx context.Context, companyID int64, slugs []string) error {
	m.syncedSlugs = slugs
	return m.syncErr
}

func (m *mockFeatureService) ToggleFeature(ctx context.Context, companyID int64, slug string) (bool, error) {
	m.toggledSlug = slug
	return m.toggleState, m.toggleErr
}

func (m *mockFeatureService) SetLegacyField(ctx context.Context, companyID int64, slug string, enabled bool) error {
	return nil
}

func (m *mockFeatureService) SeedDefaults(ctx context.Context, companyID int64) error {
	return nil
}

// mockCompanyService implements services.CompanyService for handler tests.
type mockCompanyService struct {
	company    *models.Company
	companyErr error
	companies  []*models.Company
	listErr    error
	created    *models.Company
	createErr  error
	deleteErr  error
	deletedID  int64
	toggledID  int64
	legacySlug string
}

var _ services.CompanyService = (*mockCompanyService)(nil)

func (m *mockCompanyService) Create(ctx context.Context, company *models.Company, enableMap, enableDocuments *bool) (*models.Company, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.created != nil {
		return m.created, nil
	}
	return company, nil
}

func (m *mockCompanyService) List(ctx context.Context) ([]*models.Company, error) {
	return m.companies, m.listErr
}

func (m *mockCompanyService) Get(ctx context.Context, id int64) (*models.Company, error) {
	return m.company, m.companyErr
}

func (m *mockCompanyService) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return m.deleteErr
}

func (m *mockCompanyService) ToggleActive(ctx context.Context, id int64) (*models.Company, error) {
	m.toggledID = id
	return m.company, m.companyErr
}

func (m *mockCompanyService) ToggleLegacyField(ctx context.Context, id int64, slug string) (*models.Company, error) {
	m.toggledID = id
	m.legacySlug = slug
	return m.company, m.companyErr
}
