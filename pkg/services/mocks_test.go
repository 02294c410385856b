package services

import (
	"context"
	"encoding/json"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/pipeline"
	"github.com/trackport/tracking-engine/pkg/repositories"
)

// mockCompanyRepository serves companies from in-memory maps keyed by the
// three resolver identifiers.
type mockCompanyRepository struct {
	byBrand      map[string]*models.Company
	byLocalID    map[int64]*models.Company
	byPipelineID map[int64]*models.Company
	byID         map[int64]*models.Company
	err          error

	brandCalls    int
	localCalls    int
	pipelineCalls int
	getByIDCalls  int
}

var _ repositories.CompanyRepository = (*mockCompanyRepository)(nil)

func (m *mockCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if m.err != nil {
		return m.err
	}
	if company.ID == 0 {
		company.ID = int64(len(m.byID) + 1)
	}
	// Mirror booleans only ever follow assignment writes.
	company.EnableMap = false
	company.EnableDocuments = false
	if m.byID == nil {
		m.byID = map[int64]*models.Company{}
	}
	m.byID[company.ID] = company
	return nil
}

func (m *mockCompanyRepository) List(ctx context.Context) ([]*models.Company, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Company, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCompanyRepository) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	m.getByIDCalls++
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCompanyRepository) FindActiveByBrand(ctx context.Context, brand string) (*models.Company, error) {
	m.brandCalls++
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byBrand[brand]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCompanyRepository) FindActiveByLocalID(ctx context.Context, id int64) (*models.Company, error) {
	m.localCalls++
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byLocalID[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCompanyRepository) FindActiveByPipelineID(ctx context.Context, pipelineID int64) (*models.Company, error) {
	m.pipelineCalls++
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byPipelineID[pipelineID]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCompanyRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if m.err != nil {
		return m.err
	}
	c, ok := m.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (m *mockCompanyRepository) Delete(ctx context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	delete(m.byID, id)
	return nil
}

// mockFeatureRepository keeps per-company assignment sets in memory.
type mockFeatureRepository struct {
	catalog     []models.Feature
	assignments map[int64]map[string]bool
	err         error

	enabled  [][]string
	disabled [][]string
	synced   [][]string
	toggled  []string
}

var _ repositories.FeatureRepository = (*mockFeatureRepository)(nil)

func (m *mockFeatureRepository) set(companyID int64) map[string]bool {
	if m.assignments == nil {
		m.assignments = map[int64]map[string]bool{}
	}
	if m.assignments[companyID] == nil {
		m.assignments[companyID] = map[string]bool{}
	}
	return m.assignments[companyID]
}

func (m *mockFeatureRepository) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	return m.catalog, m.err
}

func (m *mockFeatureRepository) GetBySlug(ctx context.Context, slug string) (*models.Feature, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.catalog {
		if m.catalog[i].Slug == slug {
			return &m.catalog[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFeatureRepository) DefaultEnabledSlugs(ctx context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []string
	for _, f := range m.catalog {
		if f.DefaultEnabled {
			out = append(out, f.Slug)
		}
	}
	return out, nil
}

func (m *mockFeatureRepository) MissingSlugs(ctx context.Context, slugs []string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	known := map[string]bool{}
	for _, f := range m.catalog {
		known[f.Slug] = true
	}
	var missing []string
	for _, s := range slugs {
		if !known[s] {
			missing = append(missing, s)
		}
	}
	return missing, nil
}

func (m *mockFeatureRepository) AssignedSlugs(ctx context.Context, companyID int64) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []string
	for slug := range m.set(companyID) {
		out = append(out, slug)
	}
	return out, nil
}

func (m *mockFeatureRepository) HasAssignment(ctx context.Context, companyID int64, slug string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.set(companyID)[slug], nil
}

func (m *mockFeatureRepository) EnableAssignments(ctx context.Context, companyID int64, slugs []string) error {
	if m.err != nil {
		return m.err
	}
	m.enabled = append(m.enabled, slugs)
	for _, s := range slugs {
		m.set(companyID)[s] = true
	}
	return nil
}

func (m *mockFeatureRepository) DisableAssignments(ctx context.Context, companyID int64, slugs []string) error {
	if m.err != nil {
		return m.err
	}
	m.disabled = append(m.disabled, slugs)
	for _, s := range slugs {
		delete(m.set(companyID), s)
	}
	return nil
}

func (m *mockFeatureRepository) SyncAssignments(ctx context.Context, companyID int64, slugs []string) error {
	if m.err != nil {
		return m.err
	}
	m.synced = append(m.synced, slugs)
	set := map[string]bool{}
	for _, s := range slugs {
		set[s] = true
	}
	m.assignments[companyID] = set
	return nil
}

func (m *mockFeatureRepository) ToggleAssignment(ctx context.Context, companyID int64, slug string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, err := m.GetBySlug(ctx, slug); err != nil {
		return false, err
	}
	m.toggled = append(m.toggled, slug)
	set := m.set(companyID)
	if set[slug] {
		delete(set, slug)
		return false, nil
	}
	set[slug] = true
	return true, nil
}

// mockSearcher implements pipeline.ShipmentSearcher.
type mockSearcher struct {
	result *pipeline.SearchResult
	err    error
	calls  int
}

var _ pipeline.ShipmentSearcher = (*mockSearcher)(nil)

func (m *mockSearcher) SearchShipment(ctx context.Context, trackingNumber, searchOption string, globalSearch bool) (*pipeline.SearchResult, error) {
	m.calls++
	return m.result, m.err
}

// mockCoordinatesFetcher implements pipeline.CoordinatesFetcher.
type mockCoordinatesFetcher struct {
	payload json.RawMessage
	err     error
	calls   int
}

var _ pipeline.CoordinatesFetcher = (*mockCoordinatesFetcher)(nil)

func (m *mockCoordinatesFetcher) GetCoordinates(ctx context.Context, trackingNumber string, pipelineCompanyID int64) (json.RawMessage, error) {
	m.calls++
	return m.payload, m.err
}

// mockDocumentsFetcher implements pipeline.DocumentsFetcher.
type mockDocumentsFetcher struct {
	documents []pipeline.Document
	err       error
	calls     int
	apiToken  string
}

var _ pipeline.DocumentsFetcher = (*mockDocumentsFetcher)(nil)

func (m *mockDocumentsFetcher) GetShipmentDocuments(ctx context.Context, bolNum, apiToken string) ([]pipeline.Document, error) {
	m.calls++
	m.apiToken = apiToken
	return m.documents, m.err
}

// mockResolver implements CompanyResolver with a fixed answer.
type mockResolver struct {
	company *models.Company
}

var _ CompanyResolver = (*mockResolver)(nil)

func (m *mockResolver) Resolve(ctx context.Context, brand string, localID, pipelineID int64) *models.Company {
	return m.company
}
