package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/database"
	"github.com/trackport/tracking-engine/pkg/models"
)

// CompanyRepository defines data access for company records. The Find*
// lookups eagerly load the feature assignment set and the API token so
// callers in the tracking path avoid extra round trips.
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	List(ctx context.Context) ([]*models.Company, error)
	GetByID(ctx context.Context, id int64) (*models.Company, error)
	FindActiveByBrand(ctx context.Context, brand string) (*models.Company, error)
	FindActiveByLocalID(ctx context.Context, id int64) (*models.Company, error)
	FindActiveByPipelineID(ctx context.Context, pipelineID int64) (*models.Company, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// companyRepository implements CompanyRepository using PostgreSQL.
type companyRepository struct {
	db *database.DB
}

// NewCompanyRepository creates a new company repository.
func NewCompanyRepository(db *database.DB) CompanyRepository {
	return &companyRepository{db: db}
}

const companySelect = `
	SELECT c.id, c.uuid, c.name, c.is_active, c.pipeline_company_id, c.brand,
	       c.requires_brand, c.enable_map, c.enable_documents,
	       c.created_at, c.updated_at, t.api_token
	FROM companies c
	LEFT JOIN company_api_tokens t ON t.company_id = c.id`

// Create inserts a new company. The mirror booleans start false; they only
// ever follow the assignment rows, which the caller seeds afterwards.
func (r *companyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.UUID == uuid.Nil {
		company.UUID = uuid.New()
	}

	now := time.Now()
	company.CreatedAt = now
	company.UpdatedAt = now

	query := `
		INSERT INTO companies (uuid, name, is_active, pipeline_company_id, brand,
		                       requires_brand, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		company.UUID,
		company.Name,
		company.IsActive,
		company.PipelineCompanyID,
		company.Brand,
		company.RequiresBrand,
		company.CreatedAt,
		company.UpdatedAt,
	).Scan(&company.ID)
	if err != nil {
		// Unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: company with this pipeline id or brand already exists", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}

	company.EnableMap = false
	company.EnableDocuments = false
	company.Features = []models.Feature{}
	company.FeaturesLoaded = true
	return nil
}

// List returns all companies with features loaded.
func (r *companyRepository) List(ctx context.Context) ([]*models.Company, error) {
	rows, err := r.db.Query(ctx, companySelect+` ORDER BY c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	byID := make(map[int64]*models.Company)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
		byID[company.ID] = company
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(companies) == 0 {
		return companies, nil
	}

	ids := make([]int64, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}

	featureQuery := `
		SELECT chf.company_id, f.id, f.name, f.slug, f.description, f.default_enabled, f.created_at, f.updated_at
		FROM company_has_feature chf
		JOIN company_features f ON f.id = chf.company_feature_id
		WHERE chf.company_id = ANY($1)
		ORDER BY f.id ASC`

	featureRows, err := r.db.Query(ctx, featureQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load company features: %w", err)
	}
	defer featureRows.Close()

	for featureRows.Next() {
		var companyID int64
		var f models.Feature
		if err := featureRows.Scan(&companyID, &f.ID, &f.Name, &f.Slug, &f.Description, &f.DefaultEnabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company feature: %w", err)
		}
		if c, ok := byID[companyID]; ok {
			c.Features = append(c.Features, f)
		}
	}
	return companies, featureRows.Err()
}

// GetByID returns one company regardless of active state (admin surface).
func (r *companyRepository) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	return r.findOne(ctx, companySelect+` WHERE c.id = $1`, id)
}

// FindActiveByBrand finds the active company with the exact brand string.
// The match is case-sensitive.
func (r *companyRepository) FindActiveByBrand(ctx context.Context, brand string) (*models.Company, error) {
	return r.findOne(ctx, companySelect+` WHERE c.is_active AND c.brand = $1`, brand)
}

// FindActiveByLocalID finds the active company with the given local id.
func (r *companyRepository) FindActiveByLocalID(ctx context.Context, id int64) (*models.Company, error) {
	return r.findOne(ctx, companySelect+` WHERE c.is_active AND c.id = $1`, id)
}

// FindActiveByPipelineID finds the active company with the given Pipeline
// (partner) company id.
func (r *companyRepository) FindActiveByPipelineID(ctx context.Context, pipelineID int64) (*models.Company, error) {
	return r.findOne(ctx, companySelect+` WHERE c.is_active AND c.pipeline_company_id = $1`, pipelineID)
}

// SetActive updates the active flag.
func (r *companyRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE companies SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update company active flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a company. Assignment rows and the API token are removed
// via CASCADE.
func (r *companyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *companyRepository) findOne(ctx context.Context, query string, arg any) (*models.Company, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query company: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query company: %w", err)
		}
		return nil, apperrors.ErrNotFound
	}

	company, err := scanCompany(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadFeatures(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (r *companyRepository) loadFeatures(ctx context.Context, company *models.Company) error {
	query := `
		SELECT f.id, f.name, f.slug, f.description, f.default_enabled, f.created_at, f.updated_at
		FROM company_has_feature chf
		JOIN company_features f ON f.id = chf.company_feature_id
		WHERE chf.company_id = $1
		ORDER BY f.id ASC`

	rows, err := r.db.Query(ctx, query, company.ID)
	if err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}
	defer rows.Close()

	company.Features = []models.Feature{}
	for rows.Next() {
		var f models.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.Description, &f.DefaultEnabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan feature: %w", err)
		}
		company.Features = append(company.Features, f)
	}
	return rows.Err()
}

func scanCompany(rows pgx.Rows) (*models.Company, error) {
	var c models.Company
	err := rows.Scan(
		&c.ID,
		&c.UUID,
		&c.Name,
		&c.IsActive,
		&c.PipelineCompanyID,
		&c.Brand,
		&c.RequiresBrand,
		&c.EnableMap,
		&c.EnableDocuments,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.APIToken,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}
	c.Features = []models.Feature{}
	c.FeaturesLoaded = true
	return &c, nil
}

// Ensure companyRepository implements CompanyRepository at compile time.
var _ CompanyRepository = (*companyRepository)(nil)
