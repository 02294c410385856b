package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/repositories"
)

// CompanyResolver resolves a company from one of its external identifiers.
// Resolution is read-only and never fails hard: storage errors are logged
// and reported as "no company", because tracking must stay displayable
// without company context.
type CompanyResolver interface {
	// Resolve applies precedence brand > localID > pipelineID; zero values
	// mean "not supplied". Returns nil when nothing resolves, the resolved
	// company fails cross-validation against a supplied pipelineID, or a
	// company that requires a brand was looked up without one.
	Resolve(ctx context.Context, brand string, localID, pipelineID int64) *models.Company
}

type companyResolver struct {
	companies repositories.CompanyRepository
	cache     *CompanyCache
	logger    *zap.Logger
}

// NewCompanyResolver creates a company resolver. cache may be nil.
func NewCompanyResolver(companies repositories.CompanyRepository, cache *CompanyCache, logger *zap.Logger) CompanyResolver {
	return &companyResolver{
		companies: companies,
		cache:     cache,
		logger:    logger.Named("company-resolver"),
	}
}

var _ CompanyResolver = (*companyResolver)(nil)

func (r *companyResolver) Resolve(ctx context.Context, brand string, localID, pipelineID int64) *models.Company {
	var company *models.Company

	switch {
	case brand != "":
		company = r.lookup(ctx, BrandKey(brand), func() (*models.Company, error) {
			return r.companies.FindActiveByBrand(ctx, brand)
		})
		if company == nil {
			return nil
		}
		if pipelineID != 0 && company.PipelineCompanyID != pipelineID {
			r.logger.Debug("Brand lookup rejected: pipeline company id mismatch",
				zap.String("brand", brand),
				zap.Int64("pipeline_company_id", pipelineID))
			return nil
		}

	case localID != 0:
		company = r.lookup(ctx, LocalIDKey(localID), func() (*models.Company, error) {
			return r.companies.FindActiveByLocalID(ctx, localID)
		})
		if company == nil {
			return nil
		}
		if pipelineID != 0 && company.PipelineCompanyID != pipelineID {
			r.logger.Debug("Local-id lookup rejected: pipeline company id mismatch",
				zap.Int64("local_id", localID),
				zap.Int64("pipeline_company_id", pipelineID))
			return nil
		}

	case pipelineID != 0:
		company = r.lookup(ctx, PipelineIDKey(pipelineID), func() (*models.Company, error) {
			return r.companies.FindActiveByPipelineID(ctx, pipelineID)
		})
		if company == nil {
			return nil
		}

	default:
		return nil
	}

	// Companies that require a brand never resolve without one, even when
	// an id-based lookup succeeded.
	if company.RequiresBrand && brand == "" {
		return nil
	}

	return company
}

// lookup consults the cache first, then the repository. A lookup miss and a
// storage failure both yield nil; only the latter is logged.
func (r *companyResolver) lookup(ctx context.Context, cacheKey string, fetch func() (*models.Company, error)) *models.Company {
	if cached := r.cache.Get(ctx, cacheKey); cached != nil {
		return cached
	}

	company, err := fetch()
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			r.logger.Error("Error finding company by identifier",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}
		return nil
	}

	r.cache.Put(ctx, cacheKey, company)
	return company
}
