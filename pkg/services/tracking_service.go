package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/pipeline"
)

// TrackingService orchestrates the tracking aggregation: shipment search,
// company resolution, then the feature-gated coordinate and document
// branches. Search is the only fatal step; each optional branch degrades to
// an empty result on failure and never sinks the response.
type TrackingService interface {
	// Track runs the full aggregation. Returns apperrors.ErrNotFound when
	// the search step fails, errors, or matches nothing.
	Track(ctx context.Context, query *models.TrackingQuery) (*models.AggregatedTrackingResult, error)

	// CoordinatesOnly is the standalone coordinates capability, resolved by
	// Pipeline company id alone. Returns apperrors.ErrForbidden when the
	// company does not resolve or lacks the map feature; no downstream call
	// is made in that case.
	CoordinatesOnly(ctx context.Context, trackingNumber string, pipelineCompanyID int64) (json.RawMessage, error)
}

type trackingService struct {
	searcher      pipeline.ShipmentSearcher
	coordinates   pipeline.CoordinatesFetcher
	documents     pipeline.DocumentsFetcher
	resolver      CompanyResolver
	features      FeatureService
	branchTimeout time.Duration
	logger        *zap.Logger
}

// NewTrackingService creates a new tracking service.
func NewTrackingService(
	searcher pipeline.ShipmentSearcher,
	coordinates pipeline.CoordinatesFetcher,
	documents pipeline.DocumentsFetcher,
	resolver CompanyResolver,
	features FeatureService,
	branchTimeout time.Duration,
	logger *zap.Logger,
) TrackingService {
	return &trackingService{
		searcher:      searcher,
		coordinates:   coordinates,
		documents:     documents,
		resolver:      resolver,
		features:      features,
		branchTimeout: branchTimeout,
		logger:        logger.Named("tracking-service"),
	}
}

var _ TrackingService = (*trackingService)(nil)

func (s *trackingService) Track(ctx context.Context, query *models.TrackingQuery) (*models.AggregatedTrackingResult, error) {
	search, err := s.searcher.SearchShipment(ctx, query.TrackingNumber, query.SearchOption, true)
	if err != nil {
		s.logger.Info("Shipment search failed",
			zap.String("tracking_number", query.TrackingNumber),
			zap.Error(err))
		return nil, apperrors.ErrNotFound
	}
	if len(search.Records) == 0 {
		return nil, apperrors.ErrNotFound
	}

	first := search.Records[0]
	company := s.resolver.Resolve(ctx, query.Brand, query.CompanyID, first.CompanyID)

	result := &models.AggregatedTrackingResult{
		TrackingData:      search.Raw,
		Company:           company,
		ShipmentDocuments: []models.ShipmentDocument{},
	}

	// Without a company there is nothing to gate the optional branches on.
	if company == nil {
		return result, nil
	}

	wantCoordinates := s.featureEnabled(ctx, company, models.FeatureEnableMap)
	wantDocuments := company.HasAPIToken() && s.featureEnabled(ctx, company, models.FeatureEnableDocuments)

	// The branches are independent; run them concurrently, each under its
	// own deadline, so a slow branch cannot block or fail the other.
	var wg sync.WaitGroup

	if wantCoordinates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, s.branchTimeout)
			defer cancel()

			coordinates, err := s.coordinates.GetCoordinates(branchCtx, query.TrackingNumber, first.CompanyID)
			if err != nil {
				s.logger.Warn("Coordinates branch failed",
					zap.String("tracking_number", query.TrackingNumber),
					zap.Int64("pipeline_company_id", first.CompanyID),
					zap.Error(err))
				return
			}
			result.ShipmentCoordinates = coordinates
		}()
	}

	if wantDocuments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, s.branchTimeout)
			defer cancel()

			documents, err := s.documents.GetShipmentDocuments(branchCtx, first.BolNum, *company.APIToken)
			if err != nil {
				s.logger.Warn("Documents branch failed",
					zap.String("bol_num", first.BolNum),
					zap.Int64("company_id", company.ID),
					zap.Error(err))
				return
			}
			result.ShipmentDocuments = SelectDocumentsWithMetadata(documents, TrackingDocumentCategories)
		}()
	}

	wg.Wait()
	return result, nil
}

func (s *trackingService) CoordinatesOnly(ctx context.Context, trackingNumber string, pipelineCompanyID int64) (json.RawMessage, error) {
	company := s.resolver.Resolve(ctx, "", 0, pipelineCompanyID)
	if company == nil || !s.featureEnabled(ctx, company, models.FeatureEnableMap) {
		return nil, apperrors.ErrForbidden
	}

	coordinates, err := s.coordinates.GetCoordinates(ctx, trackingNumber, pipelineCompanyID)
	if err != nil {
		s.logger.Warn("Standalone coordinates fetch failed",
			zap.String("tracking_number", trackingNumber),
			zap.Int64("pipeline_company_id", pipelineCompanyID),
			zap.Error(err))
		return nil, err
	}
	return coordinates, nil
}

// featureEnabled folds feature-check errors into "disabled": a storage
// failure while checking a gate skips the branch rather than failing the
// aggregation.
func (s *trackingService) featureEnabled(ctx context.Context, company *models.Company, slug string) bool {
	has, err := s.features.HasFeature(ctx, company, slug)
	if err != nil {
		s.logger.Warn("Feature check failed, treating as disabled",
			zap.Int64("company_id", company.ID),
			zap.String("slug", slug),
			zap.Error(err))
		return false
	}
	return has
}
