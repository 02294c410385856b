package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/services"
)

// CompanyFeaturesHandler handles the feature catalog and per-company
// assignment endpoints.
type CompanyFeaturesHandler struct {
	features  services.FeatureService
	companies services.CompanyService
	logger    *zap.Logger
}

// NewCompanyFeaturesHandler creates a new CompanyFeaturesHandler.
func NewCompanyFeaturesHandler(
	features services.FeatureService,
	companies services.CompanyService,
	logger *zap.Logger,
) *CompanyFeaturesHandler {
	return &CompanyFeaturesHandler{
		features:  features,
		companies: companies,
		logger:    logger.Named("company-features-handler"),
	}
}

// RegisterRoutes registers the feature routes on the given mux.
func (h *CompanyFeaturesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/features", h.ListCatalog)
	mux.HandleFunc("GET /api/companies/{id}/features", h.ListAssigned)
	mux.HandleFunc("PUT /api/companies/{id}/features", h.Sync)
	mux.HandleFunc("PATCH /api/companies/{id}/features/{slug}", h.Toggle)
}

// SyncFeaturesRequest is the body of PUT /api/companies/{id}/features.
type SyncFeaturesRequest struct {
	Features []string `json:"features"`
}

// ListCatalog handles GET /api/features requests.
func (h *CompanyFeaturesHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	features, err := h.features.ListCatalog(r.Context())
	if err != nil {
		h.logger.Error("Failed to list feature catalog", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list features")
		return
	}
	if err := WriteJSON(w, http.StatusOK, features); err != nil {
		h.logger.Error("Failed to encode features response", zap.Error(err))
	}
}

// ListAssigned handles GET /api/companies/{id}/features requests.
// Returns the slugs currently assigned to the company.
func (h *CompanyFeaturesHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	if _, err := h.companies.Get(r.Context(), companyID); err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	slugs, err := h.features.AssignedSlugs(r.Context(), companyID)
	if err != nil {
		h.logger.Error("Failed to list assigned features",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list company features")
		return
	}
	if slugs == nil {
		slugs = []string{}
	}

	if err := WriteJSON(w, http.StatusOK, map[string][]string{"features": slugs}); err != nil {
		h.logger.Error("Failed to encode company features response", zap.Error(err))
	}
}

// Sync handles PUT /api/companies/{id}/features requests.
// Replaces the company's assignment set with exactly the listed slugs.
// Unknown slugs fail the whole request with 422 before any write happens.
func (h *CompanyFeaturesHandler) Sync(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	var req SyncFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.companies.Get(r.Context(), companyID); err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	if err := h.features.ValidateSlugs(r.Context(), req.Features); err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("Failed to validate feature slugs",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to sync company features")
		return
	}

	if err := h.features.SyncFeatures(r.Context(), companyID, req.Features); err != nil {
		h.logger.Error("Failed to sync company features",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to sync company features")
		return
	}

	company, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, company); err != nil {
		h.logger.Error("Failed to encode company response", zap.Error(err))
	}
}

// Toggle handles PATCH /api/companies/{id}/features/{slug} requests.
// Flips the single named feature and returns the company with its feature
// set reloaded.
func (h *CompanyFeaturesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	slug := r.PathValue("slug")
	if slug == "" {
		h.writeError(w, http.StatusBadRequest, "Feature slug is required")
		return
	}

	if _, err := h.features.ToggleFeature(r.Context(), companyID, slug); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Company or feature not found")
			return
		}
		h.logger.Error("Failed to toggle feature",
			zap.Int64("company_id", companyID),
			zap.String("slug", slug),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to toggle feature")
		return
	}

	company, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, company); err != nil {
		h.logger.Error("Failed to encode company response", zap.Error(err))
	}
}

func (h *CompanyFeaturesHandler) handleCompanyError(w http.ResponseWriter, companyID int64, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Company not found")
		return
	}
	h.logger.Error("Failed to load company",
		zap.Int64("company_id", companyID),
		zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "Failed to load company")
}

func (h *CompanyFeaturesHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := ErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
