package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/services"
)

// CompanyHandler handles company management endpoints.
type CompanyHandler struct {
	companies services.CompanyService
	logger    *zap.Logger
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(companies services.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		companies: companies,
		logger:    logger.Named("company-handler"),
	}
}

// RegisterRoutes registers the company routes on the given mux.
func (h *CompanyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/companies", h.Create)
	mux.HandleFunc("GET /api/companies", h.List)
	mux.HandleFunc("GET /api/companies/{id}", h.Get)
	mux.HandleFunc("DELETE /api/companies/{id}", h.Delete)
	mux.HandleFunc("PATCH /api/companies/{id}/active", h.ToggleActive)
	mux.HandleFunc("PATCH /api/companies/{id}/map-option", h.ToggleMapOption)
	mux.HandleFunc("PATCH /api/companies/{id}/documents-option", h.ToggleDocumentsOption)
}

// CreateCompanyRequest is the body of POST /api/companies.
type CreateCompanyRequest struct {
	Name              string  `json:"name"`
	PipelineCompanyID int64   `json:"pipeline_company_id"`
	Brand             *string `json:"brand"`
	RequiresBrand     bool    `json:"requires_brand"`
	EnableMap         *bool   `json:"enable_map"`
	EnableDocuments   *bool   `json:"enable_documents"`
}

// Create handles POST /api/companies requests.
// New companies get the catalog's default-enabled features; explicit
// enable_map/enable_documents values in the request override the defaults.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "Company name is required")
		return
	}
	if req.PipelineCompanyID <= 0 {
		h.writeError(w, http.StatusBadRequest, "Pipeline company ID is required")
		return
	}

	company := &models.Company{
		Name:              strings.TrimSpace(req.Name),
		IsActive:          true,
		PipelineCompanyID: req.PipelineCompanyID,
		Brand:             req.Brand,
		RequiresBrand:     req.RequiresBrand,
	}

	created, err := h.companies.Create(r.Context(), company, req.EnableMap, req.EnableDocuments)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.writeError(w, http.StatusConflict, "A company with this pipeline ID already exists")
			return
		}
		h.logger.Error("Failed to create company", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to create company")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, created); err != nil {
		h.logger.Error("Failed to encode company response", zap.Error(err))
	}
}

// List handles GET /api/companies requests.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list companies", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}
	if companies == nil {
		companies = []*models.Company{}
	}

	if err := WriteJSON(w, http.StatusOK, companies); err != nil {
		h.logger.Error("Failed to encode companies response", zap.Error(err))
	}
}

// Get handles GET /api/companies/{id} requests.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
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

// Delete handles DELETE /api/companies/{id} requests.
// Feature assignments and the API token row go with the company.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.companies.Delete(r.Context(), companyID); err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleActive handles PATCH /api/companies/{id}/active requests.
func (h *CompanyHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	company, err := h.companies.ToggleActive(r.Context(), companyID)
	if err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, company); err != nil {
		h.logger.Error("Failed to encode company response", zap.Error(err))
	}
}

// ToggleMapOption handles PATCH /api/companies/{id}/map-option requests.
func (h *CompanyHandler) ToggleMapOption(w http.ResponseWriter, r *http.Request) {
	h.toggleLegacyField(w, r, models.FeatureEnableMap)
}

// ToggleDocumentsOption handles PATCH /api/companies/{id}/documents-option
// requests.
func (h *CompanyHandler) ToggleDocumentsOption(w http.ResponseWriter, r *http.Request) {
	h.toggleLegacyField(w, r, models.FeatureEnableDocuments)
}

func (h *CompanyHandler) toggleLegacyField(w http.ResponseWriter, r *http.Request, slug string) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	company, err := h.companies.ToggleLegacyField(r.Context(), companyID, slug)
	if err != nil {
		h.handleCompanyError(w, companyID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, company); err != nil {
		h.logger.Error("Failed to encode company response", zap.Error(err))
	}
}

func (h *CompanyHandler) handleCompanyError(w http.ResponseWriter, companyID int64, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Company not found")
		return
	}
	h.logger.Error("Company operation failed",
		zap.Int64("company_id", companyID),
		zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "Company operation failed")
}

func (h *CompanyHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := ErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
