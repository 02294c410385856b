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

// TrackingHandler handles the tracking aggregation endpoints.
type TrackingHandler struct {
	tracking services.TrackingService
	logger   *zap.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(tracking services.TrackingService, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		logger:   logger.Named("tracking-handler"),
	}
}

// RegisterRoutes registers the tracking routes on the given mux.
func (h *TrackingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tracking", h.Track)
	mux.HandleFunc("POST /api/tracking/coordinates", h.Coordinates)
}

// TrackRequest is the body of POST /api/tracking.
type TrackRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	SearchOption   string `json:"searchOption"`
	CompanyID      int64  `json:"companyId"`
	Brand          string `json:"brand"`
}

// CoordinatesRequest is the body of POST /api/tracking/coordinates.
type CoordinatesRequest struct {
	TrackingNumber   string `json:"trackingNumber"`
	PartnerCompanyID int64  `json:"partnerCompanyId"`
}

// Track handles POST /api/tracking requests.
// Runs the full aggregation and returns the merged payload, or 404 when the
// shipment search comes back empty or failed.
func (h *TrackingHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.TrackingNumber) == "" {
		h.writeError(w, http.StatusBadRequest, "Tracking number is required")
		return
	}

	query := &models.TrackingQuery{
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		SearchOption:   req.SearchOption,
		CompanyID:      req.CompanyID,
		Brand:          strings.ToUpper(strings.TrimSpace(req.Brand)),
	}

	result, err := h.tracking.Track(r.Context(), query)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Tracking data not found or invalid.")
			return
		}
		h.logger.Error("Tracking aggregation failed",
			zap.String("tracking_number", query.TrackingNumber),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch tracking data")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode tracking response", zap.Error(err))
	}
}

// Coordinates handles POST /api/tracking/coordinates requests.
// Standalone coordinates lookup gated on the map feature of the company
// identified by its Pipeline id.
func (h *TrackingHandler) Coordinates(w http.ResponseWriter, r *http.Request) {
	var req CoordinatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.TrackingNumber) == "" || req.PartnerCompanyID <= 0 {
		h.writeError(w, http.StatusBadRequest, "Tracking number and partner company ID are required")
		return
	}

	payload, err := h.tracking.CoordinatesOnly(r.Context(), strings.TrimSpace(req.TrackingNumber), req.PartnerCompanyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			h.writeError(w, http.StatusForbidden, "Map feature is disabled for this company.")
			return
		}
		h.logger.Error("Coordinates lookup failed",
			zap.String("tracking_number", req.TrackingNumber),
			zap.Int64("partner_company_id", req.PartnerCompanyID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch coordinates")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("Failed to write coordinates response", zap.Error(err))
	}
}

func (h *TrackingHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := ErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
