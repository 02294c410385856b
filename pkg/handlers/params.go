package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseCompanyID extracts and validates the company ID from the request path.
// Returns the parsed id and true on success, or 0 and false on error (after
// writing an error response).
// Expects path parameter: id
func ParseCompanyID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parseInt64(w, r, "id", "Invalid company ID format", logger)
}

// parseInt64 is the internal helper that does the actual parsing work.
func parseInt64(w http.ResponseWriter, r *http.Request, pathParam, errorMessage string, logger *zap.Logger) (int64, bool) {
	idStr := r.PathValue(pathParam)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}
