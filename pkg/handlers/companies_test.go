package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/models"
)

func TestCompanyHandler_Create_Success(t *testing.T) {
	companies := &mockCompanyService{created: testCompany(7)}
	handler := NewCompanyHandler(companies, zap.NewNop())

	body, _ := json.Marshal(CreateCompanyRequest{
		Name:              "Acme Logistics",
		PipelineCompanyID: 501,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/companies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	var resp models.Company
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != 7 {
		t.Errorf("expected company 7, got %d", resp.ID)
	}
}

func TestCompanyHandler_Create_MissingName(t *testing.T) {
	handler := NewCompanyHandler(&mockCompanyService{}, zap.NewNop())

	body, _ := json.Marshal(CreateCompanyRequest{PipelineCompanyID: 501})
	req := httptest.NewRequest(http.MethodPost, "/api/companies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestCompanyHandler_Create_Conflict(t *testing.T) {
	companies := &mockCompanyService{createErr: apperrors.ErrConflict}
	handler := NewCompanyHandler(companies, zap.NewNop())

	body, _ := json.Marshal(CreateCompanyRequest{
		Name:              "Acme Logistics",
		PipelineCompanyID: 501,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/companies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestCompanyHandler_List_EmptyIsArray(t *testing.T) {
	handler := NewCompanyHandler(&mockCompanyService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/companies", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}

func TestCompanyHandler_Get_NotFound(t *testing.T) {
	companies := &mockCompanyService{companyErr: apperrors.ErrNotFound}
	handler := NewCompanyHandler(companies, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/companies/99", nil)
	req.SetPathValue("id", "99")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCompanyHandler_Delete_Success(t *testing.T) {
	companies := &mockCompanyService{}
	handler := NewCompanyHandler(companies, zap.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/api/companies/7", nil)
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if companies.deletedID != 7 {
		t.Errorf("expected delete of company 7, got %d", companies.deletedID)
	}
}

func TestCompanyHandler_ToggleActive(t *testing.T) {
	companies := &mockCompanyService{company: testCompany(7)}
	handler := NewCompanyHandler(companies, zap.NewNop())

	req := httptest.NewRequest(http.MethodPatch, "/api/companies/7/active", nil)
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	handler.ToggleActive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if companies.toggledID != 7 {
		t.Errorf("expected toggle of company 7, got %d", companies.toggledID)
	}
}

func TestCompanyHandler_ToggleMapOption_RoutesToSlug(t *testing.T) {
	companies := &mockCompanyService{company: testCompany(7)}
	handler := NewCompanyHandler(companies, zap.NewNop())

	req := httptest.NewRequest(http.MethodPatch, "/api/companies/7/map-option", nil)
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	handler.ToggleMapOption(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if companies.legacySlug != models.FeatureEnableMap {
		t.Errorf("expected slug enable_map, got %q", companies.legacySlug)
	}
}

func TestCompanyHandler_ToggleDocumentsOption_RoutesToSlug(t *testing.T) {
	companies := &mockCompanyService{company: testCompany(7)}
	handler := NewCompanyHandler(companies, zap.NewNop())

	req := httptest.NewRequest(http.MethodPatch, "/api/companies/7/documents-option", nil)
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	handler.ToggleDocumentsOption(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if companies.legacySlug != models.FeatureEnableDocuments {
		t.Errorf("expected slug enable_documents, got %q", companies.legacySlug)
	}
}
