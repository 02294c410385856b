package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/models"
)

func resolverFixture() (*mockCompanyRepository, CompanyResolver) {
	acme := &models.Company{
		ID:                7,
		Name:              "Acme Logistics",
		IsActive:          true,
		PipelineCompanyID: 501,
	}
	brand := "ACME"
	acme.Brand = &brand

	repo := &mockCompanyRepository{
		byBrand:      map[string]*models.Company{"ACME": acme},
		byLocalID:    map[int64]*models.Company{7: acme},
		byPipelineID: map[int64]*models.Company{501: acme},
		byID:         map[int64]*models.Company{7: acme},
	}
	return repo, NewCompanyResolver(repo, nil, zap.NewNop())
}

func TestCompanyResolver_BrandWins(t *testing.T) {
	repo, resolver := resolverFixture()

	company := resolver.Resolve(context.Background(), "ACME", 7, 501)
	if company == nil || company.ID != 7 {
		t.Fatalf("expected company 7, got %+v", company)
	}
	if repo.brandCalls != 1 || repo.localCalls != 0 || repo.pipelineCalls != 0 {
		t.Errorf("expected only a brand lookup, got brand=%d local=%d pipeline=%d",
			repo.brandCalls, repo.localCalls, repo.pipelineCalls)
	}
}

func TestCompanyResolver_BrandIsCaseSensitive(t *testing.T) {
	_, resolver := resolverFixture()

	if company := resolver.Resolve(context.Background(), "acme", 0, 0); company != nil {
		t.Errorf("expected nil for lower-case brand, got %+v", company)
	}
}

func TestCompanyResolver_PipelineIDMismatchInvalidates(t *testing.T) {
	_, resolver := resolverFixture()

	if company := resolver.Resolve(context.Background(), "ACME", 0, 999); company != nil {
		t.Errorf("expected nil on pipeline id mismatch, got %+v", company)
	}
}

func TestCompanyResolver_LocalIDMismatchInvalidates(t *testing.T) {
	_, resolver := resolverFixture()

	if company := resolver.Resolve(context.Background(), "", 7, 999); company != nil {
		t.Errorf("expected nil on pipeline id mismatch, got %+v", company)
	}
}

func TestCompanyResolver_LocalIDFallback(t *testing.T) {
	repo, resolver := resolverFixture()

	company := resolver.Resolve(context.Background(), "", 7, 501)
	if company == nil || company.ID != 7 {
		t.Fatalf("expected company 7, got %+v", company)
	}
	if repo.brandCalls != 0 {
		t.Errorf("brand lookup must not run without a brand")
	}
}

func TestCompanyResolver_PipelineIDFallback(t *testing.T) {
	_, resolver := resolverFixture()

	company := resolver.Resolve(context.Background(), "", 0, 501)
	if company == nil || company.ID != 7 {
		t.Fatalf("expected company 7, got %+v", company)
	}
}

func TestCompanyResolver_NothingSupplied(t *testing.T) {
	repo, resolver := resolverFixture()

	if company := resolver.Resolve(context.Background(), "", 0, 0); company != nil {
		t.Errorf("expected nil when no identifier is supplied, got %+v", company)
	}
	if repo.brandCalls+repo.localCalls+repo.pipelineCalls != 0 {
		t.Errorf("no lookup should run when no identifier is supplied")
	}
}

func TestCompanyResolver_RequiresBrandGate(t *testing.T) {
	repo, resolver := resolverFixture()
	repo.byLocalID[7].RequiresBrand = true

	if company := resolver.Resolve(context.Background(), "", 7, 0); company != nil {
		t.Errorf("expected nil for id lookup on a brand-requiring company, got %+v", company)
	}

	company := resolver.Resolve(context.Background(), "ACME", 0, 0)
	if company == nil || company.ID != 7 {
		t.Fatalf("expected brand lookup to still resolve, got %+v", company)
	}
}

func TestCompanyResolver_LookupMissReturnsNil(t *testing.T) {
	_, resolver := resolverFixture()

	if company := resolver.Resolve(context.Background(), "NOPE", 0, 0); company != nil {
		t.Errorf("expected nil for unknown brand, got %+v", company)
	}
}

func TestCompanyResolver_StorageErrorReturnsNil(t *testing.T) {
	repo, resolver := resolverFixture()
	repo.err = errors.New("connection refused")

	if company := resolver.Resolve(context.Background(), "ACME", 0, 0); company != nil {
		t.Errorf("expected nil on storage failure, got %+v", company)
	}
}
