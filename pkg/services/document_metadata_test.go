package services

import (
	"testing"

	"github.com/trackport/tracking-engine/pkg/pipeline"
)

func TestSelectDocumentsWithMetadata_FiltersAndLabels(t *testing.T) {
	documents := []pipeline.Document{
		{Category: "bol", URL: "https://docs.example.com/bol.pdf"},
		{Category: "invoice", URL: "https://docs.example.com/invoice.pdf"},
		{Category: "pod", URL: "https://docs.example.com/pod.pdf"},
	}

	selected := SelectDocumentsWithMetadata(documents, TrackingDocumentCategories)

	if len(selected) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(selected))
	}
	if selected[0].CategoryLabel != "Bill of Lading" {
		t.Errorf("unexpected label %q", selected[0].CategoryLabel)
	}
	if selected[1].CategoryLabel != "Proof of Delivery" {
		t.Errorf("unexpected label %q", selected[1].CategoryLabel)
	}
}

func TestSelectDocumentsWithMetadata_NumbersDuplicates(t *testing.T) {
	documents := []pipeline.Document{
		{Category: "bol", URL: "https://docs.example.com/a.pdf"},
		{Category: "bol", URL: "https://docs.example.com/b.pdf"},
		{Category: "bol", URL: "https://docs.example.com/c.pdf"},
	}

	selected := SelectDocumentsWithMetadata(documents, []string{"bol"})

	if len(selected) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(selected))
	}
	if selected[0].DisplayName != "Bill of Lading" {
		t.Errorf("first document must not be numbered, got %q", selected[0].DisplayName)
	}
	if selected[1].DisplayName != "Bill of Lading #2" {
		t.Errorf("unexpected display name %q", selected[1].DisplayName)
	}
	if selected[2].DisplayName != "Bill of Lading #3" {
		t.Errorf("unexpected display name %q", selected[2].DisplayName)
	}
}

func TestSelectDocumentsWithMetadata_UnknownCategoryFallsBackToSlug(t *testing.T) {
	documents := []pipeline.Document{
		{Category: "customs", URL: "https://docs.example.com/customs.pdf"},
	}

	selected := SelectDocumentsWithMetadata(documents, []string{"customs"})

	if len(selected) != 1 {
		t.Fatalf("expected 1 document, got %d", len(selected))
	}
	if selected[0].CategoryLabel != "customs" {
		t.Errorf("expected slug fallback, got %q", selected[0].CategoryLabel)
	}
}

func TestSelectDocumentsWithMetadata_EmptyInputIsEmptySlice(t *testing.T) {
	selected := SelectDocumentsWithMetadata(nil, TrackingDocumentCategories)
	if selected == nil || len(selected) != 0 {
		t.Errorf("expected empty slice, got %v", selected)
	}
}
