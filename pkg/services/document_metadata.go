package services

import (
	"fmt"

	"github.com/trackport/tracking-engine/pkg/models"
	"github.com/trackport/tracking-engine/pkg/pipeline"
)

// categoryLabels maps document categories to their display labels.
var categoryLabels = map[string]string{
	"bol": "Bill of Lading",
	"pod": "Proof of Delivery",
}

// TrackingDocumentCategories is the allow-list used by the tracking
// aggregation; other categories exist upstream but are not customer-facing.
var TrackingDocumentCategories = []string{"bol", "pod"}

// SelectDocumentsWithMetadata filters raw shipment documents down to the
// allowed categories and attaches display metadata. Documents beyond the
// first in a category get a numbered display name.
func SelectDocumentsWithMetadata(documents []pipeline.Document, categories []string) []models.ShipmentDocument {
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}

	selected := []models.ShipmentDocument{}
	counts := make(map[string]int)
	for _, doc := range documents {
		if !allowed[doc.Category] {
			continue
		}

		label := categoryLabels[doc.Category]
		if label == "" {
			label = doc.Category
		}

		counts[doc.Category]++
		displayName := label
		if counts[doc.Category] > 1 {
			displayName = fmt.Sprintf("%s #%d", label, counts[doc.Category])
		}

		selected = append(selected, models.ShipmentDocument{
			Category:      doc.Category,
			CategoryLabel: label,
			DisplayName:   displayName,
			URL:           doc.URL,
		})
	}
	return selected
}
