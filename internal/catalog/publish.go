package catalog

import (
	"strings"

	"rugsync/internal/models"
)

const (
	StatusActive = "active"
	StatusDraft  = "draft"
)

// PublishState decides the product status. No stock always means draft,
// whatever the source status says.
func PublishState(p *models.SourceProduct) string {
	if p.Quantity == nil || *p.Quantity <= 0 {
		return StatusDraft
	}
	if strings.EqualFold(strings.TrimSpace(p.Status), models.StatusAvailable) {
		return StatusActive
	}
	return StatusDraft
}
