package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugsync/internal/logger"
	"rugsync/internal/models"
	"rugsync/internal/syncerr"
)

func validProduct() models.SourceProduct {
	return models.SourceProduct{
		SKU:      "R-1",
		Title:    "Kazak",
		Category: "sale",
		Price:    decimal.NewFromFloat(499.5),
		Images:   []string{"https://cdn.example.com/1.jpg"},
	}
}

func TestValidateProduct(t *testing.T) {
	v := New(logger.Nop())

	tests := []struct {
		name    string
		mutate  func(p *models.SourceProduct)
		wantErr string
	}{
		{"valid", func(p *models.SourceProduct) {}, ""},
		{"missing sku", func(p *models.SourceProduct) { p.SKU = "" }, "sku is required"},
		{"missing title", func(p *models.SourceProduct) { p.Title = "" }, "title is required"},
		{"zero price", func(p *models.SourceProduct) { p.Price = decimal.Zero }, "price must be positive"},
		{"missing category", func(p *models.SourceProduct) { p.Category = "" }, "category is required"},
		{"unknown category", func(p *models.SourceProduct) { p.Category = "gift" }, "category must be one of"},
		{"no images", func(p *models.SourceProduct) { p.Images = nil }, "images is required"},
		{"empty image list", func(p *models.SourceProduct) { p.Images = []string{} }, "images needs at least 1"},
		{"blank image", func(p *models.SourceProduct) { p.Images = []string{""} }, "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)

			err := v.ValidateProduct(&p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, syncerr.ErrValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
