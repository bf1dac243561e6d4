// Package catalog turns Rug API records into source products and holds the
// pure rules of a sync: change window, nominal sizes and publish state.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"rugsync/internal/connectors/rug"
	"rugsync/internal/models"
)

// Normalize flattens a raw record. Absent fields become zero values; the
// caller validates before writing anything.
func Normalize(rec rug.Record) models.SourceProduct {
	p := models.SourceProduct{}

	p.SKU, _ = rec.SKU()
	p.Title, _ = rec.TitleText()
	p.Description, _ = rec.Description.Get()
	category, _ := rec.Category.Get()
	p.Category = strings.ToLower(category)
	p.SubCategory, _ = rec.SubCategory.Get()
	p.Collections = []string(rec.Collections)

	p.RegularPrice, _ = rec.RegularPrice.Get()
	p.SellingPrice, _ = rec.SellingPrice.Get()
	p.Price, p.CompareAtPrice = effectivePrice(p.RegularPrice, p.SellingPrice)

	if qty, ok := rec.Quantity(); ok {
		p.Quantity = &qty
	}
	p.ManageStock, _ = rec.ManageStock()

	p.Size, _ = rec.Size.Get()
	p.Shapes = []string(rec.Shape)
	if d := rec.Dimension; d != nil {
		unit, _ := d.Unit.Get()
		p.Dimensions = models.Dimensions{
			Length: d.Length.Float(),
			Width:  d.Width.Float(),
			Height: d.Height.Float(),
			Unit:   unit,
		}
	}
	if s := rec.Shipping; s != nil {
		unit, _ := s.Unit.Get()
		weightUnit, _ := s.WeightUnit.Get()
		p.Shipping = models.Shipping{
			Length:     s.Length.Float(),
			Width:      s.Width.Float(),
			Height:     s.Height.Float(),
			Weight:     s.Weight.Float(),
			Unit:       unit,
			WeightUnit: weightUnit,
		}
	}

	p.Tags = models.TagFields{
		Construction: rec.Construction.Joined(),
		Country:      rec.Country.Joined(),
		Material:     rec.Material.Joined(),
		Design:       rec.Design.Joined(),
		Palette:      rec.Palette.Joined(),
		Pattern:      rec.Pattern.Joined(),
		Style:        rec.Style.Joined(),
		Other:        rec.Other.Joined(),
		Foundation:   rec.Foundation.Joined(),
		Region:       rec.Region.Joined(),
		Type:         rec.Type.Joined(),
	}

	p.Images = []string(rec.Images)
	p.Status, _ = rec.StatusText()
	p.UpdatedAt, _ = rec.UpdatedText()

	return p
}

// effectivePrice sells at the selling price when it undercuts the regular
// one, keeping the regular price as compare-at.
func effectivePrice(regular, selling decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	if selling.IsPositive() && regular.GreaterThan(selling) {
		r := regular
		return selling, &r
	}
	if regular.IsPositive() {
		return regular, nil
	}
	return selling, nil
}
