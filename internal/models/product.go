package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SourceProduct is a rug record flattened from the Rug API, ready to be
// reconciled against a shop.
type SourceProduct struct {
	SKU            string           `json:"sku" validate:"required"`
	Title          string           `json:"title" validate:"required"`
	Description    string           `json:"description"`
	Category       string           `json:"category" validate:"required,oneof=sale rental both"`
	SubCategory    string           `json:"sub_category"`
	Collections    []string         `json:"collections"`
	RegularPrice   decimal.Decimal  `json:"regular_price"`
	SellingPrice   decimal.Decimal  `json:"selling_price"`
	Price          decimal.Decimal  `json:"price" validate:"gt=0"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Quantity       *int             `json:"quantity"`
	ManageStock    bool             `json:"manage_stock"`
	Size           string           `json:"size"`
	Shapes         []string         `json:"shapes"`
	Dimensions     Dimensions       `json:"dimensions"`
	Shipping       Shipping         `json:"shipping"`
	Tags           TagFields        `json:"tags"`
	Images         []string         `json:"images" validate:"required,min=1,dive,required"`
	Status         string           `json:"status"`
	UpdatedAt      string           `json:"updated_at"`
}

// StatusAvailable is the source status of a rug that may be sold or rented.
const StatusAvailable = "available"

type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

type Shipping struct {
	Length     float64 `json:"length"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	Unit       string  `json:"unit"`
	WeightUnit string  `json:"weight_unit"`
}

// TagFields hold the descriptive attributes. Each value is a comma-joined
// list as delivered by the source.
type TagFields struct {
	Construction string `json:"construction"`
	Country      string `json:"country"`
	Material     string `json:"material"`
	Design       string `json:"design"`
	Palette      string `json:"palette"`
	Pattern      string `json:"pattern"`
	Style        string `json:"style"`
	Other        string `json:"other"`
	Foundation   string `json:"foundation"`
	Region       string `json:"region"`
	Type         string `json:"type"`
}

// Named returns the tag fields keyed by attribute name in a stable order.
func (t TagFields) Named() []NamedTag {
	return []NamedTag{
		{"construction", t.Construction},
		{"country", t.Country},
		{"material", t.Material},
		{"design", t.Design},
		{"palette", t.Palette},
		{"pattern", t.Pattern},
		{"style", t.Style},
		{"other", t.Other},
		{"foundation", t.Foundation},
		{"region", t.Region},
		{"type", t.Type},
	}
}

type NamedTag struct {
	Name  string
	Value string
}

// Values splits the comma-joined value, dropping blanks.
func (n NamedTag) Values() []string {
	var out []string
	for _, v := range strings.Split(n.Value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// OnSale reports whether the selling price undercuts the regular price.
func (p *SourceProduct) OnSale() bool {
	return p.CompareAtPrice != nil
}

// AvailableForRent and AvailableForSale follow the category classification.
func (p *SourceProduct) AvailableForRent() bool {
	return p.Category == "rental" || p.Category == "both"
}

func (p *SourceProduct) AvailableForSale() bool {
	return p.Category == "sale" || p.Category == "both"
}
