package shopify

import (
	"time"
)

// Product represents a Shopify product
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html"`
	Vendor      string     `json:"vendor"`
	ProductType string     `json:"product_type"`
	Handle      string     `json:"handle"`
	Status      string     `json:"status"`
	Tags        string     `json:"tags"`
	Variants    []Variant  `json:"variants"`
	Images      []Image    `json:"images"`
	Options     []Option   `json:"options"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// Variant represents a product variant
type Variant struct {
	ID                  int64   `json:"id"`
	ProductID           int64   `json:"product_id"`
	Title               string  `json:"title"`
	Price               string  `json:"price"`
	Sku                 string  `json:"sku"`
	Position            int     `json:"position"`
	CompareAtPrice      *string `json:"compare_at_price"`
	InventoryManagement *string `json:"inventory_management"`
	Option1             *string `json:"option1"`
	Option2             *string `json:"option2"`
	Option3             *string `json:"option3"`
	Weight              float64 `json:"weight"`
	WeightUnit          string  `json:"weight_unit"`
	InventoryItemID     int64   `json:"inventory_item_id"`
	InventoryQuantity   int     `json:"inventory_quantity"`
	RequiresShipping    bool    `json:"requires_shipping"`
}

// Image represents a product image
type Image struct {
	ID        int64  `json:"id,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Position  int    `json:"position"`
	Src       string `json:"src"`
}

// Option represents a product option
type Option struct {
	ID        int64    `json:"id,omitempty"`
	ProductID int64    `json:"product_id,omitempty"`
	Name      string   `json:"name"`
	Position  int      `json:"position,omitempty"`
	Values    []string `json:"values,omitempty"`
}

// Metafield is a namespaced value attached to a product.
type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Key       string `json:"key,omitempty"`
	Type      string `json:"type,omitempty"`
	Value     string `json:"value"`
}

// FullKey is "namespace.key".
func (m Metafield) FullKey() string {
	return m.Namespace + "." + m.Key
}

type Location struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ProductInput is the body of product create and update calls. Empty
// fields are left untouched by Shopify.
type ProductInput struct {
	ID          int64          `json:"id,omitempty"`
	Title       string         `json:"title,omitempty"`
	BodyHTML    *string        `json:"body_html,omitempty"`
	Vendor      string         `json:"vendor,omitempty"`
	ProductType string         `json:"product_type,omitempty"`
	Tags        *string        `json:"tags,omitempty"`
	Status      string         `json:"status,omitempty"`
	Options     []Option       `json:"options,omitempty"`
	Variants    []VariantInput `json:"variants,omitempty"`
	Images      []Image        `json:"images,omitempty"`
}

// VariantInput always sends compare_at_price and inventory_management so
// that nil clears them.
type VariantInput struct {
	ID                  int64   `json:"id,omitempty"`
	Sku                 string  `json:"sku,omitempty"`
	Price               string  `json:"price,omitempty"`
	CompareAtPrice      *string `json:"compare_at_price"`
	Option1             string  `json:"option1,omitempty"`
	Option2             string  `json:"option2,omitempty"`
	InventoryManagement *string `json:"inventory_management"`
	RequiresShipping    *bool   `json:"requires_shipping,omitempty"`
	Weight              float64 `json:"weight,omitempty"`
	WeightUnit          string  `json:"weight_unit,omitempty"`
}

// ProductsPage is one page of the product listing.
type ProductsPage struct {
	Products     []Product
	NextPageInfo string
}

// VariantBySKU returns the variant whose SKU matches exactly.
func (p *Product) VariantBySKU(sku string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Sku == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// HasOption reports whether the product already defines an option name.
func (p *Product) HasOption(name string) bool {
	for _, o := range p.Options {
		if o.Name == name {
			return true
		}
	}
	return false
}
