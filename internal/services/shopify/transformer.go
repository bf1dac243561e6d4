package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rugsync/internal/catalog"
	"rugsync/internal/models"
)

const (
	MetafieldNamespace = "custom"
	MarkerKey          = "updated_at"
	SourceKey          = "source"

	OptionSize        = "Size"
	OptionNominalSize = "Nominal Size"

	// used when a rug has no size to show
	defaultOptionValue = "Default"

	typeText      = "single_line_text_field"
	typeBoolean   = "boolean"
	typeDimension = "dimension"
	typeWeight    = "weight"
	typeDateTime  = "date_time"
)

// Transformer builds Shopify payloads from source products.
type Transformer struct {
	vendor string
}

func NewTransformer(vendor string) *Transformer {
	return &Transformer{vendor: vendor}
}

// Title is "{size} {title} #{SKU}", without the size when it is empty.
func (t *Transformer) Title(p *models.SourceProduct) string {
	title := fmt.Sprintf("%s #%s", p.Title, p.SKU)
	if p.Size != "" {
		title = p.Size + " " + title
	}
	return title
}

func (t *Transformer) ProductType(p *models.SourceProduct) string {
	if p.SubCategory != "" {
		return p.SubCategory
	}
	return "Rug"
}

// Tags returns the de-duplicated tag list in first-seen order.
func (t *Transformer) Tags(p *models.SourceProduct) []string {
	var tags []string
	seen := map[string]bool{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			return
		}
		seen[key] = true
		tags = append(tags, v)
	}

	if p.AvailableForSale() {
		add("For Sale")
	}
	if p.AvailableForRent() {
		add("For Rent")
	}
	for _, named := range p.Tags.Named() {
		for _, v := range named.Values() {
			add(v)
		}
	}
	for _, c := range p.Collections {
		add(c)
	}
	add(p.Category)
	add(p.SubCategory)

	return tags
}

func (t *Transformer) Options(p *models.SourceProduct) []Option {
	size, nominal := optionValues(p)
	return []Option{
		{Name: OptionSize, Values: []string{size}},
		{Name: OptionNominalSize, Values: []string{nominal}},
	}
}

func optionValues(p *models.SourceProduct) (string, string) {
	size := p.Size
	if size == "" {
		size = defaultOptionValue
	}
	nominal := catalog.NominalOption(p.Size, p.Shapes)
	if nominal == "" {
		nominal = defaultOptionValue
	}
	return size, nominal
}

// Variant builds the single variant of a rug. id is zero on create.
func (t *Transformer) Variant(p *models.SourceProduct, id int64) VariantInput {
	size, nominal := optionValues(p)
	requiresShipping := true

	v := VariantInput{
		ID:               id,
		Sku:              p.SKU,
		Price:            p.Price.StringFixed(2),
		Option1:          size,
		Option2:          nominal,
		RequiresShipping: &requiresShipping,
	}
	if p.OnSale() {
		compare := p.CompareAtPrice.StringFixed(2)
		v.CompareAtPrice = &compare
	}
	if p.ManageStock {
		mgmt := "shopify"
		v.InventoryManagement = &mgmt
	}
	if p.Shipping.Weight > 0 {
		v.Weight = p.Shipping.Weight
		v.WeightUnit = weightUnit(p.Shipping.WeightUnit)
	}
	return v
}

// Images keeps source order and encodes spaces in the URLs.
func (t *Transformer) Images(p *models.SourceProduct) []Image {
	images := make([]Image, 0, len(p.Images))
	for i, src := range p.Images {
		images = append(images, Image{
			Src:      strings.ReplaceAll(strings.TrimSpace(src), " ", "%20"),
			Position: i + 1,
		})
	}
	return images
}

// NewProduct is the create payload. Inventory is set separately once the
// inventory item exists.
func (t *Transformer) NewProduct(p *models.SourceProduct) ProductInput {
	body := p.Description
	tags := strings.Join(t.Tags(p), ", ")
	return ProductInput{
		Title:       t.Title(p),
		BodyHTML:    &body,
		Vendor:      t.vendor,
		ProductType: t.ProductType(p),
		Tags:        &tags,
		Status:      catalog.PublishState(p),
		Options:     t.Options(p),
		Variants:    []VariantInput{t.Variant(p, 0)},
		Images:      t.Images(p),
	}
}

// BasicFields is the update payload for the product-level fields.
func (t *Transformer) BasicFields(p *models.SourceProduct, productID int64) ProductInput {
	body := p.Description
	tags := strings.Join(t.Tags(p), ", ")
	return ProductInput{
		ID:          productID,
		Title:       t.Title(p),
		BodyHTML:    &body,
		Vendor:      t.vendor,
		ProductType: t.ProductType(p),
		Tags:        &tags,
	}
}

// Metafields lists every metafield a rug carries, including the sync
// marker and the source flag.
func (t *Transformer) Metafields(p *models.SourceProduct) []Metafield {
	var out []Metafield
	add := func(key, typ, value string) {
		out = append(out, Metafield{Namespace: MetafieldNamespace, Key: key, Type: typ, Value: value})
	}

	add(SourceKey, typeBoolean, "true")
	if ts, ok := catalog.ParseTimestamp(p.UpdatedAt); ok {
		add(MarkerKey, typeDateTime, ts.UTC().Format(time.RFC3339))
	}

	dimUnit := dimensionUnit(p.Dimensions.Unit)
	for _, d := range []struct {
		key   string
		value float64
	}{
		{"length", p.Dimensions.Length},
		{"width", p.Dimensions.Width},
		{"height", p.Dimensions.Height},
	} {
		if d.value > 0 {
			add(d.key, typeDimension, measureJSON(d.value, dimUnit))
		}
	}

	shipUnit := dimensionUnit(p.Shipping.Unit)
	for _, d := range []struct {
		key   string
		value float64
	}{
		{"shipping_length", p.Shipping.Length},
		{"shipping_width", p.Shipping.Width},
		{"shipping_height", p.Shipping.Height},
	} {
		if d.value > 0 {
			add(d.key, typeDimension, measureJSON(d.value, shipUnit))
		}
	}
	if p.Shipping.Weight > 0 {
		add("shipping_weight", typeWeight, measureJSON(p.Shipping.Weight, weightUnit(p.Shipping.WeightUnit)))
	}

	if p.Size != "" {
		add("size", typeText, p.Size)
	}
	for _, named := range p.Tags.Named() {
		if v := strings.Join(named.Values(), ", "); v != "" {
			add(named.Name, typeText, v)
		}
	}

	add("rental_available", typeBoolean, strconv.FormatBool(p.AvailableForRent()))
	add("sale_available", typeBoolean, strconv.FormatBool(p.AvailableForSale()))
	add("on_sale", typeBoolean, strconv.FormatBool(p.OnSale()))

	return out
}

func measureJSON(value float64, unit string) string {
	b, _ := json.Marshal(struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}{value, unit})
	return string(b)
}

func dimensionUnit(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "ft", "feet", "foot":
		return "ft"
	case "cm", "centimeter", "centimeters":
		return "cm"
	case "m", "meter", "meters":
		return "m"
	case "mm":
		return "mm"
	default:
		return "in"
	}
}

func weightUnit(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "kg", "kgs", "kilogram", "kilograms":
		return "kg"
	case "g", "gram", "grams":
		return "g"
	case "oz", "ounce", "ounces":
		return "oz"
	default:
		return "lb"
	}
}
