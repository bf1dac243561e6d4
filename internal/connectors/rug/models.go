package rug

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one rug as delivered by the Rug API. Every field is optional on
// the wire; use the accessors to read them with an explicit presence flag.
type Record struct {
	ID           *Text      `json:"ID"`
	Title        *Text      `json:"title"`
	Description  *Text      `json:"description"`
	Category     *Text      `json:"category"`
	SubCategory  *Text      `json:"subCategory"`
	Collections  MultiValue `json:"collections"`
	RegularPrice *Number    `json:"regularPrice"`
	SellingPrice *Number    `json:"sellingPrice"`
	Inventory    *Inventory `json:"inventory"`
	Size         *Text      `json:"size"`
	Shape        MultiValue `json:"shape"`
	Dimension    *Measure   `json:"dimension"`
	Shipping     *Measure   `json:"shipping"`
	Construction MultiValue `json:"construction"`
	Country      MultiValue `json:"country"`
	Material     MultiValue `json:"material"`
	Design       MultiValue `json:"design"`
	Palette      MultiValue `json:"palette"`
	Pattern      MultiValue `json:"pattern"`
	Style        MultiValue `json:"style"`
	Other        MultiValue `json:"other"`
	Foundation   MultiValue `json:"foundation"`
	Region       MultiValue `json:"region"`
	Type         MultiValue `json:"type"`
	Images       MultiValue `json:"images"`
	Status       *Text      `json:"status"`
	UpdatedAt    *Text      `json:"updated_at"`
}

type Inventory struct {
	ManageStock   *bool           `json:"manageStock"`
	QuantityLevel []QuantityLevel `json:"quantityLevel"`
}

type QuantityLevel struct {
	Available *Number `json:"available"`
}

type Measure struct {
	Length     *Number `json:"length"`
	Width      *Number `json:"width"`
	Height     *Number `json:"height"`
	Weight     *Number `json:"weight"`
	Unit       *Text   `json:"unit"`
	WeightUnit *Text   `json:"weightUnit"`
}

func (r *Record) SKU() (string, bool)         { return r.ID.Get() }
func (r *Record) TitleText() (string, bool)   { return r.Title.Get() }
func (r *Record) StatusText() (string, bool)  { return r.Status.Get() }
func (r *Record) UpdatedText() (string, bool) { return r.UpdatedAt.Get() }

// Quantity is the first reported available level.
func (r *Record) Quantity() (int, bool) {
	if r.Inventory == nil || len(r.Inventory.QuantityLevel) == 0 {
		return 0, false
	}
	n, ok := r.Inventory.QuantityLevel[0].Available.Get()
	if !ok {
		return 0, false
	}
	return int(n.IntPart()), true
}

func (r *Record) ManageStock() (bool, bool) {
	if r.Inventory == nil || r.Inventory.ManageStock == nil {
		return false, false
	}
	return *r.Inventory.ManageStock, true
}

// Text is a string that may also arrive as a JSON number.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

// Get returns the trimmed value; blank counts as absent.
func (t *Text) Get() (string, bool) {
	if t == nil {
		return "", false
	}
	s := strings.TrimSpace(string(*t))
	return s, s != ""
}

// Number accepts a JSON number or a numeric string.
type Number struct {
	value decimal.Decimal
	set   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		// junk such as "N/A" is reported as absent
		return nil
	}
	n.value, n.set = d, true
	return nil
}

func (n *Number) Get() (decimal.Decimal, bool) {
	if n == nil || !n.set {
		return decimal.Zero, false
	}
	return n.value, true
}

// Float returns the value as float64, zero when absent.
func (n *Number) Float() float64 {
	d, _ := n.Get()
	f, _ := d.Float64()
	return f
}

// MultiValue is a list that the API sends either as a JSON array or as a
// comma-joined string.
type MultiValue []string

func (m *MultiValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var list []Text
	if err := json.Unmarshal(data, &list); err == nil {
		out := make(MultiValue, 0, len(list))
		for _, v := range list {
			if s, ok := v.Get(); ok {
				out = append(out, s)
			}
		}
		*m = out
		return nil
	}
	var single Text
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	var out MultiValue
	for _, part := range strings.Split(string(single), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*m = out
	return nil
}

// Joined returns the values as one comma-joined string.
func (m MultiValue) Joined() string {
	return strings.Join(m, ", ")
}
