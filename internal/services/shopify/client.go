package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tomnomnom/linkheader"

	"rugsync/internal/httpclient"
	"rugsync/internal/logger"
)

const (
	PageLimit = 250

	locationsKey = "locations"
)

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *httpclient.Client
	logger      *logger.Logger
	cache       *cache.Cache
	index       *skuIndex
}

// NewClient talks to one store. storeURL is the myshopify domain; a full
// URL with scheme is used as is.
func NewClient(storeURL, accessToken, apiVersion string, httpClient *httpclient.Client, logger *logger.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(storeURL), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		baseURL:     fmt.Sprintf("%s/admin/api/%s", base, apiVersion),
		accessToken: accessToken,
		httpClient:  httpClient,
		logger:      logger,
		cache:       cache.New(time.Hour, 10*time.Minute),
		index:       newSKUIndex(skuIndexSize, skuIndexTTL),
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) (*httpclient.Response, error) {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	h := http.Header{}
	h.Set("X-Shopify-Access-Token", c.accessToken)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, method, c.baseURL+path, h, body)
	if err != nil {
		return nil, err
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp, nil
}

// GetProducts fetches one page of products. pageInfo is the cursor from the
// previous page's Link header.
func (c *Client) GetProducts(ctx context.Context, limit int, pageInfo string) (*ProductsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	}

	var out struct {
		Products []Product `json:"products"`
	}
	resp, err := c.do(ctx, http.MethodGet, "/products.json?"+q.Encode(), nil, &out)
	if err != nil {
		return nil, err
	}

	return &ProductsPage{
		Products:     out.Products,
		NextPageInfo: nextPageInfo(resp.Header.Get("Link")),
	}, nil
}

func nextPageInfo(header string) string {
	if header == "" {
		return ""
	}
	for _, link := range linkheader.Parse(header).FilterByRel("next") {
		u, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		if pi := u.Query().Get("page_info"); pi != "" {
			return pi
		}
	}
	return ""
}

// GetProduct fetches a single product by ID
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var out struct {
		Product Product `json:"product"`
	}
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d.json", productID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	var out struct {
		Product Product `json:"product"`
	}
	payload := struct {
		Product ProductInput `json:"product"`
	}{input}

	if _, err := c.do(ctx, http.MethodPost, "/products.json", payload, &out); err != nil {
		return nil, err
	}
	c.index.addProduct(&out.Product)
	return &out.Product, nil
}

// UpdateProduct PUTs the non-empty fields of input.
func (c *Client) UpdateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if input.ID == 0 {
		return nil, errors.New("product id is required")
	}
	var out struct {
		Product Product `json:"product"`
	}
	payload := struct {
		Product ProductInput `json:"product"`
	}{input}

	if _, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", input.ID), payload, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

func (c *Client) UpdateVariant(ctx context.Context, input VariantInput) (*Variant, error) {
	if input.ID == 0 {
		return nil, errors.New("variant id is required")
	}
	var out struct {
		Variant Variant `json:"variant"`
	}
	payload := struct {
		Variant VariantInput `json:"variant"`
	}{input}

	if _, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/variants/%d.json", input.ID), payload, &out); err != nil {
		return nil, err
	}
	return &out.Variant, nil
}

func (c *Client) GetMetafields(ctx context.Context, productID int64) ([]Metafield, error) {
	var out struct {
		Metafields []Metafield `json:"metafields"`
	}
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/metafields.json", productID), nil, &out); err != nil {
		return nil, err
	}
	return out.Metafields, nil
}

func (c *Client) CreateMetafield(ctx context.Context, productID int64, mf Metafield) (*Metafield, error) {
	var out struct {
		Metafield Metafield `json:"metafield"`
	}
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{mf}

	if _, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/products/%d/metafields.json", productID), payload, &out); err != nil {
		return nil, err
	}
	return &out.Metafield, nil
}

// UpdateMetafield sets the value of an existing metafield by id.
func (c *Client) UpdateMetafield(ctx context.Context, mf Metafield) error {
	if mf.ID == 0 {
		return errors.New("metafield id is required")
	}
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{Metafield{ID: mf.ID, Type: mf.Type, Value: mf.Value}}

	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/metafields/%d.json", mf.ID), payload, nil)
	return err
}

// GetLocations lists fulfilment locations. The result is cached per client.
func (c *Client) GetLocations(ctx context.Context) ([]Location, error) {
	if cached, ok := c.cache.Get(locationsKey); ok {
		return cached.([]Location), nil
	}

	var out struct {
		Locations []Location `json:"locations"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/locations.json", nil, &out); err != nil {
		return nil, err
	}
	c.cache.SetDefault(locationsKey, out.Locations)
	return out.Locations, nil
}

// PrimaryLocation returns the first location of the store.
func (c *Client) PrimaryLocation(ctx context.Context) (*Location, error) {
	locations, err := c.GetLocations(ctx)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, errors.New("store has no locations")
	}
	return &locations[0], nil
}

func (c *Client) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error {
	payload := map[string]interface{}{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}
	_, err := c.do(ctx, http.MethodPost, "/inventory_levels/set.json", payload, nil)
	return err
}

func isNotFound(err error) bool {
	var serr *httpclient.StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}
