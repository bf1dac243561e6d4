package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rugsync/internal/httpclient"
	"rugsync/internal/logger"
	"rugsync/internal/models"
	"rugsync/internal/services/shopify"
	"rugsync/internal/syncerr"
	"rugsync/internal/worker/processors/validation"
)

// Destination is the part of the Shopify client the exporter writes through.
type Destination interface {
	GetProduct(ctx context.Context, productID int64) (*shopify.Product, error)
	CreateProduct(ctx context.Context, input shopify.ProductInput) (*shopify.Product, error)
	UpdateProduct(ctx context.Context, input shopify.ProductInput) (*shopify.Product, error)
	UpdateVariant(ctx context.Context, input shopify.VariantInput) (*shopify.Variant, error)
	CreateMetafield(ctx context.Context, productID int64, mf shopify.Metafield) (*shopify.Metafield, error)
	UpdateMetafield(ctx context.Context, mf shopify.Metafield) error
	PrimaryLocation(ctx context.Context) (*shopify.Location, error)
	SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error
}

// Exporter writes source products to one shop. Every write is followed by
// a fixed pause to stay under the store's rate limit.
type Exporter struct {
	dest        Destination
	transformer *shopify.Transformer
	validator   *validation.Validator
	delay       time.Duration
	backfill    bool
	logger      *logger.Logger
}

type Options struct {
	Delay              time.Duration
	BackfillMetafields bool
}

func New(dest Destination, transformer *shopify.Transformer, validator *validation.Validator, opts Options, logger *logger.Logger) *Exporter {
	return &Exporter{
		dest:        dest,
		transformer: transformer,
		validator:   validator,
		delay:       opts.Delay,
		backfill:    opts.BackfillMetafields,
		logger:      logger,
	}
}

// Result reports a write that happened at least in part. Failures lists the
// best-effort steps that did not.
type Result struct {
	Product   *shopify.Product
	Succeeded int
	Failures  []error
}

func (r *Result) fail(op, sku string, err error) {
	r.Failures = append(r.Failures, &syncerr.WriteError{Op: op, SKU: sku, Err: err})
}

// Insert validates and creates the product, then sets inventory and seeds
// every metafield. Nothing is written when validation fails.
func (e *Exporter) Insert(ctx context.Context, p *models.SourceProduct) (*Result, error) {
	if err := e.validator.ValidateProduct(p); err != nil {
		return nil, err
	}

	created, err := e.dest.CreateProduct(ctx, e.transformer.NewProduct(p))
	e.pause(ctx)
	if err != nil {
		return nil, &syncerr.WriteError{Op: "create product", SKU: p.SKU, Err: err}
	}
	e.logger.Info("Created product %d for SKU %s", created.ID, p.SKU)

	res := &Result{Product: created, Succeeded: 1}

	if p.ManageStock && p.Quantity != nil && *p.Quantity > 0 {
		variant := created.VariantBySKU(p.SKU)
		if variant == nil && len(created.Variants) > 0 {
			variant = &created.Variants[0]
		}
		if variant == nil {
			res.fail("set inventory", p.SKU, errors.New("created product has no variant"))
		} else if err := e.setInventory(ctx, variant.InventoryItemID, *p.Quantity); err != nil {
			res.fail("set inventory", p.SKU, err)
		} else {
			res.Succeeded++
		}
	}

	for _, mf := range e.transformer.Metafields(p) {
		_, err := e.dest.CreateMetafield(ctx, created.ID, mf)
		e.pause(ctx)
		if err != nil {
			e.logger.Warn("Metafield %s on SKU %s not created: %v", mf.FullKey(), p.SKU, err)
			res.fail("create metafield "+mf.FullKey(), p.SKU, err)
			continue
		}
		res.Succeeded++
	}

	return res, nil
}

// Update refreshes an existing product step by step. Each step is
// independent; an error is returned only when none of them succeeded.
func (e *Exporter) Update(ctx context.Context, p *models.SourceProduct, product *shopify.Product, existing []shopify.Metafield) (*Result, error) {
	res := &Result{Product: product}

	variant := product.VariantBySKU(p.SKU)
	if variant == nil {
		return nil, &syncerr.WriteError{Op: "update", SKU: p.SKU, Err: errors.New("no variant with this SKU")}
	}

	if _, err := e.dest.UpdateProduct(ctx, e.transformer.BasicFields(p, product.ID)); err != nil {
		res.fail("update product", p.SKU, err)
	} else {
		res.Succeeded++
	}
	e.pause(ctx)

	if refreshed, err := e.ensureOptions(ctx, p, product); err != nil {
		res.fail("update options", p.SKU, err)
	} else if refreshed != nil {
		res.Succeeded++
		res.Product = refreshed
		if v := refreshed.VariantBySKU(p.SKU); v != nil {
			variant = v
		}
	}

	if _, err := e.dest.UpdateVariant(ctx, e.transformer.Variant(p, variant.ID)); err != nil {
		res.fail("update variant", p.SKU, err)
	} else {
		res.Succeeded++
	}
	e.pause(ctx)

	if p.Quantity != nil {
		if err := e.setInventory(ctx, variant.InventoryItemID, *p.Quantity); err != nil {
			res.fail("set inventory", p.SKU, err)
		} else {
			res.Succeeded++
		}
	}

	if len(p.Images) > 0 {
		_, err := e.dest.UpdateProduct(ctx, shopify.ProductInput{ID: product.ID, Images: e.transformer.Images(p)})
		e.pause(ctx)
		if err != nil {
			res.fail("update images", p.SKU, err)
		} else {
			res.Succeeded++
		}
	}

	byKey := make(map[string]shopify.Metafield, len(existing))
	for _, mf := range existing {
		byKey[mf.FullKey()] = mf
	}
	for _, mf := range e.transformer.Metafields(p) {
		var err error
		if current, ok := byKey[mf.FullKey()]; ok && current.ID != 0 {
			mf.ID = current.ID
			err = e.dest.UpdateMetafield(ctx, mf)
		} else if e.backfill {
			_, err = e.dest.CreateMetafield(ctx, product.ID, mf)
		} else {
			continue
		}
		e.pause(ctx)
		if err != nil {
			e.logger.Warn("Metafield %s on SKU %s not written: %v", mf.FullKey(), p.SKU, err)
			res.fail("write metafield "+mf.FullKey(), p.SKU, err)
			continue
		}
		res.Succeeded++
	}

	if res.Succeeded == 0 {
		return nil, &syncerr.WriteError{Op: "update", SKU: p.SKU, Err: errors.Join(res.Failures...)}
	}
	return res, nil
}

// SetStatus publishes or unpublishes a product.
func (e *Exporter) SetStatus(ctx context.Context, sku string, productID int64, status string) error {
	_, err := e.dest.UpdateProduct(ctx, shopify.ProductInput{ID: productID, Status: status})
	e.pause(ctx)
	if err != nil {
		return &syncerr.WriteError{Op: "set status " + status, SKU: sku, Err: err}
	}
	return nil
}

// ensureOptions adds the Size and Nominal Size options when the product
// lacks them and returns the re-fetched product. It returns nil, nil when
// nothing had to change.
func (e *Exporter) ensureOptions(ctx context.Context, p *models.SourceProduct, product *shopify.Product) (*shopify.Product, error) {
	wanted := e.transformer.Options(p)

	var merged []shopify.Option
	missing := false
	for _, o := range product.Options {
		// Shopify's placeholder for products without options
		if o.Name == "Title" {
			continue
		}
		merged = append(merged, shopify.Option{ID: o.ID, Name: o.Name, Values: o.Values})
	}
	for _, w := range wanted {
		if !product.HasOption(w.Name) {
			merged = append(merged, w)
			missing = true
		}
	}
	if !missing {
		return nil, nil
	}

	_, err := e.dest.UpdateProduct(ctx, shopify.ProductInput{ID: product.ID, Options: merged})
	e.pause(ctx)
	if err != nil {
		return nil, err
	}

	refreshed, err := e.dest.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch product: %w", err)
	}
	return refreshed, nil
}

func (e *Exporter) setInventory(ctx context.Context, inventoryItemID int64, quantity int) error {
	if inventoryItemID == 0 {
		return errors.New("variant has no inventory item")
	}
	loc, err := e.dest.PrimaryLocation(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve location: %w", err)
	}
	err = e.dest.SetInventoryLevel(ctx, loc.ID, inventoryItemID, quantity)
	e.pause(ctx)
	return err
}

func (e *Exporter) pause(ctx context.Context) {
	httpclient.Pause(ctx, e.delay)
}
