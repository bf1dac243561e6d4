package shopify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	skuIndexSize = 20000
	skuIndexTTL  = time.Hour
)

// skuIndex remembers which product holds a SKU. After a full listing has been
// indexed without any entry being dropped, a miss is authoritative until the
// oldest entry of that listing could have expired.
type skuIndex struct {
	lru       *expirable.LRU[string, int64]
	ttl       time.Duration
	now       func() time.Time
	evictions atomic.Int64
	// start of the last complete listing in unix nanos, zero when incomplete
	completeSince atomic.Int64
}

func newSKUIndex(size int, ttl time.Duration) *skuIndex {
	idx := &skuIndex{ttl: ttl, now: time.Now}
	idx.lru = expirable.NewLRU[string, int64](size, func(string, int64) {
		idx.evictions.Add(1)
		idx.completeSince.Store(0)
	}, ttl)
	return idx
}

func (i *skuIndex) get(sku string) (int64, bool) {
	return i.lru.Get(sku)
}

// addProduct indexes every variant SKU and restarts the TTL of SKUs already
// indexed. The first product seen for a SKU wins.
func (i *skuIndex) addProduct(p *Product) {
	for _, v := range p.Variants {
		if v.Sku == "" {
			continue
		}
		id := p.ID
		if old, ok := i.lru.Peek(v.Sku); ok {
			id = old
		}
		i.lru.Add(v.Sku, id)
	}
}

func (i *skuIndex) remove(sku string) {
	i.lru.Remove(sku)
	i.completeSince.Store(0)
}

func (i *skuIndex) markComplete(scanStart time.Time) {
	i.completeSince.Store(scanStart.UnixNano())
}

// authoritative reports whether a miss can be trusted without a rescan.
func (i *skuIndex) authoritative() bool {
	since := i.completeSince.Load()
	if since == 0 {
		return false
	}
	if i.now().Sub(time.Unix(0, since)) >= i.ttl {
		i.completeSince.CompareAndSwap(since, 0)
		return false
	}
	return true
}

// FindBySKU returns the product holding a variant with exactly this SKU.
// A nil error with false means the store has no such SKU; a listing failure
// is returned as an error and must not be read as absence.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*Product, bool, error) {
	if id, ok := c.index.get(sku); ok {
		p, err := c.GetProduct(ctx, id)
		switch {
		case err == nil && p.VariantBySKU(sku) != nil:
			return p, true, nil
		case err != nil && !isNotFound(err):
			return nil, false, err
		}
		c.logger.Debug("Index entry for SKU %s is stale, rescanning", sku)
		c.index.remove(sku)
	} else if c.index.authoritative() {
		return nil, false, nil
	}

	evictionsBefore := c.index.evictions.Load()
	scanStart := c.index.now()
	pageInfo := ""
	for {
		page, err := c.GetProducts(ctx, PageLimit, pageInfo)
		if err != nil {
			return nil, false, err
		}

		var match *Product
		for n := range page.Products {
			p := &page.Products[n]
			c.index.addProduct(p)
			if match == nil && p.VariantBySKU(sku) != nil {
				match = p
			}
		}
		if match != nil {
			return match, true, nil
		}

		if page.NextPageInfo == "" {
			break
		}
		pageInfo = page.NextPageInfo
	}

	if c.index.evictions.Load() == evictionsBefore {
		c.index.markComplete(scanStart)
	}
	return nil, false, nil
}
