// Package runtracker remembers when each shop last finished a sync so the
// next run can size its lookback window.
package runtracker

import (
	"context"
	"time"
)

const (
	keyPrefix = "rugsync:last_run"
	// Expiry of a stored marker. Older markers fall back to the default window.
	Retention = 30 * 24 * time.Hour
)

// Store reads and writes last-successful-run markers.
type Store interface {
	LastSuccessfulRun(ctx context.Context, shopID string) (*time.Time, error)
	MarkSuccess(ctx context.Context, shopIDs []string, at time.Time) error
}

// ShopKey is the marker key of one shop.
func ShopKey(shopID string) string {
	return keyPrefix + ":" + shopID
}

// GlobalKey is written alongside the shop keys on every successful batch.
func GlobalKey() string {
	return keyPrefix
}

func keys(shopIDs []string) []string {
	out := make([]string, 0, len(shopIDs)+1)
	for _, id := range shopIDs {
		out = append(out, ShopKey(id))
	}
	return append(out, GlobalKey())
}
