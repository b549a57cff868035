// Package dedup implements the per-order duplicate-suppression gate backed
// by the external cache.
package dedup

import (
	"context"
	"fmt"
	"time"
)

// Store is the slice of the cache protocol the gate needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Gate suppresses repeated invoice creation for the same order identifier.
// It is advisory: the check and the mark are not transactional, so two
// concurrent deliveries of the same order can both pass in a narrow window.
type Gate struct {
	store Store
	ttl   time.Duration
}

func NewGate(store Store, ttl time.Duration) *Gate {
	return &Gate{store: store, ttl: ttl}
}

// HasBeenProcessed reports whether a marker exists for the order. A lookup
// error is returned as-is; the caller fails the request rather than risk a
// duplicate invoice.
func (g *Gate) HasBeenProcessed(ctx context.Context, orderID string) (bool, error) {
	_, found, err := g.store.Get(ctx, markerKey(orderID))
	if err != nil {
		return false, err
	}
	return found, nil
}

// MarkProcessed writes the marker after a dispatch succeeds. Best effort;
// callers log failures instead of escalating them.
func (g *Gate) MarkProcessed(ctx context.Context, orderID string) error {
	return g.store.Set(ctx, markerKey(orderID), "processed", g.ttl)
}

func markerKey(orderID string) string {
	return fmt.Sprintf("processed-order:%s", orderID)
}
