// Package featured enforces the homepage rule that at most Cap visible
// products are featured at any time, under concurrent admin edits.
package featured

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// DefaultCap is the number of homepage slots.
const DefaultCap = 6

// Tx is the slot state visible inside a locked transaction.
type Tx interface {
	// IsFeatured returns the current flag of a product, or a NotFound error.
	IsFeatured(ctx context.Context, productID string) (bool, error)
	// CountVisibleFeatured counts products that are both featured and visible.
	CountVisibleFeatured(ctx context.Context) (int, error)
	// SetFeatured writes the flag and refreshes updated_at.
	SetFeatured(ctx context.Context, productID string, featured bool) error
}

// Store runs fn in one transaction holding the featured-slot lock. Two
// transactions never hold the lock at the same time.
type Store interface {
	WithSlotLock(ctx context.Context, fn func(tx Tx) error) error
}

// Allocator hands out featured slots.
type Allocator struct {
	store  Store
	limit  int
	logger *slog.Logger

	inUse     prometheus.Gauge
	rejected  prometheus.Counter
	overshoot prometheus.Counter
}

// NewAllocator creates an allocator with the given number of slots. A
// non-positive value falls back to DefaultCap.
func NewAllocator(store Store, slots int, logger *slog.Logger) *Allocator {
	if slots <= 0 {
		slots = DefaultCap
	}
	return &Allocator{
		store:  store,
		limit:  slots,
		logger: logger,
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_featured_slots_in_use",
			Help: "Visible featured products after the last slot change",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_featured_rejections_total",
			Help: "Feature requests rejected because every slot was taken",
		}),
		overshoot: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_featured_overshoot_total",
			Help: "Visibility changes that left more featured products than slots",
		}),
	}
}

// Cap returns the number of slots.
func (a *Allocator) Cap() int { return a.limit }

// Collectors returns the allocator metrics for registration.
func (a *Allocator) Collectors() []prometheus.Collector {
	return []prometheus.Collector{a.inUse, a.rejected, a.overshoot}
}

// TryMark features a product if a slot is free. Marking an already featured
// product succeeds without using a slot.
func (a *Allocator) TryMark(ctx context.Context, productID string) error {
	return a.store.WithSlotLock(ctx, func(tx Tx) error {
		featured, err := tx.IsFeatured(ctx, productID)
		if err != nil {
			return err
		}
		if featured {
			return nil
		}
		count, err := a.free(ctx, tx)
		if err != nil {
			return err
		}
		if err := tx.SetFeatured(ctx, productID, true); err != nil {
			return err
		}
		a.inUse.Set(float64(count + 1))
		return nil
	})
}

// Unmark clears the featured flag. It only fails for an unknown product.
func (a *Allocator) Unmark(ctx context.Context, productID string) error {
	return a.store.WithSlotLock(ctx, func(tx Tx) error {
		featured, err := tx.IsFeatured(ctx, productID)
		if err != nil {
			return err
		}
		if !featured {
			return nil
		}
		if err := tx.SetFeatured(ctx, productID, false); err != nil {
			return err
		}
		if count, err := tx.CountVisibleFeatured(ctx); err == nil {
			a.inUse.Set(float64(count))
		}
		return nil
	})
}

// Check is the admission test used by product writes that set featured=true
// inside their own locked transaction. productID is "" for a product that
// does not exist yet.
func (a *Allocator) Check(ctx context.Context, tx Tx, productID string) error {
	if productID != "" {
		featured, err := tx.IsFeatured(ctx, productID)
		if err != nil {
			return err
		}
		if featured {
			return nil
		}
	}
	_, err := a.free(ctx, tx)
	return err
}

// NoteVisibilityChange is called after a status toggle. Visibility changes
// are not admitted through the allocator, so making a featured product
// visible can push the count above the cap; that is logged and counted.
// It returns the visible featured count.
func (a *Allocator) NoteVisibilityChange(ctx context.Context, productID string) (int, error) {
	var count int
	err := a.store.WithSlotLock(ctx, func(tx Tx) error {
		var err error
		count, err = tx.CountVisibleFeatured(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	a.inUse.Set(float64(count))
	if count > a.limit {
		a.overshoot.Inc()
		a.logger.WarnContext(ctx, "featured products exceed available slots after visibility change",
			slog.String("product_id", productID),
			slog.Int("featured_visible", count),
			slog.Int("cap", a.limit),
		)
	}
	return count, nil
}

// Count returns the number of visible featured products.
func (a *Allocator) Count(ctx context.Context) (int, error) {
	var count int
	err := a.store.WithSlotLock(ctx, func(tx Tx) error {
		var err error
		count, err = tx.CountVisibleFeatured(ctx)
		return err
	})
	return count, err
}

// free returns the current count, or SlotsFull when no slot is left.
func (a *Allocator) free(ctx context.Context, tx Tx) (int, error) {
	count, err := tx.CountVisibleFeatured(ctx)
	if err != nil {
		return 0, err
	}
	if count >= a.limit {
		a.rejected.Inc()
		return count, apperrors.SlotsFull(count, a.limit)
	}
	return count, nil
}
