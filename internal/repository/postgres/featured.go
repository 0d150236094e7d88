package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// featuredLockKey identifies the featured-slot advisory lock.
const featuredLockKey int64 = 0x63617466656174 // "catfeat"

// FeaturedStore implements featured.Store with a transaction-scoped
// advisory lock.
type FeaturedStore struct {
	pool database.DBTX
}

// NewFeaturedStore creates a new PostgreSQL-backed featured slot store.
func NewFeaturedStore(pool database.DBTX) *FeaturedStore {
	return &FeaturedStore{pool: pool}
}

// WithSlotLock runs fn in a transaction holding the featured-slot lock. The
// lock is released on commit or rollback.
func (s *FeaturedStore) WithSlotLock(ctx context.Context, fn func(tx featured.Tx) error) error {
	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockFeaturedSlots(ctx, tx); err != nil {
			return err
		}
		return fn(slotTx{tx: tx})
	})
}

func lockFeaturedSlots(ctx context.Context, tx pgx.Tx) (err error) {
	const query = `SELECT pg_advisory_xact_lock($1)`
	ctx, end := database.TraceQuery(ctx, "LockFeaturedSlots", query)
	defer func() { end(err) }()

	if _, err = tx.Exec(ctx, query, featuredLockKey); err != nil {
		return apperrors.StorageFailure("lock featured slots", err)
	}
	return nil
}

// slotTx implements featured.Tx on an open transaction.
type slotTx struct {
	tx pgx.Tx
}

func (t slotTx) IsFeatured(ctx context.Context, productID string) (bool, error) {
	var isFeatured bool
	err := t.tx.QueryRow(ctx, `SELECT is_featured FROM products WHERE id = $1`, productID).Scan(&isFeatured)
	if err != nil {
		if isNoRows(err) {
			return false, apperrors.NotFound("product", productID)
		}
		return false, apperrors.StorageFailure("load featured flag", err)
	}
	return isFeatured, nil
}

func (t slotTx) CountVisibleFeatured(ctx context.Context) (int, error) {
	n, err := countRows(ctx, t.tx, "products", "WHERE is_featured AND status")
	if err != nil {
		return 0, apperrors.StorageFailure("count featured products", err)
	}
	return n, nil
}

func (t slotTx) SetFeatured(ctx context.Context, productID string, isFeatured bool) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE products SET is_featured = $1, updated_at = $2 WHERE id = $3`,
		isFeatured, time.Now().UTC(), productID,
	)
	if err != nil {
		return apperrors.StorageFailure("set featured flag", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}
