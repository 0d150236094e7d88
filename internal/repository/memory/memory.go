// Package memory implements the catalog repositories on mutex-guarded maps.
// Rows are kept in their stored form, so attribute fields pass through the
// codec exactly as they do with PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// DB holds every table. mu guards the maps; slotMu plays the role of the
// featured-slot advisory lock and is always taken before mu.
type DB struct {
	mu     sync.RWMutex
	slotMu sync.Mutex

	categories map[string]domain.Category
	products   map[string]*productRow
	images     map[string]domain.ProductImage
	contacts   map[string]domain.Contact
	pages      map[string]*pageRow

	codec *codec.Codec
}

type productRow struct {
	product                       domain.Product
	advantages, tags, specs, tabs string
	image                         asset.Ref
}

type pageRow struct {
	content domain.PageContent
	image   asset.Ref
}

// New returns an empty database.
func New(c *codec.Codec) *DB {
	if c == nil {
		c = codec.New(nil)
	}
	return &DB{
		categories: make(map[string]domain.Category),
		products:   make(map[string]*productRow),
		images:     make(map[string]domain.ProductImage),
		contacts:   make(map[string]domain.Contact),
		pages:      make(map[string]*pageRow),
		codec:      c,
	}
}

// Store returns the repositories backed by db. Featured writes are admitted
// by slots, which should itself be built on db.
func (db *DB) Store(slots *featured.Allocator) repository.Store {
	return repository.Store{
		Categories: &CategoryRepository{db: db},
		Products:   &ProductRepository{db: db, slots: slots},
		Images:     &ImageRepository{db: db},
		Contacts:   &ContactRepository{db: db},
		Pages:      &PageContentRepository{db: db},
	}
}

// WithSlotLock implements featured.Store.
func (db *DB) WithSlotLock(ctx context.Context, fn func(tx featured.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.slotMu.Lock()
	defer db.slotMu.Unlock()
	return fn(slotTx{db: db})
}

type slotTx struct {
	db *DB
}

func (t slotTx) IsFeatured(_ context.Context, productID string) (bool, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	row, ok := t.db.products[productID]
	if !ok {
		return false, apperrors.NotFound("product", productID)
	}
	return row.product.Featured, nil
}

func (t slotTx) CountVisibleFeatured(_ context.Context) (int, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	return t.db.countVisibleFeatured(), nil
}

func (t slotTx) SetFeatured(_ context.Context, productID string, isFeatured bool) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	row, ok := t.db.products[productID]
	if !ok {
		return apperrors.NotFound("product", productID)
	}
	row.product.Featured = isFeatured
	row.product.UpdatedAt = now()
	return nil
}

// countVisibleFeatured requires mu.
func (db *DB) countVisibleFeatured() int {
	n := 0
	for _, row := range db.products {
		if row.product.Featured && row.product.Status {
			n++
		}
	}
	return n
}

// page slices items for params. A page past the end is empty, not nil.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// sortNewestFirst orders by created_at DESC, id DESC.
func sortNewestFirst[T any](items []T, key func(T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti != tj {
			return ti > tj
		}
		return idi > idj
	})
}
