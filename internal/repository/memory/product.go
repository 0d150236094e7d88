package memory

import (
	"context"
	"strings"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	db    *DB
	slots *featured.Allocator
}

func (r *ProductRepository) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var search string
	if filter.Search != nil {
		search = strings.ToLower(*filter.Search)
	}

	matched := []domain.Product{}
	for _, row := range r.db.products {
		p := &row.product
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Featured != nil && p.Featured != *filter.Featured {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matched = append(matched, r.db.decodeProduct(row))
	}
	sortNewestFirst(matched, func(p domain.Product) (int64, string) {
		return p.CreatedAt.UnixNano(), p.ID
	})

	params := filter.Params(20)
	return page(matched, params.Offset, params.PerPage), len(matched), nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	p := r.db.decodeProduct(row)
	return &p, nil
}

func (r *ProductRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, row := range r.db.products {
		if row.product.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product, image domain.ImageChange) error {
	if !p.Featured {
		return r.insert(p, image)
	}
	return r.db.WithSlotLock(ctx, func(tx featured.Tx) error {
		if err := r.slots.Check(ctx, tx, ""); err != nil {
			return err
		}
		return r.insert(p, image)
	})
}

func (r *ProductRepository) insert(p *domain.Product, image domain.ImageChange) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[p.CategoryID]; !ok {
		return apperrors.NotFound("category", p.CategoryID)
	}
	var ref asset.Ref
	if image.Set {
		ref = image.Ref
	}
	r.db.products[p.ID] = encodeProduct(p, ref)

	p.HasImage = !ref.IsZero()
	p.ImageFilename = ref.Filename
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, image domain.ImageChange) error {
	if !p.Featured {
		return r.update(p, image)
	}
	return r.db.WithSlotLock(ctx, func(tx featured.Tx) error {
		if err := r.slots.Check(ctx, tx, p.ID); err != nil {
			return err
		}
		return r.update(p, image)
	})
}

func (r *ProductRepository) update(p *domain.Product, image domain.ImageChange) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", p.ID)
	}
	if _, ok := r.db.categories[p.CategoryID]; !ok {
		return apperrors.NotFound("category", p.CategoryID)
	}

	ref := current.image
	switch {
	case image.Set:
		ref = image.Ref
	case image.Remove:
		ref = asset.Ref{}
	}

	p.UpdatedAt = now()
	p.CreatedAt = current.product.CreatedAt
	r.db.products[p.ID] = encodeProduct(p, ref)

	p.HasImage = !ref.IsZero()
	p.ImageFilename = ref.Filename
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return 0, apperrors.NotFound("product", id)
	}
	removed := 0
	for imageID, img := range r.db.images {
		if img.ProductID == id {
			delete(r.db.images, imageID)
			removed++
		}
	}
	delete(r.db.products, id)
	return removed, nil
}

func (r *ProductRepository) SetStatus(_ context.Context, id string, status bool) (*domain.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.db.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	row.product.Status = status
	row.product.UpdatedAt = now()

	p := r.db.decodeProduct(row)
	return &p, nil
}

func (r *ProductRepository) GetImage(_ context.Context, id string) (asset.Ref, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.products[id]
	if !ok {
		return asset.Ref{}, apperrors.NotFound("product", id)
	}
	return row.image, nil
}

func (r *ProductRepository) Related(_ context.Context, p *domain.Product, limit int) ([]domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	related := []domain.Product{}
	for _, row := range r.db.products {
		if row.product.CategoryID == p.CategoryID && row.product.Status && row.product.ID != p.ID {
			related = append(related, r.db.decodeProduct(row))
		}
	}
	sortNewestFirst(related, func(p domain.Product) (int64, string) {
		return p.CreatedAt.UnixNano(), p.ID
	})
	return page(related, 0, limit), nil
}

func (r *ProductRepository) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.products), nil
}

// encodeProduct stores p the way the products table does: attribute fields
// as text, derived fields dropped.
func encodeProduct(p *domain.Product, image asset.Ref) *productRow {
	stored := *p
	stored.CategoryName = ""
	stored.HasImage = false
	stored.ImageFilename = ""
	stored.Advantages = nil
	stored.ServiceTags = nil
	stored.TechnicalSpecs = nil
	stored.TabContents = nil
	stored.Price = cloneFloat(p.Price)
	stored.PriceMin = cloneFloat(p.PriceMin)
	stored.PriceMax = cloneFloat(p.PriceMax)
	stored.Rating = cloneFloat(p.Rating)

	return &productRow{
		product:    stored,
		advantages: codec.EncodeList(p.Advantages),
		tags:       codec.EncodeTags(p.ServiceTags),
		specs:      codec.EncodeMapping(p.TechnicalSpecs),
		tabs:       codec.EncodeMapping(p.TabContents),
		image:      image,
	}
}

// decodeProduct requires mu.
func (db *DB) decodeProduct(row *productRow) domain.Product {
	p := row.product
	p.Price = cloneFloat(p.Price)
	p.PriceMin = cloneFloat(p.PriceMin)
	p.PriceMax = cloneFloat(p.PriceMax)
	p.Rating = cloneFloat(p.Rating)
	if c, ok := db.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	p.Advantages = codec.DecodeList(row.advantages)
	p.ServiceTags = codec.DecodeTags(row.tags)
	p.TechnicalSpecs = db.codec.DecodeMapping(row.specs)
	p.TabContents = db.codec.DecodeMapping(row.tabs)
	p.HasImage = !row.image.IsZero()
	p.ImageFilename = row.image.Filename
	return p
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
