package memory

import (
	"context"
	"sort"
	"time"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

var now = func() time.Time { return time.Now().UTC() }

// CategoryRepository implements repository.CategoryRepository in memory.
type CategoryRepository struct {
	db *DB
}

func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	categories := make([]domain.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		c.ProductCount = r.db.productsIn(c.ID)
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if !categories[i].CreatedAt.Equal(categories[j].CreatedAt) {
			return categories[i].CreatedAt.Before(categories[j].CreatedAt)
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.categories[id]
	if !ok {
		return nil, apperrors.NotFound("category", id)
	}
	c.ProductCount = r.db.productsIn(id)
	return &c, nil
}

func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.db.categoryNamed(c.Name, "") {
		return apperrors.AlreadyExists("category", "name", c.Name)
	}
	stored := *c
	stored.ProductCount = 0
	r.db.categories[c.ID] = stored
	return nil
}

func (r *CategoryRepository) Rename(_ context.Context, id, name string, description *string) (*domain.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.categories[id]
	if !ok {
		return nil, apperrors.NotFound("category", id)
	}
	if r.db.categoryNamed(name, id) {
		return nil, apperrors.AlreadyExists("category", "name", name)
	}
	c.Name = name
	if description != nil {
		c.Description = *description
	}
	c.UpdatedAt = now()
	r.db.categories[id] = c

	c.ProductCount = r.db.productsIn(id)
	return &c, nil
}

func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if n := r.db.productsIn(id); n > 0 {
		return apperrors.PreconditionFailed("category", id, n, "products")
	}
	if _, ok := r.db.categories[id]; !ok {
		return apperrors.NotFound("category", id)
	}
	delete(r.db.categories, id)
	return nil
}

func (r *CategoryRepository) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.categories), nil
}

// productsIn requires mu.
func (db *DB) productsIn(categoryID string) int {
	n := 0
	for _, row := range db.products {
		if row.product.CategoryID == categoryID {
			n++
		}
	}
	return n
}

// categoryNamed reports whether a category other than exceptID is called
// name. It requires mu.
func (db *DB) categoryNamed(name, exceptID string) bool {
	for id, c := range db.categories {
		if id != exceptID && c.Name == name {
			return true
		}
	}
	return false
}
