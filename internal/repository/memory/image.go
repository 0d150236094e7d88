package memory

import (
	"context"
	"sort"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// ImageRepository implements repository.ImageRepository in memory.
type ImageRepository struct {
	db *DB
}

func (r *ImageRepository) ListByProduct(_ context.Context, productID string) ([]domain.ProductImage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	images := []domain.ProductImage{}
	for _, img := range r.db.images {
		if img.ProductID == productID {
			img.Data = nil
			images = append(images, img)
		}
	}
	sort.Slice(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return images, nil
}

func (r *ImageRepository) Add(_ context.Context, img *domain.ProductImage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[img.ProductID]; !ok {
		return apperrors.NotFound("product", img.ProductID)
	}
	last := 0
	for _, existing := range r.db.images {
		if existing.ProductID == img.ProductID && existing.DisplayOrder > last {
			last = existing.DisplayOrder
		}
	}
	img.DisplayOrder = last + 1
	img.Size = len(img.Data)

	stored := *img
	stored.Data = append([]byte(nil), img.Data...)
	r.db.images[img.ID] = stored
	return nil
}

func (r *ImageRepository) Get(_ context.Context, id string) (*domain.ProductImage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	img, ok := r.db.images[id]
	if !ok {
		return nil, apperrors.NotFound("image", id)
	}
	return &img, nil
}

func (r *ImageRepository) Delete(_ context.Context, productID, imageID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	img, ok := r.db.images[imageID]
	if !ok {
		return apperrors.NotFound("image", imageID)
	}
	if img.ProductID != productID {
		return apperrors.Forbidden("image does not belong to this product")
	}
	delete(r.db.images, imageID)
	return nil
}
