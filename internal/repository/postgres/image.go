package postgres

import (
	"context"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

const imageColumns = `id, product_id, filename, mime_type, octet_length(data), display_order, created_at`

// ImageRepository implements repository.ImageRepository using PostgreSQL.
type ImageRepository struct {
	pool database.DBTX
}

// NewImageRepository creates a new PostgreSQL-backed gallery image repository.
func NewImageRepository(pool database.DBTX) *ImageRepository {
	return &ImageRepository{pool: pool}
}

// ListByProduct returns image metadata in display order.
func (r *ImageRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	query := `SELECT ` + imageColumns + `
		FROM product_images
		WHERE product_id = $1
		ORDER BY display_order ASC, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, apperrors.StorageFailure("list product images", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(
			&img.ID,
			&img.ProductID,
			&img.Filename,
			&img.MimeType,
			&img.Size,
			&img.DisplayOrder,
			&img.CreatedAt,
		); err != nil {
			return nil, apperrors.StorageFailure("scan product image row", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageFailure("iterate product image rows", err)
	}
	return images, nil
}

// Add inserts an image after the product's current last image.
func (r *ImageRepository) Add(ctx context.Context, img *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, data, filename, mime_type, display_order, created_at)
		SELECT $1, $2, $3, $4, $5, COALESCE(MAX(display_order), 0) + 1, $6
		FROM product_images
		WHERE product_id = $2
		RETURNING display_order`

	err := r.pool.QueryRow(ctx, query,
		img.ID,
		img.ProductID,
		img.Data,
		img.Filename,
		img.MimeType,
		img.CreatedAt,
	).Scan(&img.DisplayOrder)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("product", img.ProductID)
		}
		return apperrors.StorageFailure("insert product image", err)
	}
	img.Size = len(img.Data)
	return nil
}

// Get loads one image including its payload.
func (r *ImageRepository) Get(ctx context.Context, id string) (*domain.ProductImage, error) {
	var img domain.ProductImage
	err := r.pool.QueryRow(ctx, `SELECT `+imageColumns+`, data FROM product_images WHERE id = $1`, id).Scan(
		&img.ID,
		&img.ProductID,
		&img.Filename,
		&img.MimeType,
		&img.Size,
		&img.DisplayOrder,
		&img.CreatedAt,
		&img.Data,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("image", id)
		}
		return nil, apperrors.StorageFailure("get product image", err)
	}
	return &img, nil
}

// Delete removes imageID if it belongs to productID.
func (r *ImageRepository) Delete(ctx context.Context, productID, imageID string) error {
	var owner string
	err := r.pool.QueryRow(ctx, `SELECT product_id FROM product_images WHERE id = $1`, imageID).Scan(&owner)
	if err != nil {
		if isNoRows(err) {
			return apperrors.NotFound("image", imageID)
		}
		return apperrors.StorageFailure("load product image owner", err)
	}
	if owner != productID {
		return apperrors.Forbidden("image does not belong to this product")
	}

	ct, err := r.pool.Exec(ctx, `DELETE FROM product_images WHERE id = $1 AND product_id = $2`, imageID, productID)
	if err != nil {
		return apperrors.StorageFailure("delete product image", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("image", imageID)
	}
	return nil
}
