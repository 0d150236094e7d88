package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// productSelect reads every product column except the image payload.
const productSelect = `
	SELECT p.id, p.name, p.description, p.category_id, COALESCE(c.name, ''), p.brand,
	       p.price::float8, p.price_min::float8, p.price_max::float8, p.price_note, p.stock,
	       p.status, p.is_featured, p.rating::float8, p.review_count,
	       p.specifications, p.features, p.applications,
	       COALESCE(p.advantages, ''), COALESCE(p.service_tags, ''),
	       COALESCE(p.technical_specs, ''), COALESCE(p.tab_contents, ''),
	       p.image_data IS NOT NULL, COALESCE(p.image_filename, ''),
	       p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool  database.DBTX
	slots *featured.Allocator
	codec *codec.Codec
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
// Writes that set featured=true are admitted by slots.
func NewProductRepository(pool database.DBTX, slots *featured.Allocator, c *codec.Codec) *ProductRepository {
	if c == nil {
		c = codec.New(nil)
	}
	return &ProductRepository{pool: pool, slots: slots, codec: c}
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("p.is_featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	params := filter.Params(20)
	query := fmt.Sprintf(`%s,
		       count(*) OVER() AS total_count
		%s
		%s
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $%d OFFSET $%d`,
		productSelect, productFrom, whereClause, argIndex, argIndex+1,
	)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, append(args, params.PerPage, params.Offset)...)
	if err != nil {
		return nil, 0, apperrors.StorageFailure("list products", err)
	}
	defer rows.Close()

	var (
		products   = []domain.Product{}
		totalCount int
	)
	for rows.Next() {
		p, err := r.scanProduct(rows, &totalCount)
		if err != nil {
			return nil, 0, apperrors.StorageFailure("scan product row", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.StorageFailure("iterate product rows", err)
	}

	if len(products) == 0 && params.Offset > 0 {
		totalCount, err = countRows(ctx, r.pool, "products p", whereClause, args...)
		if err != nil {
			return nil, 0, apperrors.StorageFailure("count products", err)
		}
	}

	return products, totalCount, nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := r.scanProduct(r.pool.QueryRow(ctx, productSelect+productFrom+` WHERE p.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, apperrors.StorageFailure("get product", err)
	}
	return p, nil
}

// ExistsByName reports whether a product named exactly name exists.
func (r *ProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, apperrors.StorageFailure("check product name", err)
	}
	return exists, nil
}

// Create inserts a new product. A featured product is admitted under the
// featured-slot lock in the same transaction as the insert.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product, image domain.ImageChange) error {
	if !p.Featured {
		return r.insert(ctx, r.pool, p, image)
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockFeaturedSlots(ctx, tx); err != nil {
			return err
		}
		if err := r.slots.Check(ctx, slotTx{tx: tx}, ""); err != nil {
			return err
		}
		return r.insert(ctx, tx, p, image)
	})
}

func (r *ProductRepository) insert(ctx context.Context, db database.DBTX, p *domain.Product, image domain.ImageChange) error {
	var ref asset.Ref
	if image.Set {
		ref = image.Ref
	}
	imgData, imgName, imgMime := imageArgs(ref)

	query := `
		INSERT INTO products (id, name, description, category_id, brand,
			price, price_min, price_max, price_note, stock,
			status, is_featured, rating, review_count,
			specifications, features, applications,
			advantages, service_tags, technical_specs, tab_contents,
			image_data, image_filename, image_mime_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err := db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.CategoryID,
		p.Brand,
		p.Price,
		p.PriceMin,
		p.PriceMax,
		p.PriceNote,
		p.Stock,
		p.Status,
		p.Featured,
		p.Rating,
		p.ReviewCount,
		p.Specifications,
		p.Features,
		p.Applications,
		nullText(codec.EncodeList(p.Advantages)),
		nullText(codec.EncodeTags(p.ServiceTags)),
		nullText(codec.EncodeMapping(p.TechnicalSpecs)),
		nullText(codec.EncodeMapping(p.TabContents)),
		imgData,
		imgName,
		imgMime,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("category", p.CategoryID)
		}
		return apperrors.StorageFailure("insert product", err)
	}

	p.HasImage = !ref.IsZero()
	p.ImageFilename = ref.Filename
	return nil
}

// Update rewrites every column of an existing product. The primary image is
// only touched when image asks for it.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, image domain.ImageChange) error {
	if !p.Featured {
		return r.update(ctx, r.pool, p, image)
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockFeaturedSlots(ctx, tx); err != nil {
			return err
		}
		if err := r.slots.Check(ctx, slotTx{tx: tx}, p.ID); err != nil {
			return err
		}
		return r.update(ctx, tx, p, image)
	})
}

func (r *ProductRepository) update(ctx context.Context, db database.DBTX, p *domain.Product, image domain.ImageChange) error {
	p.UpdatedAt = time.Now().UTC()

	args := []any{
		p.Name,
		p.Description,
		p.CategoryID,
		p.Brand,
		p.Price,
		p.PriceMin,
		p.PriceMax,
		p.PriceNote,
		p.Stock,
		p.Status,
		p.Featured,
		p.Rating,
		p.ReviewCount,
		p.Specifications,
		p.Features,
		p.Applications,
		nullText(codec.EncodeList(p.Advantages)),
		nullText(codec.EncodeTags(p.ServiceTags)),
		nullText(codec.EncodeMapping(p.TechnicalSpecs)),
		nullText(codec.EncodeMapping(p.TabContents)),
		p.UpdatedAt,
	}

	imageClause := ""
	if !image.Keep() {
		var ref asset.Ref
		if image.Set {
			ref = image.Ref
		}
		imgData, imgName, imgMime := imageArgs(ref)
		imageClause = fmt.Sprintf(", image_data = $%d, image_filename = $%d, image_mime_type = $%d",
			len(args)+1, len(args)+2, len(args)+3)
		args = append(args, imgData, imgName, imgMime)
	}
	args = append(args, p.ID)

	query := fmt.Sprintf(`
		UPDATE products
		SET name = $1, description = $2, category_id = $3, brand = $4,
		    price = $5, price_min = $6, price_max = $7, price_note = $8, stock = $9,
		    status = $10, is_featured = $11, rating = $12, review_count = $13,
		    specifications = $14, features = $15, applications = $16,
		    advantages = $17, service_tags = $18, technical_specs = $19, tab_contents = $20,
		    updated_at = $21%s
		WHERE id = $%d
		RETURNING image_data IS NOT NULL, COALESCE(image_filename, '')`,
		imageClause, len(args),
	)

	err := db.QueryRow(ctx, query, args...).Scan(&p.HasImage, &p.ImageFilename)
	if err != nil {
		switch {
		case isNoRows(err):
			return apperrors.NotFound("product", p.ID)
		case database.IsForeignKeyViolation(err):
			return apperrors.NotFound("category", p.CategoryID)
		}
		return apperrors.StorageFailure("update product", err)
	}
	return nil
}

// Delete removes a product and its gallery images in one transaction and
// returns how many images went with it.
func (r *ProductRepository) Delete(ctx context.Context, id string) (removed int, err error) {
	const (
		deleteImages  = `DELETE FROM product_images WHERE product_id = $1`
		deleteProduct = `DELETE FROM products WHERE id = $1`
	)
	ctx, end := database.TraceQuery(ctx, "DeleteProduct", deleteProduct)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, deleteImages, id)
		if err != nil {
			return apperrors.StorageFailure("delete product images", err)
		}
		removed = int(ct.RowsAffected())

		ct, err = tx.Exec(ctx, deleteProduct, id)
		if err != nil {
			return apperrors.StorageFailure("delete product", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("product", id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// SetStatus changes storefront visibility. It does not consult the
// featured-slot allocator.
func (r *ProductRepository) SetStatus(ctx context.Context, id string, status bool) (*domain.Product, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, apperrors.StorageFailure("update product status", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, apperrors.NotFound("product", id)
	}
	return r.GetByID(ctx, id)
}

// GetImage loads the primary image of a product. A product without an image
// yields the zero Ref.
func (r *ProductRepository) GetImage(ctx context.Context, id string) (asset.Ref, error) {
	var ref asset.Ref
	err := r.pool.QueryRow(ctx, `
		SELECT image_data, COALESCE(image_filename, ''), COALESCE(image_mime_type, '')
		FROM products
		WHERE id = $1`, id,
	).Scan(&ref.Data, &ref.Filename, &ref.MimeType)
	if err != nil {
		if isNoRows(err) {
			return asset.Ref{}, apperrors.NotFound("product", id)
		}
		return asset.Ref{}, apperrors.StorageFailure("get product image", err)
	}
	return ref, nil
}

// Related returns visible products of the same category, newest first.
func (r *ProductRepository) Related(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error) {
	query := productSelect + productFrom + `
		WHERE p.category_id = $1 AND p.status AND p.id <> $2
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, p.CategoryID, p.ID, limit)
	if err != nil {
		return nil, apperrors.StorageFailure("list related products", err)
	}
	defer rows.Close()

	related := []domain.Product{}
	for rows.Next() {
		rp, err := r.scanProduct(rows)
		if err != nil {
			return nil, apperrors.StorageFailure("scan product row", err)
		}
		related = append(related, *rp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageFailure("iterate product rows", err)
	}
	return related, nil
}

// Count returns the number of products.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	n, err := countRows(ctx, r.pool, "products", "")
	if err != nil {
		return 0, apperrors.StorageFailure("count products", err)
	}
	return n, nil
}

// scanProduct reads one productSelect row followed by any extra columns.
func (r *ProductRepository) scanProduct(row rowScanner, extra ...any) (*domain.Product, error) {
	var (
		p                             domain.Product
		advantages, tags, specs, tabs string
	)

	dest := []any{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.CategoryName,
		&p.Brand,
		&p.Price,
		&p.PriceMin,
		&p.PriceMax,
		&p.PriceNote,
		&p.Stock,
		&p.Status,
		&p.Featured,
		&p.Rating,
		&p.ReviewCount,
		&p.Specifications,
		&p.Features,
		&p.Applications,
		&advantages,
		&tags,
		&specs,
		&tabs,
		&p.HasImage,
		&p.ImageFilename,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.Advantages = codec.DecodeList(advantages)
	p.ServiceTags = codec.DecodeTags(tags)
	p.TechnicalSpecs = r.codec.DecodeMapping(specs)
	p.TabContents = r.codec.DecodeMapping(tabs)
	return &p, nil
}
