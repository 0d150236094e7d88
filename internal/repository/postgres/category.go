package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

const categorySelect = `
	SELECT c.id, c.name, COALESCE(c.description, ''),
	       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id) AS product_count,
	       c.created_at, c.updated_at
	FROM categories c`

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories ordered by creation time.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, categorySelect+` ORDER BY c.created_at ASC, c.id ASC`)
	if err != nil {
		return nil, apperrors.StorageFailure("list categories", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, apperrors.StorageFailure("scan category row", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageFailure("iterate category rows", err)
	}
	return categories, nil
}

// GetByID retrieves a category by its unique identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, categorySelect+` WHERE c.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, apperrors.StorageFailure("get category", err)
	}
	return c, nil
}

// Create inserts a new category. The unique constraint on name turns a
// duplicate into a Conflict.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Name, nullText(c.Description), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		return apperrors.StorageFailure("insert category", err)
	}
	return nil
}

// Rename sets a new name and optionally a new description.
func (r *CategoryRepository) Rename(ctx context.Context, id, name string, description *string) (*domain.Category, error) {
	var desc any
	if description != nil {
		desc = *description
	}

	query := `
		UPDATE categories
		SET name = $1, description = COALESCE($2, description), updated_at = $3
		WHERE id = $4
		RETURNING id, name, COALESCE(description, ''),
		          (SELECT COUNT(*) FROM products p WHERE p.category_id = categories.id),
		          created_at, updated_at`

	c, err := scanCategory(r.pool.QueryRow(ctx, query, name, desc, time.Now().UTC(), id))
	if err != nil {
		switch {
		case isNoRows(err):
			return nil, apperrors.NotFound("category", id)
		case database.IsUniqueViolation(err):
			return nil, apperrors.AlreadyExists("category", "name", name)
		}
		return nil, apperrors.StorageFailure("rename category", err)
	}
	return c, nil
}

// Delete removes a category that no product references.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&count)
		if err != nil {
			return apperrors.StorageFailure("count category products", err)
		}
		if count > 0 {
			return apperrors.PreconditionFailed("category", id, count, "products")
		}

		ct, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			// A product inserted after the count still trips the FK.
			if database.IsForeignKeyViolation(err) {
				return apperrors.PreconditionFailed("category", id, 1, "products")
			}
			return apperrors.StorageFailure("delete category", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("category", id)
		}
		return nil
	})
}

// Count returns the number of categories.
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	n, err := countRows(ctx, r.pool, "categories", "")
	if err != nil {
		return 0, apperrors.StorageFailure("count categories", err)
	}
	return n, nil
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
