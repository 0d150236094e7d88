package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

const pageContentColumns = `id, page_key, content_type, COALESCE(content_value, ''),
	COALESCE(image_filename, ''), COALESCE(image_mime_type, ''), image_data IS NOT NULL,
	created_at, updated_at`

// PageContentRepository implements repository.PageContentRepository using
// PostgreSQL.
type PageContentRepository struct {
	pool database.DBTX
}

// NewPageContentRepository creates a new PostgreSQL-backed page content repository.
func NewPageContentRepository(pool database.DBTX) *PageContentRepository {
	return &PageContentRepository{pool: pool}
}

// Get returns the slot stored under key.
func (r *PageContentRepository) Get(ctx context.Context, key string) (*domain.PageContent, error) {
	pc, err := scanPageContent(r.pool.QueryRow(ctx,
		`SELECT `+pageContentColumns+` FROM page_contents WHERE page_key = $1`, key))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("page content", key)
		}
		return nil, apperrors.StorageFailure("get page content", err)
	}
	return pc, nil
}

// List returns every slot ordered by key.
func (r *PageContentRepository) List(ctx context.Context) ([]domain.PageContent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pageContentColumns+` FROM page_contents ORDER BY page_key ASC`)
	if err != nil {
		return nil, apperrors.StorageFailure("list page contents", err)
	}
	defer rows.Close()

	contents := []domain.PageContent{}
	for rows.Next() {
		pc, err := scanPageContent(rows)
		if err != nil {
			return nil, apperrors.StorageFailure("scan page content row", err)
		}
		contents = append(contents, *pc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageFailure("iterate page content rows", err)
	}
	return contents, nil
}

// Upsert writes a text-like slot. A previous image payload is cleared.
func (r *PageContentRepository) Upsert(ctx context.Context, pc *domain.PageContent) error {
	now := time.Now().UTC()
	if pc.ID == "" {
		pc.ID = uuid.New().String()
	}

	query := `
		INSERT INTO page_contents (id, page_key, content_type, content_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (page_key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
		    content_value = EXCLUDED.content_value,
		    image_data = NULL, image_filename = NULL, image_mime_type = NULL,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + pageContentColumns

	updated, err := scanPageContent(r.pool.QueryRow(ctx, query,
		pc.ID, pc.PageKey, pc.ContentType, pc.ContentValue, now,
	))
	if err != nil {
		return apperrors.StorageFailure("upsert page content", err)
	}
	*pc = *updated
	return nil
}

// SetImage stores ref as the image slot under key.
func (r *PageContentRepository) SetImage(ctx context.Context, key string, ref asset.Ref) (*domain.PageContent, error) {
	imgData, imgName, imgMime := imageArgs(ref)

	query := `
		INSERT INTO page_contents (id, page_key, content_type, image_data, image_filename, image_mime_type, created_at, updated_at)
		VALUES ($1, $2, 'image', $3, $4, $5, $6, $6)
		ON CONFLICT (page_key) DO UPDATE
		SET content_type = 'image',
		    content_value = NULL,
		    image_data = EXCLUDED.image_data,
		    image_filename = EXCLUDED.image_filename,
		    image_mime_type = EXCLUDED.image_mime_type,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + pageContentColumns

	pc, err := scanPageContent(r.pool.QueryRow(ctx, query,
		uuid.New().String(), key, imgData, imgName, imgMime, time.Now().UTC(),
	))
	if err != nil {
		return nil, apperrors.StorageFailure("set page image", err)
	}
	return pc, nil
}

// GetImage loads the payload of an image slot.
func (r *PageContentRepository) GetImage(ctx context.Context, id string) (asset.Ref, error) {
	var ref asset.Ref
	err := r.pool.QueryRow(ctx, `
		SELECT image_data, COALESCE(image_filename, ''), COALESCE(image_mime_type, '')
		FROM page_contents
		WHERE id = $1`, id,
	).Scan(&ref.Data, &ref.Filename, &ref.MimeType)
	if err != nil {
		if isNoRows(err) {
			return asset.Ref{}, apperrors.NotFound("page image", id)
		}
		return asset.Ref{}, apperrors.StorageFailure("get page image", err)
	}
	return ref, nil
}

func scanPageContent(row rowScanner) (*domain.PageContent, error) {
	var pc domain.PageContent
	if err := row.Scan(
		&pc.ID,
		&pc.PageKey,
		&pc.ContentType,
		&pc.ContentValue,
		&pc.ImageFilename,
		&pc.ImageMimeType,
		&pc.HasImage,
		&pc.CreatedAt,
		&pc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pc, nil
}
