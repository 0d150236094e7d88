package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// PageContentRepository implements repository.PageContentRepository in memory.
type PageContentRepository struct {
	db *DB
}

func (r *PageContentRepository) Get(_ context.Context, key string) (*domain.PageContent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.pages[key]
	if !ok {
		return nil, apperrors.NotFound("page content", key)
	}
	pc := row.content
	return &pc, nil
}

func (r *PageContentRepository) List(_ context.Context) ([]domain.PageContent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	contents := make([]domain.PageContent, 0, len(r.db.pages))
	for _, row := range r.db.pages {
		contents = append(contents, row.content)
	}
	sort.Slice(contents, func(i, j int) bool { return contents[i].PageKey < contents[j].PageKey })
	return contents, nil
}

func (r *PageContentRepository) Upsert(_ context.Context, pc *domain.PageContent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row := r.db.pageRow(pc.PageKey)
	row.content.ContentType = pc.ContentType
	row.content.ContentValue = pc.ContentValue
	row.content.ImageFilename = ""
	row.content.ImageMimeType = ""
	row.content.HasImage = false
	row.image = asset.Ref{}

	*pc = row.content
	return nil
}

func (r *PageContentRepository) SetImage(_ context.Context, key string, ref asset.Ref) (*domain.PageContent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row := r.db.pageRow(key)
	row.content.ContentType = domain.ContentTypeImage
	row.content.ContentValue = ""
	row.content.ImageFilename = ref.Filename
	row.content.ImageMimeType = ref.MimeType
	row.content.HasImage = !ref.IsZero()
	row.image = ref

	pc := row.content
	return &pc, nil
}

func (r *PageContentRepository) GetImage(_ context.Context, id string) (asset.Ref, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, row := range r.db.pages {
		if row.content.ID == id {
			return row.image, nil
		}
	}
	return asset.Ref{}, apperrors.NotFound("page image", id)
}

// pageRow returns the row for key, creating it when absent, and refreshes
// updated_at. It requires mu held for writing.
func (db *DB) pageRow(key string) *pageRow {
	ts := now()
	row, ok := db.pages[key]
	if !ok {
		row = &pageRow{content: domain.PageContent{
			ID:        uuid.New().String(),
			PageKey:   key,
			CreatedAt: ts,
		}}
		db.pages[key] = row
	}
	row.content.UpdatedAt = ts
	return row
}
