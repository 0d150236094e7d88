package repository

import (
	"context"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/pkg/pagination"
)

// ProductFilter defines filter criteria for listing products. Nil fields do
// not filter.
type ProductFilter struct {
	CategoryID *string
	Status     *bool
	Featured   *bool
	Search     *string
	Page       int
	PerPage    int
}

// Params returns the normalized page window of the filter.
func (f ProductFilter) Params(defaultPerPage int) pagination.Params {
	return pagination.NewParams(f.Page, f.PerPage, defaultPerPage)
}

// CategoryRepository owns categories.
type CategoryRepository interface {
	// List returns all categories, oldest first, with their product counts.
	List(ctx context.Context) ([]domain.Category, error)

	// GetByID retrieves a category by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Category, error)

	// Create inserts a category. A taken name is a Conflict.
	Create(ctx context.Context, c *domain.Category) error

	// Rename changes the name and, when description is non-nil, the
	// description. Keeping the current name is not a conflict.
	Rename(ctx context.Context, id, name string, description *string) (*domain.Category, error)

	// Delete removes a category. It fails with PreconditionFailed while
	// products still reference it.
	Delete(ctx context.Context, id string) error

	// Count returns the number of categories.
	Count(ctx context.Context) (int, error)
}

// ProductRepository owns products and their primary image.
type ProductRepository interface {
	// List returns one page of products, newest first, and the total match
	// count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// GetByID retrieves a product without image bytes.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// ExistsByName reports whether a product with exactly this name exists.
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Create inserts a product. A featured product is admitted through the
	// featured-slot check in the same transaction.
	Create(ctx context.Context, p *domain.Product, image domain.ImageChange) error

	// Update rewrites a product. Turning featured on is admitted through the
	// featured-slot check in the same transaction.
	Update(ctx context.Context, p *domain.Product, image domain.ImageChange) error

	// Delete removes a product and its gallery in one transaction and
	// returns the number of gallery images removed.
	Delete(ctx context.Context, id string) (int, error)

	// SetStatus changes storefront visibility.
	SetStatus(ctx context.Context, id string, status bool) (*domain.Product, error)

	// GetImage loads the primary image payload.
	GetImage(ctx context.Context, id string) (asset.Ref, error)

	// Related returns up to limit visible products of the same category,
	// newest first, excluding the product itself.
	Related(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error)

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)
}

// ImageRepository owns gallery images.
type ImageRepository interface {
	// ListByProduct returns metadata of a product's images ordered by
	// display_order, created_at, id.
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error)

	// Add appends an image after the product's last one. An unknown product
	// is NotFound.
	Add(ctx context.Context, img *domain.ProductImage) error

	// Get loads an image including its payload.
	Get(ctx context.Context, id string) (*domain.ProductImage, error)

	// Delete removes an image of the given product. An image that belongs
	// to another product is Forbidden.
	Delete(ctx context.Context, productID, imageID string) error
}

// ContactRepository owns contact messages.
type ContactRepository interface {
	Create(ctx context.Context, c *domain.Contact) error
	// List returns one page of messages, newest first.
	List(ctx context.Context, params pagination.Params) ([]domain.Contact, int, error)
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead returns the number of messages that changed.
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
	CountUnread(ctx context.Context) (int, error)
	// RecentUnread returns up to limit unread messages, newest first.
	RecentUnread(ctx context.Context, limit int) ([]domain.Contact, error)
}

// PageContentRepository owns editable page slots.
type PageContentRepository interface {
	// Get returns the slot stored under key, or NotFound.
	Get(ctx context.Context, key string) (*domain.PageContent, error)
	// List returns all slots ordered by key.
	List(ctx context.Context) ([]domain.PageContent, error)
	// Upsert writes a text, richtext or json slot.
	Upsert(ctx context.Context, pc *domain.PageContent) error
	// SetImage writes an image slot.
	SetImage(ctx context.Context, key string, ref asset.Ref) (*domain.PageContent, error)
	// GetImage loads the payload of an image slot by slot id.
	GetImage(ctx context.Context, id string) (asset.Ref, error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Categories CategoryRepository
	Products   ProductRepository
	Images     ImageRepository
	Contacts   ContactRepository
	Pages      PageContentRepository
}
