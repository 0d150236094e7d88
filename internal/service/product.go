package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/pagination"
)

const (
	maxProductName = 200
	maxBrand       = 100
	maxPriceNote   = 200
	maxRating      = 5.0
)

// ProductService implements product, featured-slot and image operations.
type ProductService struct {
	products   repository.ProductRepository
	images     repository.ImageRepository
	categories repository.CategoryRepository
	slots      *featured.Allocator
	producer   *event.Producer
	opts       Options
	logger     *slog.Logger

	uploads *prometheus.CounterVec
}

// NewProductService creates a new product service.
func NewProductService(store repository.Store, slots *featured.Allocator, producer *event.Producer, opts Options, logger *slog.Logger) *ProductService {
	return &ProductService{
		products:   store.Products,
		images:     store.Images,
		categories: store.Categories,
		slots:      slots,
		producer:   producer,
		opts:       opts.withDefaults(),
		logger:     logger,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_image_uploads_total",
			Help: "Uploaded image files by outcome",
		}, []string{"outcome"}),
	}
}

// CreateProductInput holds the parameters for creating a product. A nil
// Status means visible.
type CreateProductInput struct {
	Name        string
	Description string
	CategoryID  string
	Brand       string

	Price     *float64
	PriceMin  *float64
	PriceMax  *float64
	PriceNote string
	Stock     int

	Status   *bool
	Featured bool

	Rating      *float64
	ReviewCount int

	Specifications string
	Features       string
	Applications   string

	Advantages     []string
	ServiceTags    []string
	TechnicalSpecs codec.Mapping
	TabContents    codec.Mapping

	Image *Upload
}

// UpdateProductInput holds a partial product update. Nil fields are left
// unchanged. Image replaces the primary image; RemoveImage drops it.
type UpdateProductInput struct {
	Name        *string
	Description *string
	CategoryID  *string
	Brand       *string

	Price      *float64
	PriceMin   *float64
	PriceMax   *float64
	ClearPrice bool
	PriceNote  *string
	Stock      *int

	Status   *bool
	Featured *bool

	Rating      *float64
	ReviewCount *int

	Specifications *string
	Features       *string
	Applications   *string

	Advantages     *[]string
	ServiceTags    *[]string
	TechnicalSpecs *codec.Mapping
	TabContents    *codec.Mapping

	Image       *Upload
	RemoveImage bool
}

// ListProducts returns one page of products matching filter.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) (pagination.Result[domain.Product], error) {
	params := filter.Params(s.opts.AdminPerPage)
	filter.Page, filter.PerPage = params.Page, params.PerPage

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// ListStorefront returns one page of visible products, optionally limited to
// one category.
func (s *ProductService) ListStorefront(ctx context.Context, categoryID *string, page int) (pagination.Result[domain.Product], error) {
	visible := true
	return s.ListProducts(ctx, repository.ProductFilter{
		CategoryID: categoryID,
		Status:     &visible,
		Page:       page,
		PerPage:    s.opts.StorefrontPerPage,
	})
}

// HomepageProducts returns the featured visible products, newest first and
// at most one per slot. Without any, the newest visible products fill the
// slots instead.
func (s *ProductService) HomepageProducts(ctx context.Context) ([]domain.Product, error) {
	visible, isFeatured := true, true
	products, _, err := s.products.List(ctx, repository.ProductFilter{
		Status:   &visible,
		Featured: &isFeatured,
		PerPage:  s.slots.Cap(),
	})
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	if len(products) > 0 {
		return products, nil
	}

	products, _, err = s.products.List(ctx, repository.ProductFilter{
		Status:  &visible,
		PerPage: s.slots.Cap(),
	})
	if err != nil {
		return nil, fmt.Errorf("list latest products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// GetProductDetail returns a product with its gallery and related products.
// A hidden product is NotFound on the storefront.
func (s *ProductService) GetProductDetail(ctx context.Context, id string, storefront bool) (*domain.ProductDetail, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	if storefront && !p.Visible() {
		return nil, apperrors.NotFound("product", id)
	}

	detail := &domain.ProductDetail{Product: *p}

	category, err := s.categories.GetByID(ctx, p.CategoryID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load product category",
			slog.String("product_id", p.ID),
			slog.String("category_id", p.CategoryID),
			slog.String("error", err.Error()),
		)
	} else {
		detail.Category = category
	}

	images, err := s.images.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	detail.Images = images

	related, err := s.products.Related(ctx, p, domain.MaxRelated)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	detail.Related = related

	return detail, nil
}

// CreateProduct creates a product. Creating it featured takes a slot.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	p := &domain.Product{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		CategoryID:     strings.TrimSpace(input.CategoryID),
		Brand:          strings.TrimSpace(input.Brand),
		Price:          input.Price,
		PriceMin:       input.PriceMin,
		PriceMax:       input.PriceMax,
		PriceNote:      strings.TrimSpace(input.PriceNote),
		Stock:          input.Stock,
		Status:         true,
		Featured:       input.Featured,
		Rating:         input.Rating,
		ReviewCount:    input.ReviewCount,
		Specifications: input.Specifications,
		Features:       input.Features,
		Applications:   input.Applications,
		Advantages:     input.Advantages,
		ServiceTags:    input.ServiceTags,
		TechnicalSpecs: input.TechnicalSpecs,
		TabContents:    input.TabContents,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	var image domain.ImageChange
	if input.Image != nil {
		ref, err := s.prepare(*input.Image)
		if err != nil {
			return nil, err
		}
		image = domain.ReplaceImage(ref)
	}

	if err := s.products.Create(ctx, p, image); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("category_id", p.CategoryID),
		slog.Bool("featured", p.Featured),
	)
	return p, nil
}

// UpdateProduct applies a partial update. Turning featured on takes a slot.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	if input.Image != nil && input.RemoveImage {
		return nil, apperrors.InvalidInput("image and remove_image are mutually exclusive")
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	applyUpdate(p, input)
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	var image domain.ImageChange
	switch {
	case input.Image != nil:
		ref, err := s.prepare(*input.Image)
		if err != nil {
			return nil, err
		}
		image = domain.ReplaceImage(ref)
	case input.RemoveImage:
		image = domain.RemoveImage()
	}

	return s.save(ctx, p, image)
}

// SetPrimaryImage replaces the primary image of a product.
func (s *ProductService) SetPrimaryImage(ctx context.Context, id string, upload Upload) (*domain.Product, error) {
	ref, err := s.prepare(upload)
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return s.save(ctx, p, domain.ReplaceImage(ref))
}

// RemovePrimaryImage drops the primary image of a product.
func (s *ProductService) RemovePrimaryImage(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return s.save(ctx, p, domain.RemoveImage())
}

func (s *ProductService) save(ctx context.Context, p *domain.Product, image domain.ImageChange) (*domain.Product, error) {
	if err := s.products.Update(ctx, p, image); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", p.ID),
		slog.Bool("image_replaced", image.Set),
		slog.Bool("image_removed", image.Remove),
	)
	return p, nil
}

// DeleteProduct removes a product with its gallery and returns how many
// gallery images went with it.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (int, error) {
	removed, err := s.products.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id, removed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
		slog.Int("images_removed", removed),
	)
	return removed, nil
}

// SetFeatured marks or unmarks a product for the homepage. Marking fails
// with SlotsFull once every slot is taken.
func (s *ProductService) SetFeatured(ctx context.Context, id string, isFeatured bool) (*domain.Product, error) {
	var err error
	if isFeatured {
		err = s.slots.TryMark(ctx, id)
	} else {
		err = s.slots.Unmark(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("set featured: %w", err)
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	if err := s.producer.PublishProductFeatured(ctx, id, isFeatured); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.featured event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product featured flag changed",
		slog.String("product_id", id),
		slog.Bool("featured", isFeatured),
	)
	return p, nil
}

// SetStatus shows or hides a product on the storefront. Visibility changes
// do not take featured slots; an overshoot is only reported.
func (s *ProductService) SetStatus(ctx context.Context, id string, status bool) (*domain.Product, error) {
	p, err := s.products.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("set product status: %w", err)
	}

	if p.Featured {
		if _, err := s.slots.NoteVisibilityChange(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to recount featured products",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishProductUpdated(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product status changed",
		slog.String("product_id", id),
		slog.Bool("status", status),
	)
	return p, nil
}

// PrimaryImage returns the primary image of a product as a download.
func (s *ProductService) PrimaryImage(ctx context.Context, id string) (*asset.Download, error) {
	ref, err := s.products.GetImage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product image: %w", err)
	}
	return asset.Serve(ref, asset.ProductFallbackName(id))
}

// ListImages returns the gallery of a product without payloads.
func (s *ProductService) ListImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	images, err := s.images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	return images, nil
}

// AddImages appends uploads to the gallery of a product. Each file is
// validated and stored on its own; one bad file does not stop the others.
func (s *ProductService) AddImages(ctx context.Context, productID string, uploads []Upload) (*domain.UploadReport, error) {
	if len(uploads) == 0 {
		return nil, apperrors.InvalidInput("no image files uploaded")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	report := &domain.UploadReport{Results: make([]domain.ImageResult, 0, len(uploads))}
	for _, u := range uploads {
		report.Add(s.addImage(ctx, productID, u))
	}

	s.logger.InfoContext(ctx, "product images uploaded",
		slog.String("product_id", productID),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *ProductService) addImage(ctx context.Context, productID string, u Upload) domain.ImageResult {
	ref, err := s.prepare(u)
	if err != nil {
		return domain.ImageResult{Filename: u.Filename, Err: err}
	}

	img := &domain.ProductImage{
		ID:        uuid.New().String(),
		ProductID: productID,
		Filename:  ref.Filename,
		MimeType:  ref.MimeType,
		Size:      ref.Size(),
		Data:      ref.Data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.images.Add(ctx, img); err != nil {
		s.logger.ErrorContext(ctx, "failed to store product image",
			slog.String("product_id", productID),
			slog.String("filename", u.Filename),
			slog.String("error", err.Error()),
		)
		return domain.ImageResult{Filename: u.Filename, Err: err}
	}
	return domain.ImageResult{Filename: u.Filename, ImageID: img.ID}
}

// DeleteImage removes one gallery image of a product.
func (s *ProductService) DeleteImage(ctx context.Context, productID, imageID string) error {
	if err := s.images.Delete(ctx, productID, imageID); err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}
	s.logger.InfoContext(ctx, "product image deleted",
		slog.String("product_id", productID),
		slog.String("image_id", imageID),
	)
	return nil
}

// GalleryImage returns one gallery image as a download.
func (s *ProductService) GalleryImage(ctx context.Context, imageID string) (*asset.Download, error) {
	img, err := s.images.Get(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("get product image: %w", err)
	}
	return asset.Serve(img.Ref(), asset.ProductFallbackName(img.ProductID))
}

// prepare applies the upload policy and counts the outcome.
func (s *ProductService) prepare(u Upload) (asset.Ref, error) {
	ref, err := prepareUpload(s.opts.Policy, u)
	if err != nil {
		s.uploads.WithLabelValues("rejected").Inc()
		return asset.Ref{}, err
	}
	s.uploads.WithLabelValues("accepted").Inc()
	return ref, nil
}

func applyUpdate(p *domain.Product, in *UpdateProductInput) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&p.Name, in.Name)
	setString(&p.CategoryID, in.CategoryID)
	setString(&p.Brand, in.Brand)
	setString(&p.PriceNote, in.PriceNote)
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Specifications != nil {
		p.Specifications = *in.Specifications
	}
	if in.Features != nil {
		p.Features = *in.Features
	}
	if in.Applications != nil {
		p.Applications = *in.Applications
	}

	if in.ClearPrice {
		p.Price, p.PriceMin, p.PriceMax = nil, nil, nil
	}
	if in.Price != nil {
		p.Price = in.Price
	}
	if in.PriceMin != nil {
		p.PriceMin = in.PriceMin
	}
	if in.PriceMax != nil {
		p.PriceMax = in.PriceMax
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Rating != nil {
		p.Rating = in.Rating
	}
	if in.ReviewCount != nil {
		p.ReviewCount = *in.ReviewCount
	}

	if in.Advantages != nil {
		p.Advantages = *in.Advantages
	}
	if in.ServiceTags != nil {
		p.ServiceTags = *in.ServiceTags
	}
	if in.TechnicalSpecs != nil {
		p.TechnicalSpecs = *in.TechnicalSpecs
	}
	if in.TabContents != nil {
		p.TabContents = *in.TabContents
	}
}

func validateProduct(p *domain.Product) error {
	switch {
	case p.Name == "":
		return apperrors.InvalidInput("product name is required")
	case utf8.RuneCountInString(p.Name) > maxProductName:
		return apperrors.InvalidInput(fmt.Sprintf("product name must be at most %d characters", maxProductName))
	case p.CategoryID == "":
		return apperrors.InvalidInput("category_id is required")
	case utf8.RuneCountInString(p.Brand) > maxBrand:
		return apperrors.InvalidInput(fmt.Sprintf("brand must be at most %d characters", maxBrand))
	case utf8.RuneCountInString(p.PriceNote) > maxPriceNote:
		return apperrors.InvalidInput(fmt.Sprintf("price_note must be at most %d characters", maxPriceNote))
	case negative(p.Price), negative(p.PriceMin), negative(p.PriceMax):
		return apperrors.InvalidInput("prices must not be negative")
	case p.PriceMin != nil && p.PriceMax != nil && *p.PriceMin > *p.PriceMax:
		return apperrors.InvalidInput("price_min must not exceed price_max")
	case p.Stock < 0:
		return apperrors.InvalidInput("stock must not be negative")
	case p.ReviewCount < 0:
		return apperrors.InvalidInput("review_count must not be negative")
	case p.Rating != nil && (*p.Rating < 0 || *p.Rating > maxRating):
		return apperrors.InvalidInput("rating must be between 0 and 5")
	}
	return nil
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}
