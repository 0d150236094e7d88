package postgres

import (
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string     { return &s }
func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newProductRepo(mock pgxmock.PgxPoolIface) *ProductRepository {
	slots := featured.NewAllocator(NewFeaturedStore(mock), featured.DefaultCap, logger.Discard())
	return NewProductRepository(mock, slots, codec.New(nil))
}

// ─── Product columns ────────────────────────────────────────────────────────

var productColumns = []string{
	"id", "name", "description", "category_id", "category_name", "brand",
	"price", "price_min", "price_max", "price_note", "stock",
	"status", "is_featured", "rating", "review_count",
	"specifications", "features", "applications",
	"advantages", "service_tags", "technical_specs", "tab_contents",
	"has_image", "image_filename", "created_at", "updated_at",
}

var productColumnsWithCount = append(append([]string{}, productColumns...), "total_count")

func sampleProduct() domain.Product {
	return domain.Product{
		ID:             "prod-1",
		Name:           "影像测量仪 VMS-3020",
		Description:    "Video measuring system",
		CategoryID:     "cat-1",
		CategoryName:   "影像测量仪",
		Brand:          "Chunmpre",
		Price:          floatPtr(12800),
		PriceMin:       floatPtr(12000),
		PriceMax:       floatPtr(15000),
		PriceNote:      "含税",
		Stock:          3,
		Status:         true,
		Rating:         floatPtr(4.5),
		ReviewCount:    12,
		Advantages:     []string{"High accuracy", "Fast"},
		ServiceTags:    []string{"包邮", "三年质保"},
		TechnicalSpecs: codec.NewMapping("Range", "300x200mm", "Accuracy", "2.5μm"),
		TabContents:    codec.NewMapping("Overview", "Body"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// productRow renders p the way productSelect returns it.
func productRow(p domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Description, p.CategoryID, p.CategoryName, p.Brand,
		p.Price, p.PriceMin, p.PriceMax, p.PriceNote, p.Stock,
		p.Status, p.Featured, p.Rating, p.ReviewCount,
		p.Specifications, p.Features, p.Applications,
		codec.EncodeList(p.Advantages), codec.EncodeTags(p.ServiceTags),
		codec.EncodeMapping(p.TechnicalSpecs), codec.EncodeMapping(p.TabContents),
		p.HasImage, p.ImageFilename, p.CreatedAt, p.UpdatedAt,
	}
}

// productWriteArgs are the attribute arguments shared by INSERT and UPDATE.
func productWriteArgs(p domain.Product) []any {
	return []any{
		p.Name, p.Description, p.CategoryID, p.Brand,
		p.Price, p.PriceMin, p.PriceMax, p.PriceNote, p.Stock,
		p.Status, p.Featured, p.Rating, p.ReviewCount,
		p.Specifications, p.Features, p.Applications,
		codec.EncodeList(p.Advantages), codec.EncodeTags(p.ServiceTags),
		codec.EncodeMapping(p.TechnicalSpecs), codec.EncodeMapping(p.TabContents),
	}
}

// ─── Category columns ───────────────────────────────────────────────────────

var categoryColumns = []string{"id", "name", "description", "product_count", "created_at", "updated_at"}

func sampleCategory() domain.Category {
	return domain.Category{
		ID:           "cat-1",
		Name:         "影像测量仪",
		Description:  "Optical video measuring machines",
		ProductCount: 3,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func categoryRow(c domain.Category) []any {
	return []any{c.ID, c.Name, c.Description, c.ProductCount, c.CreatedAt, c.UpdatedAt}
}

// ─── Contact columns ────────────────────────────────────────────────────────

var contactColumnNames = []string{"id", "name", "email", "phone", "subject", "message", "is_read", "created_at"}

func sampleContact() domain.Contact {
	return domain.Contact{
		ID:        "contact-1",
		Name:      "王工",
		Email:     "wang@example.com",
		Phone:     "13800000000",
		Subject:   "报价",
		Message:   "请提供 VMS-3020 报价",
		CreatedAt: now,
	}
}

func contactRow(c domain.Contact) []any {
	return []any{c.ID, c.Name, c.Email, c.Phone, c.Subject, c.Message, c.IsRead, c.CreatedAt}
}

// ─── Page content columns ───────────────────────────────────────────────────

var pageContentColumnNames = []string{
	"id", "page_key", "content_type", "content_value",
	"image_filename", "image_mime_type", "has_image", "created_at", "updated_at",
}

func pageContentRow(pc domain.PageContent) []any {
	return []any{
		pc.ID, pc.PageKey, pc.ContentType, pc.ContentValue,
		pc.ImageFilename, pc.ImageMimeType, pc.HasImage, pc.CreatedAt, pc.UpdatedAt,
	}
}
