package domain

import (
	"time"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
)

// Product is a catalog entry. Status is the storefront visibility flag and
// Featured marks it for the homepage.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	Brand        string `json:"brand"`

	Price     *float64 `json:"price"`
	PriceMin  *float64 `json:"price_min"`
	PriceMax  *float64 `json:"price_max"`
	PriceNote string   `json:"price_note"`
	Stock     int      `json:"stock"`

	Status   bool `json:"status"`
	Featured bool `json:"is_featured"`

	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count"`

	Specifications string `json:"specifications"`
	Features       string `json:"features"`
	Applications   string `json:"applications"`

	Advantages     []string      `json:"advantages"`
	ServiceTags    []string      `json:"service_tags"`
	TechnicalSpecs codec.Mapping `json:"technical_specs"`
	TabContents    codec.Mapping `json:"tab_contents"`

	HasImage      bool   `json:"has_image"`
	ImageFilename string `json:"image_filename,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Visible reports whether the storefront may show the product.
func (p *Product) Visible() bool {
	return p.Status
}

// ImageChange describes what a write does to the primary image.
type ImageChange struct {
	// Set replaces the image with Ref.
	Set bool
	Ref asset.Ref
	// Remove clears the image. Set wins when both are true.
	Remove bool
}

// Keep reports whether the stored image is left untouched.
func (c ImageChange) Keep() bool {
	return !c.Set && !c.Remove
}

// ReplaceImage returns a change that stores ref as the primary image.
func ReplaceImage(ref asset.Ref) ImageChange {
	return ImageChange{Set: true, Ref: ref}
}

// RemoveImage returns a change that clears the primary image.
func RemoveImage() ImageChange {
	return ImageChange{Remove: true}
}

// ProductDetail is the storefront detail page payload.
type ProductDetail struct {
	Product  Product        `json:"product"`
	Category *Category      `json:"category,omitempty"`
	Images   []ProductImage `json:"images"`
	Related  []Product      `json:"related"`
}

// MaxRelated bounds ProductDetail.Related.
const MaxRelated = 4
