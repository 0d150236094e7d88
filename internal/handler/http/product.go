package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
	"github.com/laocai-wudi/chunmpre.cn/pkg/validator"
)

// ProductHandler handles HTTP requests for products, their featured flag
// and their images.
type ProductHandler struct {
	service  *service.ProductService
	maxBytes int64
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler. maxBytes caps
// multipart upload requests.
func NewProductHandler(svc *service.ProductService, maxBytes int64, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, maxBytes: maxBytes, logger: logger}
}

// CreateProductRequest is the JSON body for creating a product.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id" validate:"required,uuid"`
	Brand       string `json:"brand" validate:"max=100"`

	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
	PriceMin  *float64 `json:"price_min" validate:"omitempty,gte=0"`
	PriceMax  *float64 `json:"price_max" validate:"omitempty,gte=0"`
	PriceNote string   `json:"price_note" validate:"max=200"`
	Stock     int      `json:"stock" validate:"gte=0"`

	Status     *bool `json:"status"`
	IsFeatured bool  `json:"is_featured"`

	Rating      *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ReviewCount int      `json:"review_count" validate:"gte=0"`

	Specifications string `json:"specifications"`
	Features       string `json:"features"`
	Applications   string `json:"applications"`

	Advantages     []string      `json:"advantages"`
	ServiceTags    []string      `json:"service_tags"`
	TechnicalSpecs codec.Mapping `json:"technical_specs"`
	TabContents    codec.Mapping `json:"tab_contents"`
}

// UpdateProductRequest is the JSON body for a partial product update.
// Absent fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid"`
	Brand       *string `json:"brand" validate:"omitempty,max=100"`

	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	PriceMin   *float64 `json:"price_min" validate:"omitempty,gte=0"`
	PriceMax   *float64 `json:"price_max" validate:"omitempty,gte=0"`
	ClearPrice bool     `json:"clear_price"`
	PriceNote  *string  `json:"price_note" validate:"omitempty,max=200"`
	Stock      *int     `json:"stock" validate:"omitempty,gte=0"`

	Status     *bool `json:"status"`
	IsFeatured *bool `json:"is_featured"`

	Rating      *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ReviewCount *int     `json:"review_count" validate:"omitempty,gte=0"`

	Specifications *string `json:"specifications"`
	Features       *string `json:"features"`
	Applications   *string `json:"applications"`

	Advantages     *[]string      `json:"advantages"`
	ServiceTags    *[]string      `json:"service_tags"`
	TechnicalSpecs *codec.Mapping `json:"technical_specs"`
	TabContents    *codec.Mapping `json:"tab_contents"`

	RemoveImage bool `json:"remove_image"`
}

// SetStatusRequest is the JSON body for PUT /admin/products/{id}/status.
type SetStatusRequest struct {
	Status *bool `json:"status" validate:"required"`
}

// ListStorefront handles GET /products. Only visible products are listed.
func (h *ProductHandler) ListStorefront(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryUUID(r, "category_id")
	if err != nil {
		writeParamError(w, err.Error())
		return
	}
	res, err := h.service.ListStorefront(r.Context(), categoryID, queryInt(r, "page"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// Featured handles GET /products/featured.
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.HomepageProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// GetStorefrontProduct handles GET /products/{id}. Hidden products are not
// found.
func (h *ProductHandler) GetStorefrontProduct(w http.ResponseWriter, r *http.Request) {
	h.getDetail(w, r, true)
}

// GetProduct handles GET /admin/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.getDetail(w, r, false)
}

func (h *ProductHandler) getDetail(w http.ResponseWriter, r *http.Request, storefront bool) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	detail, err := h.service.GetProductDetail(r.Context(), id, storefront)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// ListProducts handles GET /admin/products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	status, err := queryBool(r, "status")
	if err != nil {
		writeParamError(w, err.Error())
		return
	}
	featured, err := queryBool(r, "featured")
	if err != nil {
		writeParamError(w, err.Error())
		return
	}
	categoryID, err := queryUUID(r, "category_id")
	if err != nil {
		writeParamError(w, err.Error())
		return
	}

	filter := repository.ProductFilter{
		CategoryID: categoryID,
		Status:     status,
		Featured:   featured,
		Search:     queryString(r, "search"),
		Page:       queryInt(r, "page"),
		PerPage:    queryInt(r, "per_page"),
	}

	res, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// CreateProduct handles POST /admin/products.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.service.CreateProduct(r.Context(), &service.CreateProductInput{
		Name:           req.Name,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		Brand:          req.Brand,
		Price:          req.Price,
		PriceMin:       req.PriceMin,
		PriceMax:       req.PriceMax,
		PriceNote:      req.PriceNote,
		Stock:          req.Stock,
		Status:         req.Status,
		Featured:       req.IsFeatured,
		Rating:         req.Rating,
		ReviewCount:    req.ReviewCount,
		Specifications: req.Specifications,
		Features:       req.Features,
		Applications:   req.Applications,
		Advantages:     req.Advantages,
		ServiceTags:    req.ServiceTags,
		TechnicalSpecs: req.TechnicalSpecs,
		TabContents:    req.TabContents,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: p})
}

// UpdateProduct handles PUT /admin/products/{id}.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, &service.UpdateProductInput{
		Name:           req.Name,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		Brand:          req.Brand,
		Price:          req.Price,
		PriceMin:       req.PriceMin,
		PriceMax:       req.PriceMax,
		ClearPrice:     req.ClearPrice,
		PriceNote:      req.PriceNote,
		Stock:          req.Stock,
		Status:         req.Status,
		Featured:       req.IsFeatured,
		Rating:         req.Rating,
		ReviewCount:    req.ReviewCount,
		Specifications: req.Specifications,
		Features:       req.Features,
		Applications:   req.Applications,
		Advantages:     req.Advantages,
		ServiceTags:    req.ServiceTags,
		TechnicalSpecs: req.TechnicalSpecs,
		TabContents:    req.TabContents,
		RemoveImage:    req.RemoveImage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// DeleteProduct handles DELETE /admin/products/{id}.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	removed, err := h.service.DeleteProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"images_removed": removed}})
}

// Feature handles POST /admin/products/{id}/featured. A full homepage
// answers 409 with the slot count and limit.
func (h *ProductHandler) Feature(w http.ResponseWriter, r *http.Request) {
	h.setFeatured(w, r, true)
}

// Unfeature handles DELETE /admin/products/{id}/featured.
func (h *ProductHandler) Unfeature(w http.ResponseWriter, r *http.Request) {
	h.setFeatured(w, r, false)
}

func (h *ProductHandler) setFeatured(w http.ResponseWriter, r *http.Request, featured bool) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	p, err := h.service.SetFeatured(r.Context(), id, featured)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// SetStatus handles PUT /admin/products/{id}/status.
func (h *ProductHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var req SetStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.service.SetStatus(r.Context(), id, *req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}
