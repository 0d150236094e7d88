package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
	"github.com/laocai-wudi/chunmpre.cn/pkg/validator"
)

// CategoryHandler handles HTTP requests for categories.
type CategoryHandler struct {
	service *service.CategoryService
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category HTTP handler.
func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

// CreateCategoryRequest is the JSON body for creating a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description"`
}

// UpdateCategoryRequest is the JSON body for renaming a category.
type UpdateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description *string `json:"description"`
}

// ListCategories handles GET /categories.
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categories})
}

// CreateCategory handles POST /admin/categories.
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var req CreateCategoryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	c, err := h.service.CreateCategory(r.Context(), &service.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: c})
}

// UpdateCategory handles PUT /admin/categories/{id}.
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var req UpdateCategoryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), id, &service.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: c})
}

// DeleteCategory handles DELETE /admin/categories/{id}. A category that
// still holds products answers 412 with the product count.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
