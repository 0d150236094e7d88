package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
	"github.com/laocai-wudi/chunmpre.cn/pkg/validator"
)

// PageHandler handles editable storefront content slots.
type PageHandler struct {
	service  *service.PageService
	maxBytes int64
	logger   *slog.Logger
}

// NewPageHandler creates a new page content HTTP handler.
func NewPageHandler(svc *service.PageService, maxBytes int64, logger *slog.Logger) *PageHandler {
	return &PageHandler{service: svc, maxBytes: maxBytes, logger: logger}
}

// SetContentRequest is the JSON body for PUT /admin/pages/{key}. An empty
// content type means text.
type SetContentRequest struct {
	ContentType  string `json:"content_type" validate:"omitempty,oneof=text richtext json image"`
	ContentValue string `json:"content_value"`
}

// GetPage handles GET /pages/{key}.
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !validator.ValidPageKey(key) {
		writeParamError(w, "invalid page key: "+key)
		return
	}
	pc, err := h.service.GetPage(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pc})
}

// ListPages handles GET /admin/pages.
func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.ListPages(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pages})
}

// SetContent handles PUT /admin/pages/{key}.
func (h *PageHandler) SetContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var req SetContentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	pc, err := h.service.SetContent(r.Context(), chi.URLParam(r, "key"), req.ContentType, req.ContentValue)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pc})
}

// SetImage handles PUT /admin/pages/{key}/image.
func (h *PageHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	uploads, ok := readUploads(w, r, h.maxBytes, imageField)
	if !ok {
		return
	}
	pc, err := h.service.SetImage(r.Context(), chi.URLParam(r, "key"), uploads[0])
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pc})
}

// Image handles GET /pages/images/{id}.
func (h *PageHandler) Image(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	d, err := h.service.Image(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeDownload(w, d)
}
