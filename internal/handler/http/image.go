package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
)

// PrimaryImage handles GET /products/{id}/image.
func (h *ProductHandler) PrimaryImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	d, err := h.service.PrimaryImage(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeDownload(w, d)
}

// GalleryImage handles GET /images/{id}.
func (h *ProductHandler) GalleryImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	d, err := h.service.GalleryImage(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeDownload(w, d)
}

// SetPrimaryImage handles PUT /admin/products/{id}/image. The file is sent
// as multipart field "image".
func (h *ProductHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	uploads, ok := readUploads(w, r, h.maxBytes, imageField)
	if !ok {
		return
	}
	p, err := h.service.SetPrimaryImage(r.Context(), id, uploads[0])
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// RemovePrimaryImage handles DELETE /admin/products/{id}/image.
func (h *ProductHandler) RemovePrimaryImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	p, err := h.service.RemovePrimaryImage(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// ListImages handles GET /admin/products/{id}/images.
func (h *ProductHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	images, err := h.service.ListImages(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: images})
}

// AddImages handles POST /admin/products/{id}/images. Every file under the
// "image" field is stored on its own; the report lists each outcome.
func (h *ProductHandler) AddImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	uploads, ok := readUploads(w, r, h.maxBytes, imageField)
	if !ok {
		return
	}
	report, err := h.service.AddImages(r.Context(), id, uploads)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if report.Succeeded == 0 {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: report})
}

// DeleteImage handles DELETE /admin/products/{id}/images/{imageId}.
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	imageID := chi.URLParam(r, "imageId")
	if _, ok := httputil.ParseUUID(w, imageID); !ok {
		return
	}
	if err := h.service.DeleteImage(r.Context(), id, imageID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
