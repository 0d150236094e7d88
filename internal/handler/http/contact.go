package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
)

// ContactHandler handles the public contact form and the admin inbox.
type ContactHandler struct {
	service *service.ContactService
	logger  *slog.Logger
}

// NewContactHandler creates a new contact HTTP handler.
func NewContactHandler(svc *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{service: svc, logger: logger}
}

// CreateContact handles POST /contacts.
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	var in service.ContactInput
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	c, err := h.service.CreateContact(r.Context(), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: c})
}

// ListContacts handles GET /admin/contacts.
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListContacts(r.Context(), queryInt(r, "page"), queryInt(r, "per_page"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// GetContact handles GET /admin/contacts/{id}. Opening a message marks it
// read.
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	c, err := h.service.GetContact(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: c})
}

// MarkRead handles POST /admin/contacts/{id}/read.
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /admin/contacts/read-all.
func (h *ContactHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllRead(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"updated": n}})
}

// DeleteContact handles DELETE /admin/contacts/{id}.
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}
	if err := h.service.DeleteContact(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportContacts handles GET /admin/contacts/export.
func (h *ContactHandler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportXLSX(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteAttachment(w, data, service.XLSXContentType, "contacts.xlsx")
}
