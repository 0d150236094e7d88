package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
)

// AdminHandler serves the back office dashboard and the spreadsheet import.
type AdminHandler struct {
	dashboard *service.DashboardService
	importer  *service.Importer
	maxBytes  int64
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(dashboard *service.DashboardService, importer *service.Importer, maxBytes int64, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, importer: importer, maxBytes: maxBytes, logger: logger}
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// ImportProducts handles POST /admin/products/import. The workbook is sent
// as multipart field "file".
func (h *AdminHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	uploads, ok := readUploads(w, r, h.maxBytes, fileField)
	if !ok {
		return
	}
	report, err := h.importer.ImportXLSX(r.Context(), bytes.NewReader(uploads[0].Data))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
