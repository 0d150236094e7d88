package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository/memory"
	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
	pkgkafka "github.com/laocai-wudi/chunmpre.cn/pkg/kafka"
	"github.com/laocai-wudi/chunmpre.cn/pkg/middleware"
)

const testToken = "test-admin-token"

var pngBytes = []byte("\x89PNG\r\n\x1a\n")

// --- Test Helpers ---

type testServer struct {
	catalog *service.Catalog
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := memory.New(codec.New(logger))
	slots := featured.NewAllocator(db, featured.DefaultCap, logger)
	catalog := service.New(db.Store(slots), slots, event.NewProducer(pkgkafka.NopPublisher{}, logger), service.Options{}, logger)

	router := NewRouter(catalog, nil, RouterConfig{
		AdminToken: testToken,
		CORS:       middleware.DefaultCORSConfig(),
	}, logger)
	return &testServer{catalog: catalog, router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type uploadFile struct {
	name, contentType string
	data              []byte
}

func (s *testServer) upload(t *testing.T, method, path, field string, files ...uploadFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) *httputil.ErrorResponse {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if dst != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env.Error
}

func (s *testServer) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := s.catalog.Categories.CreateCategory(context.Background(), &service.CreateCategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (s *testServer) product(t *testing.T, categoryID, name string, mutate ...func(*service.CreateProductInput)) *domain.Product {
	t.Helper()
	in := &service.CreateProductInput{Name: name, CategoryID: categoryID}
	for _, m := range mutate {
		m(in)
	}
	p, err := s.catalog.Products.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	return p
}

func hidden(in *service.CreateProductInput) {
	f := false
	in.Status = &f
}

func isFeatured(in *service.CreateProductInput) { in.Featured = true }

// --- Tests ---

func TestAdmin_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestContentType_Rejected(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts", bytes.NewBufferString("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestStorefront_ProductListingHidesHidden(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "影像测量仪")
	for i := 0; i < 10; i++ {
		s.product(t, c.ID, fmt.Sprintf("VMS-%02d", i))
	}
	s.product(t, c.ID, "hidden", hidden)

	rec := s.do(t, http.MethodGet, "/api/v1/products?page=2&category_id="+c.ID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data       []domain.Product `json:"data"`
		TotalCount int              `json:"total_count"`
		Page       int              `json:"page"`
		TotalPages int              `json:"total_pages"`
	}
	decode(t, rec, &page)
	assert.Equal(t, 10, page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 1)
}

func TestStorefront_ProductDetail(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "三坐标")
	p := s.product(t, c.ID, "Global S")
	h := s.product(t, c.ID, "prototype", hidden)

	rec := s.do(t, http.MethodGet, "/api/v1/products/"+p.ID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail domain.ProductDetail
	decode(t, rec, &detail)
	assert.Equal(t, "Global S", detail.Product.Name)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "三坐标", detail.Category.Name)

	rec = s.do(t, http.MethodGet, "/api/v1/products/"+h.ID, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/products/"+h.ID, nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/products/not-a-uuid", nil, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode(t, rec, nil)
	require.NotNil(t, errResp)
	assert.Equal(t, "INVALID_PARAMETER", errResp.Code)
}

func TestAdmin_CreateProduct(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "激光跟踪仪")

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products", map[string]any{
		"name":            "AT960",
		"category_id":     c.ID,
		"price":           120000,
		"advantages":      []string{"高精度", "便携"},
		"technical_specs": map[string]string{"量程": "80m"},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p domain.Product
	decode(t, rec, &p)
	assert.Equal(t, "AT960", p.Name)
	assert.True(t, p.Status)
	assert.Equal(t, []string{"高精度", "便携"}, p.Advantages)
	v, ok := p.TechnicalSpecs.Get("量程")
	assert.True(t, ok)
	assert.Equal(t, "80m", v)
}

func TestAdmin_CreateProductValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products", map[string]any{
		"name":  "  ",
		"stock": -1,
	}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errResp := decode(t, rec, nil)
	require.NotNil(t, errResp)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
	assert.Contains(t, errResp.Fields, "name")
	assert.Contains(t, errResp.Fields, "category_id")
	assert.Contains(t, errResp.Fields, "stock")
}

func TestAdmin_FeaturedSlotsFull(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "轮廓仪")
	for i := 0; i < featured.DefaultCap; i++ {
		s.product(t, c.ID, fmt.Sprintf("F-%d", i), isFeatured)
	}
	extra := s.product(t, c.ID, "extra")

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products/"+extra.ID+"/featured", nil, true)
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode(t, rec, nil)
	require.NotNil(t, errResp)
	assert.Equal(t, "SLOTS_FULL", errResp.Code)
	require.NotNil(t, errResp.Count)
	require.NotNil(t, errResp.Limit)
	assert.Equal(t, featured.DefaultCap, *errResp.Count)
	assert.Equal(t, featured.DefaultCap, *errResp.Limit)

	rec = s.do(t, http.MethodGet, "/api/v1/products/featured", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var home []domain.Product
	decode(t, rec, &home)
	assert.Len(t, home, featured.DefaultCap)
}

func TestAdmin_SetStatus(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "粗糙度仪")
	p := s.product(t, c.ID, "SJ-410")

	rec := s.do(t, http.MethodPut, "/api/v1/admin/products/"+p.ID+"/status", map[string]bool{"status": false}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Product
	decode(t, rec, &got)
	assert.False(t, got.Status)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/products/"+p.ID+"/status", map[string]any{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_ListProductsFilters(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "测高仪")
	s.product(t, c.ID, "TESA Micro-Hite")
	s.product(t, c.ID, "parked", hidden)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/products?status=false", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data []domain.Product `json:"data"`
	}
	decode(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "parked", page.Data[0].Name)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/products?status=maybe", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/products?category_id=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorefront_MalformedCategoryFilter(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/products?category_id=abc", nil, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode(t, rec, nil)
	require.NotNil(t, errResp)
	assert.Equal(t, "INVALID_PARAMETER", errResp.Code)
}

func TestStorefront_HugePageIsEmpty(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "影像测量仪")
	s.product(t, c.ID, "VMS-01")

	rec := s.do(t, http.MethodGet, "/api/v1/products?page=1024819115206086203", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []domain.Product `json:"data"`
		TotalCount int              `json:"total_count"`
	}
	decode(t, rec, &page)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.TotalCount)
}

func TestAdmin_DeleteCategoryInUse(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "显微镜")
	s.product(t, c.ID, "M-1")
	s.product(t, c.ID, "M-2")

	rec := s.do(t, http.MethodDelete, "/api/v1/admin/categories/"+c.ID, nil, true)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	errResp := decode(t, rec, nil)
	require.NotNil(t, errResp)
	require.NotNil(t, errResp.Count)
	assert.Equal(t, 2, *errResp.Count)

	empty := s.category(t, "空分类")
	rec = s.do(t, http.MethodDelete, "/api/v1/admin/categories/"+empty.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdmin_CategoryDuplicate(t *testing.T) {
	s := newTestServer(t)
	s.category(t, "投影仪")

	rec := s.do(t, http.MethodPost, "/api/v1/admin/categories", map[string]string{"name": "投影仪"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/categories", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []domain.Category
	decode(t, rec, &categories)
	assert.Len(t, categories, 1)
}

func TestImages_UploadAndServe(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "硬度计")
	p := s.product(t, c.ID, "HR-150")

	rec := s.do(t, http.MethodGet, "/api/v1/products/"+p.ID+"/image", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.upload(t, http.MethodPost, "/api/v1/admin/products/"+p.ID+"/images", "image",
		uploadFile{"front.png", "image/png", pngBytes},
		uploadFile{"notes.txt", "text/plain", []byte("hello")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report domain.UploadReport
	decode(t, rec, &report)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)
	imageID := report.Results[0].ImageID
	require.NotEmpty(t, imageID)

	rec = s.do(t, http.MethodGet, "/api/v1/images/"+imageID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "front.png")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=")
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/products/"+p.ID+"/images/"+imageID, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/images/"+imageID, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImages_AllRejected(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "圆度仪")
	p := s.product(t, c.ID, "RA-120")

	rec := s.upload(t, http.MethodPost, "/api/v1/admin/products/"+p.ID+"/images", "image",
		uploadFile{"drawing.svg", "image/svg+xml", []byte("<svg/>")},
	)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.upload(t, http.MethodPost, "/api/v1/admin/products/"+p.ID+"/images", "photo",
		uploadFile{"a.png", "image/png", pngBytes},
	)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImages_PrimaryImage(t *testing.T) {
	s := newTestServer(t)
	c := s.category(t, "齿轮测量")
	p := s.product(t, c.ID, "P-26")

	rec := s.upload(t, http.MethodPut, "/api/v1/admin/products/"+p.ID+"/image", "image",
		uploadFile{"gear.png", "image/png", pngBytes},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got domain.Product
	decode(t, rec, &got)
	assert.True(t, got.HasImage)

	rec = s.do(t, http.MethodGet, "/api/v1/products/"+p.ID+"/image", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/products/"+p.ID+"/image", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/products/"+p.ID+"/image", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContacts_Flow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/contacts", map[string]string{
		"name":    " 张工 ",
		"email":   "zhang@example.com",
		"phone":   "13800000000",
		"subject": "报价",
		"message": "请提供报价",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c domain.Contact
	decode(t, rec, &c)
	assert.Equal(t, "张工", c.Name)
	assert.False(t, c.IsRead)

	rec = s.do(t, http.MethodPost, "/api/v1/contacts", map[string]string{
		"name": "李工", "email": "not-an-email", "phone": "1", "subject": "s", "message": "m",
	}, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode(t, rec, nil)
	require.NotNil(t, errResp)
	assert.Contains(t, errResp.Fields, "email")

	rec = s.do(t, http.MethodGet, "/api/v1/admin/contacts/"+c.ID, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assert.True(t, c.IsRead)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/contacts/export", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contacts.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/contacts/"+c.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPages_SetAndGet(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/pages/home.hero_title", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/pages/home.hero_title", map[string]string{
		"content_value": "精密测量专家",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/pages/home.hero_title", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var pc domain.PageContent
	decode(t, rec, &pc)
	assert.Equal(t, domain.ContentTypeText, pc.ContentType)
	assert.Equal(t, "精密测量专家", pc.ContentValue)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/pages/home.stats", map[string]string{
		"content_type":  "json",
		"content_value": "{broken",
	}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.upload(t, http.MethodPut, "/api/v1/admin/pages/home.banner/image", "image",
		uploadFile{"banner.png", "image/png", pngBytes},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &pc)
	assert.True(t, pc.HasImage)

	rec = s.do(t, http.MethodGet, "/api/v1/pages/images/"+pc.ID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}
