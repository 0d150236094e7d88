package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/config"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

const flowToken = "flow-token"

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		LogLevel:          "error",
		HTTPPort:          8080,
		StorageDriver:     config.StorageMemory,
		AdminToken:        flowToken,
		AdminID:           "admin",
		FeaturedCap:       2,
		StorefrontPerPage: 9,
		AdminPerPage:      20,
		MaxImageMB:        5,
		MaxRequestMB:      50,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		ImageCacheMaxAge:  time.Minute,
	}
}

func newFlowServer(t *testing.T) *httptest.Server {
	t.Helper()
	a, err := NewApp(memoryConfig(), logger.Discard())
	require.NoError(t, err)

	srv := httptest.NewServer(a.httpServer.Handler)
	t.Cleanup(func() {
		srv.Close()
		a.close()
	})
	return srv
}

// call sends a JSON request and decodes the JSON response body.
func call(t *testing.T, srv *httptest.Server, method, path string, body any, admin bool) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+flowToken)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

// field walks a dot-separated path such as "data.id" through decoded JSON.
func field(data map[string]any, path string) any {
	var cur any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func fieldString(t *testing.T, data map[string]any, path string) string {
	t.Helper()
	s, ok := field(data, path).(string)
	require.True(t, ok, "expected string at %s in %v", path, data)
	return s
}

func TestApp_HealthAndMetrics(t *testing.T) {
	srv := newFlowServer(t)

	status, body := call(t, srv, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", field(body, "status"))

	status, body = call(t, srv, http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", field(body, "checks.storage.status"))

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "catalog_featured_slots_in_use")
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestApp_CatalogFlow(t *testing.T) {
	srv := newFlowServer(t)

	status, body := call(t, srv, http.MethodPost, "/api/v1/admin/categories", map[string]string{"name": "影像测量仪"}, true)
	require.Equal(t, http.StatusCreated, status, body)
	categoryID := fieldString(t, body, "data.id")

	ids := make([]string, 0, 3)
	for _, name := range []string{"VMS-1", "VMS-2", "VMS-3"} {
		status, body = call(t, srv, http.MethodPost, "/api/v1/admin/products", map[string]any{
			"name":        name,
			"category_id": categoryID,
			"price":       1000,
		}, true)
		require.Equal(t, http.StatusCreated, status, body)
		ids = append(ids, fieldString(t, body, "data.id"))
	}

	for _, id := range ids[:2] {
		status, _ = call(t, srv, http.MethodPost, "/api/v1/admin/products/"+id+"/featured", nil, true)
		require.Equal(t, http.StatusOK, status)
	}
	status, body = call(t, srv, http.MethodPost, "/api/v1/admin/products/"+ids[2]+"/featured", nil, true)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SLOTS_FULL", field(body, "error.code"))
	assert.Equal(t, float64(2), field(body, "error.limit"))

	status, body = call(t, srv, http.MethodGet, "/api/v1/products/featured", nil, false)
	require.Equal(t, http.StatusOK, status)
	featured, ok := field(body, "data").([]any)
	require.True(t, ok)
	assert.Len(t, featured, 2)

	status, body = call(t, srv, http.MethodGet, "/api/v1/products/"+ids[0], nil, false)
	require.Equal(t, http.StatusOK, status)
	related, ok := field(body, "data.related").([]any)
	require.True(t, ok)
	assert.Len(t, related, 2)

	status, body = call(t, srv, http.MethodGet, "/api/v1/admin/dashboard", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), field(body, "data.product_count"))

	status, _ = call(t, srv, http.MethodDelete, "/api/v1/admin/categories/"+categoryID, nil, true)
	assert.Equal(t, http.StatusPreconditionFailed, status)

	status, _ = call(t, srv, http.MethodGet, "/api/v1/admin/dashboard", nil, false)
	assert.Equal(t, http.StatusUnauthorized, status)
}
