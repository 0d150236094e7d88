package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository/memory"
	pkgkafka "github.com/laocai-wudi/chunmpre.cn/pkg/kafka"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

type testCatalog struct {
	*Catalog
	events *recordingPublisher
}

func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	logger := newTestLogger()
	db := memory.New(codec.New(logger))
	slots := featured.NewAllocator(db, featured.DefaultCap, logger)
	pub := &recordingPublisher{}
	return &testCatalog{
		Catalog: New(db.Store(slots), slots, event.NewProducer(pub, logger), Options{}, logger),
		events:  pub,
	}
}

func (tc *testCatalog) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := tc.Categories.CreateCategory(context.Background(), &CreateCategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (tc *testCatalog) product(t *testing.T, categoryID, name string, mutate ...func(*CreateProductInput)) *domain.Product {
	t.Helper()
	in := &CreateProductInput{Name: name, CategoryID: categoryID}
	for _, m := range mutate {
		m(in)
	}
	p, err := tc.Products.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	return p
}

func hidden(in *CreateProductInput) {
	status := false
	in.Status = &status
}

func isFeatured(in *CreateProductInput) { in.Featured = true }

func pngUpload(name string) Upload {
	return Upload{Filename: name, ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }
