// Package service implements the catalog use cases consumed by the HTTP
// layer and the bootstrap CLI.
package service

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
)

// Default page sizes.
const (
	DefaultStorefrontPerPage = 9
	DefaultAdminPerPage      = 20
)

// Options tunes the services.
type Options struct {
	StorefrontPerPage int
	AdminPerPage      int
	Policy            asset.Policy
}

func (o Options) withDefaults() Options {
	if o.StorefrontPerPage <= 0 {
		o.StorefrontPerPage = DefaultStorefrontPerPage
	}
	if o.AdminPerPage <= 0 {
		o.AdminPerPage = DefaultAdminPerPage
	}
	if len(o.Policy.AllowedExtensions) == 0 {
		o.Policy = asset.DefaultPolicy()
	}
	return o
}

// Catalog groups the services sharing one store.
type Catalog struct {
	Categories *CategoryService
	Products   *ProductService
	Contacts   *ContactService
	Pages      *PageService
	Dashboard  *DashboardService
	Importer   *Importer
}

// New wires every service on top of store.
func New(store repository.Store, slots *featured.Allocator, producer *event.Producer, opts Options, logger *slog.Logger) *Catalog {
	opts = opts.withDefaults()
	products := NewProductService(store, slots, producer, opts, logger)
	return &Catalog{
		Categories: NewCategoryService(store.Categories, logger),
		Products:   products,
		Contacts:   NewContactService(store.Contacts, producer, opts.AdminPerPage, logger),
		Pages:      NewPageService(store.Pages, opts.Policy, logger),
		Dashboard:  NewDashboardService(store, slots),
		Importer:   NewImporter(store, products, logger),
	}
}

// Collectors returns the service metrics for registration.
func (c *Catalog) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.Products.uploads}
}

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// prepareUpload applies the upload policy and turns u into a storable Ref.
func prepareUpload(policy asset.Policy, u Upload) (asset.Ref, error) {
	if err := policy.Check(u.Filename, int64(len(u.Data))); err != nil {
		return asset.Ref{}, err
	}
	return asset.Store(u.Data, u.Filename, u.ContentType)
}
