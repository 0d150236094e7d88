package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/health"
	"github.com/laocai-wudi/chunmpre.cn/pkg/middleware"
)

// DefaultImageMaxAge is the Cache-Control max-age of image responses.
const DefaultImageMaxAge = time.Hour

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName string
	AdminToken  string
	AdminID     string

	CORS            middleware.CORSConfig
	ImageMaxAge     time.Duration
	MaxRequestBytes int64

	// Metrics instruments every route when set; MetricsHandler is mounted
	// at /metrics.
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler

	// PprofCIDRs enables /debug/pprof for the listed networks.
	PprofCIDRs []string
}

// NewRouter creates a chi router serving the storefront and the admin API.
func NewRouter(catalog *service.Catalog, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.ImageMaxAge <= 0 {
		cfg.ImageMaxAge = DefaultImageMaxAge
	}
	if cfg.AdminID == "" {
		cfg.AdminID = "admin"
	}

	categories := NewCategoryHandler(catalog.Categories, logger)
	products := NewProductHandler(catalog.Products, cfg.MaxRequestBytes, logger)
	contacts := NewContactHandler(catalog.Contacts, logger)
	pages := NewPageHandler(catalog.Pages, cfg.MaxRequestBytes, logger)
	admin := NewAdminHandler(catalog.Dashboard, catalog.Importer, cfg.MaxRequestBytes, logger)

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.ServiceName != "" {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RequestLogging(logger))

	if healthHandler != nil {
		r.Get("/healthz", healthHandler.LivenessHandler())
		r.Get("/readyz", healthHandler.ReadinessHandler())
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/categories", categories.ListCategories)
			r.Get("/products", products.ListStorefront)
			r.Get("/products/featured", products.Featured)
			r.Get("/products/{id}", products.GetStorefrontProduct)
			r.Post("/contacts", contacts.CreateContact)
			r.Get("/pages/{key}", pages.GetPage)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.ImageMaxAge))

			r.Get("/products/{id}/image", products.PrimaryImage)
			r.Get("/images/{id}", products.GalleryImage)
			r.Get("/pages/images/{id}", pages.Image)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(middleware.StaticTokenValidator(cfg.AdminToken, cfg.AdminID)))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Use(middleware.NoStore)
			r.Use(ContentTypeJSON)

			r.Get("/dashboard", admin.Dashboard)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categories.ListCategories)
				r.Post("/", categories.CreateCategory)
				r.Put("/{id}", categories.UpdateCategory)
				r.Delete("/{id}", categories.DeleteCategory)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.ListProducts)
				r.Post("/", products.CreateProduct)
				r.Post("/import", admin.ImportProducts)
				r.Get("/{id}", products.GetProduct)
				r.Put("/{id}", products.UpdateProduct)
				r.Delete("/{id}", products.DeleteProduct)
				r.Post("/{id}/featured", products.Feature)
				r.Delete("/{id}/featured", products.Unfeature)
				r.Put("/{id}/status", products.SetStatus)
				r.Put("/{id}/image", products.SetPrimaryImage)
				r.Delete("/{id}/image", products.RemovePrimaryImage)
				r.Get("/{id}/images", products.ListImages)
				r.Post("/{id}/images", products.AddImages)
				r.Delete("/{id}/images/{imageId}", products.DeleteImage)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", contacts.ListContacts)
				r.Get("/export", contacts.ExportContacts)
				r.Post("/read-all", contacts.MarkAllRead)
				r.Get("/{id}", contacts.GetContact)
				r.Post("/{id}/read", contacts.MarkRead)
				r.Delete("/{id}", contacts.DeleteContact)
			})

			r.Route("/pages", func(r chi.Router) {
				r.Get("/", pages.ListPages)
				r.Put("/{key}", pages.SetContent)
				r.Put("/{key}/image", pages.SetImage)
			})
		})
	})

	return r
}
