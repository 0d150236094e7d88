package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/laocai-wudi/chunmpre.cn/internal/config"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	handler "github.com/laocai-wudi/chunmpre.cn/internal/handler/http"
	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	"github.com/laocai-wudi/chunmpre.cn/pkg/health"
	pkgkafka "github.com/laocai-wudi/chunmpre.cn/pkg/kafka"
	"github.com/laocai-wudi/chunmpre.cn/pkg/middleware"
	"github.com/laocai-wudi/chunmpre.cn/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "catalog-service"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	backend        *Backend
	publisher      pkgkafka.Publisher
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracingCfg := tracing.DefaultConfig(ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.Enabled = cfg.OTELEnabled
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	backend, err := OpenBackend(ctx, cfg, true, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if backend.Pool != nil {
		if err := database.RegisterPoolMetrics(reg, backend.Pool, ServiceName); err != nil {
			backend.Close()
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	healthHandler := health.NewHandler(ServiceName, logger)
	healthHandler.Register("storage", backend.Ping)

	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pkgkafka.RegisterMetrics(reg); err != nil {
			backend.Close()
			return nil, fmt.Errorf("register kafka metrics: %w", err)
		}
		healthHandler.Register("kafka", producer.Ping)
		publisher = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	catalog := service.New(backend.Store, backend.Slots, event.NewProducer(publisher, logger), service.Options{
		StorefrontPerPage: cfg.StorefrontPerPage,
		AdminPerPage:      cfg.AdminPerPage,
		Policy:            cfg.UploadPolicy(),
	}, logger)

	reg.MustRegister(backend.Slots.Collectors()...)
	reg.MustRegister(catalog.Collectors()...)

	httpMetrics, err := middleware.NewHTTPMetrics(reg, ServiceName)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_API_TOKEN is empty, the admin API rejects every request")
	}

	router := handler.NewRouter(catalog, healthHandler, handler.RouterConfig{
		ServiceName:     ServiceName,
		AdminToken:      cfg.AdminToken,
		AdminID:         cfg.AdminID,
		CORS:            cfg.CORS(),
		ImageMaxAge:     cfg.ImageCacheMaxAge,
		MaxRequestBytes: cfg.MaxRequestBytes(),
		Metrics:         httpMetrics,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		PprofCIDRs:      cfg.PprofAllowedCIDRs,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		backend:        backend,
		publisher:      publisher,
		shutdownTracer: shutdownTracer,
		httpServer:     httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}
	a.backend.Close()
}
