// Command catalogctl bootstraps and maintains the catalog database.
//
//	catalogctl migrate
//	catalogctl init-db
//	catalogctl import-sample-data
//	catalogctl import-xlsx <file>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/laocai-wudi/chunmpre.cn/internal/app"
	"github.com/laocai-wudi/chunmpre.cn/internal/config"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	pkgkafka "github.com/laocai-wudi/chunmpre.cn/pkg/kafka"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: catalogctl [-env file] <command> [args]

commands:
  migrate             apply the database schema
  init-db             apply the schema and create the default categories
  import-sample-data  create the built-in sample products
  import-xlsx <file>  import products from a spreadsheet
`)
}

func main() {
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("catalogctl", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, flag.Args(), log); err != nil {
		log.Error("command failed",
			slog.String("command", flag.Arg(0)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, log *slog.Logger) error {
	cmd := args[0]
	switch cmd {
	case "migrate", "init-db", "import-sample-data":
		if len(args) != 1 {
			return fmt.Errorf("%s takes no arguments", cmd)
		}
	case "import-xlsx":
		if len(args) != 2 {
			return fmt.Errorf("usage: catalogctl import-xlsx <file>")
		}
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	backend, err := app.OpenBackend(ctx, cfg, true, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	if cmd == "migrate" {
		return nil
	}

	// Bulk loads do not announce every product.
	catalog := service.New(backend.Store, backend.Slots, event.NewProducer(pkgkafka.NopPublisher{}, log), service.Options{
		StorefrontPerPage: cfg.StorefrontPerPage,
		AdminPerPage:      cfg.AdminPerPage,
		Policy:            cfg.UploadPolicy(),
	}, log)

	switch cmd {
	case "init-db":
		n, err := catalog.Categories.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		log.Info("default categories created", slog.Int("created", n))

	case "import-sample-data":
		if _, err := catalog.Categories.SeedDefaults(ctx); err != nil {
			return err
		}
		report, err := catalog.Importer.ImportRows(ctx, service.SampleProducts())
		if err != nil {
			return err
		}
		logReport(log, report)

	case "import-xlsx":
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()

		report, err := catalog.Importer.ImportXLSX(ctx, f)
		if err != nil {
			return err
		}
		logReport(log, report)
	}
	return nil
}

func logReport(log *slog.Logger, report *service.ImportReport) {
	log.Info("import finished",
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)),
	)
	for _, e := range report.Errors {
		log.Warn("import row rejected", slog.String("error", e))
	}
}
