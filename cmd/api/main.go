package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fichasapi/internal/config"
	"fichasapi/internal/database"
	"fichasapi/internal/database/migration"
	handlers "fichasapi/internal/http/handler"
	"fichasapi/internal/http/middleware"
	"fichasapi/internal/otel"
	"fichasapi/internal/qr"
	"fichasapi/internal/repository/postgres"
	"fichasapi/internal/service"
	"fichasapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC

	ctx := context.Background()

	// Initialize tracing (no-op when disabled or when the exporter is unreachable)
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Initialize PostgreSQL connection (bounded pool via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Ensure schema exists before serving traffic
	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize file storage; local disk serves the public uploads/ tree,
	// the s3 backend offloads files to object storage.
	var store storage.Storage
	switch cfg.Storage.Backend {
	case "s3":
		store, err = storage.NewMinIO(cfg.Storage.MinIO)
	default:
		store, err = storage.NewLocal(cfg.Storage.Dir, cfg.BaseURL)
	}
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	// Initialize repository, QR synthesizer, and service
	fichaRepo := postgres.NewFichaPostgres(db)
	qrSynth := qr.NewSynthesizer(store, cfg.BaseURL)
	fichaSvc := service.NewFichaService(store, fichaRepo, qrSynth, cfg.Upload.MaxFileSize, cfg.Upload.MaxImages)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Fiber's 4 MB default would reject uploads the service is configured
		// to accept; size the body limit from the upload bounds instead.
		BodyLimit: cfg.Upload.BodyLimit(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(loc))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowCredentials: true,
	}))

	// Prometheus request counter + exposition endpoint
	reg := prometheus.NewRegistry()
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, fichaSvc)

	// Serve uploaded images and QR codes when files live on local disk
	if cfg.Storage.Backend != "s3" {
		app.Static("/uploads", filepath.Join(cfg.Storage.Dir, "uploads"))
	}

	handlers.RegisterNotFound(app)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
