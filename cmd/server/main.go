package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/attachment-service/internal/api"
	"alcyxob/attachment-service/internal/config"
	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/repository/mongo"
	"alcyxob/attachment-service/internal/service"
	"alcyxob/attachment-service/internal/storage"
	"alcyxob/attachment-service/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title Attachment API
// @version 1.0
// @description API for relating stored files to the records that own them.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	// A local .env file is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", slog.Any("error", err))
	}
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("could not load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting attachment service", slog.String("address", cfg.Server.Address))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exiting")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// --- Tracing ---
	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", slog.Any("error", err))
		}
	}()

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", slog.Any("error", err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", slog.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := mongo.EnsureAttachmentIndexes(ctx, appDB, cfg.Database.Collection, cfg.Attachments.EntityIDField); err != nil {
			logger.Error("failed to ensure indexes", slog.Any("error", err))
			return
		}
		logger.Info("index creation completed")
	}()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := storage.NewPrometheusObserver("attachments", registry)
	if err != nil {
		return err
	}

	// --- Initialize Storage ---
	backend, err := storage.Select(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("file storage initialized", slog.String("backend", string(backend.Kind())))

	// --- Initialize Service ---
	opts, err := serviceOptions(cfg)
	if err != nil {
		return err
	}
	repo := mongo.NewMongoAttachmentRepository(appDB, cfg.Database.Collection, cfg.Attachments.EntityIDField)
	attachmentService := service.NewAttachmentService(repo, storage.Instrument(backend, observer), opts, service.Hooks{}, logger)

	// --- Initialize Gin Engine ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.RouteDeps{
		JWTSecret:         cfg.JWT.Secret,
		CORSOrigins:       cfg.Server.CORSOrigins,
		AttachmentService: attachmentService,
		Logger:            logger,
		Registerer:        registry,
		Gatherer:          registry,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return server.Shutdown(ctxShutdown)
}

// serviceOptions turns the attachments section into service options.
func serviceOptions(cfg config.Config) (service.Options, error) {
	decls, err := cfg.Attachments.CustomFieldDecls()
	if err != nil {
		return service.Options{}, err
	}
	schema, err := domain.ParseFieldSchema(decls)
	if err != nil {
		return service.Options{}, err
	}

	var override domain.ExpirationPolicy
	if cfg.Attachments.ExpirationOverride != "" {
		if override, err = domain.ParseExpirationPolicy(cfg.Attachments.ExpirationOverride); err != nil {
			return service.Options{}, err
		}
	}

	opts := service.Options{
		EntityIDField:        cfg.Attachments.EntityIDField,
		Entity:               cfg.Attachments.Entity,
		ExpirationOverride:   override,
		CustomFields:         schema,
		CustomSortableFields: cfg.Attachments.CustomSortableFields,
		CustomFilters:        cfg.Attachments.CustomFilters,
		UploadPrefix:         cfg.S3.UploadPrefix,
	}
	if cfg.DirectBucket() {
		opts.Bucket = cfg.S3.BucketName
	}
	return opts, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
