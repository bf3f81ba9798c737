package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"

	"github.com/mzeman/cloudspend/internal/api"
	"github.com/mzeman/cloudspend/internal/api/handlers"
	"github.com/mzeman/cloudspend/internal/archive"
	"github.com/mzeman/cloudspend/internal/auth"
	"github.com/mzeman/cloudspend/internal/config"
	"github.com/mzeman/cloudspend/internal/infra/postgres"
	"github.com/mzeman/cloudspend/internal/ingest"
	"github.com/mzeman/cloudspend/internal/logger"
	"github.com/mzeman/cloudspend/internal/notes"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("CLOUDSPEND_CONFIG"), "Path to YAML config file (or set CLOUDSPEND_CONFIG env)")
		addr       = flag.String("addr", "", "Listen address, overrides the config file")
		dsn        = flag.String("dsn", "", "PostgreSQL DSN, overrides the config file")
		bucket     = flag.String("bucket", "", "GCS bucket for raw upload archival, overrides the config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.New("info")
		fallback.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *bucket != "" {
		cfg.Archive.Bucket = *bucket
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level)

	ctx := context.Background()

	// Connect to PostgreSQL
	db, err := postgres.Open(ctx, cfg.Database.DSN, postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	recordRepo := postgres.NewSpendRecordRepository(db)
	ideaRepo := postgres.NewSavingsIdeaRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Initialize auth
	sessions := auth.NewSessionManager(time.Duration(cfg.Auth.SessionTTLHours) * time.Hour)
	authSvc := auth.NewService(userRepo, sessions, log)

	// Optional raw-upload archival
	var archiver *archive.Archiver
	if cfg.Archive.Bucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		archiver = archive.New(client, cfg.Archive.Bucket, cfg.Archive.Prefix, log)
		defer archiver.Close()
	} else {
		log.Warn().Msg("No archive bucket configured - raw upload archival is disabled")
	}

	renderer, err := notes.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize note renderer")
	}

	// Initialize handlers
	pipeline := ingest.NewPipeline(recordRepo, log)

	spendHandler := handlers.NewSpendHandler(pipeline, recordRepo, uploadArchiver(archiver), log)
	ideasHandler := handlers.NewIdeasHandler(ideaRepo, renderer, log)
	authHandler := handlers.NewAuthHandler(authSvc, cfg.Auth.SecureCookies, log)
	healthHandler := handlers.NewHealthHandler(db, log)

	handler := api.NewRouter(log, authSvc, api.Handlers{
		Auth:   authHandler,
		Spend:  spendHandler,
		Ideas:  ideasHandler,
		Health: healthHandler,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// uploadArchiver keeps a disabled archiver as a true nil interface so the
// upload handler's nil check works.
func uploadArchiver(a *archive.Archiver) handlers.UploadArchiver {
	if a == nil {
		return nil
	}
	return a
}
