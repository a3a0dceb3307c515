package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finsight/finsight-api/internal/config"
	"github.com/finsight/finsight-api/internal/handler"
	"github.com/finsight/finsight-api/internal/infra/cache"
	"github.com/finsight/finsight-api/internal/infra/client"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/infra/resilience"
	"github.com/finsight/finsight-api/internal/infra/storage"
	"github.com/finsight/finsight-api/internal/infra/supabase"
	"github.com/finsight/finsight-api/internal/port"
	"github.com/finsight/finsight-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("analysis_api_url", cfg.AnalysisAPIURL),
		zap.String("prediction_api_url", cfg.PredictionAPIURL),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finsight-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	ledgerCache := cache.New[string](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	analysisCB := resilience.NewCircuitBreaker("analysis-api")
	predictionCB := resilience.NewCircuitBreaker("prediction-api")
	dashboardBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	analysisClient := client.NewAnalysisClient(httpClient, cfg.AnalysisAPIURL, analysisCB, resilienceCfg)
	predictionClient := client.NewPredictionClient(httpClient, cfg.PredictionAPIURL, predictionCB, resilienceCfg)

	// --- Blob storage ---
	var blobs port.BlobStore
	switch cfg.StorageBackend {
	case "gcs":
		gcsStore, err := storage.NewGCS(context.Background(), cfg.GCSBucket)
		if err != nil {
			logger.Fatal("failed to init GCS storage", zap.Error(err))
		}
		defer gcsStore.Close()
		blobs = gcsStore
		logger.Info("using GCS blob storage", zap.String("bucket", cfg.GCSBucket))
	default:
		diskStore, err := storage.NewDisk(cfg.UploadDir)
		if err != nil {
			logger.Fatal("failed to init disk storage", zap.Error(err))
		}
		blobs = diskStore
		logger.Info("using disk blob storage", zap.String("dir", cfg.UploadDir))
	}

	// --- Supabase (identity + document registry + ledger bindings) ---
	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		logger,
	)

	// --- Services ---
	authSvc := service.NewAuthService(supabaseClient, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	ingestSvc := service.NewIngestService(blobs, supabaseClient, supabaseClient, analysisClient, ledgerCache, metrics, logger, cfg.MaxUploadBytes)
	analyticsSvc := service.NewAnalyticsService(supabaseClient, analysisClient, ledgerCache, metrics, logger)
	dashboardSvc := service.NewDashboardService(analyticsSvc, dashboardBulkhead, logger)
	predictSvc := service.NewPredictService(predictionClient, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:           authSvc,
		Ingest:         ingestSvc,
		Analytics:      analyticsSvc,
		Dashboard:      dashboardSvc,
		Predict:        predictSvc,
		Metrics:        metrics,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
