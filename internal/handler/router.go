package handler

import (
	"net/http"
	"time"

	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs.
type Deps struct {
	Auth      *service.AuthService
	Ingest    *service.IngestService
	Analytics *service.AnalyticsService
	Dashboard *service.DashboardService
	Predict   *service.PredictService

	Metrics        *observability.Metrics
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	// --- Authentication ---
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authRegisterHandler(d.Auth, d.Logger))
		r.Post("/login", authLoginHandler(d.Auth, d.Logger))
		r.Post("/refresh", authRefreshHandler(d.Auth, d.Logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))
			r.Post("/logout", authLogoutHandler(d.Auth, d.Logger))
		})
	})

	// --- API v1 (all protected) ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(d.Auth, d.Logger))

		// Ingestion
		r.Post("/upload", uploadHandler(d.Ingest, d.MaxUploadBytes, d.Logger))
		r.Post("/use-sample", useSampleHandler(d.Ingest, d.Logger))
		r.Get("/user/files", listFilesHandler(d.Ingest, d.Logger))

		// Analytics
		r.Get("/summary", summaryHandler(d.Analytics, d.Logger))
		r.Get("/trends", trendsHandler(d.Analytics, d.Logger))
		r.Get("/upi-analysis", upiAnalysisHandler(d.Analytics, d.Logger))
		r.Get("/transactions", transactionsHandler(d.Analytics, d.Logger))
		r.Get("/dashboard", dashboardHandler(d.Dashboard, d.Logger))

		// Pipeline counters
		r.Get("/metrics/pipeline", pipelineMetricsHandler(d.Metrics, d.Logger))

		// Predictions
		r.Post("/predict", predictLoanHandler(d.Predict, d.Logger))
		r.Post("/predict-fraud", predictFraudHandler(d.Predict, d.Logger))
		r.Post("/ask-financial-advisor", askAdvisorHandler(d.Predict, d.Logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

var startedAt = time.Now()

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "healthy",
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
			"checked_at":     time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
