package handler

import (
	"net/http"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Analytics — GET /api/v1/{summary,trends,upi-analysis,transactions,dashboard}
// ============================================================

// analyticsHandler wraps the shared parse-filter / resolve-user / respond
// sequence used by all four read endpoints.
func analyticsHandler[T any](
	spanName string,
	fetch func(r *http.Request, userID string, filter domain.DateRange) (T, error),
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), spanName)
		defer span.End()
		r = r.WithContext(ctx)

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		filter, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := fetch(r, userID, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func summaryHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return analyticsHandler("GET /api/v1/summary",
		func(r *http.Request, userID string, filter domain.DateRange) (*domain.StatementSummary, error) {
			return svc.Summary(r.Context(), userID, filter)
		}, logger)
}

func trendsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return analyticsHandler("GET /api/v1/trends",
		func(r *http.Request, userID string, filter domain.DateRange) (*domain.Trends, error) {
			return svc.Trends(r.Context(), userID, filter)
		}, logger)
}

func upiAnalysisHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return analyticsHandler("GET /api/v1/upi-analysis",
		func(r *http.Request, userID string, filter domain.DateRange) (*domain.UPIAnalysis, error) {
			return svc.UPIAnalysis(r.Context(), userID, filter)
		}, logger)
}

func transactionsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return analyticsHandler("GET /api/v1/transactions",
		func(r *http.Request, userID string, filter domain.DateRange) ([]domain.TransactionRecord, error) {
			return svc.Transactions(r.Context(), userID, filter)
		}, logger)
}

func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return analyticsHandler("GET /api/v1/dashboard",
		func(r *http.Request, userID string, filter domain.DateRange) (*domain.Dashboard, error) {
			return svc.Refresh(r.Context(), userID, filter)
		}, logger)
}

func pipelineMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetPipelineSnapshot()
		writeJSON(w, http.StatusOK, snapshot)
	}
}
