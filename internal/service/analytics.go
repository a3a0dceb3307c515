package service

import (
	"context"
	"fmt"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var analyticsTracer = otel.Tracer("service/analytics")

// AnalyticsService is a read-only façade over the Analysis Service. Every
// read resolves the caller's current ledger first and passes the same filter
// through unchanged, so all four endpoints describe the same window of the
// same ledger.
type AnalyticsService struct {
	tracker     port.LedgerTracker
	analysis    port.AnalysisClient
	ledgerCache port.Cache[string]
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	tracker port.LedgerTracker,
	analysis port.AnalysisClient,
	ledgerCache port.Cache[string],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		tracker:     tracker,
		analysis:    analysis,
		ledgerCache: ledgerCache,
		metrics:     metrics,
		logger:      logger,
	}
}

// ============================================================
// Summary — GET /api/v1/summary
// ============================================================

func (s *AnalyticsService) Summary(ctx context.Context, ownerID string, filter domain.DateRange) (*domain.StatementSummary, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Summary")
	defer span.End()

	ledgerID, err := s.prepare(ctx, span, ownerID, filter, "summary")
	if err != nil {
		return nil, err
	}
	return s.analysis.Summary(ctx, ledgerID, filter)
}

// ============================================================
// Trends — GET /api/v1/trends
// ============================================================

func (s *AnalyticsService) Trends(ctx context.Context, ownerID string, filter domain.DateRange) (*domain.Trends, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Trends")
	defer span.End()

	ledgerID, err := s.prepare(ctx, span, ownerID, filter, "trends")
	if err != nil {
		return nil, err
	}
	return s.analysis.Trends(ctx, ledgerID, filter)
}

// ============================================================
// UPIAnalysis — GET /api/v1/upi-analysis
// ============================================================

func (s *AnalyticsService) UPIAnalysis(ctx context.Context, ownerID string, filter domain.DateRange) (*domain.UPIAnalysis, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.UPIAnalysis")
	defer span.End()

	ledgerID, err := s.prepare(ctx, span, ownerID, filter, "upi_analysis")
	if err != nil {
		return nil, err
	}
	return s.analysis.UPIAnalysis(ctx, ledgerID, filter)
}

// ============================================================
// Transactions — GET /api/v1/transactions
// ============================================================

func (s *AnalyticsService) Transactions(ctx context.Context, ownerID string, filter domain.DateRange) ([]domain.TransactionRecord, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Transactions")
	defer span.End()

	ledgerID, err := s.prepare(ctx, span, ownerID, filter, "transactions")
	if err != nil {
		return nil, err
	}
	return s.analysis.Transactions(ctx, ledgerID, filter)
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AnalyticsService) prepare(ctx context.Context, span trace.Span, ownerID string, filter domain.DateRange, endpoint string) (string, error) {
	if err := filter.Validate(); err != nil {
		return "", err
	}

	ledgerID, err := s.resolveLedger(ctx, ownerID)
	if err != nil {
		return "", err
	}

	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("ledger.id", ledgerID),
		attribute.String("filter", filter.Key()),
	)
	s.metrics.IncrQuery(endpoint)
	return ledgerID, nil
}

// resolveLedger maps the caller to their current ledger, caching the binding
// briefly. A user with no binding gets ErrNoData, which is a distinct outcome
// from an empty ledger view.
func (s *AnalyticsService) resolveLedger(ctx context.Context, ownerID string) (string, error) {
	key := ledgerCacheKey(ownerID)
	if id, ok := s.ledgerCache.Get(key); ok {
		s.metrics.IncrCacheHit("ledger")
		return id, nil
	}
	s.metrics.IncrCacheMiss("ledger")

	id, err := s.tracker.CurrentLedger(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", &domain.ErrNoData{OwnerID: ownerID}
	}

	s.ledgerCache.Set(key, id)
	return id, nil
}

// CheckConsistency verifies that summary totals agree with the transaction
// rows for the same ledger and filter. Used by tests and the dashboard.
func CheckConsistency(summary *domain.StatementSummary, records []domain.TransactionRecord) error {
	if summary == nil {
		return nil
	}
	if summary.Metrics.TotalTransactions != len(records) {
		return fmt.Errorf("summary reports %d transactions, view has %d",
			summary.Metrics.TotalTransactions, len(records))
	}
	return nil
}
