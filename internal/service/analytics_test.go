package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/cache"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/service"

	"go.uber.org/zap"
)

func newAnalyticsService(tracker *mockTracker, analysis *mockAnalysis) *service.AnalyticsService {
	return service.NewAnalyticsService(
		tracker, analysis,
		cache.New[string](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func dateRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r := domain.DateRange{}
	if start != "" {
		d, err := time.Parse(domain.DateLayout, start)
		if err != nil {
			t.Fatalf("bad start date %q: %v", start, err)
		}
		r.Start = &d
	}
	if end != "" {
		d, err := time.Parse(domain.DateLayout, end)
		if err != nil {
			t.Fatalf("bad end date %q: %v", end, err)
		}
		r.End = &d
	}
	return r
}

// --- Tests ---

func TestSummary_UsesCallersOwnLedger(t *testing.T) {
	tracker := newMockTracker()
	tracker.bindings["user-1"] = "ledger-1"
	tracker.bindings["user-2"] = "ledger-2"

	analysis := &mockAnalysis{summary: &domain.StatementSummary{}}
	svc := newAnalyticsService(tracker, analysis)

	if _, err := svc.Summary(context.Background(), "user-1", domain.DateRange{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(analysis.queried) != 1 || analysis.queried[0] != "summary|ledger-1|.." {
		t.Errorf("expected query against ledger-1, got %v", analysis.queried)
	}
}

func TestSummary_NoDataForUnboundUser(t *testing.T) {
	svc := newAnalyticsService(newMockTracker(), &mockAnalysis{})

	_, err := svc.Summary(context.Background(), "user-1", domain.DateRange{})
	var noData *domain.ErrNoData
	if !errors.As(err, &noData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if noData.OwnerID != "user-1" {
		t.Errorf("expected owner 'user-1', got %q", noData.OwnerID)
	}
}

func TestSummary_EmptyViewIsNotNoData(t *testing.T) {
	tracker := newMockTracker()
	tracker.bindings["user-1"] = "ledger-1"

	// Ledger exists but has nothing in the window: zero-valued summary, no
	// error.
	analysis := &mockAnalysis{summary: &domain.StatementSummary{
		Metrics: domain.SummaryMetrics{TotalTransactions: 0},
	}}
	svc := newAnalyticsService(tracker, analysis)

	got, err := svc.Summary(context.Background(), "user-1", dateRange(t, "2024-01-01", "2024-01-31"))
	if err != nil {
		t.Fatalf("empty window must not error, got %v", err)
	}
	if got.Metrics.TotalTransactions != 0 {
		t.Errorf("expected zero transactions, got %d", got.Metrics.TotalTransactions)
	}
}

func TestAnalytics_RejectsInvertedRange(t *testing.T) {
	tracker := newMockTracker()
	tracker.bindings["user-1"] = "ledger-1"
	analysis := &mockAnalysis{}
	svc := newAnalyticsService(tracker, analysis)

	_, err := svc.Trends(context.Background(), "user-1", dateRange(t, "2024-02-01", "2024-01-01"))
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(analysis.queried) != 0 {
		t.Error("invalid filter must not reach the analysis client")
	}
}

func TestAnalytics_SameFilterAcrossEndpoints(t *testing.T) {
	tracker := newMockTracker()
	tracker.bindings["user-1"] = "ledger-1"
	analysis := &mockAnalysis{
		summary: &domain.StatementSummary{},
		trends:  &domain.Trends{},
		upi:     &domain.UPIAnalysis{},
	}
	svc := newAnalyticsService(tracker, analysis)

	filter := dateRange(t, "2024-01-01", "2024-03-31")
	ctx := context.Background()

	if _, err := svc.Summary(ctx, "user-1", filter); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Trends(ctx, "user-1", filter); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UPIAnalysis(ctx, "user-1", filter); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transactions(ctx, "user-1", filter); err != nil {
		t.Fatal(err)
	}

	want := "ledger-1|2024-01-01..2024-03-31"
	for _, q := range analysis.queried {
		if q[len(q)-len(want):] != want {
			t.Errorf("endpoint saw a different ledger or filter: %q", q)
		}
	}
}

func TestAnalytics_ReadsAreIdempotent(t *testing.T) {
	tracker := newMockTracker()
	tracker.bindings["user-1"] = "ledger-1"
	analysis := &mockAnalysis{
		transactions: []domain.TransactionRecord{
			{Date: "2024-01-05", UPIName: "grocer", Withdrawal: 250, Balance: 9750},
		},
	}
	svc := newAnalyticsService(tracker, analysis)

	first, err := svc.Transactions(context.Background(), "user-1", domain.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Transactions(context.Background(), "user-1", domain.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("repeated reads disagree: %+v vs %+v", first, second)
	}
}

func TestAnalytics_LedgerBindingIsCached(t *testing.T) {
	tracker := newMockTracker()
	tracker.bindings["user-1"] = "ledger-1"
	analysis := &mockAnalysis{summary: &domain.StatementSummary{}}
	svc := newAnalyticsService(tracker, analysis)

	if _, err := svc.Summary(context.Background(), "user-1", domain.DateRange{}); err != nil {
		t.Fatal(err)
	}

	// Rebind behind the cache's back; the cached ledger keeps serving until
	// the entry is invalidated or expires.
	tracker.bindings["user-1"] = "ledger-2"
	if _, err := svc.Summary(context.Background(), "user-1", domain.DateRange{}); err != nil {
		t.Fatal(err)
	}
	if analysis.queried[1] != "summary|ledger-1|.." {
		t.Errorf("expected cached ledger-1 on second read, got %q", analysis.queried[1])
	}
}

func TestCheckConsistency(t *testing.T) {
	records := []domain.TransactionRecord{
		{Date: "2024-01-05", Withdrawal: 100, Balance: 900},
		{Date: "2024-01-06", Deposited: 50, Balance: 950},
	}
	summary := &domain.StatementSummary{
		Metrics: domain.SummaryMetrics{TotalTransactions: 2},
	}
	if err := service.CheckConsistency(summary, records); err != nil {
		t.Errorf("expected consistent views, got %v", err)
	}

	summary.Metrics.TotalTransactions = 3
	if err := service.CheckConsistency(summary, records); err == nil {
		t.Error("expected mismatch to be reported")
	}
}
