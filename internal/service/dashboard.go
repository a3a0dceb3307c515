package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/resilience"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService assembles the merged dashboard view by fanning out to
// the four analytics reads in parallel and post-processing the results.
// Concurrent refreshes for the same user are serialized by filter identity:
// only the most recently requested filter may publish its result, so a slow
// response for an old filter can never overwrite a newer one.
type DashboardService struct {
	analytics *AnalyticsService
	bulkhead  *resilience.Bulkhead
	logger    *zap.Logger

	mu     sync.Mutex
	seq    atomic.Uint64
	latest map[string]uint64 // ownerID -> newest refresh sequence
	views  map[string]*domain.Dashboard
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(analytics *AnalyticsService, bulkhead *resilience.Bulkhead, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		analytics: analytics,
		bulkhead:  bulkhead,
		logger:    logger,
		latest:    map[string]uint64{},
		views:     map[string]*domain.Dashboard{},
	}
}

// ============================================================
// Refresh — GET /api/v1/dashboard
// ============================================================

// Refresh fetches all four analytics views for one filter and merges them.
// The response always describes a single filter; partial merges across two
// filters cannot happen because the whole fan-out shares one filter value
// and an older refresh is discarded once a newer one has started.
func (s *DashboardService) Refresh(ctx context.Context, ownerID string, filter domain.DateRange) (*domain.Dashboard, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Refresh")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("filter", filter.Key()),
	)

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	seq := s.seq.Add(1)
	s.mu.Lock()
	s.latest[ownerID] = seq
	s.mu.Unlock()

	dash := &domain.Dashboard{Filter: filter.Key()}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(fn func(context.Context) error) {
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()
			return fn(gctx)
		})
	}

	fetch(func(ctx context.Context) error {
		v, err := s.analytics.Summary(ctx, ownerID, filter)
		dash.Summary = v
		return err
	})
	fetch(func(ctx context.Context) error {
		v, err := s.analytics.Trends(ctx, ownerID, filter)
		dash.Trends = v
		return err
	})
	fetch(func(ctx context.Context) error {
		v, err := s.analytics.UPIAnalysis(ctx, ownerID, filter)
		dash.UPI = v
		return err
	})
	fetch(func(ctx context.Context) error {
		v, err := s.analytics.Transactions(ctx, ownerID, filter)
		dash.Transactions = v
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dash.DepositGroups = GroupDepositsByCounterparty(dash.Transactions)

	if err := CheckConsistency(dash.Summary, dash.Transactions); err != nil {
		s.logger.Warn("dashboard: views disagree",
			zap.String("owner_id", ownerID),
			zap.String("filter", filter.Key()),
			zap.Error(err),
		)
	}

	// Publish only if no newer refresh started for this user meanwhile.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[ownerID] != seq {
		s.logger.Debug("dashboard: stale refresh discarded",
			zap.String("owner_id", ownerID),
			zap.String("filter", filter.Key()),
		)
		return s.views[ownerID], nil
	}
	s.views[ownerID] = dash
	return dash, nil
}

// CurrentView returns the last published dashboard for the user, or nil if
// none has been built yet.
func (s *DashboardService) CurrentView(ownerID string) *domain.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[ownerID]
}

// ============================================================
// Deposit grouping
// ============================================================

// GroupDepositsByCounterparty buckets deposit records by UPI counterparty
// name. Records without a name land in the "Other" bucket. Groups keep the
// order in which each name first appears, so identical input always yields
// identical output.
func GroupDepositsByCounterparty(records []domain.TransactionRecord) []domain.CounterpartyGroup {
	var order []string
	totals := map[string]decimal.Decimal{}
	points := map[string][]domain.TrendPoint{}

	for _, rec := range records {
		if rec.Deposited <= 0 {
			continue
		}
		name := rec.UPIName
		if name == "" {
			name = "Other"
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
			totals[name] = decimal.Zero
		}
		totals[name] = totals[name].Add(decimal.NewFromFloat(rec.Deposited))
		points[name] = append(points[name], domain.TrendPoint{Date: rec.Date, Value: rec.Deposited})
	}

	groups := make([]domain.CounterpartyGroup, 0, len(order))
	for _, name := range order {
		total, _ := totals[name].Round(2).Float64()
		groups = append(groups, domain.CounterpartyGroup{
			Name:   name,
			Total:  total,
			Points: points[name],
		})
	}
	return groups
}
