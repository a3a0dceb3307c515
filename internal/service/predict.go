package service

import (
	"context"
	"strings"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var predictTracer = otel.Tracer("service/predict")

// PredictService validates prediction requests and forwards them to the
// external prediction API. It holds no state of its own; the feature
// vectors are opaque here.
type PredictService struct {
	client  port.PredictionClient
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewPredictService creates a new prediction service.
func NewPredictService(client port.PredictionClient, metrics *observability.Metrics, logger *zap.Logger) *PredictService {
	return &PredictService{client: client, metrics: metrics, logger: logger}
}

// PredictLoan scores a loan application.
func (s *PredictService) PredictLoan(ctx context.Context, app *domain.LoanApplication) (*domain.LoanPrediction, error) {
	ctx, span := predictTracer.Start(ctx, "PredictService.PredictLoan")
	defer span.End()

	if app == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "loan application is required"}
	}
	if app.ApplicantIncome < 0 || app.CoapplicantIncome < 0 || app.LoanAmount < 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "amounts must not be negative"}
	}

	pred, err := s.client.PredictLoan(ctx, app)
	if err != nil {
		s.metrics.IncrExternalError("prediction")
		return nil, err
	}
	s.logger.Debug("loan scored", zap.String("status", pred.Status))
	return pred, nil
}

// PredictFraud scores a transaction feature vector.
func (s *PredictService) PredictFraud(ctx context.Context, features *domain.FraudFeatures) (*domain.FraudPrediction, error) {
	ctx, span := predictTracer.Start(ctx, "PredictService.PredictFraud")
	defer span.End()

	if features == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "feature vector is required"}
	}
	if features.Amount < 0 {
		return nil, &domain.ErrValidation{Field: "Amount", Message: "amount must not be negative"}
	}

	pred, err := s.client.PredictFraud(ctx, features)
	if err != nil {
		s.metrics.IncrExternalError("prediction")
		return nil, err
	}
	s.logger.Debug("transaction scored", zap.Bool("fraud", pred.Fraud))
	return pred, nil
}

// AskAdvisor forwards a free-form question to the advisor.
func (s *PredictService) AskAdvisor(ctx context.Context, q *domain.AdvisorQuestion) (*domain.AdvisorResponse, error) {
	ctx, span := predictTracer.Start(ctx, "PredictService.AskAdvisor")
	defer span.End()

	if q == nil || strings.TrimSpace(q.Question) == "" {
		return nil, &domain.ErrValidation{Field: "question", Message: "question is required"}
	}

	resp, err := s.client.AskAdvisor(ctx, q)
	if err != nil {
		s.metrics.IncrExternalError("prediction")
		return nil, err
	}
	return resp, nil
}
