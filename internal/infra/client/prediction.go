package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
)

// PredictionClient calls the external ML prediction service (loan
// eligibility, fraud scoring, financial-advisor Q&A). The payloads are
// opaque feature vectors forwarded as-is.
type PredictionClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewPredictionClient creates a new PredictionClient.
func NewPredictionClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *PredictionClient {
	return &PredictionClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// PredictLoan scores a loan application.
func (c *PredictionClient) PredictLoan(ctx context.Context, app *domain.LoanApplication) (*domain.LoanPrediction, error) {
	var out domain.LoanPrediction
	if err := c.postJSON(ctx, "PredictionClient.PredictLoan", "/predict", app, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictFraud scores a transaction feature vector.
func (c *PredictionClient) PredictFraud(ctx context.Context, features *domain.FraudFeatures) (*domain.FraudPrediction, error) {
	var out domain.FraudPrediction
	if err := c.postJSON(ctx, "PredictionClient.PredictFraud", "/predict-fraud", features, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AskAdvisor sends a question (multipart, like the upstream expects) and
// returns the advisor's answer.
func (c *PredictionClient) AskAdvisor(ctx context.Context, q *domain.AdvisorQuestion) (*domain.AdvisorResponse, error) {
	ctx, span := tracer.Start(ctx, "PredictionClient.AskAdvisor")
	defer span.End()

	var advisorResp domain.AdvisorResponse

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			if err := mw.WriteField("question", q.Question); err != nil {
				return err
			}
			if q.FinancialStatus != "" {
				if err := mw.WriteField("financial_status", q.FinancialStatus); err != nil {
					return err
				}
			}
			if err := mw.Close(); err != nil {
				return err
			}

			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask-financial-advisor", &body)
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", mw.FormDataContentType())

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("prediction API returned status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&advisorResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "prediction", Err: err}
	}
	return &advisorResp, nil
}

func (c *PredictionClient) postJSON(ctx context.Context, spanName, path string, payload, out any) error {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("prediction API returned status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return struct{}{}, nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "prediction", Err: err}
	}
	return nil
}
