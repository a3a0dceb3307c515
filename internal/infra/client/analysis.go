// Package client provides HTTP clients for the external services the API
// depends on: the statement Analysis Service and the prediction service.
// Every call runs retry-with-backoff inside a circuit breaker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// AnalysisClient calls the statement Analysis Service, which parses uploaded
// statements into a ledger and computes all aggregates server-side.
type AnalysisClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewAnalysisClient creates a new AnalysisClient.
func NewAnalysisClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *AnalysisClient {
	return &AnalysisClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// ProcessStatement uploads statement bytes for parsing under an explicit
// ledger id. The ledger id scopes every later read, so concurrent users'
// ledgers stay separate at the Analysis Service boundary.
func (c *AnalysisClient) ProcessStatement(ctx context.Context, ledgerID, filename string, content []byte) error {
	ctx, span := tracer.Start(ctx, "AnalysisClient.ProcessStatement")
	defer span.End()
	span.SetAttributes(attribute.String("ledger.id", ledgerID))

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			if err := mw.WriteField("ledger_id", ledgerID); err != nil {
				return err
			}
			fw, err := mw.CreateFormFile("file", filename)
			if err != nil {
				return err
			}
			if _, err := fw.Write(content); err != nil {
				return err
			}
			if err := mw.Close(); err != nil {
				return err
			}

			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", &body)
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", mw.FormDataContentType())

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("analysis API returned status %d: %s", resp.StatusCode, b)
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return struct{}{}, nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "analysis", Err: err}
	}
	return nil
}

// LoadSample asks the Analysis Service to load its bundled sample dataset
// and returns the ledger id it was registered under.
func (c *AnalysisClient) LoadSample(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "AnalysisClient.LoadSample")
	defer span.End()

	var sampleResp struct {
		LedgerID string `json:"ledger_id"`
	}

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/use-sample", nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("analysis API returned status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&sampleResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return struct{}{}, nil
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: "analysis", Err: err}
	}
	return sampleResp.LedgerID, nil
}

// Summary fetches the headline metrics for a ledger restricted to a range.
func (c *AnalysisClient) Summary(ctx context.Context, ledgerID string, filter domain.DateRange) (*domain.StatementSummary, error) {
	var out domain.StatementSummary
	if err := c.getJSON(ctx, "AnalysisClient.Summary", "/summary", ledgerID, filter, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trends fetches the balance/withdrawal/deposit series for a ledger.
func (c *AnalysisClient) Trends(ctx context.Context, ledgerID string, filter domain.DateRange) (*domain.Trends, error) {
	var out domain.Trends
	if err := c.getJSON(ctx, "AnalysisClient.Trends", "/trends", ledgerID, filter, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UPIAnalysis fetches the counterparty breakdown for a ledger.
func (c *AnalysisClient) UPIAnalysis(ctx context.Context, ledgerID string, filter domain.DateRange) (*domain.UPIAnalysis, error) {
	var out domain.UPIAnalysis
	if err := c.getJSON(ctx, "AnalysisClient.UPIAnalysis", "/upi-analysis", ledgerID, filter, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions fetches the raw ledger rows in native order.
func (c *AnalysisClient) Transactions(ctx context.Context, ledgerID string, filter domain.DateRange) ([]domain.TransactionRecord, error) {
	var out []domain.TransactionRecord
	if err := c.getJSON(ctx, "AnalysisClient.Transactions", "/transactions", ledgerID, filter, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getJSON performs a range-scoped read. All four read endpoints go through
// here so the filter is encoded identically for each — that uniformity is
// what keeps the views mutually consistent.
func (c *AnalysisClient) getJSON(ctx context.Context, spanName, path, ledgerID string, filter domain.DateRange, out any) error {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("ledger.id", ledgerID))

	q := url.Values{}
	q.Set("ledger_id", ledgerID)
	if filter.Start != nil {
		q.Set("start_date", filter.Start.Format(domain.DateLayout))
	}
	if filter.End != nil {
		q.Set("end_date", filter.End.Format(domain.DateLayout))
	}

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("analysis API returned status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return struct{}{}, nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "analysis", Err: err}
	}
	return nil
}
