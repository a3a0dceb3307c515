package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/handler"
	"github.com/finsight/finsight-api/internal/infra/cache"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/infra/resilience"
	"github.com/finsight/finsight-api/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type memAuthStore struct {
	users       map[string]*domain.User
	credentials map[string]string
	refresh     map[string]*domain.AuthRefreshToken
	nextID      int
}

func newMemAuthStore() *memAuthStore {
	return &memAuthStore{
		users:       map[string]*domain.User{},
		credentials: map[string]string{},
		refresh:     map[string]*domain.AuthRefreshToken{},
	}
}

func (m *memAuthStore) CreateUser(_ context.Context, email, passwordHash string) (*domain.User, error) {
	m.nextID++
	u := &domain.User{ID: fmt.Sprintf("user-%d", m.nextID), Email: email, CreatedAt: time.Now()}
	m.users[email] = u
	m.credentials[u.ID] = passwordHash
	return u, nil
}

func (m *memAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.users[email], nil
}

func (m *memAuthStore) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memAuthStore) GetCredentials(_ context.Context, userID string) (*domain.AuthCredential, error) {
	hash, ok := m.credentials[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return &domain.AuthCredential{UserID: userID, PasswordHash: hash}, nil
}

func (m *memAuthStore) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.refresh[tokenHash] = &domain.AuthRefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (m *memAuthStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	return m.refresh[tokenHash], nil
}

func (m *memAuthStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memAuthStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	for h, tok := range m.refresh {
		if tok.UserID == userID {
			delete(m.refresh, h)
		}
	}
	return nil
}

type memBlobStore struct {
	puts int
}

func (m *memBlobStore) Put(_ context.Context, filename string, _ []byte) (string, error) {
	m.puts++
	return "/tmp/uploads/" + filename, nil
}

type memRegistry struct {
	docs []domain.UploadedDocument
}

func (m *memRegistry) Record(_ context.Context, doc *domain.UploadedDocument) (string, error) {
	d := *doc
	d.ID = fmt.Sprintf("doc-%d", len(m.docs)+1)
	m.docs = append(m.docs, d)
	return d.ID, nil
}

func (m *memRegistry) ListByOwner(_ context.Context, ownerID string) ([]domain.UploadedDocument, error) {
	out := []domain.UploadedDocument{}
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memTracker struct {
	bindings map[string]string
}

func (m *memTracker) SetCurrentLedger(_ context.Context, ownerID, ledgerID string) error {
	m.bindings[ownerID] = ledgerID
	return nil
}

func (m *memTracker) CurrentLedger(_ context.Context, ownerID string) (string, error) {
	id, ok := m.bindings[ownerID]
	if !ok {
		return "", &domain.ErrNoData{OwnerID: ownerID}
	}
	return id, nil
}

type memAnalysis struct {
	summary *domain.StatementSummary
}

func (m *memAnalysis) ProcessStatement(context.Context, string, string, []byte) error { return nil }
func (m *memAnalysis) LoadSample(context.Context) (string, error)                     { return "sample-ledger", nil }

func (m *memAnalysis) Summary(context.Context, string, domain.DateRange) (*domain.StatementSummary, error) {
	if m.summary != nil {
		return m.summary, nil
	}
	return &domain.StatementSummary{}, nil
}

func (m *memAnalysis) Trends(context.Context, string, domain.DateRange) (*domain.Trends, error) {
	return &domain.Trends{}, nil
}

func (m *memAnalysis) UPIAnalysis(context.Context, string, domain.DateRange) (*domain.UPIAnalysis, error) {
	return &domain.UPIAnalysis{}, nil
}

func (m *memAnalysis) Transactions(context.Context, string, domain.DateRange) ([]domain.TransactionRecord, error) {
	return []domain.TransactionRecord{}, nil
}

type memPrediction struct{}

func (memPrediction) PredictLoan(context.Context, *domain.LoanApplication) (*domain.LoanPrediction, error) {
	return &domain.LoanPrediction{Status: "Approved"}, nil
}

func (memPrediction) PredictFraud(context.Context, *domain.FraudFeatures) (*domain.FraudPrediction, error) {
	return &domain.FraudPrediction{Fraud: false}, nil
}

func (memPrediction) AskAdvisor(context.Context, *domain.AdvisorQuestion) (*domain.AdvisorResponse, error) {
	return &domain.AdvisorResponse{Response: "Save more."}, nil
}

type testEnv struct {
	router   http.Handler
	blobs    *memBlobStore
	registry *memRegistry
	tracker  *memTracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	blobs := &memBlobStore{}
	registry := &memRegistry{}
	tracker := &memTracker{bindings: map[string]string{}}
	analysis := &memAnalysis{}
	ledgerCache := cache.New[string](time.Minute)

	authSvc := service.NewAuthService(newMemAuthStore(), "test-secret", time.Hour, 24*time.Hour, logger)
	ingestSvc := service.NewIngestService(blobs, registry, tracker, analysis, ledgerCache, metrics, logger, 10<<20)
	analyticsSvc := service.NewAnalyticsService(tracker, analysis, ledgerCache, metrics, logger)
	dashboardSvc := service.NewDashboardService(analyticsSvc, resilience.NewBulkhead(8), logger)
	predictSvc := service.NewPredictService(memPrediction{}, metrics, logger)

	router := handler.NewRouter(handler.Deps{
		Auth:           authSvc,
		Ingest:         ingestSvc,
		Analytics:      analyticsSvc,
		Dashboard:      dashboardSvc,
		Predict:        predictSvc,
		Metrics:        metrics,
		Logger:         logger,
		MaxUploadBytes: 10 << 20,
	})

	return &testEnv{router: router, blobs: blobs, registry: registry, tracker: tracker}
}

func (e *testEnv) registerAndLogin(t *testing.T) string {
	t.Helper()

	body := `{"email":"test@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("register: bad response: %v", err)
	}
	return resp.Token
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestUpload_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "statement.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if env.blobs.puts != 0 {
		t.Error("unauthenticated upload must not reach storage")
	}
	if len(env.registry.docs) != 0 {
		t.Error("unauthenticated upload must not be recorded")
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	body, contentType := multipartUpload(t, "statement.txt", "text/plain", []byte("not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.registry.docs) != 0 {
		t.Error("rejected upload must not be recorded")
	}
}

func TestUpload_Success(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	body, contentType := multipartUpload(t, "statement.pdf", "application/pdf", []byte("%PDF-1.4 statement"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.File.Filename != "statement.pdf" {
		t.Errorf("expected filename 'statement.pdf', got %q", resp.File.Filename)
	}
	if resp.Message == "" {
		t.Error("expected a message")
	}
	if len(env.registry.docs) != 1 {
		t.Fatalf("expected one registry entry, got %d", len(env.registry.docs))
	}
	if len(env.tracker.bindings) != 1 {
		t.Error("expected a ledger binding after upload")
	}
}

func TestSummary_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestSummary_NoUploadIs404(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before any upload, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSummary_BadDateParamIs400(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?start_date=01-02-2024", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUseSampleThenDashboard(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/use-sample", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("use-sample: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var dash domain.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if dash.Summary == nil {
		t.Error("expected a summary in the dashboard")
	}
}

func TestPredict_ExampleProfile(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict?example=good", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var pred domain.LoanPrediction
	if err := json.Unmarshal(rec.Body.Bytes(), &pred); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if pred.Status != "Approved" {
		t.Errorf("expected status 'Approved', got %q", pred.Status)
	}
}

func TestAskAdvisor_EmptyQuestionIs400(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask-financial-advisor", bytes.NewBufferString(`{"question":""}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
