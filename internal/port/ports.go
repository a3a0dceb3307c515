// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/finsight/finsight-api/internal/domain"
)

// BlobStore persists raw statement bytes. Implementations must generate
// collision-free storage paths so concurrent uploads never overwrite each
// other.
type BlobStore interface {
	Put(ctx context.Context, filename string, content []byte) (storagePath string, err error)
}

// DocumentRegistry persists uploaded-document metadata. Entries are
// immutable; there is no update or delete.
type DocumentRegistry interface {
	Record(ctx context.Context, doc *domain.UploadedDocument) (string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.UploadedDocument, error)
}

// LedgerTracker binds each user to their current ledger at the Analysis
// Service. Last write wins for concurrent uploads.
type LedgerTracker interface {
	SetCurrentLedger(ctx context.Context, ownerID, ledgerID string) error
	CurrentLedger(ctx context.Context, ownerID string) (string, error)
}

// AnalysisClient talks to the external Analysis Service, which turns a raw
// statement into a ledger and computes all aggregates. Every read carries an
// explicit ledger id and a date-range filter.
type AnalysisClient interface {
	ProcessStatement(ctx context.Context, ledgerID, filename string, content []byte) error
	LoadSample(ctx context.Context) (ledgerID string, err error)

	Summary(ctx context.Context, ledgerID string, filter domain.DateRange) (*domain.StatementSummary, error)
	Trends(ctx context.Context, ledgerID string, filter domain.DateRange) (*domain.Trends, error)
	UPIAnalysis(ctx context.Context, ledgerID string, filter domain.DateRange) (*domain.UPIAnalysis, error)
	Transactions(ctx context.Context, ledgerID string, filter domain.DateRange) ([]domain.TransactionRecord, error)
}

// PredictionClient talks to the external prediction service.
type PredictionClient interface {
	PredictLoan(ctx context.Context, app *domain.LoanApplication) (*domain.LoanPrediction, error)
	PredictFraud(ctx context.Context, features *domain.FraudFeatures) (*domain.FraudPrediction, error)
	AskAdvisor(ctx context.Context, q *domain.AdvisorQuestion) (*domain.AdvisorResponse, error)
}

// AuthStore defines all data operations for the authentication system.
type AuthStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error)

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
