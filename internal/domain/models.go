// Package domain holds the core types shared across services, handlers and
// infrastructure adapters.
package domain

import (
	"time"
)

// DateLayout is the wire format for calendar dates (ISO-8601, date only).
const DateLayout = "2006-01-02"

// ============================================================
// Identity
// ============================================================

// User is an account holder. The credential hash lives in AuthCredential,
// never on the user object returned to clients.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthCredential holds the stored password hash for a user.
type AuthCredential struct {
	UserID       string `json:"user_id"`
	PasswordHash string `json:"password_hash"`
}

// AuthRefreshToken is a stored (hashed) refresh token.
type AuthRefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// ============================================================
// Document registry
// ============================================================

// UploadedDocument is the registry record for one uploaded statement.
// Immutable after creation; corrections require a new upload.
type UploadedDocument struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	SizeBytes   int64     `json:"size_bytes"`
	MimeType    string    `json:"mime_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// FileInfo is the client-facing view of an uploaded document.
type FileInfo struct {
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"uploadDate"`
}

// FileListResponse is returned by GET /api/v1/user/files.
type FileListResponse struct {
	Files []FileInfo `json:"files"`
}

// ============================================================
// Ingestion
// ============================================================

// Upload carries a validated statement file into the ingestion gateway.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Content  []byte
}

// IngestionState tracks how far the store → register → analyze sequence got.
// The steps are not transactional; partial completion is a recoverable
// state, not an invariant violation.
type IngestionState string

const (
	StateReceived   IngestionState = "received"
	StateStored     IngestionState = "stored"
	StateRegistered IngestionState = "registered"
	StateAnalyzed   IngestionState = "analyzed"
)

// IngestionResult reports the outcome of a submit.
type IngestionResult struct {
	State    IngestionState    `json:"state"`
	LedgerID string            `json:"ledger_id"`
	Document *UploadedDocument `json:"document,omitempty"`
}

// UploadResponse is the body of a successful POST /api/v1/upload.
type UploadResponse struct {
	Message string   `json:"message"`
	File    FileInfo `json:"file"`
}

// ============================================================
// Date-range filter
// ============================================================

// DateRange is an optional inclusive date window. A nil bound means
// unbounded on that side.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether the range has no bounds at all.
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// Validate enforces start <= end when both bounds are present.
func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return &ErrValidation{Field: "start_date", Message: "start_date must not be after end_date"}
	}
	return nil
}

// Key returns a stable identity for the filter, used to tell responses for
// one filter apart from responses for another.
func (r DateRange) Key() string {
	k := ""
	if r.Start != nil {
		k = r.Start.Format(DateLayout)
	}
	k += ".."
	if r.End != nil {
		k += r.End.Format(DateLayout)
	}
	return k
}

// ============================================================
// Ledger views (computed by the Analysis Service, read-only here)
// ============================================================

// TransactionRecord is one ledger row. Field names follow the Analysis
// Service wire format. Exactly one of Withdrawal/Deposited is non-zero per
// monetary record.
type TransactionRecord struct {
	Date        string  `json:"Date_Formated"`
	UPIName     string  `json:"UPI_Name"`
	Description string  `json:"UPI_Description"`
	Withdrawal  float64 `json:"Withdrawal"`
	Deposited   float64 `json:"Deposited"`
	Balance     float64 `json:"Balance"`
}

// SummaryPeriod is the date span a summary covers.
type SummaryPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// SummaryMetrics are the headline totals for a filtered ledger.
type SummaryMetrics struct {
	TotalTransactions     int     `json:"totalTransactions"`
	OpeningBalance        float64 `json:"openingBalance"`
	ClosingBalance        float64 `json:"closingBalance"`
	TotalWithdrawal       float64 `json:"totalWithdrawal"`
	TotalDeposit          float64 `json:"totalDeposit"`
	AvgWithdrawalPerDay   float64 `json:"avgWithdrawalPerDay"`
	AvgWithdrawalPerMonth float64 `json:"avgWithdrawalPerMonth"`
}

// StatementSummary is returned by GET /api/v1/summary.
type StatementSummary struct {
	Period  SummaryPeriod  `json:"period"`
	Metrics SummaryMetrics `json:"metrics"`
}

// TrendPoint is one point of a date-ordered series.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Trends is returned by GET /api/v1/trends.
type Trends struct {
	Balance    []TrendPoint `json:"balance"`
	Withdrawal []TrendPoint `json:"withdrawal"`
	Deposit    []TrendPoint `json:"deposit"`
}

// UPIEntry is one counterparty with its aggregate amount.
type UPIEntry struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// UPIAnalysis is returned by GET /api/v1/upi-analysis, ranked by amount
// descending.
type UPIAnalysis struct {
	UpiWise []UPIEntry `json:"upiWise"`
}

// ============================================================
// Dashboard
// ============================================================

// CounterpartyGroup is the deposit series for one UPI counterparty.
// Groups keep insertion order of first appearance so repeated renders with
// unchanged data produce unchanged ordering.
type CounterpartyGroup struct {
	Name   string       `json:"name"`
	Total  float64      `json:"total"`
	Points []TrendPoint `json:"points"`
}

// Dashboard is the merged view returned by GET /api/v1/dashboard.
type Dashboard struct {
	Filter        string              `json:"filter"`
	Summary       *StatementSummary   `json:"summary"`
	Trends        *Trends             `json:"trends"`
	UPI           *UPIAnalysis        `json:"upiAnalysis"`
	Transactions  []TransactionRecord `json:"transactions"`
	DepositGroups []CounterpartyGroup `json:"depositGroups"`
}

// SuccessResponse is a generic message payload.
type SuccessResponse struct {
	Message string `json:"message"`
}

// PipelineMetrics is a point-in-time snapshot of ingestion counters,
// served by GET /api/v1/metrics/pipeline.
type PipelineMetrics struct {
	UploadsTotal     int64   `json:"uploads_total"`
	UploadErrorRate  float64 `json:"upload_error_rate"`
	StoreFailures    int64   `json:"store_failures"`
	RegisterFailures int64   `json:"register_failures"`
	AnalyzeFailures  int64   `json:"analyze_failures"`
	QueriesServed    int64   `json:"queries_served"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	Period           string  `json:"period"`
}
