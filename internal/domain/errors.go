package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrValidation indicates a validation error (bad input). Rejected at the
// boundary before any side effect.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConflict indicates a resource already exists (e.g. duplicate email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrNoData indicates the caller has no processed ledger yet. Distinct from
// an empty-but-successful range query.
type ErrNoData struct {
	OwnerID string
}

func (e *ErrNoData) Error() string {
	return fmt.Sprintf("no statement data available for user %s: upload a statement first", e.OwnerID)
}

// ErrStorage indicates a failure persisting uploaded bytes or registry state.
type ErrStorage struct {
	Stage string
	Err   error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage failure at %s: %v", e.Stage, e.Err)
}

func (e *ErrStorage) Unwrap() error {
	return e.Err
}

// ErrAnalysis indicates the Analysis Service rejected or failed to process
// a statement. The registry entry survives; the caller may re-submit.
type ErrAnalysis struct {
	LedgerID string
	Err      error
}

func (e *ErrAnalysis) Error() string {
	return fmt.Sprintf("analysis failed for ledger %s: %v", e.LedgerID, e.Err)
}

func (e *ErrAnalysis) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
