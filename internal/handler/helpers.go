package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/finsight/finsight-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseDateRange reads the optional start_date / end_date query params.
func parseDateRange(r *http.Request) (domain.DateRange, error) {
	var out domain.DateRange
	if v := r.URL.Query().Get("start_date"); v != "" {
		d, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return out, &domain.ErrValidation{Field: "start_date", Message: "expected YYYY-MM-DD"}
		}
		out.Start = &d
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		d, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return out, &domain.ErrValidation{Field: "end_date", Message: "expected YYYY-MM-DD"}
		}
		out.End = &d
	}
	return out, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var notFound *domain.ErrNotFound
	var noData *domain.ErrNoData
	var conflict *domain.ErrConflict
	var storage *domain.ErrStorage
	var analysis *domain.ErrAnalysis
	var external *domain.ErrExternalService
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &noData):
		logger.Debug("no data", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &storage):
		logger.Error("storage failure", zap.String("stage", storage.Stage), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &analysis):
		logger.Error("analysis failure", zap.String("ledger_id", analysis.LedgerID), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &external):
		logger.Error("upstream failure", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
