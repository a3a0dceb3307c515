package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Predictions — POST /api/v1/{predict,predict-fraud,ask-financial-advisor}
// ============================================================

func predictLoanHandler(svc *service.PredictService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/v1/predict")
		defer span.End()

		// ?example=good|average|poor pre-fills a canned application.
		var app *domain.LoanApplication
		if profile := r.URL.Query().Get("example"); profile != "" {
			var err error
			app, err = domain.ExampleLoanApplication(profile)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
		} else {
			app = &domain.LoanApplication{}
			if err := json.NewDecoder(r.Body).Decode(app); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		pred, err := svc.PredictLoan(ctx, app)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pred)
	}
}

func predictFraudHandler(svc *service.PredictService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/v1/predict-fraud")
		defer span.End()

		var features *domain.FraudFeatures
		if profile := r.URL.Query().Get("example"); profile != "" {
			var err error
			features, err = domain.ExampleFraudFeatures(profile)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
		} else {
			features = &domain.FraudFeatures{}
			if err := json.NewDecoder(r.Body).Decode(features); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		pred, err := svc.PredictFraud(ctx, features)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pred)
	}
}

func askAdvisorHandler(svc *service.PredictService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/v1/ask-financial-advisor")
		defer span.End()

		// Callers send either multipart form fields or a JSON body.
		var req struct {
			Question        string `json:"question"`
			FinancialStatus string `json:"financial_status,omitempty"`
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form data")
				return
			}
			req.Question = r.FormValue("question")
			req.FinancialStatus = r.FormValue("financial_status")
		} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.AskAdvisor(ctx, &domain.AdvisorQuestion{
			Question:        req.Question,
			FinancialStatus: req.FinancialStatus,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
