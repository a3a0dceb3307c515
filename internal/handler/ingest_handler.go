package handler

import (
	"io"
	"net/http"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Ingestion — POST /api/v1/upload, /api/v1/use-sample, GET /api/v1/user/files
// ============================================================

func uploadHandler(svc *service.IngestService, maxUploadBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/v1/upload")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		// Cap the multipart read a little above the payload limit so the
		// service can report oversize as a validation error.
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+4096)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file provided")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read file")
			return
		}

		mimeType := header.Header.Get("Content-Type")
		up := &domain.Upload{
			Filename: header.Filename,
			MimeType: mimeType,
			Size:     int64(len(content)),
			Content:  content,
		}

		result, err := svc.Submit(ctx, userID, up)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.UploadResponse{
			Message: "File uploaded and processed successfully",
			File: domain.FileInfo{
				Filename:   result.Document.Filename,
				UploadDate: result.Document.UploadedAt,
			},
		})
	}
}

func useSampleHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/v1/use-sample")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if _, err := svc.UseSample(ctx, userID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Sample statement loaded"})
	}
}

func listFilesHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/v1/user/files")
		defer span.End()

		userID := UserIDFromContext(ctx)
		resp, err := svc.ListFiles(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
