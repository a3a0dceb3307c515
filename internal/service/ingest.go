package service

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/finsight/finsight-api/internal/infra/observability"
	"github.com/finsight/finsight-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ingestTracer = otel.Tracer("service/ingest")

const statementMimeType = "application/pdf"

// IngestService runs the upload pipeline: store the raw bytes, record the
// document, hand the statement to the Analysis Service and bind the user to
// the resulting ledger. The steps are intentionally not transactional; a
// failure mid-sequence leaves the earlier steps in place.
type IngestService struct {
	blobs          port.BlobStore
	registry       port.DocumentRegistry
	tracker        port.LedgerTracker
	analysis       port.AnalysisClient
	ledgerCache    port.Cache[string]
	metrics        *observability.Metrics
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	blobs port.BlobStore,
	registry port.DocumentRegistry,
	tracker port.LedgerTracker,
	analysis port.AnalysisClient,
	ledgerCache port.Cache[string],
	metrics *observability.Metrics,
	logger *zap.Logger,
	maxUploadBytes int64,
) *IngestService {
	return &IngestService{
		blobs:          blobs,
		registry:       registry,
		tracker:        tracker,
		analysis:       analysis,
		ledgerCache:    ledgerCache,
		metrics:        metrics,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// ============================================================
// Submit — POST /api/v1/upload
// ============================================================

// Submit validates the upload and runs store → register → analyze → bind.
// Validation failures happen before any side effect. After validation each
// completed step stays committed even when a later step fails; the returned
// error's type tells the caller which step broke.
func (s *IngestService) Submit(ctx context.Context, ownerID string, up *domain.Upload) (*domain.IngestionResult, error) {
	ctx, span := ingestTracer.Start(ctx, "IngestService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("upload.filename", up.Filename),
		attribute.Int64("upload.size", up.Size),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("ingest_submit", time.Since(start)) }()

	if err := s.validate(up); err != nil {
		s.metrics.IncrUpload("error")
		return nil, err
	}

	// Step 1: persist the raw bytes.
	storagePath, err := s.blobs.Put(ctx, up.Filename, up.Content)
	if err != nil {
		s.metrics.IncrUpload("error")
		s.metrics.IncrStageFailure("store")
		return nil, &domain.ErrStorage{Stage: "store", Err: err}
	}

	// Step 2: record the document.
	doc := &domain.UploadedDocument{
		OwnerID:     ownerID,
		Filename:    up.Filename,
		StoragePath: storagePath,
		SizeBytes:   up.Size,
		MimeType:    up.MimeType,
		UploadedAt:  time.Now().UTC(),
	}
	docID, err := s.registry.Record(ctx, doc)
	if err != nil {
		// The blob is orphaned, not rolled back. Log it for cleanup.
		s.logger.Error("ingest: registry record failed, blob orphaned",
			zap.String("owner_id", ownerID),
			zap.String("storage_path", storagePath),
			zap.Error(err),
		)
		s.metrics.IncrUpload("error")
		s.metrics.IncrStageFailure("register")
		return nil, &domain.ErrStorage{Stage: "register", Err: err}
	}
	doc.ID = docID

	// Step 3: hand the statement to the Analysis Service under a fresh
	// ledger id.
	ledgerID := uuid.NewString()
	if err := s.analysis.ProcessStatement(ctx, ledgerID, up.Filename, up.Content); err != nil {
		// The registry entry survives; the file was received even though
		// no ledger exists for it yet.
		s.logger.Error("ingest: analysis failed, document kept",
			zap.String("owner_id", ownerID),
			zap.String("document_id", docID),
			zap.String("ledger_id", ledgerID),
			zap.Error(err),
		)
		s.metrics.IncrUpload("error")
		s.metrics.IncrStageFailure("analyze")
		return &domain.IngestionResult{State: domain.StateRegistered, Document: doc},
			&domain.ErrAnalysis{LedgerID: ledgerID, Err: err}
	}

	// Step 4: bind the user to the new ledger. Last write wins.
	if err := s.tracker.SetCurrentLedger(ctx, ownerID, ledgerID); err != nil {
		s.metrics.IncrUpload("error")
		s.metrics.IncrStageFailure("bind")
		return nil, fmt.Errorf("bind ledger: %w", err)
	}
	s.ledgerCache.Delete(ledgerCacheKey(ownerID))

	s.metrics.IncrUpload("success")
	s.logger.Info("statement ingested",
		zap.String("owner_id", ownerID),
		zap.String("document_id", docID),
		zap.String("ledger_id", ledgerID),
	)

	return &domain.IngestionResult{
		State:    domain.StateAnalyzed,
		LedgerID: ledgerID,
		Document: doc,
	}, nil
}

// ============================================================
// UseSample — POST /api/v1/use-sample
// ============================================================

// UseSample loads the bundled demo statement at the Analysis Service and
// binds the user to the resulting ledger. No registry entry is written;
// the sample is not a user document.
func (s *IngestService) UseSample(ctx context.Context, ownerID string) (*domain.IngestionResult, error) {
	ctx, span := ingestTracer.Start(ctx, "IngestService.UseSample")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	ledgerID, err := s.analysis.LoadSample(ctx)
	if err != nil {
		return nil, &domain.ErrAnalysis{LedgerID: "", Err: err}
	}

	if err := s.tracker.SetCurrentLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, fmt.Errorf("bind ledger: %w", err)
	}
	s.ledgerCache.Delete(ledgerCacheKey(ownerID))

	s.logger.Info("sample ledger loaded",
		zap.String("owner_id", ownerID),
		zap.String("ledger_id", ledgerID),
	)

	return &domain.IngestionResult{State: domain.StateAnalyzed, LedgerID: ledgerID}, nil
}

// ============================================================
// ListFiles — GET /api/v1/user/files
// ============================================================

// ListFiles returns the caller's uploaded documents, newest first.
func (s *IngestService) ListFiles(ctx context.Context, ownerID string) (*domain.FileListResponse, error) {
	ctx, span := ingestTracer.Start(ctx, "IngestService.ListFiles")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	docs, err := s.registry.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	files := make([]domain.FileInfo, 0, len(docs))
	for _, d := range docs {
		files = append(files, domain.FileInfo{Filename: d.Filename, UploadDate: d.UploadedAt})
	}
	return &domain.FileListResponse{Files: files}, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *IngestService) validate(up *domain.Upload) error {
	if up == nil || up.Filename == "" {
		return &domain.ErrValidation{Field: "file", Message: "no file provided"}
	}
	if len(up.Content) == 0 {
		return &domain.ErrValidation{Field: "file", Message: "file is empty"}
	}
	if up.MimeType != statementMimeType {
		return &domain.ErrValidation{Field: "file", Message: "only PDF statements are accepted"}
	}
	if s.maxUploadBytes > 0 && up.Size > s.maxUploadBytes {
		return &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("file exceeds %d bytes", s.maxUploadBytes)}
	}
	return nil
}

func ledgerCacheKey(ownerID string) string {
	return "ledger:" + ownerID
}
