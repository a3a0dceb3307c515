package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/finsight/finsight-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Document registry (implements port.DocumentRegistry) ---

type supabaseDocument struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	SizeBytes   int64     `json:"size_bytes"`
	MimeType    string    `json:"mime_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func (d *supabaseDocument) toDomain() domain.UploadedDocument {
	return domain.UploadedDocument{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Filename:    d.Filename,
		StoragePath: d.StoragePath,
		SizeBytes:   d.SizeBytes,
		MimeType:    d.MimeType,
		UploadedAt:  d.UploadedAt,
	}
}

// Record inserts an uploaded-document row. Entries are immutable; there is
// no update or delete path.
func (c *Client) Record(ctx context.Context, doc *domain.UploadedDocument) (string, error) {
	ctx, span := tracer.Start(ctx, "supabase.Record")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", doc.OwnerID))

	body, err := c.doPost(ctx, "uploaded_documents", map[string]any{
		"owner_id":     doc.OwnerID,
		"filename":     doc.Filename,
		"storage_path": doc.StoragePath,
		"size_bytes":   doc.SizeBytes,
		"mime_type":    doc.MimeType,
		"uploaded_at":  doc.UploadedAt.Format(time.RFC3339),
	}, "")
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	var rows []supabaseDocument
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("decode document: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("insert document: no row returned")
	}
	return rows[0].ID, nil
}

// ListByOwner returns the owner's documents, newest first. The owner filter
// is applied here, never by the caller, so one user's listing can never
// contain another user's entries.
func (c *Client) ListByOwner(ctx context.Context, ownerID string) ([]domain.UploadedDocument, error) {
	ctx, span := tracer.Start(ctx, "supabase.ListByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	path := fmt.Sprintf("uploaded_documents?owner_id=eq.%s&order=uploaded_at.desc", url.QueryEscape(ownerID))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return []domain.UploadedDocument{}, nil
	}

	var rows []supabaseDocument
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}

	docs := make([]domain.UploadedDocument, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].toDomain())
	}
	return docs, nil
}

// --- Ledger bindings (implements port.LedgerTracker) ---

// SetCurrentLedger upserts the owner's current ledger binding.
// Last write wins for concurrent uploads.
func (c *Client) SetCurrentLedger(ctx context.Context, ownerID, ledgerID string) error {
	ctx, span := tracer.Start(ctx, "supabase.SetCurrentLedger")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("ledger.id", ledgerID),
	)

	_, err := c.doPost(ctx, "user_ledgers", map[string]any{
		"owner_id":   ownerID,
		"ledger_id":  ledgerID,
		"updated_at": time.Now().Format(time.RFC3339),
	}, "resolution=merge-duplicates,return=minimal")
	return err
}

// CurrentLedger returns the owner's ledger id, or ErrNoData when the user
// has never completed an ingestion.
func (c *Client) CurrentLedger(ctx context.Context, ownerID string) (string, error) {
	ctx, span := tracer.Start(ctx, "supabase.CurrentLedger")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	path := fmt.Sprintf("user_ledgers?owner_id=eq.%s&limit=1", url.QueryEscape(ownerID))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return "", err
	}
	if body == nil {
		return "", &domain.ErrNoData{OwnerID: ownerID}
	}

	var rows []struct {
		LedgerID string `json:"ledger_id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("decode ledger binding: %w", err)
	}
	if len(rows) == 0 || rows[0].LedgerID == "" {
		return "", &domain.ErrNoData{OwnerID: ownerID}
	}
	return rows[0].LedgerID, nil
}
