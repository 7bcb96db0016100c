package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/audit"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
	"github.com/lukasbrandt/speisekarten-tracker/internal/extract"
	"github.com/lukasbrandt/speisekarten-tracker/internal/publish"
	"github.com/lukasbrandt/speisekarten-tracker/internal/repository"
	"github.com/lukasbrandt/speisekarten-tracker/internal/storage"
	"github.com/lukasbrandt/speisekarten-tracker/internal/validation"
)

// Extractor is one extraction pass over raw document bytes. The native PDF
// engine and the OCR fallback both satisfy it.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (extract.Result, error)
}

// Orchestrator drives a batch through its whole life: upload, parse, review,
// publish. It owns every status transition; nothing else writes batch status.
type Orchestrator struct {
	batches  repository.BatchRepository
	items    repository.ParsedItemRepository
	native   Extractor
	fallback Extractor
	merger   *publish.Engine
	tx       repository.TxRunner
	blobs    storage.BlobStore
	audit    audit.Sink
	logger   *slog.Logger

	// Review operations lock per batch so two concurrent reviewers cannot
	// race one batch through conflicting transitions, while work on other
	// batches proceeds untouched. mu only guards the lock map itself.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewOrchestrator(
	batches repository.BatchRepository,
	items repository.ParsedItemRepository,
	native, fallback Extractor,
	merger *publish.Engine,
	tx repository.TxRunner,
	blobs storage.BlobStore,
	sink audit.Sink,
	logger *slog.Logger,
) *Orchestrator {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		batches: batches, items: items,
		native: native, fallback: fallback,
		merger: merger, tx: tx, blobs: blobs,
		audit: sink, logger: logger,
		locks: map[uuid.UUID]*sync.Mutex{},
	}
}

// lockBatch takes the review lock for one batch and returns its release.
func (o *Orchestrator) lockBatch(id uuid.UUID) func() {
	o.mu.Lock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	o.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (o *Orchestrator) dropBatchLock(id uuid.UUID) {
	o.mu.Lock()
	delete(o.locks, id)
	o.mu.Unlock()
}

// UploadResult is what the upload surface returns to the caller.
type UploadResult struct {
	BatchID    uuid.UUID             `json:"batch_id"`
	Status     constants.BatchStatus `json:"status"`
	Message    string                `json:"message"`
	ItemsFound int                   `json:"items_found"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// UploadAndParse validates and ingests one uploaded document end to end:
// structural checks, content-hash dedup, blob persistence, native text
// extraction with OCR fallback, and staging of every found item for review.
// A re-upload of known bytes short-circuits to DUPLICATE without creating
// anything.
func (o *Orchestrator) UploadAndParse(ctx context.Context, data []byte, filename, mimeType string, uploaderID uuid.UUID) (*UploadResult, error) {
	vr := validation.ValidateUpload(data, filename, mimeType)
	if !vr.OK {
		return nil, common.ValidationErrorf("upload rejected: %v", vr.Err)
	}

	hash := HashContent(data)
	existing, err := o.batches.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		o.logger.Info("duplicate upload short-circuited",
			"batch_id", existing.ID, "filename", filename)
		o.audit.Record(ctx, audit.Event{
			Action: "batch_duplicate_hit", ActorID: uploaderID.String(), BatchID: existing.ID.String(),
			Metadata: map[string]any{"filename": filename},
		})
		return &UploadResult{
			BatchID: existing.ID,
			Status:  constants.BatchStatusDuplicate,
			Message: "identical document already uploaded",
		}, nil
	}

	sanitized := validation.SanitizeFilename(filename)
	now := time.Now().UTC()
	batch := &entity.Batch{
		ID:          uuid.New(),
		UploaderID:  uploaderID,
		Filename:    sanitized,
		ContentHash: hash,
		FileSize:    len(data),
		StoragePath: validation.StoragePath(sanitized, HashHex(data), now),
		Status:      constants.BatchStatusUploaded,
	}
	if err := o.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	o.audit.Record(ctx, audit.Event{
		Action: "batch_uploaded", ActorID: uploaderID.String(), BatchID: batch.ID.String(),
		Metadata: map[string]any{"filename": sanitized, "bytes": len(data)},
	})

	warnings := vr.Warnings
	if err := o.blobs.Put(batch.StoragePath, data); err != nil {
		// The bytes live on in extraction; losing the blob only costs a
		// later re-download, so this is a warning, not a failure.
		o.logger.Warn("blob store write failed", "batch_id", batch.ID, "error", err)
		warnings = append(warnings, "raw document could not be persisted: "+err.Error())
	}

	// The PARSING row exists before extraction so a crash mid-parse leaves a
	// visible stuck batch instead of silence.
	if err := o.setStatus(ctx, batch, constants.BatchStatusParsing); err != nil {
		return nil, err
	}

	res, err := o.runExtraction(ctx, batch, data, &warnings)
	if err != nil {
		return nil, err
	}

	staged := o.stageItems(batch.ID, res.Items)
	if err := o.items.CreateBulk(ctx, staged); err != nil {
		return nil, o.markParseFailed(ctx, batch, warnings, err)
	}

	batch.IsTextNative = &res.IsTextNative
	batch.ParseLog = &entity.ParseLog{
		TotalPages: res.TotalPages,
		ItemsFound: len(staged),
		Warnings:   warnings,
		Metadata:   res.Metadata,
	}
	if err := o.setStatus(ctx, batch, constants.BatchStatusParsed); err != nil {
		return nil, err
	}

	o.logger.Info("batch parsed",
		"batch_id", batch.ID, "items", len(staged),
		"text_native", res.IsTextNative, "pages", res.TotalPages)
	o.audit.Record(ctx, audit.Event{
		Action: "batch_parsed", ActorID: uploaderID.String(), BatchID: batch.ID.String(),
		Metadata: map[string]any{"items": len(staged), "text_native": res.IsTextNative},
	})

	return &UploadResult{
		BatchID:    batch.ID,
		Status:     batch.Status,
		Message:    fmt.Sprintf("parsed %d items across %d pages", len(staged), res.TotalPages),
		ItemsFound: len(staged),
		Warnings:   warnings,
	}, nil
}

// runExtraction tries the native text layer first and falls back to OCR when
// the document is scanned or the text layer yielded nothing. An OCR failure
// only fails the batch when the native pass produced nothing usable either.
func (o *Orchestrator) runExtraction(ctx context.Context, batch *entity.Batch, data []byte, warnings *[]string) (extract.Result, error) {
	res, err := o.native.Extract(ctx, data)
	if err != nil {
		return extract.Result{}, o.markParseFailed(ctx, batch, *warnings, err)
	}
	*warnings = append(*warnings, res.Warnings...)

	if res.IsTextNative && len(res.Items) > 0 {
		return res, nil
	}

	ocrRes, ocrErr := o.fallback.Extract(ctx, data)
	if ocrErr != nil {
		if res.IsTextNative {
			*warnings = append(*warnings, "ocr fallback failed: "+ocrErr.Error())
			return res, nil
		}
		return extract.Result{}, o.markParseFailed(ctx, batch, *warnings, ocrErr)
	}

	*warnings = append(*warnings, ocrRes.Warnings...)
	if ocrRes.Metadata != nil {
		if res.Metadata == nil {
			res.Metadata = map[string]string{}
		}
		for k, v := range ocrRes.Metadata {
			res.Metadata[k] = v
		}
	}
	res.Items = ocrRes.Items
	if ocrRes.TotalPages > res.TotalPages {
		res.TotalPages = ocrRes.TotalPages
	}
	return res, nil
}

func (o *Orchestrator) stageItems(batchID uuid.UUID, candidates []extract.CandidateItem) []*entity.ParsedItem {
	staged := make([]*entity.ParsedItem, 0, len(candidates))
	for _, c := range candidates {
		staged = append(staged, &entity.ParsedItem{
			ID:          uuid.New(),
			BatchID:     batchID,
			Name:        c.Name,
			SearchName:  c.SearchName,
			Description: c.Description,
			Price:       c.Price,
			Confidence:  c.Confidence,
			Category:    c.Category,
			Page:        c.Page,
			RawText:     c.RawText,
			Action:      constants.ActionPending,
		})
	}
	return staged
}

// markParseFailed records the terminal failure on the batch and returns an
// error carrying the cause. The row stays for inspection.
func (o *Orchestrator) markParseFailed(ctx context.Context, batch *entity.Batch, warnings []string, cause error) error {
	batch.ErrorMessage = cause.Error()
	batch.ParseLog = &entity.ParseLog{Warnings: warnings}
	if err := o.setStatus(ctx, batch, constants.BatchStatusParseFailed); err != nil {
		o.logger.Error("could not record parse failure", "batch_id", batch.ID, "error", err)
	}
	o.audit.Record(ctx, audit.Event{
		Action: "batch_parse_failed", BatchID: batch.ID.String(),
		Metadata: map[string]any{"error": cause.Error()},
	})
	return fmt.Errorf("parse failed for batch %s: %w", batch.ID, cause)
}

// setStatus performs a guarded transition and persists the batch.
func (o *Orchestrator) setStatus(ctx context.Context, batch *entity.Batch, to constants.BatchStatus) error {
	if !constants.CanTransition(batch.Status, to) {
		return common.PreconditionErrorf("batch %s cannot move from %s to %s", batch.ID, batch.Status, to)
	}
	batch.Status = to
	return o.batches.Update(ctx, batch)
}

// GetBatch returns a batch with its staged items, for the review surface.
func (o *Orchestrator) GetBatch(ctx context.Context, batchID uuid.UUID) (*entity.Batch, []*entity.ParsedItem, error) {
	batch, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	items, err := o.items.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	return batch, items, nil
}
