package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
)

type BatchRepository interface {
	Create(ctx context.Context, b *entity.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Batch, error)
	// GetByHash returns (nil, nil) when no batch carries the hash; the
	// orchestrator uses it as the dedup lookup before creating a row.
	GetByHash(ctx context.Context, hash []byte) (*entity.Batch, error)
	Update(ctx context.Context, b *entity.Batch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type batchRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewBatchRepository(pool *pgxpool.Pool, logger *slog.Logger) BatchRepository {
	return &batchRepo{pool: pool, logger: logger}
}

const batchColumns = `id, uploader_id, filename, content_hash, file_size, storage_path,
	status, is_text_native, parse_log, error_message, restaurant_id,
	approved_by, approved_at, rejected_by, rejected_at, reject_reason,
	published_at, created_at, updated_at`

func (r *batchRepo) Create(ctx context.Context, b *entity.Batch) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	parseLog, err := marshalParseLog(b.ParseLog)
	if err != nil {
		return err
	}
	_, err = q(ctx, r.pool).Exec(ctx, `
		INSERT INTO menu_batches (`+batchColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		b.ID, b.UploaderID, b.Filename, b.ContentHash, b.FileSize, b.StoragePath,
		b.Status, b.IsTextNative, parseLog, b.ErrorMessage, b.RestaurantID,
		b.ApprovedBy, b.ApprovedAt, b.RejectedBy, b.RejectedAt, b.RejectReason,
		b.PublishedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create batch", "batch_id", b.ID, "error", err)
		return err
	}
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
	row := q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+batchColumns+` FROM menu_batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundErrorf("batch %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get batch", "batch_id", id, "error", err)
		return nil, err
	}
	return b, nil
}

func (r *batchRepo) GetByHash(ctx context.Context, hash []byte) (*entity.Batch, error) {
	row := q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+batchColumns+` FROM menu_batches WHERE content_hash = $1`, hash)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to get batch by hash", "error", err)
		return nil, err
	}
	return b, nil
}

func (r *batchRepo) Update(ctx context.Context, b *entity.Batch) error {
	b.UpdatedAt = time.Now().UTC()

	parseLog, err := marshalParseLog(b.ParseLog)
	if err != nil {
		return err
	}
	tag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE menu_batches SET
			status = $2, is_text_native = $3, parse_log = $4, error_message = $5,
			restaurant_id = $6, approved_by = $7, approved_at = $8,
			rejected_by = $9, rejected_at = $10, reject_reason = $11,
			published_at = $12, updated_at = $13
		WHERE id = $1`,
		b.ID, b.Status, b.IsTextNative, parseLog, b.ErrorMessage,
		b.RestaurantID, b.ApprovedBy, b.ApprovedAt,
		b.RejectedBy, b.RejectedAt, b.RejectReason,
		b.PublishedAt, b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update batch", "batch_id", b.ID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundErrorf("batch %s", b.ID)
	}
	return nil
}

func (r *batchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q(ctx, r.pool).Exec(ctx, `DELETE FROM menu_batches WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete batch", "batch_id", id, "error", err)
	}
	return err
}

func marshalParseLog(pl *entity.ParseLog) ([]byte, error) {
	if pl == nil {
		return nil, nil
	}
	return json.Marshal(pl)
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	var status string
	var parseLog []byte
	err := row.Scan(
		&b.ID, &b.UploaderID, &b.Filename, &b.ContentHash, &b.FileSize, &b.StoragePath,
		&status, &b.IsTextNative, &parseLog, &b.ErrorMessage, &b.RestaurantID,
		&b.ApprovedBy, &b.ApprovedAt, &b.RejectedBy, &b.RejectedAt, &b.RejectReason,
		&b.PublishedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = constants.BatchStatus(status)
	if len(parseLog) > 0 {
		var pl entity.ParseLog
		if err := json.Unmarshal(parseLog, &pl); err != nil {
			return nil, err
		}
		b.ParseLog = &pl
	}
	return &b, nil
}
