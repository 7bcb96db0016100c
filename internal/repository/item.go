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

type ParsedItemRepository interface {
	// CreateBulk stages every extracted candidate of a batch in one go.
	CreateBulk(ctx context.Context, items []*entity.ParsedItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ParsedItem, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entity.ParsedItem, error)
	UpdateAction(ctx context.Context, id uuid.UUID, action constants.ReviewAction, edited *entity.EditedItemData) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBatch(ctx context.Context, batchID uuid.UUID) error
}

type parsedItemRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewParsedItemRepository(pool *pgxpool.Pool, logger *slog.Logger) ParsedItemRepository {
	return &parsedItemRepo{pool: pool, logger: logger}
}

const itemColumns = `id, batch_id, name, search_name, description, price, confidence,
	category, page, raw_text, action, edited_data, created_at, updated_at`

func (r *parsedItemRepo) CreateBulk(ctx context.Context, items []*entity.ParsedItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, it := range items {
		it.CreatedAt = now
		it.UpdatedAt = now
		edited, err := marshalEdited(it.EditedData)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO parsed_items (`+itemColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			it.ID, it.BatchID, it.Name, it.SearchName, it.Description, it.Price, it.Confidence,
			it.Category, it.Page, it.RawText, it.Action, edited, it.CreatedAt, it.UpdatedAt,
		)
	}

	res := q(ctx, r.pool).SendBatch(ctx, batch)
	defer res.Close()
	for range items {
		if _, err := res.Exec(); err != nil {
			r.logger.Error("failed to stage parsed items", "error", err)
			return err
		}
	}
	return nil
}

func (r *parsedItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ParsedItem, error) {
	row := q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+itemColumns+` FROM parsed_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundErrorf("item %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get parsed item", "item_id", id, "error", err)
		return nil, err
	}
	return it, nil
}

func (r *parsedItemRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entity.ParsedItem, error) {
	rows, err := q(ctx, r.pool).Query(ctx,
		`SELECT `+itemColumns+` FROM parsed_items WHERE batch_id = $1 ORDER BY page, created_at, id`, batchID)
	if err != nil {
		r.logger.Error("failed to list parsed items", "batch_id", batchID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.ParsedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *parsedItemRepo) UpdateAction(ctx context.Context, id uuid.UUID, action constants.ReviewAction, edited *entity.EditedItemData) error {
	data, err := marshalEdited(edited)
	if err != nil {
		return err
	}
	tag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE parsed_items SET action = $2, edited_data = $3, updated_at = $4
		WHERE id = $1`,
		id, action, data, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to update item action", "item_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundErrorf("item %s", id)
	}
	return nil
}

func (r *parsedItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q(ctx, r.pool).Exec(ctx, `DELETE FROM parsed_items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete parsed item", "item_id", id, "error", err)
	}
	return err
}

func (r *parsedItemRepo) DeleteByBatch(ctx context.Context, batchID uuid.UUID) error {
	_, err := q(ctx, r.pool).Exec(ctx, `DELETE FROM parsed_items WHERE batch_id = $1`, batchID)
	if err != nil {
		r.logger.Error("failed to delete batch items", "batch_id", batchID, "error", err)
	}
	return err
}

func marshalEdited(e *entity.EditedItemData) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func scanItem(row pgx.Row) (*entity.ParsedItem, error) {
	var it entity.ParsedItem
	var action string
	var edited []byte
	err := row.Scan(
		&it.ID, &it.BatchID, &it.Name, &it.SearchName, &it.Description, &it.Price, &it.Confidence,
		&it.Category, &it.Page, &it.RawText, &action, &edited, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Action = constants.ReviewAction(action)
	if len(edited) > 0 {
		var e entity.EditedItemData
		if err := json.Unmarshal(edited, &e); err != nil {
			return nil, err
		}
		it.EditedData = &e
	}
	return &it, nil
}
