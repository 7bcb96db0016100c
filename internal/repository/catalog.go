package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
)

// CatalogRepository accesses the canonical restaurant catalog. This service
// only ever writes through the publish merge engine.
type CatalogRepository interface {
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*entity.CatalogMenuItem, error)
	Create(ctx context.Context, item *entity.CatalogMenuItem) error
	UpdatePriceAndCategory(ctx context.Context, id uuid.UUID, price float64, category string) error
}

type catalogRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *slog.Logger) CatalogRepository {
	return &catalogRepo{pool: pool, logger: logger}
}

func (r *catalogRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*entity.CatalogMenuItem, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, restaurant_id, name, item_type, category, price, created_at, updated_at
		FROM catalog_menu_items WHERE restaurant_id = $1`, restaurantID)
	if err != nil {
		r.logger.Error("failed to list catalog items", "restaurant_id", restaurantID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.CatalogMenuItem
	for rows.Next() {
		var it entity.CatalogMenuItem
		var itemType string
		if err := rows.Scan(&it.ID, &it.RestaurantID, &it.Name, &itemType, &it.Category,
			&it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.ItemType = constants.ItemType(itemType)
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (r *catalogRepo) Create(ctx context.Context, item *entity.CatalogMenuItem) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	_, err := q(ctx, r.pool).Exec(ctx, `
		INSERT INTO catalog_menu_items (id, restaurant_id, name, item_type, category, price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		item.ID, item.RestaurantID, item.Name, item.ItemType, item.Category, item.Price,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create catalog item", "restaurant_id", item.RestaurantID, "name", item.Name, "error", err)
	}
	return err
}

func (r *catalogRepo) UpdatePriceAndCategory(ctx context.Context, id uuid.UUID, price float64, category string) error {
	_, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE catalog_menu_items SET price = $2, category = $3, updated_at = $4
		WHERE id = $1`,
		id, price, category, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to update catalog item", "item_id", id, "error", err)
	}
	return err
}
