package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
)

// CatalogMenuItem is a live, published menu entry in the canonical restaurant
// catalog. The publish merge engine is the only writer in this service; the
// catalog itself is owned elsewhere.
type CatalogMenuItem struct {
	ID           uuid.UUID          `json:"id"`
	RestaurantID uuid.UUID          `json:"restaurant_id"`
	Name         string             `json:"name"`
	ItemType     constants.ItemType `json:"item_type"`
	Category     string             `json:"category"`
	Price        float64            `json:"price"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
