package publish

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
	"github.com/lukasbrandt/speisekarten-tracker/internal/parse"
	"github.com/lukasbrandt/speisekarten-tracker/internal/repository"
)

// ResolvedItem is one reviewed item with all edit overrides already applied,
// ready for the catalog.
type ResolvedItem struct {
	Name     string
	Category string
	Price    float64
}

// Engine upserts accepted/edited staged items into the canonical catalog.
// The merge key is (restaurant, case-insensitive normalized dish name); two
// items resolving to the same key inside one approval silently overwrite
// each other, later one wins.
type Engine struct {
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

func NewEngine(catalog repository.CatalogRepository, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// MergeItem writes one resolved item. Returns true when a new catalog row was
// inserted, false when an existing row was updated in place.
func (e *Engine) MergeItem(ctx context.Context, restaurantID uuid.UUID, item ResolvedItem) (bool, error) {
	existing, err := e.catalog.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return false, err
	}

	key := parse.ToSearchForm(item.Name)
	for _, row := range existing {
		if parse.ToSearchForm(row.Name) == key {
			if err := e.catalog.UpdatePriceAndCategory(ctx, row.ID, item.Price, item.Category); err != nil {
				return false, err
			}
			e.logger.Info("catalog item updated",
				"restaurant_id", restaurantID, "name", item.Name, "price", item.Price)
			return false, nil
		}
	}

	row := &entity.CatalogMenuItem{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         item.Name,
		ItemType:     InferItemType(item.Name),
		Category:     item.Category,
		Price:        item.Price,
	}
	if err := e.catalog.Create(ctx, row); err != nil {
		return false, err
	}
	e.logger.Info("catalog item inserted",
		"restaurant_id", restaurantID, "name", item.Name, "type", row.ItemType, "price", item.Price)
	return true, nil
}

// InferItemType classifies a dish against the fixed German synonym sets:
// drink-like terms first, then dessert-like, else main course. A keyword only
// counts when it ends a word — German compounds are head-final, so
// "Schokoladeneis" is a dessert while "Fleischsalat" (which merely contains
// "eis") is not.
func InferItemType(name string) constants.ItemType {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if matchesKeyword(words, constants.DrinkKeywords) {
		return constants.ItemTypeDrink
	}
	if matchesKeyword(words, constants.DessertKeywords) {
		return constants.ItemTypeDessert
	}
	return constants.ItemTypeMainCourse
}

func matchesKeyword(words, keywords []string) bool {
	for _, word := range words {
		for _, kw := range keywords {
			if strings.HasSuffix(word, kw) {
				return true
			}
		}
	}
	return false
}
