package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
)

// ParsedItem is one candidate menu entry staged for review. Items are created
// in bulk during extraction and mutated one at a time by reviewer calls.
type ParsedItem struct {
	ID          uuid.UUID              `json:"id"`
	BatchID     uuid.UUID              `json:"batch_id"`
	Name        string                 `json:"name"`
	SearchName  string                 `json:"search_name"` // normalized + lowercased, catalog merge key
	Description string                 `json:"description,omitempty"`
	Price       float64                `json:"price"`
	Confidence  float64                `json:"confidence"` // [0,1]
	Category    string                 `json:"category,omitempty"`
	Page        int                    `json:"page,omitempty"` // 0 = unknown
	RawText     string                 `json:"raw_text"`       // source line, kept for audit/debug
	Action      constants.ReviewAction `json:"action"`
	EditedData  *EditedItemData        `json:"edited_data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// EditedItemData is the reviewer's override payload for an EDIT decision.
// Every field is optional; set fields win over the parsed values at publish
// time. The payload is validated once at the boundary (see ingest package).
type EditedItemData struct {
	Name        *string         `json:"name,omitempty"`
	Price       *string         `json:"price,omitempty"` // decimal string, must parse numerically
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"` // free-form, must be a well-formed JSON object
}
