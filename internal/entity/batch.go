package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
)

// ParseLog captures what extraction actually did, stored alongside the batch
// so failed or surprising parses stay inspectable.
type ParseLog struct {
	TotalPages int               `json:"total_pages"`
	ItemsFound int               `json:"items_found"`
	Warnings   []string          `json:"warnings,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Batch is one uploaded menu document's processing record. It carries the
// document through parse, review and publish.
type Batch struct {
	ID           uuid.UUID             `json:"id"`
	UploaderID   uuid.UUID             `json:"uploader_id"`
	Filename     string                `json:"filename"` // sanitized
	ContentHash  []byte                `json:"content_hash"`
	FileSize     int                   `json:"file_size"`
	StoragePath  string                `json:"storage_path"`
	Status       constants.BatchStatus `json:"status"`
	IsTextNative *bool                 `json:"is_text_native,omitempty"` // nil until extraction ran
	ParseLog     *ParseLog             `json:"parse_log,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
	RestaurantID *uuid.UUID            `json:"restaurant_id,omitempty"` // nil until review assigns one
	ApprovedBy   *uuid.UUID            `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time            `json:"approved_at,omitempty"`
	RejectedBy   *uuid.UUID            `json:"rejected_by,omitempty"`
	RejectedAt   *time.Time            `json:"rejected_at,omitempty"`
	RejectReason string                `json:"reject_reason,omitempty"`
	PublishedAt  *time.Time            `json:"published_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
