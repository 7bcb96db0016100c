package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/audit"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
	"github.com/lukasbrandt/speisekarten-tracker/internal/publish"
)

// AssignRestaurant binds a parsed batch to the restaurant its items will be
// published under. Re-assigning before approval is allowed and idempotent.
func (o *Orchestrator) AssignRestaurant(ctx context.Context, batchID, restaurantID uuid.UUID, actorID uuid.UUID) (*entity.Batch, error) {
	unlock := o.lockBatch(batchID)
	defer unlock()

	batch, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != constants.BatchStatusParsed && batch.Status != constants.BatchStatusChangesProposed {
		return nil, common.PreconditionErrorf("batch %s is %s, restaurant can only be assigned during review", batchID, batch.Status)
	}

	batch.RestaurantID = &restaurantID
	if err := o.setStatus(ctx, batch, constants.BatchStatusChangesProposed); err != nil {
		return nil, err
	}
	o.audit.Record(ctx, audit.Event{
		Action: "restaurant_assigned", ActorID: actorID.String(), BatchID: batchID.String(),
		Metadata: map[string]any{"restaurant_id": restaurantID.String()},
	})
	return batch, nil
}

// RecordItemAction stores the reviewer's decision on one staged item. An EDIT
// decision must carry a payload that passes boundary validation; every other
// decision must not carry one.
func (o *Orchestrator) RecordItemAction(ctx context.Context, itemID uuid.UUID, action constants.ReviewAction, edited *entity.EditedItemData, actorID uuid.UUID) error {
	switch action {
	case constants.ActionAccept, constants.ActionEdit, constants.ActionReject:
	default:
		return common.ValidationErrorf("unknown review action %q", action)
	}
	if action == constants.ActionEdit {
		if err := ValidateEditedData(edited); err != nil {
			return err
		}
	} else if edited != nil {
		return common.ValidationErrorf("edited_data is only valid with the EDIT action")
	}

	item, err := o.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	unlock := o.lockBatch(item.BatchID)
	defer unlock()

	batch, err := o.batches.GetByID(ctx, item.BatchID)
	if err != nil {
		return err
	}
	if batch.Status != constants.BatchStatusParsed && batch.Status != constants.BatchStatusChangesProposed {
		return common.PreconditionErrorf("batch %s is %s, items are no longer reviewable", batch.ID, batch.Status)
	}

	if err := o.items.UpdateAction(ctx, itemID, action, edited); err != nil {
		return err
	}
	// First decision moves the batch into active review.
	if batch.Status == constants.BatchStatusParsed {
		if err := o.setStatus(ctx, batch, constants.BatchStatusChangesProposed); err != nil {
			return err
		}
	}

	o.audit.Record(ctx, audit.Event{
		Action: "item_" + strings.ToLower(string(action)), ActorID: actorID.String(), BatchID: batch.ID.String(),
		Metadata: map[string]any{"item_id": itemID.String()},
	})
	return nil
}

// PublishResult reports what an approval actually changed in the catalog.
type PublishResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// ApproveAndPublish finalizes review: every ACCEPT and EDIT item is merged
// into the assigned restaurant's catalog inside one transaction. A mid-merge
// failure rolls the catalog back and returns the batch to review.
//
// actions and edits are last-minute decisions carried with the approval call
// itself; they are recorded on the items before the publishable set is
// computed. Both may be nil when every decision was recorded beforehand.
func (o *Orchestrator) ApproveAndPublish(ctx context.Context, batchID, approverID uuid.UUID, actions map[uuid.UUID]constants.ReviewAction, edits map[uuid.UUID]*entity.EditedItemData) (*PublishResult, error) {
	unlock := o.lockBatch(batchID)
	defer unlock()

	batch, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !constants.CanTransition(batch.Status, constants.BatchStatusPublishing) {
		return nil, common.PreconditionErrorf("batch %s is %s and cannot be published", batchID, batch.Status)
	}
	if batch.RestaurantID == nil {
		return nil, common.PreconditionErrorf("batch %s has no restaurant assigned", batchID)
	}

	if err := o.applyInlineDecisions(ctx, batchID, actions, edits); err != nil {
		return nil, err
	}

	items, err := o.items.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	var publishable []*entity.ParsedItem
	for _, it := range items {
		if it.Action == constants.ActionAccept || it.Action == constants.ActionEdit {
			publishable = append(publishable, it)
		}
	}
	if len(publishable) == 0 {
		return nil, common.PreconditionErrorf("batch %s has no accepted or edited items to publish", batchID)
	}

	if err := o.setStatus(ctx, batch, constants.BatchStatusPublishing); err != nil {
		return nil, err
	}

	result := &PublishResult{}
	txErr := o.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, it := range publishable {
			resolved, err := resolveItem(it)
			if err != nil {
				return err
			}
			inserted, err := o.merger.MergeItem(ctx, *batch.RestaurantID, resolved)
			if err != nil {
				return err
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if txErr != nil {
		o.logger.Error("publish rolled back", "batch_id", batchID, "error", txErr)
		if err := o.setStatus(ctx, batch, constants.BatchStatusChangesProposed); err != nil {
			o.logger.Error("could not return batch to review", "batch_id", batchID, "error", err)
		}
		return nil, common.WrapError(txErr, "publish failed")
	}

	now := time.Now().UTC()
	batch.ApprovedBy = &approverID
	batch.ApprovedAt = &now
	batch.PublishedAt = &now
	if err := o.setStatus(ctx, batch, constants.BatchStatusPublished); err != nil {
		return nil, err
	}

	o.logger.Info("batch published",
		"batch_id", batchID, "restaurant_id", batch.RestaurantID,
		"inserted", result.Inserted, "updated", result.Updated)
	o.audit.Record(ctx, audit.Event{
		Action: "batch_published", ActorID: approverID.String(), BatchID: batchID.String(),
		Metadata: map[string]any{"inserted": result.Inserted, "updated": result.Updated},
	})
	return result, nil
}

// applyInlineDecisions validates and records decisions submitted with the
// approval call. Items must belong to the batch being approved.
func (o *Orchestrator) applyInlineDecisions(ctx context.Context, batchID uuid.UUID, actions map[uuid.UUID]constants.ReviewAction, edits map[uuid.UUID]*entity.EditedItemData) error {
	for itemID, action := range actions {
		if !constants.IsValidAction(action) || action == constants.ActionPending {
			return common.ValidationErrorf("unknown review action %q for item %s", action, itemID)
		}
		edited := edits[itemID]
		if action == constants.ActionEdit {
			if err := ValidateEditedData(edited); err != nil {
				return err
			}
		} else if edited != nil {
			return common.ValidationErrorf("edited_data is only valid with the EDIT action")
		}

		item, err := o.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item.BatchID != batchID {
			return common.ValidationErrorf("item %s does not belong to batch %s", itemID, batchID)
		}
		if err := o.items.UpdateAction(ctx, itemID, action, edited); err != nil {
			return err
		}
	}
	return nil
}

// resolveItem applies the reviewer's overrides on top of the parsed values
// and fills the category default. Edit payloads were validated at the
// boundary, so a malformed price here is a real bug, not user input.
func resolveItem(it *entity.ParsedItem) (publish.ResolvedItem, error) {
	resolved := publish.ResolvedItem{
		Name:     it.Name,
		Category: it.Category,
		Price:    it.Price,
	}
	if it.Action == constants.ActionEdit && it.EditedData != nil {
		e := it.EditedData
		if e.Name != nil && *e.Name != "" {
			resolved.Name = *e.Name
		}
		if e.Price != nil {
			p, err := ParseEditedPrice(*e.Price)
			if err != nil {
				return publish.ResolvedItem{}, err
			}
			resolved.Price = p
		}
		if e.Category != nil && *e.Category != "" {
			resolved.Category = *e.Category
		}
	}
	if resolved.Category == "" {
		resolved.Category = constants.DefaultCategory
	}
	return resolved, nil
}

// RejectBatch closes review without publishing. The reason is mandatory and
// kept on the row.
func (o *Orchestrator) RejectBatch(ctx context.Context, batchID, actorID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return common.ValidationErrorf("a rejection reason is required")
	}

	unlock := o.lockBatch(batchID)
	defer unlock()

	batch, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if !constants.CanTransition(batch.Status, constants.BatchStatusRejected) {
		return common.PreconditionErrorf("batch %s is %s and cannot be rejected", batchID, batch.Status)
	}

	now := time.Now().UTC()
	batch.RejectedBy = &actorID
	batch.RejectedAt = &now
	batch.RejectReason = reason
	if err := o.setStatus(ctx, batch, constants.BatchStatusRejected); err != nil {
		return err
	}

	o.audit.Record(ctx, audit.Event{
		Action: "batch_rejected", ActorID: actorID.String(), BatchID: batchID.String(),
		Metadata: map[string]any{"reason": reason},
	})
	return nil
}

// DeleteItem removes a single staged item during review.
func (o *Orchestrator) DeleteItem(ctx context.Context, itemID uuid.UUID, actorID uuid.UUID) error {
	item, err := o.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	unlock := o.lockBatch(item.BatchID)
	defer unlock()

	batch, err := o.batches.GetByID(ctx, item.BatchID)
	if err != nil {
		return err
	}
	if batch.Status != constants.BatchStatusParsed && batch.Status != constants.BatchStatusChangesProposed {
		return common.PreconditionErrorf("batch %s is %s, items can no longer be removed", batch.ID, batch.Status)
	}

	if err := o.items.Delete(ctx, itemID); err != nil {
		return err
	}
	o.audit.Record(ctx, audit.Event{
		Action: "item_deleted", ActorID: actorID.String(), BatchID: batch.ID.String(),
		Metadata: map[string]any{"item_id": itemID.String()},
	})
	return nil
}

// DeleteBatch removes a batch and its staged items. A batch that is mid
// publish cannot be deleted; everything else, published included, can.
func (o *Orchestrator) DeleteBatch(ctx context.Context, batchID, actorID uuid.UUID) error {
	unlock := o.lockBatch(batchID)
	defer unlock()

	batch, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.Status == constants.BatchStatusPublishing {
		return common.PreconditionErrorf("batch %s is mid-publish and cannot be deleted", batchID)
	}

	if err := o.items.DeleteByBatch(ctx, batchID); err != nil {
		return err
	}
	if err := o.batches.Delete(ctx, batchID); err != nil {
		return err
	}
	o.audit.Record(ctx, audit.Event{
		Action: "batch_deleted", ActorID: actorID.String(), BatchID: batchID.String(),
	})
	o.dropBatchLock(batchID)
	return nil
}
