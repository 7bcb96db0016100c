package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
)

// uploadFixture runs a successful native upload and returns the fixture plus
// the parsed batch and its staged item ids.
func uploadFixture(t *testing.T, candidates ...string) (*orchestratorFixture, uuid.UUID, []uuid.UUID) {
	t.Helper()
	native := &fakeExtractor{res: nativeResult()}
	for _, name := range candidates {
		native.res.Items = append(native.res.Items, candidate(name, 10.0))
	}
	fx := newFixture(native, &fakeExtractor{})

	res, err := fx.orch.UploadAndParse(context.Background(), validPDFBytes(), "karte.pdf", "", uuid.New())
	if err != nil {
		t.Fatalf("UploadAndParse: %v", err)
	}
	_, staged, err := fx.orch.GetBatch(context.Background(), res.BatchID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	ids := make([]uuid.UUID, len(staged))
	for i, it := range staged {
		ids[i] = it.ID
	}
	return fx, res.BatchID, ids
}

func strptr(s string) *string { return &s }

func TestAssignRestaurantMovesBatchIntoReview(t *testing.T) {
	fx, batchID, _ := uploadFixture(t, "Schnitzel")
	rest := uuid.New()

	batch, err := fx.orch.AssignRestaurant(context.Background(), batchID, rest, uuid.New())
	if err != nil {
		t.Fatalf("AssignRestaurant: %v", err)
	}
	if batch.Status != constants.BatchStatusChangesProposed {
		t.Errorf("status = %s, want CHANGES_PROPOSED", batch.Status)
	}
	if batch.RestaurantID == nil || *batch.RestaurantID != rest {
		t.Error("restaurant not recorded")
	}

	// Re-assigning during review is allowed.
	rest2 := uuid.New()
	batch, err = fx.orch.AssignRestaurant(context.Background(), batchID, rest2, uuid.New())
	if err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	if *batch.RestaurantID != rest2 {
		t.Error("re-assignment did not stick")
	}
}

func TestRecordItemActionEditRequiresValidPayload(t *testing.T) {
	fx, _, itemIDs := uploadFixture(t, "Schnitzel")

	err := fx.orch.RecordItemAction(context.Background(), itemIDs[0], constants.ActionEdit, nil, uuid.New())
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("EDIT without payload: err = %v, want ErrValidation", err)
	}

	bad := &entity.EditedItemData{Price: strptr("abc")}
	err = fx.orch.RecordItemAction(context.Background(), itemIDs[0], constants.ActionEdit, bad, uuid.New())
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("EDIT with bad price: err = %v, want ErrValidation", err)
	}

	good := &entity.EditedItemData{Price: strptr("9,90"), Name: strptr("Wiener Schnitzel")}
	if err := fx.orch.RecordItemAction(context.Background(), itemIDs[0], constants.ActionEdit, good, uuid.New()); err != nil {
		t.Fatalf("valid EDIT: %v", err)
	}

	it, err := fx.orch.items.GetByID(context.Background(), itemIDs[0])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if it.Action != constants.ActionEdit || it.EditedData == nil {
		t.Errorf("decision not stored: action=%s edited=%v", it.Action, it.EditedData)
	}
}

func TestRecordItemActionRejectsPayloadOutsideEdit(t *testing.T) {
	fx, _, itemIDs := uploadFixture(t, "Schnitzel")

	err := fx.orch.RecordItemAction(context.Background(), itemIDs[0], constants.ActionAccept,
		&entity.EditedItemData{Name: strptr("x")}, uuid.New())
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("ACCEPT with payload: err = %v, want ErrValidation", err)
	}
}

func TestApproveAndPublishHappyPath(t *testing.T) {
	fx, batchID, itemIDs := uploadFixture(t, "Schnitzel", "Cola", "Tiramisu")
	rest := uuid.New()
	ctx := context.Background()
	admin := uuid.New()

	if _, err := fx.orch.AssignRestaurant(ctx, batchID, rest, admin); err != nil {
		t.Fatalf("AssignRestaurant: %v", err)
	}
	if err := fx.orch.RecordItemAction(ctx, itemIDs[0], constants.ActionAccept, nil, admin); err != nil {
		t.Fatalf("accept: %v", err)
	}
	edit := &entity.EditedItemData{Price: strptr("3,50"), Category: strptr("Getränke")}
	if err := fx.orch.RecordItemAction(ctx, itemIDs[1], constants.ActionEdit, edit, admin); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := fx.orch.RecordItemAction(ctx, itemIDs[2], constants.ActionReject, nil, admin); err != nil {
		t.Fatalf("reject: %v", err)
	}

	res, err := fx.orch.ApproveAndPublish(ctx, batchID, admin, nil, nil)
	if err != nil {
		t.Fatalf("ApproveAndPublish: %v", err)
	}
	if res.Inserted != 2 || res.Updated != 0 {
		t.Errorf("result = %+v, want 2 inserted", res)
	}

	batch, _, _ := fx.orch.GetBatch(ctx, batchID)
	if batch.Status != constants.BatchStatusPublished {
		t.Errorf("status = %s, want PUBLISHED", batch.Status)
	}
	if batch.PublishedAt == nil || batch.ApprovedBy == nil || *batch.ApprovedBy != admin {
		t.Error("approval metadata missing")
	}

	// Rejected item stays out; edited values win over parsed ones.
	rows, _ := fx.catalog.ListByRestaurant(ctx, rest)
	if len(rows) != 2 {
		t.Fatalf("catalog holds %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Name == "Cola" {
			if r.Price != 3.5 || r.Category != "Getränke" {
				t.Errorf("edit override lost: %+v", r)
			}
			if r.ItemType != constants.ItemTypeDrink {
				t.Errorf("ItemType = %s, want drink", r.ItemType)
			}
		}
		if r.Name == "Tiramisu" {
			t.Error("rejected item published")
		}
	}
	if fx.tx.calls != 1 {
		t.Errorf("publish ran in %d transactions, want 1", fx.tx.calls)
	}
	if !fx.sink.has("batch_published") {
		t.Errorf("audit trail: %v", fx.sink.actions)
	}
}

func TestApproveAndPublishWithInlineDecisions(t *testing.T) {
	fx, batchID, itemIDs := uploadFixture(t, "Schnitzel", "Cola")
	rest := uuid.New()
	ctx := context.Background()
	admin := uuid.New()

	if _, err := fx.orch.AssignRestaurant(ctx, batchID, rest, admin); err != nil {
		t.Fatalf("AssignRestaurant: %v", err)
	}

	// All decisions travel with the approval call itself.
	actions := map[uuid.UUID]constants.ReviewAction{
		itemIDs[0]: constants.ActionAccept,
		itemIDs[1]: constants.ActionEdit,
	}
	edits := map[uuid.UUID]*entity.EditedItemData{
		itemIDs[1]: {Price: strptr("2,80")},
	}
	res, err := fx.orch.ApproveAndPublish(ctx, batchID, admin, actions, edits)
	if err != nil {
		t.Fatalf("ApproveAndPublish: %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", res.Inserted)
	}

	rows, _ := fx.catalog.ListByRestaurant(ctx, rest)
	for _, r := range rows {
		if r.Name == "Cola" && r.Price != 2.8 {
			t.Errorf("inline edit lost: price = %v", r.Price)
		}
	}

	// Foreign items are refused.
	fx2, batch2, _ := uploadFixture(t, "Gulasch")
	if _, err := fx2.orch.AssignRestaurant(ctx, batch2, uuid.New(), admin); err != nil {
		t.Fatalf("AssignRestaurant: %v", err)
	}
	_, err = fx2.orch.ApproveAndPublish(ctx, batch2, admin,
		map[uuid.UUID]constants.ReviewAction{itemIDs[0]: constants.ActionAccept}, nil)
	if err == nil {
		t.Fatal("expected error for an item from another batch")
	}
}

func TestApproveAndPublishPreconditions(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()

	t.Run("no restaurant assigned", func(t *testing.T) {
		fx, batchID, itemIDs := uploadFixture(t, "Schnitzel")
		if err := fx.orch.RecordItemAction(ctx, itemIDs[0], constants.ActionAccept, nil, admin); err != nil {
			t.Fatalf("accept: %v", err)
		}
		_, err := fx.orch.ApproveAndPublish(ctx, batchID, admin, nil, nil)
		if !errors.Is(err, common.ErrPrecondition) {
			t.Fatalf("err = %v, want ErrPrecondition", err)
		}
	})

	t.Run("no accepted items", func(t *testing.T) {
		fx, batchID, itemIDs := uploadFixture(t, "Schnitzel")
		if _, err := fx.orch.AssignRestaurant(ctx, batchID, uuid.New(), admin); err != nil {
			t.Fatalf("assign: %v", err)
		}
		if err := fx.orch.RecordItemAction(ctx, itemIDs[0], constants.ActionReject, nil, admin); err != nil {
			t.Fatalf("reject: %v", err)
		}
		_, err := fx.orch.ApproveAndPublish(ctx, batchID, admin, nil, nil)
		if !errors.Is(err, common.ErrPrecondition) {
			t.Fatalf("err = %v, want ErrPrecondition", err)
		}
	})

	t.Run("wrong status", func(t *testing.T) {
		fx, batchID, _ := uploadFixture(t, "Schnitzel")
		// Still PARSED, no review happened.
		_, err := fx.orch.ApproveAndPublish(ctx, batchID, admin, nil, nil)
		if !errors.Is(err, common.ErrPrecondition) {
			t.Fatalf("err = %v, want ErrPrecondition", err)
		}
	})
}

func TestApproveAndPublishRollsBackToReview(t *testing.T) {
	fx, batchID, itemIDs := uploadFixture(t, "Schnitzel", "Gulasch")
	ctx := context.Background()
	admin := uuid.New()

	if _, err := fx.orch.AssignRestaurant(ctx, batchID, uuid.New(), admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, id := range itemIDs {
		if err := fx.orch.RecordItemAction(ctx, id, constants.ActionAccept, nil, admin); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	fx.catalog.failAfter = 2 // second catalog write blows up mid-publish

	_, err := fx.orch.ApproveAndPublish(ctx, batchID, admin, nil, nil)
	if err == nil {
		t.Fatal("expected publish failure")
	}

	batch, _, _ := fx.orch.GetBatch(ctx, batchID)
	if batch.Status != constants.BatchStatusChangesProposed {
		t.Errorf("status = %s, want CHANGES_PROPOSED after rollback", batch.Status)
	}
	if batch.PublishedAt != nil {
		t.Error("PublishedAt set on a failed publish")
	}
}

func TestRejectBatch(t *testing.T) {
	fx, batchID, _ := uploadFixture(t, "Schnitzel")
	ctx := context.Background()
	admin := uuid.New()

	if err := fx.orch.RejectBatch(ctx, batchID, admin, "   "); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("blank reason: err = %v, want ErrValidation", err)
	}

	if err := fx.orch.RejectBatch(ctx, batchID, admin, "unreadable scan"); err != nil {
		t.Fatalf("RejectBatch: %v", err)
	}
	batch, _, _ := fx.orch.GetBatch(ctx, batchID)
	if batch.Status != constants.BatchStatusRejected {
		t.Errorf("status = %s, want REJECTED", batch.Status)
	}
	if batch.RejectReason != "unreadable scan" || batch.RejectedBy == nil || batch.RejectedAt == nil {
		t.Errorf("rejection metadata incomplete: %+v", batch)
	}

	// Terminal: nothing moves a rejected batch.
	if err := fx.orch.RejectBatch(ctx, batchID, admin, "again"); !errors.Is(err, common.ErrPrecondition) {
		t.Fatalf("double reject: err = %v, want ErrPrecondition", err)
	}
}

func TestDeleteItemAndBatch(t *testing.T) {
	fx, batchID, itemIDs := uploadFixture(t, "Schnitzel", "Gulasch")
	ctx := context.Background()
	admin := uuid.New()

	if err := fx.orch.DeleteItem(ctx, itemIDs[0], admin); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	_, items, _ := fx.orch.GetBatch(ctx, batchID)
	if len(items) != 1 {
		t.Fatalf("%d items left, want 1", len(items))
	}

	if err := fx.orch.DeleteBatch(ctx, batchID, admin); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if _, _, err := fx.orch.GetBatch(ctx, batchID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("deleted batch still readable: %v", err)
	}
	if len(fx.items.rows) != 0 {
		t.Errorf("%d orphaned items after batch delete", len(fx.items.rows))
	}
}

func TestConcurrentApproveAndRejectOnlyOneWins(t *testing.T) {
	fx, batchID, itemIDs := uploadFixture(t, "Schnitzel")
	ctx := context.Background()
	admin := uuid.New()

	if _, err := fx.orch.AssignRestaurant(ctx, batchID, uuid.New(), admin); err != nil {
		t.Fatalf("AssignRestaurant: %v", err)
	}
	if err := fx.orch.RecordItemAction(ctx, itemIDs[0], constants.ActionAccept, nil, admin); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Two reviewers race the same batch to opposite terminal states. The
	// batch lock serializes them; the loser must fail the transition guard.
	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = fx.orch.ApproveAndPublish(ctx, batchID, admin, nil, nil)
	}()
	go func() {
		defer wg.Done()
		rejectErr = fx.orch.RejectBatch(ctx, batchID, admin, "outdated menu")
	}()
	wg.Wait()

	if (approveErr == nil) == (rejectErr == nil) {
		t.Fatalf("exactly one operation must win: approve=%v reject=%v", approveErr, rejectErr)
	}
	batch, _, err := fx.orch.GetBatch(ctx, batchID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	switch {
	case approveErr == nil:
		if batch.Status != constants.BatchStatusPublished {
			t.Errorf("status = %s, want PUBLISHED after approve won", batch.Status)
		}
		if !errors.Is(rejectErr, common.ErrPrecondition) {
			t.Errorf("losing reject: err = %v, want ErrPrecondition", rejectErr)
		}
	default:
		if batch.Status != constants.BatchStatusRejected {
			t.Errorf("status = %s, want REJECTED after reject won", batch.Status)
		}
		if !errors.Is(approveErr, common.ErrPrecondition) {
			t.Errorf("losing approve: err = %v, want ErrPrecondition", approveErr)
		}
	}
}

func TestValidateEditedDataOptionsMustBeObject(t *testing.T) {
	bad := &entity.EditedItemData{Options: json.RawMessage(`["not","an","object"]`)}
	if err := ValidateEditedData(bad); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("array options: err = %v, want ErrValidation", err)
	}

	good := &entity.EditedItemData{Options: json.RawMessage(`{"gluten_free": true}`)}
	if err := ValidateEditedData(good); err != nil {
		t.Fatalf("object options: %v", err)
	}
}
