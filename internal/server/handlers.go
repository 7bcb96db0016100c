package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "speisekarten-tracker"})
}

// handleUpload ingests one menu document from a multipart form. Field "file"
// carries the document, "uploader_id" the submitting user.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadBytes + 1<<20); err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid multipart form: %v", err))
		return
	}
	uploaderID, err := uuid.Parse(r.FormValue("uploader_id"))
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("uploader_id must be a UUID"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("multipart field %q is required", "file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.pipeline.UploadAndParse(r.Context(), data, header.Filename,
		header.Header.Get("Content-Type"), uploaderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Status == constants.BatchStatusDuplicate {
		status = http.StatusOK
	}
	s.writeJSON(w, status, res)
}

type batchResponse struct {
	Batch *entity.Batch        `json:"batch"`
	Items []*entity.ParsedItem `json:"items"`
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathUUID(r, "batchID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid batch id"))
		return
	}
	batch, items, err := s.pipeline.GetBatch(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, batchResponse{Batch: batch, Items: items})
}

func (s *Server) handleAssignRestaurant(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathUUID(r, "batchID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid batch id"))
		return
	}
	var req struct {
		RestaurantID uuid.UUID `json:"restaurant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RestaurantID == uuid.Nil {
		s.writeError(w, r, common.ValidationErrorf("restaurant_id is required"))
		return
	}
	batch, err := s.pipeline.AssignRestaurant(r.Context(), batchID, req.RestaurantID, actorID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleItemAction(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "itemID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid item id"))
		return
	}
	var req struct {
		Action     constants.ReviewAction `json:"action"`
		EditedData *entity.EditedItemData `json:"edited_data,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid request body: %v", err))
		return
	}
	if err := s.pipeline.RecordItemAction(r.Context(), itemID, req.Action, req.EditedData, actorID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"item_id": itemID, "action": req.Action})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathUUID(r, "batchID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid batch id"))
		return
	}
	// The body is optional: decisions may all have been recorded one by one
	// through the item-action endpoint beforehand.
	var req struct {
		ItemActions map[uuid.UUID]constants.ReviewAction `json:"item_actions,omitempty"`
		EditedItems map[uuid.UUID]*entity.EditedItemData `json:"edited_items,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, common.ValidationErrorf("invalid request body: %v", err))
			return
		}
	}
	result, err := s.pipeline.ApproveAndPublish(r.Context(), batchID, actorID(r), req.ItemActions, req.EditedItems)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathUUID(r, "batchID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid batch id"))
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid request body: %v", err))
		return
	}
	if err := s.pipeline.RejectBatch(r.Context(), batchID, actorID(r), req.Reason); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"batch_id": batchID, "status": constants.BatchStatusRejected})
}

func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathUUID(r, "batchID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid batch id"))
		return
	}
	if err := s.pipeline.DeleteBatch(r.Context(), batchID, actorID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "itemID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid item id"))
		return
	}
	if err := s.pipeline.DeleteItem(r.Context(), itemID, actorID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathUUID(r, "batchID")
	if err != nil {
		s.writeError(w, r, common.ValidationErrorf("invalid batch id"))
		return
	}
	data, err := s.exporter.ExportBatchXLSX(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch_%s.xlsx"`, batchID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps the application's sentinel errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrPrecondition), errors.Is(err, common.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]any{"error": err.Error()})
}
