package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/auth"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
	"github.com/lukasbrandt/speisekarten-tracker/internal/ingest"
)

// Pipeline is the slice of the ingestion orchestrator the HTTP surface needs.
type Pipeline interface {
	UploadAndParse(ctx context.Context, data []byte, filename, mimeType string, uploaderID uuid.UUID) (*ingest.UploadResult, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*entity.Batch, []*entity.ParsedItem, error)
	AssignRestaurant(ctx context.Context, batchID, restaurantID, actorID uuid.UUID) (*entity.Batch, error)
	RecordItemAction(ctx context.Context, itemID uuid.UUID, action constants.ReviewAction, edited *entity.EditedItemData, actorID uuid.UUID) error
	ApproveAndPublish(ctx context.Context, batchID, approverID uuid.UUID, actions map[uuid.UUID]constants.ReviewAction, edits map[uuid.UUID]*entity.EditedItemData) (*ingest.PublishResult, error)
	RejectBatch(ctx context.Context, batchID, actorID uuid.UUID, reason string) error
	DeleteItem(ctx context.Context, itemID, actorID uuid.UUID) error
	DeleteBatch(ctx context.Context, batchID, actorID uuid.UUID) error
}

// Exporter produces the XLSX review export.
type Exporter interface {
	ExportBatchXLSX(ctx context.Context, batchID uuid.UUID) ([]byte, error)
}

// Server wires the pipeline onto HTTP routes.
type Server struct {
	pipeline Pipeline
	exporter Exporter
	authz    auth.Authorizer
	health   func(ctx context.Context) error
	logger   *slog.Logger
}

func New(pipeline Pipeline, exporter Exporter, authz auth.Authorizer, health func(ctx context.Context) error, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipeline: pipeline, exporter: exporter, authz: authz, health: health, logger: logger}
}

// Router builds the chi router. Uploads only need an uploader id; everything
// touching review and publish sits behind the admin token.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/batches", s.handleUpload)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/api/v1/batches/{batchID}", s.handleGetBatch)
		r.Get("/api/v1/batches/{batchID}/export", s.handleExport)
		r.Put("/api/v1/batches/{batchID}/restaurant", s.handleAssignRestaurant)
		r.Post("/api/v1/batches/{batchID}/approve", s.handleApprove)
		r.Post("/api/v1/batches/{batchID}/reject", s.handleReject)
		r.Delete("/api/v1/batches/{batchID}", s.handleDeleteBatch)
		r.Post("/api/v1/items/{itemID}/action", s.handleItemAction)
		r.Delete("/api/v1/items/{itemID}", s.handleDeleteItem)
	})

	return r
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.authz.AuthorizeAdmin(r.Header.Get("Authorization")); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actorID identifies the acting reviewer from the request, for audit trails.
func actorID(r *http.Request) uuid.UUID {
	if id, err := uuid.Parse(r.Header.Get("X-Actor-ID")); err == nil {
		return id
	}
	return uuid.Nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, key))
}
