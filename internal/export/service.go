package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/lukasbrandt/speisekarten-tracker/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for
// review exports: one row per staged item of a batch, decisions included.
type Service struct {
	batches repository.BatchRepository
	items   repository.ParsedItemRepository
	logger  *slog.Logger
}

func NewService(batches repository.BatchRepository, items repository.ParsedItemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{batches: batches, items: items, logger: logger}
}

// ExportBatchXLSX returns an XLSX workbook (as bytes) with the staged items
// of one batch, in page order, with the reviewer's action per row.
func (s *Service) ExportBatchXLSX(ctx context.Context, batchID uuid.UUID) ([]byte, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list staged items: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Items"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Page",
		"Name",
		"Price",
		"Category",
		"Confidence",
		"Action",
		"Description",
		"Raw Text",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, it := range items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, it.Page)
		write(2, it.Name)
		write(3, it.Price)
		write(4, it.Category)
		write(5, it.Confidence)
		write(6, string(it.Action))
		write(7, it.Description)
		write(8, it.RawText)
		row++
	}

	// Default sheet excelize creates alongside ours.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 && sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	s.logger.Info("exported batch to xlsx",
		"batch_id", batchID, "filename", batch.Filename, "rows", len(items))
	return buf.Bytes(), nil
}
