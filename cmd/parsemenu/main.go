package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/extract"
	"github.com/lukasbrandt/speisekarten-tracker/internal/ocr"
)

// parsemenu runs extraction on a local PDF without touching the database:
// native text layer first, OCR fallback if the document is scanned. Useful
// for tuning the parser against a real menu before uploading it.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: parsemenu <menu.pdf>")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("reading file", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := extract.NewEngine(logger).Extract(ctx, data)
	if err != nil {
		logger.Error("native extraction failed", "error", err)
		os.Exit(1)
	}

	if !res.IsTextNative || len(res.Items) == 0 {
		cfg := common.LoadConfig()
		engine := ocr.NewEngine(ocr.Config{
			Language:    cfg.OCR.Language,
			TessdataDir: cfg.OCR.TessdataDir,
		}, logger)
		defer engine.Close()

		ocrRes, err := engine.Extract(ctx, data)
		if err != nil {
			logger.Error("ocr extraction failed", "error", err)
			os.Exit(1)
		}
		ocrRes.IsTextNative = false
		res = ocrRes
	}

	fmt.Printf("pages: %d  text-native: %v  items: %d\n", res.TotalPages, res.IsTextNative, len(res.Items))
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, it := range res.Items {
		fmt.Printf("p%-3d %-40s %8.2f  conf=%.2f  [%s]\n",
			it.Page, it.Name, it.Price, it.Confidence, it.Category)
	}
}
