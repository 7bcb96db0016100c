package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lukasbrandt/speisekarten-tracker/internal/extract"
)

const (
	// confidenceFloor is lower than the native path's 0.5 to tolerate
	// recognition noise in otherwise plausible price fragments.
	confidenceFloor = 0.4
	// confidenceScale is applied to every resulting item to reflect the
	// added uncertainty of optical recognition.
	confidenceScale = 0.8
)

// Recognizer turns raw document bytes into a flat text blob. It lets us stub
// the expensive tesseract engine in tests.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
	Close() error
}

// Config holds OCR engine settings.
type Config struct {
	Language    string // tesseract language model, default "deu"
	TessdataDir string
}

// Engine is the OCR fallback for scanned or text-less documents. The
// underlying recognizer is expensive to initialize, so a single instance is
// constructed lazily on first use and reused afterwards. Construction is
// guarded by a lock; concurrent first calls must not race it.
type Engine struct {
	cfg     Config
	newRec  func(Config) (Recognizer, error)
	logger  *slog.Logger
	mu      sync.Mutex
	rec     Recognizer
	recErr  error
	started bool
}

// NewEngine builds the fallback engine. The recognizer itself is not created
// until the first Extract call.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Language == "" {
		cfg.Language = "deu"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, newRec: newTesseractRecognizer, logger: logger}
}

// NewEngineWithRecognizer injects a recognizer factory, used in tests.
func NewEngineWithRecognizer(cfg Config, factory func(Config) (Recognizer, error), logger *slog.Logger) *Engine {
	e := NewEngine(cfg, logger)
	e.newRec = factory
	return e
}

func (e *Engine) recognizer() (Recognizer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		e.started = true
		e.rec, e.recErr = e.newRec(e.cfg)
		if e.recErr != nil {
			e.logger.Error("ocr engine init failed", "error", e.recErr)
		} else {
			e.logger.Info("ocr engine initialized", "language", e.cfg.Language)
		}
	}
	return e.rec, e.recErr
}

// Extract recognizes the whole document as a single unit and feeds the text
// blob through the same line/category/price pipeline as the native path,
// with the adjusted floor and scale.
func (e *Engine) Extract(ctx context.Context, data []byte) (extract.Result, error) {
	rec, err := e.recognizer()
	if err != nil {
		return extract.Result{}, fmt.Errorf("ocr init: %w", err)
	}

	text, err := rec.Recognize(ctx, data)
	if err != nil {
		return extract.Result{}, fmt.Errorf("ocr recognize: %w", err)
	}

	scanner := extract.NewScanner(confidenceFloor)
	// Form feeds mark page breaks when the recognizer preserves them.
	pages := strings.Split(text, "\f")
	for i, page := range pages {
		scanner.FeedText(page, i+1)
	}

	items := scanner.Items()
	for i := range items {
		items[i].Confidence *= confidenceScale
	}

	e.logger.Info("ocr extraction done", "pages", len(pages), "items", len(items))

	return extract.Result{
		Items:        items,
		IsTextNative: false,
		TotalPages:   len(pages),
		Metadata:     map[string]string{"extractor": "tesseract", "language": e.cfg.Language},
	}, nil
}

// Close releases the underlying recognizer's resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return nil
	}
	err := e.rec.Close()
	e.rec = nil
	e.started = false
	return err
}
