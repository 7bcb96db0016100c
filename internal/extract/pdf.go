package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lukasbrandt/speisekarten-tracker/internal/parse"
)

// textNativeThreshold separates genuine embedded text from the metadata-only
// noise a scanned document produces. Deliberately simple: anything longer
// counts as a real text layer.
const textNativeThreshold = 100

// Engine extracts the native text layer of a PDF and scans it for menu
// items. Scanned documents are flagged for the OCR fallback instead.
type Engine struct {
	minConfidence float64
	logger        *slog.Logger
}

// NewEngine builds the native text extraction engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{minConfidence: parse.MinPriceConfidence, logger: logger}
}

// Extract pulls text and page count out of the document. When the document
// has no usable text layer the result is empty with IsTextNative=false and
// the caller is expected to fall back to OCR.
func (e *Engine) Extract(ctx context.Context, data []byte) (Result, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return Result{}, fmt.Errorf("pdf read: %w", err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	totalRunes := 0
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		text := extractPageText(pdfCtx, pageNr)
		pages = append(pages, text)
		totalRunes += utf8.RuneCountInString(text)
	}

	res := Result{
		TotalPages: pdfCtx.PageCount,
		Metadata:   map[string]string{"extractor": "pdfcpu"},
	}
	if title := firstLine(pages); title != "" {
		res.Metadata["title"] = title
	}

	res.IsTextNative = totalRunes > textNativeThreshold
	if !res.IsTextNative {
		e.logger.Info("no usable text layer, deferring to ocr",
			"pages", pdfCtx.PageCount, "chars", totalRunes)
		res.Warnings = append(res.Warnings, "document has no usable text layer, OCR fallback required")
		return res, nil
	}

	scanner := NewScanner(e.minConfidence)
	for i, text := range pages {
		scanner.FeedText(text, i+1)
	}
	res.Items = scanner.Items()

	e.logger.Info("native extraction done",
		"pages", res.TotalPages, "items", len(res.Items))
	return res, nil
}

// extractPageText extracts text from a single page via the pdfcpu content
// stream.
func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromContentStream parses PDF content stream operators for text runs.
// Tj/TJ show text, ' shows text on the next line, Td/TD/T* move the cursor.
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			// Octal escape (e.g. \040 for space).
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

func firstLine(pages []string) string {
	for _, page := range pages {
		for _, line := range parse.SplitIntoLines(page) {
			return line
		}
	}
	return ""
}
