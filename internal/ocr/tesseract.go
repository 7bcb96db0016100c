//go:build cgo

package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// tesseractRecognizer wraps a long-lived gosseract client. Model
// initialization is expensive and must not be repeated per call.
type tesseractRecognizer struct {
	client *gosseract.Client
}

func newTesseractRecognizer(cfg Config) (Recognizer, error) {
	client := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		client.TessdataPrefix = cfg.TessdataDir
	}
	if err := client.SetLanguage(cfg.Language); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &tesseractRecognizer{client: client}, nil
}

func (r *tesseractRecognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := r.client.SetImageFromBytes(data); err != nil {
		return "", err
	}
	return r.client.Text()
}

func (r *tesseractRecognizer) Close() error {
	return r.client.Close()
}
