//go:build !cgo

package ocr

import "errors"

// newTesseractRecognizer requires cgo: gosseract links against the native
// tesseract library and is unavailable in CGO_ENABLED=0 builds.
func newTesseractRecognizer(Config) (Recognizer, error) {
	return nil, errors.New("ocr: tesseract recognizer requires a cgo-enabled build")
}
