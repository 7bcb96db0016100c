package validation

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
)

// Result is the outcome of structural upload validation. A failed result
// carries the rejection reason; warnings never fail the upload on their own.
type Result struct {
	OK       bool
	Err      error
	Warnings []string
}

// ValidateUpload checks raw bytes, filename and the optionally declared MIME
// type before any processing happens. Rules run in order; the first hard
// failure wins.
func ValidateUpload(data []byte, filename, mimeType string) Result {
	if len(data) == 0 {
		return fail("empty upload")
	}
	if len(data) > constants.MaxUploadBytes {
		return fail("upload exceeds %d bytes", constants.MaxUploadBytes)
	}
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if !constants.IsAllowedExt(ext) {
		return fail("unsupported file extension %q", ext)
	}
	if mimeType != "" && mimeType != constants.PDFMimeType {
		return fail("declared MIME type %q, want %q", mimeType, constants.PDFMimeType)
	}
	if !bytes.HasPrefix(data, constants.PDFMagic) {
		return fail("byte stream does not start with the PDF signature")
	}

	var warnings []string
	if !bytes.Contains(tail(data, 1024), constants.PDFEOFMarker) {
		// Missing %%EOF often means a truncated download. Extraction may
		// still succeed, so record it and move on.
		warnings = append(warnings, "missing %%EOF marker, file may be truncated")
	}
	return Result{OK: true, Warnings: warnings}
}

func fail(format string, args ...interface{}) Result {
	return Result{Err: fmt.Errorf(format, args...)}
}

func tail(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename strips directory components and replaces every character
// outside [A-Za-z0-9._-] with an underscore. Deterministic and idempotent.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	return unsafeFilenameChars.ReplaceAllString(base, "_")
}

// StoragePath composes the deterministic blob path for an upload, sharded by
// hash prefix so a single directory never collects every file.
func StoragePath(sanitizedName, hashHex string, now time.Time) string {
	return fmt.Sprintf("%s/%s_%s_%s",
		hashHex[:2],
		now.UTC().Format("20060102T150405"),
		hashHex[:8],
		sanitizedName,
	)
}
