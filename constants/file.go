package constants

import "strings"

// MaxUploadBytes is the hard size cap for an uploaded menu document.
const MaxUploadBytes = 50 << 20 // 50 MB

// PDFMagic is the fixed signature every PDF byte stream starts with.
var PDFMagic = []byte("%PDF")

// PDFEOFMarker is the trailing end-of-file marker. Its absence is a
// corruption warning, not a rejection — parsing may still succeed.
var PDFEOFMarker = []byte("%%EOF")

// PDFMimeType is the only declared MIME type accepted for uploads.
const PDFMimeType = "application/pdf"

// AllowedExtensions holds the accepted file extensions for menu uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt checks if a normalized extension is in the allowed set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[ext]
	return ok
}
