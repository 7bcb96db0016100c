package validation

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
)

func pdfBytes(body string) []byte {
	return []byte("%PDF-1.4\n" + body + "\n%%EOF\n")
}

func TestValidateUpload_Accepts(t *testing.T) {
	res := ValidateUpload(pdfBytes("1 0 obj"), "karte.pdf", "application/pdf")
	if !res.OK {
		t.Fatalf("expected valid upload, got %v", res.Err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestValidateUpload_Rejects(t *testing.T) {
	huge := append([]byte("%PDF"), bytes.Repeat([]byte{0}, constants.MaxUploadBytes)...)

	tests := []struct {
		name     string
		data     []byte
		filename string
		mime     string
	}{
		{"empty bytes", nil, "karte.pdf", ""},
		{"oversized", huge, "karte.pdf", ""},
		{"wrong extension", pdfBytes("x"), "karte.docx", ""},
		{"wrong mime", pdfBytes("x"), "karte.pdf", "image/png"},
		{"not a pdf", []byte("hello world"), "karte.pdf", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateUpload(tt.data, tt.filename, tt.mime)
			if res.OK {
				t.Fatal("expected rejection")
			}
			if res.Err == nil {
				t.Fatal("rejection without error")
			}
		})
	}
}

func TestValidateUpload_MissingEOFWarns(t *testing.T) {
	data := []byte("%PDF-1.4\nstream without trailer")
	res := ValidateUpload(data, "karte.pdf", "")
	if !res.OK {
		t.Fatalf("missing EOF must not reject: %v", res.Err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "EOF") {
		t.Fatalf("expected corruption warning, got %v", res.Warnings)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"karte.pdf", "karte.pdf"},
		{"../../etc/passwd.pdf", "passwd.pdf"},
		{`C:\upload\Speise Karte (neu).pdf`, "Speise_Karte__neu_.pdf"},
		{"menü sommer.pdf", "men__sommer.pdf"},
	}
	for _, tt := range tests {
		got := SanitizeFilename(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// idempotent
		if again := SanitizeFilename(got); again != got {
			t.Errorf("not idempotent: %q -> %q", got, again)
		}
	}
}

func TestStoragePath(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	hash := "ab12cd34ef567890"
	got := StoragePath("karte.pdf", hash, now)
	want := "ab/20250314T092653_ab12cd34_karte.pdf"
	if got != want {
		t.Fatalf("StoragePath = %q, want %q", got, want)
	}
}
