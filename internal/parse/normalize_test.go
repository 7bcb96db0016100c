package parse

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"trims and collapses", "  Wiener   Schnitzel \t mit Pommes  ", "Wiener Schnitzel mit Pommes"},
		{"strips soft hyphen", "Zwie\u00adbel", "Zwiebel"},
		{"strips zero width", "Kar\u200btoffel", "Kartoffel"},
		{"composes decomposed umlaut", "Getränke", "Getränke"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToSearchForm_StableAcrossEncodings(t *testing.T) {
	composed := "Getränke"
	decomposed := norm.NFD.String(composed)
	if ToSearchForm(composed) != ToSearchForm(decomposed) {
		t.Fatalf("search forms differ: %q vs %q", ToSearchForm(composed), ToSearchForm(decomposed))
	}
}

func TestIsCategoryHeader_CaseAndAccentInsensitive(t *testing.T) {
	for _, line := range []string{"Getränke", "getränke", "GETRÄNKE", "Getränke:", norm.NFD.String("Getränke")} {
		if !IsCategoryHeader(line) {
			t.Errorf("IsCategoryHeader(%q) = false, want true", line)
		}
	}
	for _, line := range []string{"Spaghetti", "Getränkekarte des Hauses", ""} {
		if IsCategoryHeader(line) {
			t.Errorf("IsCategoryHeader(%q) = true, want false", line)
		}
	}
}

func TestExtractDishName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12. Spaghetti Bolognese 8,50 €", "Spaghetti Bolognese"},
		{"3) Wiener Schnitzel 14.90", "Wiener Schnitzel"},
		{"- Tomatensuppe 4,20", "Tomatensuppe"},
		{"• Apfelschorle 3 €", "Apfelschorle"},
		{"Pizza Margherita", "Pizza Margherita"},
	}
	for _, tt := range tests {
		if got := ExtractDishName(tt.in); got != tt.want {
			t.Errorf("ExtractDishName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLooksLikeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"mit frischen Tomaten, Basilikum und Parmesan", true},
		{"kurz", false},
		{"123 mit frischen Tomaten und Basilikum", false},
		{"hausgemachte Pasta für nur 9,50 € täglich", false},
	}
	for _, tt := range tests {
		if got := LooksLikeDescription(tt.in); got != tt.want {
			t.Errorf("LooksLikeDescription(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitIntoLines(t *testing.T) {
	got := SplitIntoLines("Vorspeisen\r\n\r\n  Bruschetta   4,50\n\n\nGetränke\n")
	want := []string{"Vorspeisen", "Bruschetta 4,50", "Getränke"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
