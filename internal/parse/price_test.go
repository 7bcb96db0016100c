package parse

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParsePrice_CommaFormWithCurrency(t *testing.T) {
	p, ok := ParsePrice("8,50 €")
	if !ok {
		t.Fatal("expected a match")
	}
	if !almostEqual(p.Value, 8.5) {
		t.Errorf("value = %v, want 8.5", p.Value)
	}
	// 0.95 base + 0.1 currency bonus, capped at 1.0
	if !almostEqual(p.Confidence, 1.0) {
		t.Errorf("confidence = %v, want 1.0", p.Confidence)
	}
}

func TestParsePrice_DotFormNoCurrency(t *testing.T) {
	p, ok := ParsePrice("8.50")
	if !ok {
		t.Fatal("expected a match")
	}
	if !almostEqual(p.Value, 8.5) {
		t.Errorf("value = %v, want 8.5", p.Value)
	}
	if !almostEqual(p.Confidence, 0.95) {
		t.Errorf("confidence = %v, want 0.95", p.Confidence)
	}
}

func TestParsePrice_WholeNumberNeedsCurrency(t *testing.T) {
	p, ok := ParsePrice("12 €")
	if !ok {
		t.Fatal("expected a match")
	}
	if !almostEqual(p.Value, 12) {
		t.Errorf("value = %v, want 12", p.Value)
	}
	// 0.7 base + 0.1 currency bonus
	if !almostEqual(p.Confidence, 0.8) {
		t.Errorf("confidence = %v, want 0.8", p.Confidence)
	}

	if _, ok := ParsePrice("12"); ok {
		t.Error("bare integer without currency must not match")
	}
}

func TestParsePrice_NoMatch(t *testing.T) {
	for _, text := range []string{"no price here", "", "Spaghetti Bolognese"} {
		if _, ok := ParsePrice(text); ok {
			t.Errorf("ParsePrice(%q) matched unexpectedly", text)
		}
	}
}

func TestParsePrice_OutOfBoundHalvesConfidence(t *testing.T) {
	p, ok := ParsePrice("99999,00")
	if !ok {
		t.Fatal("expected a match")
	}
	if !almostEqual(p.Confidence, 0.95/2) {
		t.Errorf("confidence = %v, want %v", p.Confidence, 0.95/2)
	}
}

func TestExtractPrices_FiltersByConfidence(t *testing.T) {
	text := "Schnitzel 12,50 €\nkein Preis\nPommes 3.80"
	prices := ExtractPrices(text)
	if len(prices) != 2 {
		t.Fatalf("got %d prices, want 2: %+v", len(prices), prices)
	}
	if !almostEqual(prices[0].Value, 12.5) || !almostEqual(prices[1].Value, 3.8) {
		t.Errorf("values = %v, %v", prices[0].Value, prices[1].Value)
	}
}

func TestIsReasonableMenuPrice(t *testing.T) {
	tests := []struct {
		value float64
		want  bool
	}{
		{0.4, false},
		{0.5, true},
		{8.5, true},
		{1000, true},
		{1000.01, false},
	}
	for _, tt := range tests {
		if got := IsReasonableMenuPrice(tt.value); got != tt.want {
			t.Errorf("IsReasonableMenuPrice(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
