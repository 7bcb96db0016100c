package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Price is a monetary value extracted from a short text fragment, together
// with how much we trust the match.
type Price struct {
	Value      float64
	Confidence float64 // [0,1]
	RawText    string  // matched substring
}

const (
	maxEuroPart = 10000
	// MinPriceConfidence is the default acceptance floor for extracted
	// prices. The OCR path lowers it to tolerate recognition noise.
	MinPriceConfidence = 0.5
)

var (
	reCurrency = regexp.MustCompile(`(?i)€|\bEURO?\b`)

	// "12,50", optionally wrapped in a currency marker. German menus almost
	// always use the comma form, so it gets first shot.
	reCommaPrice = regexp.MustCompile(`(?i)(?:€\s*|EURO?\s+)?(\d{1,5}),(\d{2})(?:\s*€|\s*EURO?\b)?`)

	// "12.50", same markers.
	reDotPrice = regexp.MustCompile(`(?i)(?:€\s*|EURO?\s+)?(\d{1,5})\.(\d{2})(?:\s*€|\s*EURO?\b)?`)

	// Whole number with a mandatory currency marker: "12 €". Without the
	// marker a bare integer is far more likely a quantity or a house number.
	reWholePrice = regexp.MustCompile(`(?i)(\d{1,5})\s*(?:€|EURO?\b)`)
)

// ParsePrice attempts the three fixed patterns in priority order over a short
// text fragment. The second return value is false if nothing matched.
func ParsePrice(text string) (Price, bool) {
	if m := reCommaPrice.FindStringSubmatch(text); m != nil {
		return scorePrice(text, m[0], m[1], m[2], 0.95), true
	}
	if m := reDotPrice.FindStringSubmatch(text); m != nil {
		return scorePrice(text, m[0], m[1], m[2], 0.95), true
	}
	if m := reWholePrice.FindStringSubmatch(text); m != nil {
		return scorePrice(text, m[0], m[1], "", 0.7), true
	}
	return Price{}, false
}

func scorePrice(fragment, raw, euroPart, centPart string, confidence float64) Price {
	euros, _ := strconv.Atoi(euroPart)
	cents := 0
	if centPart != "" {
		cents, _ = strconv.Atoi(centPart)
	}

	// Out-of-bound parts keep the match but halve the trust.
	if euros > maxEuroPart || cents > 99 {
		confidence /= 2
	}
	if reCurrency.MatchString(fragment) {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Price{
		Value:      float64(euros) + float64(cents)/100,
		Confidence: confidence,
		RawText:    strings.TrimSpace(raw),
	}
}

// ExtractPrices runs ParsePrice per newline-delimited line and keeps results
// at or above the default confidence floor.
func ExtractPrices(text string) []Price {
	var out []Price
	for _, line := range strings.Split(text, "\n") {
		if p, ok := ParsePrice(line); ok && p.Confidence >= MinPriceConfidence {
			out = append(out, p)
		}
	}
	return out
}

// IsReasonableMenuPrice is a plausibility predicate for callers that want an
// extra filter on top of pattern confidence. Not applied internally.
func IsReasonableMenuPrice(value float64) bool {
	return value >= 0.5 && value <= 1000
}
