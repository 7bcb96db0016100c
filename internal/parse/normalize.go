package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
)

var (
	reWhitespaceRun = regexp.MustCompile(`\s+`)
	reLineBreaks    = regexp.MustCompile(`[\r\n]+`)

	// Soft hyphen and zero-width marks sneak in from PDF text layers and
	// break string comparison without being visible anywhere.
	invisibleReplacer = strings.NewReplacer(
		"\u00ad", "", // soft hyphen
		"\u200b", "", // zero-width space
		"\u200c", "", // zero-width non-joiner
		"\u200d", "", // zero-width joiner
		"\ufeff", "", // BOM
	)

	reLeadingEnum   = regexp.MustCompile(`^\s*\d{1,3}\s*[.)]\s*`)
	reLeadingBullet = regexp.MustCompile(`^\s*[-–—•*·]\s*`)

	// Trailing price substring, decimal form with or without currency
	// marker, or whole number with marker.
	reTrailingPrice = regexp.MustCompile(`(?i)\s*(?:€|EURO?)?\s*\d{1,5}(?:[.,]\d{2})\s*(?:€|EURO?)?\s*$|\s*\d{1,5}\s*(?:€|EURO?)\s*$`)
)

// Normalize trims, collapses internal whitespace runs, strips invisible
// marks and converts to Unicode composed form. Accented text compares
// stably afterwards regardless of how the source encoded it.
func Normalize(text string) string {
	text = invisibleReplacer.Replace(text)
	text = norm.NFC.String(text)
	text = reWhitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ToSearchForm is the catalog merge key form: normalized and lowercased.
func ToSearchForm(text string) string {
	return strings.ToLower(Normalize(text))
}

// categoryHeaderSet holds the search forms of the closed header list.
var categoryHeaderSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(constants.CategoryHeaders))
	for _, h := range constants.CategoryHeaders {
		set[ToSearchForm(h)] = struct{}{}
	}
	return set
}()

// IsCategoryHeader reports whether a line is one of the fixed German
// menu-section nouns, compared case- and accent-insensitively. A trailing
// colon ("Getränke:") is tolerated.
func IsCategoryHeader(line string) bool {
	key := strings.TrimSuffix(ToSearchForm(line), ":")
	_, ok := categoryHeaderSet[strings.TrimSpace(key)]
	return ok
}

// ExtractDishName strips a leading enumeration prefix ("12. ", "3) "), a
// leading bullet marker, and a trailing price substring from a line.
func ExtractDishName(line string) string {
	line = Normalize(line)
	line = reLeadingEnum.ReplaceAllString(line, "")
	line = reLeadingBullet.ReplaceAllString(line, "")
	line = reTrailingPrice.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// LooksLikeDescription reports whether a line reads like free-text detail for
// the item above it: long enough, not numeral-prefixed, and free of any
// embedded price pattern.
func LooksLikeDescription(line string) bool {
	line = Normalize(line)
	if utf8.RuneCountInString(line) <= 20 {
		return false
	}
	if line[0] >= '0' && line[0] <= '9' {
		return false
	}
	if _, ok := ParsePrice(line); ok {
		return false
	}
	return true
}

// SplitIntoLines splits on line-break runs, normalizes each line and drops
// empties.
func SplitIntoLines(text string) []string {
	var out []string
	for _, raw := range reLineBreaks.Split(text, -1) {
		if line := Normalize(raw); line != "" {
			out = append(out, line)
		}
	}
	return out
}
