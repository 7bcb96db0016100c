package extract

import (
	"strings"

	"github.com/lukasbrandt/speisekarten-tracker/internal/parse"
)

// Scanner walks normalized menu lines in order and builds candidate items.
// It keeps two pieces of memory: the current category (set by section
// headers) and the immediately preceding description-looking line. Any line
// that is neither a header, a priced item nor a description clears the
// pending description so stale text cannot attach to a later item.
type Scanner struct {
	minConfidence float64
	category      string
	pendingDesc   string
	items         []CandidateItem
}

// NewScanner returns a scanner accepting prices at or above minConfidence.
func NewScanner(minConfidence float64) *Scanner {
	return &Scanner{minConfidence: minConfidence}
}

// Feed consumes one already-normalized line attributed to the given page.
func (s *Scanner) Feed(line string, page int) {
	if parse.IsCategoryHeader(line) {
		s.category = strings.TrimSuffix(line, ":")
		s.pendingDesc = ""
		return
	}

	if price, ok := parse.ParsePrice(line); ok && price.Confidence >= s.minConfidence {
		name := parse.ExtractDishName(line)
		if name == "" {
			// A bare price with no dish text is not an actionable entry.
			s.pendingDesc = ""
			return
		}
		s.items = append(s.items, CandidateItem{
			Name:        name,
			SearchName:  parse.ToSearchForm(name),
			Description: s.pendingDesc,
			Category:    s.category,
			RawText:     line,
			Price:       price.Value,
			Confidence:  price.Confidence,
			Page:        page,
		})
		s.pendingDesc = ""
		return
	}

	if parse.LooksLikeDescription(line) {
		s.pendingDesc = line
		return
	}
	s.pendingDesc = ""
}

// FeedText splits a raw text blob into lines and feeds them all.
func (s *Scanner) FeedText(text string, page int) {
	for _, line := range parse.SplitIntoLines(text) {
		s.Feed(line, page)
	}
}

// Items returns the candidates collected so far.
func (s *Scanner) Items() []CandidateItem {
	return s.items
}
