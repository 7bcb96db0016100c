package extract

// CandidateItem is one potential menu entry found while scanning extracted
// text. Candidates become staged ParsedItems once the orchestrator persists
// them.
type CandidateItem struct {
	Name        string
	SearchName  string
	Description string
	Category    string
	RawText     string
	Price       float64
	Confidence  float64
	Page        int
}

// Result is what an extraction pass (native or OCR) hands back to the
// orchestrator.
type Result struct {
	Items        []CandidateItem
	IsTextNative bool
	TotalPages   int
	Metadata     map[string]string
	Warnings     []string
}
