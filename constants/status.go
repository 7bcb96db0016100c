package constants

// BatchStatus is the canonical status for rows in menu_batches.
type BatchStatus string

// Stable values (store these exact strings in DB).
const (
	BatchStatusUploaded        BatchStatus = "UPLOADED"
	BatchStatusParsing         BatchStatus = "PARSING"
	BatchStatusParsed          BatchStatus = "PARSED"
	BatchStatusParseFailed     BatchStatus = "PARSE_FAILED"
	BatchStatusChangesProposed BatchStatus = "CHANGES_PROPOSED"
	BatchStatusApproved        BatchStatus = "APPROVED"
	BatchStatusPublishing      BatchStatus = "PUBLISHING"
	BatchStatusPublished       BatchStatus = "PUBLISHED"
	BatchStatusRejected        BatchStatus = "REJECTED"
)

// BatchStatusDuplicate is a short-circuit result for re-uploads of known
// bytes. It is surfaced to callers but never stored on a batch row.
const BatchStatusDuplicate BatchStatus = "DUPLICATE"

// batchTransitions is the single source of truth for legal status changes.
// Operations must consult CanTransition instead of deciding on their own.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusUploaded:        {BatchStatusParsing},
	BatchStatusParsing:         {BatchStatusParsed, BatchStatusParseFailed},
	BatchStatusParsed:          {BatchStatusChangesProposed, BatchStatusRejected},
	BatchStatusParseFailed:     {},
	BatchStatusChangesProposed: {BatchStatusChangesProposed, BatchStatusApproved, BatchStatusPublishing, BatchStatusRejected},
	BatchStatusApproved:        {BatchStatusPublishing},
	BatchStatusPublishing:      {BatchStatusPublished, BatchStatusChangesProposed},
	BatchStatusPublished:       {},
	BatchStatusRejected:        {},
}

// CanTransition reports whether moving a batch from one status to the other
// is legal.
func CanTransition(from, to BatchStatus) bool {
	for _, next := range batchTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a batch in this status can never move again.
func IsTerminal(s BatchStatus) bool {
	return len(batchTransitions[s]) == 0
}

// ReviewAction is the reviewer's decision on a single parsed item.
type ReviewAction string

const (
	ActionPending ReviewAction = "PENDING"
	ActionAccept  ReviewAction = "ACCEPT"
	ActionEdit    ReviewAction = "EDIT"
	ActionReject  ReviewAction = "REJECT"
)

// IsValidAction reports whether a is a known review action.
func IsValidAction(a ReviewAction) bool {
	switch a {
	case ActionPending, ActionAccept, ActionEdit, ActionReject:
		return true
	}
	return false
}
