package models

// Edit review domain models

// HunkKind classifies a span of a line-level diff.
type HunkKind string

const (
	HunkUnchanged HunkKind = "unchanged"
	HunkAdded     HunkKind = "added"
	HunkRemoved   HunkKind = "removed"
	HunkModified  HunkKind = "modified"
)

// Valid reports whether k is one of the four known kinds.
func (k HunkKind) Valid() bool {
	switch k {
	case HunkUnchanged, HunkAdded, HunkRemoved, HunkModified:
		return true
	}
	return false
}

// Changed reports whether hunks of this kind require a user decision.
func (k HunkKind) Changed() bool {
	return k != HunkUnchanged
}

// DecisionStatus is the per-hunk review decision.
type DecisionStatus string

const (
	StatusPending  DecisionStatus = "pending"
	StatusAccepted DecisionStatus = "accepted"
	StatusRejected DecisionStatus = "rejected"
	StatusRevised  DecisionStatus = "revised"
)

// Valid reports whether s is one of the four known statuses.
func (s DecisionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusRevised:
		return true
	}
	return false
}

// Resolved reports whether s is a terminal decision.
func (s DecisionStatus) Resolved() bool {
	return s.Valid() && s != StatusPending
}

// DiffHunk is a single span of a line-level diff.
//
// Original and Proposed carry their exact line terminators so that
// concatenating either field across an ordered hunk list reproduces the
// corresponding document byte for byte. Line ranges are 1-based and nil on
// the side a hunk does not touch: added hunks have no original range,
// removed hunks no proposed range. OrigLines and NewLines are the true
// line counts used for range math; they never derive from display text.
type DiffHunk struct {
	ID        string   `json:"id"`
	Kind      HunkKind `json:"kind"`
	Original  string   `json:"original"`
	Proposed  string   `json:"proposed"`
	OrigStart *int     `json:"origStart"`
	OrigEnd   *int     `json:"origEnd"`
	NewStart  *int     `json:"newStart"`
	NewEnd    *int     `json:"newEnd"`
	OrigLines int      `json:"-"`
	NewLines  int      `json:"-"`
}

// HunkDecision is the user's verdict on a single hunk.
type HunkDecision struct {
	Status      DecisionStatus `json:"status"`
	RevisedText *string        `json:"revisedText,omitempty"`
}

// HunkState fuses a DiffHunk with its decision inside an edit session.
type HunkState struct {
	DiffHunk
	Status      DecisionStatus `json:"status"`
	RevisedText *string        `json:"revisedText"`
}

// Decision extracts the decision part of the state.
func (h HunkState) Decision() HunkDecision {
	return HunkDecision{Status: h.Status, RevisedText: h.RevisedText}
}

// StatusCounts tallies decisions over the changed hunks of a session.
// Unchanged hunks are never counted.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Revised  int `json:"revised"`
}

// Total returns the number of changed hunks.
func (c StatusCounts) Total() int {
	return c.Pending + c.Accepted + c.Rejected + c.Revised
}

// Resource is a versioned document in the authoritative store.
type Resource struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Content string `json:"content"`
}
