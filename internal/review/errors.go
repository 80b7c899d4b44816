package review

import (
	"fmt"
	"strings"
)

// UnresolvedHunksError reports an apply attempted while changed hunks are
// still pending. The session survives so the caller can keep resolving.
type UnresolvedHunksError struct {
	Count int
	IDs   []string
}

func (e *UnresolvedHunksError) Error() string {
	return fmt.Sprintf("%d hunks still pending: %s", e.Count, strings.Join(e.IDs, ", "))
}

// ProposalError reports a failed LLM rewrite generation. The upstream
// model error is preserved for unwrapping.
type ProposalError struct {
	Err error
}

func (e *ProposalError) Error() string {
	return fmt.Sprintf("generating rewrite proposal: %v", e.Err)
}

func (e *ProposalError) Unwrap() error { return e.Err }

// ContractViolationError reports an internal invariant break in the apply
// path, such as the defensive recompute producing a different hunk count
// than the session pinned at creation. Fatal; never retried.
type ContractViolationError struct {
	SessionID string
	Detail    string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("edit session %s: %s", e.SessionID, e.Detail)
}
