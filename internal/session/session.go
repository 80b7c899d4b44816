// Package session holds short-lived edit review sessions in memory: one
// proposed rewrite of one resource, reviewed hunk by hunk until applied,
// discarded, or expired.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/redline/internal/diff"
	"github.com/redline/pkg/models"
)

// Decision validation errors.
var (
	ErrRevertToPending    = errors.New("hunk decisions cannot revert to pending")
	ErrRevisedTextMissing = errors.New("revised decision requires revised text")
	ErrUnchangedHunk      = errors.New("unchanged hunks are not decidable")
)

// NotFoundError reports a session id with no live session behind it.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("edit session %s not found or expired", e.ID)
}

// HunkNotFoundError reports a hunk id unknown to its session.
type HunkNotFoundError struct {
	SessionID string
	HunkID    string
}

func (e *HunkNotFoundError) Error() string {
	return fmt.Sprintf("hunk %s not found in edit session %s", e.HunkID, e.SessionID)
}

// InvalidStatusError reports a decision status outside the known set.
type InvalidStatusError struct {
	Status models.DecisionStatus
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid decision status %q", string(e.Status))
}

// EditSession is one pending edit awaiting per-hunk review.
//
// Hunks are computed with display truncation off and their ids are pinned
// at creation; they are never recomputed or re-identified for the life of
// the session. BaseVersion snapshots the resource version at creation and
// anchors the optimistic concurrency check at apply time. MergedContent is
// non-nil only while every changed hunk carries a terminal decision.
type EditSession struct {
	ID              string
	ResourceID      string
	BaseVersion     int64
	Summary         string
	CreatedBy       string
	CreatedAt       time.Time
	OriginalContent string
	ProposedContent string
	Hunks           []models.HunkState
	MergedContent   *string
}

// Resolved reports whether no changed hunk is still pending.
func (s *EditSession) Resolved() bool {
	for _, h := range s.Hunks {
		if h.Kind.Changed() && h.Status == models.StatusPending {
			return false
		}
	}
	return true
}

// PendingHunks returns the changed hunks that still await a decision.
func (s *EditSession) PendingHunks() []models.HunkState {
	var pending []models.HunkState
	for _, h := range s.Hunks {
		if h.Kind.Changed() && h.Status == models.StatusPending {
			pending = append(pending, h)
		}
	}
	return pending
}

// StatusCounts tallies decisions over the changed hunks.
func (s *EditSession) StatusCounts() models.StatusCounts {
	var counts models.StatusCounts
	for _, h := range s.Hunks {
		if !h.Kind.Changed() {
			continue
		}
		switch h.Status {
		case models.StatusPending:
			counts.Pending++
		case models.StatusAccepted:
			counts.Accepted++
		case models.StatusRejected:
			counts.Rejected++
		case models.StatusRevised:
			counts.Revised++
		}
	}
	return counts
}

// setHunkDecision moves one hunk to a terminal decision and refreshes the
// merged-content cache. Callers hold the session's lock.
func (s *EditSession) setHunkDecision(hunkID string, status models.DecisionStatus, revisedText *string) error {
	if !status.Valid() {
		return &InvalidStatusError{Status: status}
	}
	if status == models.StatusPending {
		return ErrRevertToPending
	}
	if status == models.StatusRevised && revisedText == nil {
		return ErrRevisedTextMissing
	}

	idx := -1
	for i := range s.Hunks {
		if s.Hunks[i].ID == hunkID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &HunkNotFoundError{SessionID: s.ID, HunkID: hunkID}
	}
	if !s.Hunks[idx].Kind.Changed() {
		return ErrUnchangedHunk
	}

	s.Hunks[idx].Status = status
	if status == models.StatusRevised {
		s.Hunks[idx].RevisedText = revisedText
	} else {
		s.Hunks[idx].RevisedText = nil
	}

	s.recomputeMerged()
	return nil
}

// recomputeMerged rebuilds the cached merged content from the complete
// decision set over the full, untruncated hunks. The cache goes back to
// nil whenever any changed hunk is pending.
func (s *EditSession) recomputeMerged() {
	if !s.Resolved() {
		s.MergedContent = nil
		return
	}

	merged, err := diff.ApplyHunkDecisions(s.Hunks)
	if err != nil {
		// unreachable while the pending check above holds
		s.MergedContent = nil
		return
	}
	s.MergedContent = &merged
}

// clone returns a snapshot safe to hand outside the store's locks.
func (s *EditSession) clone() EditSession {
	snap := *s
	snap.Hunks = append([]models.HunkState(nil), s.Hunks...)
	return snap
}
