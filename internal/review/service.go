// Package review orchestrates the edit lifecycle: create a session from a
// proposed rewrite, collect per-hunk decisions, and apply the merged result
// back to the authoritative store under an optimistic version check.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/redline/internal/diff"
	"github.com/redline/internal/resource"
	"github.com/redline/internal/session"
	"github.com/redline/pkg/models"
)

// Proposer generates a rewrite of a document from a natural-language
// instruction. Implemented by internal/proposer; nil when AI is disabled.
type Proposer interface {
	Propose(ctx context.Context, document, instruction string) (proposed, summary string, err error)
}

// Service wires the session store to the resource store and owns the apply
// protocol.
type Service struct {
	sessions  *session.Store
	resources resource.Store
	proposer  Proposer
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProposer enables the LLM-backed Propose operation.
func WithProposer(p Proposer) Option {
	return func(s *Service) { s.proposer = p }
}

// WithLogger substitutes the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds a Service over the given stores.
func NewService(sessions *session.Store, resources resource.Store, opts ...Option) *Service {
	s := &Service{
		sessions:  sessions,
		resources: resources,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create fetches the resource, diffs it against the proposed rewrite with
// display truncation off, and opens a session with the annotated hunks.
// The resource version is snapshotted as the session's base version.
func (s *Service) Create(ctx context.Context, resourceID, proposedContent, summary, creator string) (session.EditSession, error) {
	doc, err := s.resources.Get(ctx, resourceID)
	if err != nil {
		return session.EditSession{}, err
	}

	hunks := diff.AnnotateHunks(diff.ComputeLineDiff(doc.Content, proposedContent, diff.MaxUnchangedLinesDisplay, false))
	sess := s.sessions.Create(doc, proposedContent, summary, creator, hunks)

	s.logger.Info().
		Str("sessionId", sess.ID).
		Str("resourceId", resourceID).
		Int64("baseVersion", sess.BaseVersion).
		Int("hunks", len(sess.Hunks)).
		Str("creator", creator).
		Msg("edit_session_created")

	return sess, nil
}

// Propose asks the configured LLM for a rewrite and opens a session over
// the result.
func (s *Service) Propose(ctx context.Context, resourceID, instruction, creator string) (session.EditSession, error) {
	if s.proposer == nil {
		return session.EditSession{}, errors.New("rewrite proposer is not configured")
	}

	doc, err := s.resources.Get(ctx, resourceID)
	if err != nil {
		return session.EditSession{}, err
	}

	proposed, summary, err := s.proposer.Propose(ctx, doc.Content, instruction)
	if err != nil {
		return session.EditSession{}, &ProposalError{Err: err}
	}

	return s.Create(ctx, resourceID, proposed, summary, creator)
}

// Get returns a session snapshot.
func (s *Service) Get(id string) (session.EditSession, error) {
	return s.sessions.Get(id)
}

// PendingHunks lists the changed hunks still awaiting a decision.
func (s *Service) PendingHunks(id string) ([]models.HunkState, error) {
	return s.sessions.PendingHunks(id)
}

// SetHunkDecision records one hunk decision and returns the refreshed
// session snapshot.
func (s *Service) SetHunkDecision(id, hunkID string, status models.DecisionStatus, revisedText *string) (session.EditSession, error) {
	sess, err := s.sessions.SetHunkDecision(id, hunkID, status, revisedText)
	if err != nil {
		return session.EditSession{}, err
	}

	s.logger.Info().
		Str("sessionId", id).
		Str("hunkId", hunkID).
		Str("status", string(status)).
		Bool("resolved", sess.Resolved()).
		Msg("hunk_decision_set")

	return sess, nil
}

// Discard removes a session without applying it.
func (s *Service) Discard(id string) (session.EditSession, error) {
	sess, err := s.sessions.Discard(id)
	if err != nil {
		return session.EditSession{}, err
	}

	s.logger.Info().Str("sessionId", id).Msg("edit_session_discarded")
	return sess, nil
}

// Apply writes a fully resolved session back to the resource store.
//
// The base version is checked twice: once up front against a fresh read,
// and again by the store's own optimistic precondition at write time. A
// conflict at either point discards the session, since its decisions were
// made against content that no longer exists. Unresolved hunks abort the
// apply but keep the session. Cancellation between the version check and
// the write also keeps the session, so the caller can retry.
func (s *Service) Apply(ctx context.Context, editID string) (models.Resource, error) {
	sess, err := s.sessions.Get(editID)
	if err != nil {
		return models.Resource{}, err
	}

	current, err := s.resources.Get(ctx, sess.ResourceID)
	if err != nil {
		return models.Resource{}, err
	}

	if current.Version != sess.BaseVersion {
		s.discardConflicted(editID, sess.BaseVersion, current.Version)
		return models.Resource{}, &resource.VersionConflictError{
			ID:       sess.ResourceID,
			Expected: sess.BaseVersion,
			Found:    current.Version,
		}
	}

	if pending := sess.PendingHunks(); len(pending) > 0 {
		ids := make([]string, len(pending))
		for i, h := range pending {
			ids[i] = h.ID
		}
		return models.Resource{}, &UnresolvedHunksError{Count: len(pending), IDs: ids}
	}

	merged, err := s.mergedContent(sess)
	if err != nil {
		return models.Resource{}, err
	}

	updated, err := s.resources.Update(ctx, sess.ResourceID, merged, sess.BaseVersion)
	if err != nil {
		var conflict *resource.VersionConflictError
		if errors.As(err, &conflict) {
			s.discardConflicted(editID, conflict.Expected, conflict.Found)
		}
		return models.Resource{}, err
	}

	if _, err := s.sessions.Discard(editID); err != nil {
		// Already gone; the write succeeded, which is what matters.
		s.logger.Warn().Str("sessionId", editID).Err(err).Msg("apply_discard_failed")
	}

	s.logger.Info().
		Str("sessionId", editID).
		Str("resourceId", updated.ID).
		Int64("version", updated.Version).
		Msg("edit_session_applied")

	return updated, nil
}

// mergedContent prefers the session's cache and otherwise recomputes from
// the full original/proposed pair with truncation off, so display elision
// can never leak into the applied document. The session's pinned hunk ids
// and decisions are re-applied positionally onto the recomputed hunks.
func (s *Service) mergedContent(sess session.EditSession) (string, error) {
	if sess.MergedContent != nil {
		return *sess.MergedContent, nil
	}

	hunks := diff.AnnotateHunks(diff.ComputeLineDiff(sess.OriginalContent, sess.ProposedContent, diff.MaxUnchangedLinesDisplay, false))
	if len(hunks) != len(sess.Hunks) {
		return "", &ContractViolationError{
			SessionID: sess.ID,
			Detail:    fmt.Sprintf("recompute produced %d hunks, session holds %d", len(hunks), len(sess.Hunks)),
		}
	}

	states := make([]models.HunkState, len(hunks))
	for i, h := range hunks {
		h.ID = sess.Hunks[i].ID
		states[i] = models.HunkState{
			DiffHunk:    h,
			Status:      sess.Hunks[i].Status,
			RevisedText: sess.Hunks[i].RevisedText,
		}
	}

	merged, err := diff.ApplyHunkDecisions(states)
	if err != nil {
		return "", fmt.Errorf("merging decisions for session %s: %w", sess.ID, err)
	}
	return merged, nil
}

func (s *Service) discardConflicted(editID string, expected, found int64) {
	if _, err := s.sessions.Discard(editID); err != nil {
		s.logger.Warn().Str("sessionId", editID).Err(err).Msg("conflict_discard_failed")
	}

	s.logger.Warn().
		Str("sessionId", editID).
		Int64("expected", expected).
		Int64("found", found).
		Msg("apply_version_conflict")
}
