package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline/internal/resource"
	"github.com/redline/internal/session"
	"github.com/redline/pkg/models"
)

const (
	docOriginal = "line1\nline2\nline3\n"
	docProposed = "line1\nCHANGED\nline3\n"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *resource.MemoryStore) {
	t.Helper()
	resources := resource.NewMemoryStore()
	resources.Seed("doc-1", docOriginal)
	return NewService(session.NewStore(), resources, opts...), resources
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Create(context.Background(), "doc-1", docProposed, "rewrite line2", "alice")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", sess.ResourceID)
	assert.Equal(t, int64(1), sess.BaseVersion)
	require.Len(t, sess.Hunks, 3)
	assert.Equal(t, models.HunkUnchanged, sess.Hunks[0].Kind)
	assert.Equal(t, models.HunkModified, sess.Hunks[1].Kind)
	assert.Equal(t, models.HunkUnchanged, sess.Hunks[2].Kind)
}

func TestCreateMissingResource(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "missing", docProposed, "", "alice")
	var notFound *resource.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestApply(t *testing.T) {
	svc, resources := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)

	_, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusAccepted, nil)
	require.NoError(t, err)

	updated, err := svc.Apply(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, docProposed, updated.Content)

	stored, err := resources.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	_, err = svc.Get(sess.ID)
	var notFound *session.NotFoundError
	assert.ErrorAs(t, err, &notFound, "session discarded after successful apply")
}

func TestApplyRejectedKeepsOriginal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)

	_, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusRejected, nil)
	require.NoError(t, err)

	updated, err := svc.Apply(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, docOriginal, updated.Content)
}

func TestApplyVersionConflict(t *testing.T) {
	resources := resource.NewMemoryStore()
	resources.Seed("doc-1", docOriginal)
	resources.SetVersion("doc-1", 3)
	svc := NewService(session.NewStore(), resources)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)
	require.Equal(t, int64(3), sess.BaseVersion)

	_, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusAccepted, nil)
	require.NoError(t, err)

	// External writer advances the resource behind the session's back.
	resources.SetVersion("doc-1", 4)

	_, err = svc.Apply(ctx, sess.ID)
	var conflict *resource.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(3), conflict.Expected)
	assert.Equal(t, int64(4), conflict.Found)

	_, err = svc.Get(sess.ID)
	var notFound *session.NotFoundError
	assert.ErrorAs(t, err, &notFound, "conflicted session is discarded")
}

func TestApplyUnresolvedHunksKeepsSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)

	_, err = svc.Apply(ctx, sess.ID)
	var unresolved *UnresolvedHunksError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, 1, unresolved.Count)
	assert.Equal(t, []string{"h2"}, unresolved.IDs)

	_, err = svc.Get(sess.ID)
	assert.NoError(t, err, "session survives an unresolved apply")
}

func TestApplyMissingSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Apply(context.Background(), "nope")
	var notFound *session.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

// failingStore delegates reads to the memory store but fails every write.
type failingStore struct {
	*resource.MemoryStore
	updateErr error
}

func (s *failingStore) Update(ctx context.Context, id, content string, expectedVersion int64) (models.Resource, error) {
	return models.Resource{}, s.updateErr
}

func TestApplyWriteLayerConflictDiscards(t *testing.T) {
	mem := resource.NewMemoryStore()
	mem.Seed("doc-1", docOriginal)
	store := &failingStore{
		MemoryStore: mem,
		updateErr:   &resource.VersionConflictError{ID: "doc-1", Expected: 1, Found: 2},
	}
	svc := NewService(session.NewStore(), store)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)
	_, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusAccepted, nil)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, sess.ID)
	var conflict *resource.VersionConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = svc.Get(sess.ID)
	var notFound *session.NotFoundError
	assert.ErrorAs(t, err, &notFound, "write-layer conflict discards the session")
}

func TestApplyCancelledWriteKeepsSession(t *testing.T) {
	mem := resource.NewMemoryStore()
	mem.Seed("doc-1", docOriginal)
	store := &failingStore{MemoryStore: mem, updateErr: context.Canceled}
	svc := NewService(session.NewStore(), store)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)
	_, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusAccepted, nil)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, sess.ID)
	require.ErrorIs(t, err, context.Canceled)

	_, err = svc.Get(sess.ID)
	assert.NoError(t, err, "cancellation mid-apply leaves the session intact for retry")
}

func TestMergedContentDefensiveRecompute(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)
	sess, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusAccepted, nil)
	require.NoError(t, err)
	require.NotNil(t, sess.MergedContent)

	// Drop the cache on the snapshot to force the recompute path.
	sess.MergedContent = nil
	merged, err := svc.mergedContent(sess)
	require.NoError(t, err)
	assert.Equal(t, docProposed, merged)
}

func TestMergedContentRecomputeMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "doc-1", docProposed, "", "alice")
	require.NoError(t, err)
	sess, err = svc.SetHunkDecision(sess.ID, "h2", models.StatusAccepted, nil)
	require.NoError(t, err)

	sess.MergedContent = nil
	sess.Hunks = sess.Hunks[:2] // desync the pinned hunks

	_, err = svc.mergedContent(sess)
	var violation *ContractViolationError
	assert.ErrorAs(t, err, &violation)
}

type fakeProposer struct {
	proposed string
	summary  string
	err      error

	gotDocument    string
	gotInstruction string
}

func (p *fakeProposer) Propose(ctx context.Context, document, instruction string) (string, string, error) {
	p.gotDocument = document
	p.gotInstruction = instruction
	return p.proposed, p.summary, p.err
}

func TestPropose(t *testing.T) {
	fake := &fakeProposer{proposed: docProposed, summary: "change line2"}
	svc, _ := newTestService(t, WithProposer(fake))

	sess, err := svc.Propose(context.Background(), "doc-1", "make it better", "alice")
	require.NoError(t, err)

	assert.Equal(t, docOriginal, fake.gotDocument)
	assert.Equal(t, "make it better", fake.gotInstruction)
	assert.Equal(t, docProposed, sess.ProposedContent)
	assert.Equal(t, "change line2", sess.Summary)
}

func TestProposeWithoutProposer(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Propose(context.Background(), "doc-1", "anything", "alice")
	assert.Error(t, err)
}

func TestProposeProposerFailure(t *testing.T) {
	fake := &fakeProposer{err: errors.New("model unavailable")}
	svc, _ := newTestService(t, WithProposer(fake))

	_, err := svc.Propose(context.Background(), "doc-1", "anything", "alice")
	assert.ErrorContains(t, err, "model unavailable")
}
