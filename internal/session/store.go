package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redline/pkg/models"
)

// DefaultMaxAge is how long a session stays usable without being applied
// or discarded.
const DefaultMaxAge = time.Hour

// Store is an in-memory session table keyed by session id. Operations on
// distinct sessions never block each other; operations on the same session
// are serialized by a per-session lock, since a decision update is a
// read-modify-write over the session's hunks and merged-content cache.
//
// The store is per-process. Deployments needing more than one instance
// must put a shared store in front of it.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	now    func() time.Time
	maxAge time.Duration
}

type entry struct {
	mu      sync.Mutex
	session *EditSession
}

// Option configures a Store.
type Option func(*Store)

// WithClock substitutes the wall clock, for deterministic expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxAge overrides the session expiry threshold.
func WithMaxAge(maxAge time.Duration) Option {
	return func(s *Store) { s.maxAge = maxAge }
}

// NewStore builds an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
		maxAge:  DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a session for the given resource and proposed rewrite.
// Annotated hunks become per-hunk states: unchanged hunks start accepted
// and are not user-actionable, changed hunks start pending. The resource
// version is snapshotted as the session's base version.
func (s *Store) Create(resource models.Resource, proposedContent, summary, creator string, hunks []models.DiffHunk) EditSession {
	states := make([]models.HunkState, len(hunks))
	for i, h := range hunks {
		status := models.StatusPending
		if !h.Kind.Changed() {
			status = models.StatusAccepted
		}
		states[i] = models.HunkState{DiffHunk: h, Status: status}
	}

	sess := &EditSession{
		ID:              uuid.NewString(),
		ResourceID:      resource.ID,
		BaseVersion:     resource.Version,
		Summary:         summary,
		CreatedBy:       creator,
		CreatedAt:       s.now(),
		OriginalContent: resource.Content,
		ProposedContent: proposedContent,
		Hunks:           states,
	}

	s.mu.Lock()
	s.entries[sess.ID] = &entry{session: sess}
	s.mu.Unlock()

	return sess.clone()
}

// Get returns a snapshot of the session. Expired sessions read as not
// found and are dropped on the way out.
func (s *Store) Get(id string) (EditSession, error) {
	e, err := s.lookup(id)
	if err != nil {
		return EditSession{}, err
	}

	e.mu.Lock()
	snap := e.session.clone()
	e.mu.Unlock()
	return snap, nil
}

// SetHunkDecision records a terminal decision for one hunk and recomputes
// the merged-content cache from the full decision set.
func (s *Store) SetHunkDecision(id, hunkID string, status models.DecisionStatus, revisedText *string) (EditSession, error) {
	e, err := s.lookup(id)
	if err != nil {
		return EditSession{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.session.setHunkDecision(hunkID, status, revisedText); err != nil {
		return EditSession{}, err
	}
	return e.session.clone(), nil
}

// PendingHunks lists the changed hunks still awaiting a decision.
func (s *Store) PendingHunks(id string) ([]models.HunkState, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.PendingHunks(), nil
}

// StatusCounts tallies decisions over the session's changed hunks.
func (s *Store) StatusCounts(id string) (models.StatusCounts, error) {
	e, err := s.lookup(id)
	if err != nil {
		return models.StatusCounts{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.StatusCounts(), nil
}

// Discard removes the session and returns its final snapshot.
func (s *Store) Discard(id string) (EditSession, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !ok {
		return EditSession{}, &NotFoundError{ID: id}
	}

	e.mu.Lock()
	snap := e.session.clone()
	e.mu.Unlock()
	return snap, nil
}

// CleanupExpired removes sessions older than the configured max age and
// returns how many were dropped. Housekeeping only; expired sessions are
// already invisible to Get.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if s.expired(e.session.CreatedAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions, expired ones included until
// the next cleanup.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// lookup resolves an id to its entry, expiring it on the spot if the
// session is past its max age. CreatedAt is immutable, so the age check
// needs no entry lock.
func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	if s.expired(e.session.CreatedAt) {
		s.mu.Lock()
		if cur, ok := s.entries[id]; ok && cur == e {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}

	return e, nil
}

func (s *Store) expired(createdAt time.Time) bool {
	return s.now().Sub(createdAt) > s.maxAge
}
