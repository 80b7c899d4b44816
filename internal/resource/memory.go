package resource

import (
	"context"
	"sync"

	"github.com/redline/pkg/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and the
// development server.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]models.Resource
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]models.Resource)}
}

// Seed inserts or replaces a document at version 1 and returns it.
func (s *MemoryStore) Seed(id, content string) models.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := models.Resource{ID: id, Version: 1, Content: content}
	s.docs[id] = doc
	return doc
}

// SetVersion forces a document's version, simulating an external writer.
func (s *MemoryStore) SetVersion(id string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[id]; ok {
		doc.Version = version
		s.docs[id] = doc
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return models.Resource{}, &NotFoundError{ID: id}
	}
	return doc, nil
}

func (s *MemoryStore) Update(ctx context.Context, id, content string, expectedVersion int64) (models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return models.Resource{}, &NotFoundError{ID: id}
	}
	if doc.Version != expectedVersion {
		return models.Resource{}, &VersionConflictError{ID: id, Expected: expectedVersion, Found: doc.Version}
	}

	doc.Content = content
	doc.Version++
	s.docs[id] = doc
	return doc, nil
}
