// Package resource defines the contract to the authoritative document store
// and its implementations. The edit engine only ever needs two operations:
// fetch a versioned document and write it back under an optimistic version
// precondition.
package resource

import (
	"context"
	"fmt"

	"github.com/redline/pkg/models"
)

// Store is the minimal get/update contract the edit engine consumes.
type Store interface {
	// Get returns the current state of the document. Missing documents
	// surface as *NotFoundError.
	Get(ctx context.Context, id string) (models.Resource, error)

	// Update writes new content iff the stored version still equals
	// expectedVersion, returning the updated document. A stale expected
	// version surfaces as *VersionConflictError.
	Update(ctx context.Context, id, content string, expectedVersion int64) (models.Resource, error)
}

// NotFoundError indicates the document does not exist in the store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %s not found", e.ID)
}

// VersionConflictError indicates an optimistic-lock failure: the document
// changed after the caller snapshotted Expected.
type VersionConflictError struct {
	ID       string
	Expected int64
	Found    int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("resource %s version mismatch: expected %d, got %d", e.ID, e.Expected, e.Found)
}
