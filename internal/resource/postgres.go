package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redline/pkg/models"
)

// PostgresStore keeps documents in a postgres table:
//
//	CREATE TABLE IF NOT EXISTS documents (
//	    id         TEXT PRIMARY KEY,
//	    version    BIGINT NOT NULL DEFAULT 1,
//	    content    TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
// Update is a single version-guarded UPDATE; a zero row count is
// disambiguated into NotFound vs VersionConflict by a follow-up read.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and ensures the documents table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			version    BIGINT NOT NULL DEFAULT 1,
			content    TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Seed inserts a document at version 1, replacing any existing row.
func (s *PostgresStore) Seed(ctx context.Context, id, content string) (models.Resource, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, version, content)
		VALUES ($1, 1, $2)
		ON CONFLICT (id) DO UPDATE SET version = 1, content = $2, updated_at = now()`,
		id, content)
	if err != nil {
		return models.Resource{}, fmt.Errorf("seeding document %s: %w", id, err)
	}
	return models.Resource{ID: id, Version: 1, Content: content}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Resource, error) {
	doc := models.Resource{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT version, content FROM documents WHERE id = $1`, id).
		Scan(&doc.Version, &doc.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Resource{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return models.Resource{}, fmt.Errorf("fetching document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) Update(ctx context.Context, id, content string, expectedVersion int64) (models.Resource, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET content = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3`,
		id, content, expectedVersion)
	if err != nil {
		return models.Resource{}, fmt.Errorf("updating document %s: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone else bumped the version.
		var found int64
		err := s.pool.QueryRow(ctx,
			`SELECT version FROM documents WHERE id = $1`, id).Scan(&found)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Resource{}, &NotFoundError{ID: id}
		}
		if err != nil {
			return models.Resource{}, fmt.Errorf("reading document %s after update conflict: %w", id, err)
		}
		return models.Resource{}, &VersionConflictError{ID: id, Expected: expectedVersion, Found: found}
	}

	return models.Resource{ID: id, Version: expectedVersion + 1, Content: content}, nil
}
