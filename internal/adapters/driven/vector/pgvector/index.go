// Package pgvector provides a VectorIndex backed by PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// TableName is the table holding chunk vectors.
const TableName = "sercha_chunk_vectors"

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores chunk vectors in Postgres and searches them with the
// cosine distance operator (<=>).
type Index struct {
	pool       *pgxpool.Pool
	dimensions int
}

// New connects to Postgres, creates the extension and table if needed and
// returns the index. dimensions fixes the vector column size.
func New(ctx context.Context, dsn string, dimensions int) (*Index, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: pgvector dsn is required", domain.ErrInvalidInput)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: pgvector needs a positive dimension count", domain.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	idx := &Index{pool: pool, dimensions: dimensions}
	if err := idx.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS %[1]s (
			chunk_id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			workspace_id TEXT NOT NULL,
			workspace_path TEXT NOT NULL,
			embedding vector(%[2]d) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_file ON %[1]s(file_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_workspace_path ON %[1]s(workspace_path);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING hnsw (embedding vector_cosine_ops);
	`, TableName, i.dimensions)

	if _, err := i.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating vector table: %w", err)
	}

	var existing int
	err := i.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'
	`, TableName).Scan(&existing)
	if err != nil {
		return fmt.Errorf("reading vector dimensions: %w", err)
	}
	if existing > 0 && existing != i.dimensions {
		return fmt.Errorf("%w: table has %d dimensions, configured %d",
			domain.ErrDimensionMismatch, existing, i.dimensions)
	}
	return nil
}

// Upsert inserts or replaces vectors by chunk ID in one batch.
func (i *Index) Upsert(ctx context.Context, records ...driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, file_id, workspace_id, workspace_path, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chunk_id) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			workspace_id = EXCLUDED.workspace_id,
			workspace_path = EXCLUDED.workspace_path,
			embedding = EXCLUDED.embedding
	`, TableName)

	for _, r := range records {
		if r.ChunkID == "" || len(r.Embedding) == 0 {
			return fmt.Errorf("%w: vector record needs a chunk id and embedding", domain.ErrInvalidInput)
		}
		if len(r.Embedding) != i.dimensions {
			return fmt.Errorf("%w: %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, r.ChunkID, len(r.Embedding), i.dimensions)
		}
		batch.Queue(query, r.ChunkID, r.FileID, r.WorkspaceID, r.WorkspacePath, pgvector.NewVector(r.Embedding))
	}

	if err := i.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving vectors: %w", err)
	}
	return nil
}

// DeleteWhere removes every vector matching the filter.
func (i *Index) DeleteWhere(ctx context.Context, filter driven.VectorFilter) (int, error) {
	if filter.IsEmpty() {
		return 0, fmt.Errorf("%w: empty vector filter", domain.ErrInvalidInput)
	}

	where, args := whereClause(&filter, 1)
	tag, err := i.pool.Exec(ctx, "DELETE FROM "+TableName+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting vectors: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Search returns up to k hits ordered by ascending cosine distance.
func (i *Index) Search(ctx context.Context, query []float32, k int, filter *driven.VectorFilter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != i.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), i.dimensions)
	}

	where, args := whereClause(filter, 3)
	sql := fmt.Sprintf(`
		SELECT chunk_id, file_id, workspace_path, embedding <=> $1 AS distance
		FROM %s%s
		ORDER BY embedding <=> $1, chunk_id
		LIMIT $2
	`, TableName, where)

	rows, err := i.pool.Query(ctx, sql, append([]any{pgvector.NewVector(query), k}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		if err := rows.Scan(&hit.ChunkID, &hit.FileID, &hit.WorkspacePath, &hit.Distance); err != nil {
			return nil, fmt.Errorf("scanning vector hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector hits: %w", err)
	}
	return hits, nil
}

// Count returns the number of stored vectors.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (i *Index) Close() error {
	if i.pool != nil {
		i.pool.Close()
	}
	return nil
}

// whereClause builds a WHERE clause with positional parameters starting
// at $first.
func whereClause(filter *driven.VectorFilter, first int) (string, []any) {
	if filter == nil || filter.IsEmpty() {
		return "", nil
	}

	var conds []string
	var args []any
	add := func(column, value string) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, first+len(args)-1))
	}
	if filter.FileID != "" {
		add("file_id", filter.FileID)
	}
	if filter.WorkspaceID != "" {
		add("workspace_id", filter.WorkspaceID)
	}
	if filter.WorkspacePath != "" {
		add("workspace_path", filter.WorkspacePath)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
