package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex over the chunk_vectors table.
// Search scans candidate rows and ranks them by cosine distance in Go,
// which is adequate for single-workspace corpora.
type vectorIndex struct {
	store      *Store
	dimensions int
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert inserts or replaces vectors by chunk ID.
func (v *vectorIndex) Upsert(ctx context.Context, records ...driven.VectorRecord) error {
	db, err := v.store.conn()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := v.validate(r); err != nil {
			return err
		}
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunk_vectors (chunk_id, file_id, workspace_id, workspace_path, dimensions, embedding)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				file_id = excluded.file_id,
				workspace_id = excluded.workspace_id,
				workspace_path = excluded.workspace_path,
				dimensions = excluded.dimensions,
				embedding = excluded.embedding
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.ChunkID, r.FileID, r.WorkspaceID, r.WorkspacePath,
				len(r.Embedding), float32SliceToBytes(r.Embedding)); err != nil {
				return fmt.Errorf("saving vector %s: %w", r.ChunkID, err)
			}
		}
		return nil
	})
}

// DeleteWhere removes every vector matching the filter.
func (v *vectorIndex) DeleteWhere(ctx context.Context, filter driven.VectorFilter) (int, error) {
	db, err := v.store.conn()
	if err != nil {
		return 0, err
	}
	if filter.IsEmpty() {
		return 0, fmt.Errorf("%w: empty vector filter", domain.ErrInvalidInput)
	}

	where, args := filterClause(&filter)
	res, err := db.ExecContext(ctx, "DELETE FROM chunk_vectors"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting vectors: %w", err)
	}
	return rowsAffected(res), nil
}

// Search returns up to k hits ordered by ascending cosine distance.
func (v *vectorIndex) Search(ctx context.Context, query []float32, k int, filter *driven.VectorFilter) ([]driven.VectorHit, error) {
	db, err := v.store.conn()
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if v.dimensions > 0 && len(query) != v.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), v.dimensions)
	}

	where, args := filterClause(filter)
	if where == "" {
		where = " WHERE dimensions = ?"
	} else {
		where += " AND dimensions = ?"
	}
	args = append(args, len(query))

	rows, err := db.QueryContext(ctx,
		"SELECT chunk_id, file_id, workspace_path, embedding FROM chunk_vectors"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		var blob []byte
		if err := rows.Scan(&hit.ChunkID, &hit.FileID, &hit.WorkspacePath, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		hit.Distance = driven.CosineDistance(query, bytesToFloat32Slice(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored vectors.
func (v *vectorIndex) Count(ctx context.Context) (int, error) {
	db, err := v.store.conn()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorIndex) Close() error {
	return nil
}

func (v *vectorIndex) validate(r driven.VectorRecord) error {
	if r.ChunkID == "" || r.FileID == "" {
		return fmt.Errorf("%w: vector record needs chunk and file ids", domain.ErrInvalidInput)
	}
	if len(r.Embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, r.ChunkID)
	}
	if v.dimensions > 0 && len(r.Embedding) != v.dimensions {
		return fmt.Errorf("%w: %s has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, r.ChunkID, len(r.Embedding), v.dimensions)
	}
	return nil
}

// filterClause builds a WHERE clause from the set filter fields.
func filterClause(filter *driven.VectorFilter) (string, []any) {
	if filter == nil || filter.IsEmpty() {
		return "", nil
	}

	var conds []string
	var args []any
	if filter.FileID != "" {
		conds = append(conds, "file_id = ?")
		args = append(args, filter.FileID)
	}
	if filter.WorkspaceID != "" {
		conds = append(conds, "workspace_id = ?")
		args = append(args, filter.WorkspaceID)
	}
	if filter.WorkspacePath != "" {
		conds = append(conds, "workspace_path = ?")
		args = append(args, filter.WorkspacePath)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
