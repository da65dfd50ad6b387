package pgvector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

func TestWhereClause(t *testing.T) {
	where, args := whereClause(nil, 1)
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = whereClause(&driven.VectorFilter{FileID: "f1"}, 1)
	assert.Equal(t, " WHERE file_id = $1", where)
	assert.Equal(t, []any{"f1"}, args)

	where, args = whereClause(&driven.VectorFilter{WorkspaceID: "w", WorkspacePath: "/ws"}, 3)
	assert.Equal(t, " WHERE workspace_id = $3 AND workspace_path = $4", where)
	assert.Equal(t, []any{"w", "/ws"}, args)
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(context.Background(), "", 3)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = New(context.Background(), "postgres://localhost/db", 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// TestIndex_Postgres runs against a live database when SERCHA_TEST_PG_DSN is set.
func TestIndex_Postgres(t *testing.T) {
	dsn := os.Getenv("SERCHA_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SERCHA_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	idx, err := New(ctx, dsn, 3)
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.pool.Exec(ctx, "TRUNCATE "+TableName)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx,
		driven.VectorRecord{ChunkID: "f1:1-2", FileID: "f1", WorkspaceID: "w1", WorkspacePath: "/ws1", Embedding: []float32{1, 0, 0}},
		driven.VectorRecord{ChunkID: "f2:1-2", FileID: "f2", WorkspaceID: "w1", WorkspacePath: "/ws1", Embedding: []float32{0, 1, 0}},
		driven.VectorRecord{ChunkID: "f3:1-2", FileID: "f3", WorkspaceID: "w2", WorkspacePath: "/ws2", Embedding: []float32{1, 1, 0}},
	))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "f1:1-2", hits[0].ChunkID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)

	hits, err = idx.Search(ctx, []float32{1, 0, 0}, 10, &driven.VectorFilter{WorkspacePath: "/ws2"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "f3:1-2", hits[0].ChunkID)

	removed, err := idx.DeleteWhere(ctx, driven.VectorFilter{WorkspaceID: "w1"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = idx.Upsert(ctx, driven.VectorRecord{ChunkID: "x", FileID: "x", Embedding: []float32{1}})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}
