package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-code/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  bool
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
		{
			name: "unknown provider is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			_ = svc.Close()
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "mxbai-embed-large",
	})
	require.NoError(t, err)
	assert.Equal(t, 1024, svc.Dimensions())

	svc, err = CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "some-new-model",
	})
	require.NoError(t, err)
	assert.Equal(t, 768, svc.Dimensions())
}

func TestCreateEmbeddingService_RateLimited(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:          domain.AIProviderOllama,
		Model:             "nomic-embed-text",
		RequestsPerSecond: 5,
	})
	require.NoError(t, err)

	_, ok := svc.(*ratelimit.EmbeddingService)
	assert.True(t, ok)
	assert.Equal(t, "nomic-embed-text", svc.ModelName())
}

func TestCreateVectorIndex(t *testing.T) {
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	t.Run("sqlite is the default backend", func(t *testing.T) {
		index, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{}, store, 4)
		require.NoError(t, err)
		n, err := index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("sqlite without store", func(t *testing.T) {
		_, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: domain.VectorBackendSQLite}, nil, 4)
		assert.True(t, errors.Is(err, domain.ErrVectorIndexUnavailable))
	})

	t.Run("pgvector requires dsn", func(t *testing.T) {
		_, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: domain.VectorBackendPgvector}, store, 4)
		assert.True(t, errors.Is(err, domain.ErrVectorIndexUnavailable))
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: "faiss"}, store, 4)
		assert.True(t, errors.Is(err, domain.ErrVectorIndexUnavailable))
	})
}

func TestInit(t *testing.T) {
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	t.Run("configured", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		result := Init(context.Background(), &settings, store)
		defer result.Close()

		assert.NotNil(t, result.EmbeddingService)
		assert.NotNil(t, result.VectorIndex)
		assert.Empty(t, result.Warnings)
	})

	t.Run("unconfigured embedding warns", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.Provider = domain.AIProviderOpenAI
		result := Init(context.Background(), &settings, store)
		defer result.Close()

		assert.Nil(t, result.EmbeddingService)
		assert.NotNil(t, result.VectorIndex)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "not configured")
	})
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "nomic-embed-text",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	_ = svc.Close()

	server.Close()
	_, err = CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "nomic-embed-text",
	})
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))

	svc, err = CreateAndValidateEmbeddingService(nil)
	assert.NoError(t, err)
	assert.Nil(t, svc)
}
