package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-code/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

type mockValidator struct {
	err  error
	seen *domain.EmbeddingSettings
}

func (m *mockValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	m.seen = settings
	return m.err
}

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil), nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultAppSettings(), *settings)
	assert.Equal(t, domain.DefaultAppSettings(), svc.GetDefaults())
}

func TestSettingsService_Get_FromStore(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		keyChunkMaxTokens:     int64(512),
		keyChunkOverlapTokens: int64(0),
		keyIncludePatterns:    []any{"**/*.go"},
		keyExcludePatterns:    []any{},
		keySearchMaxResults:   int64(25),
		keyEmbedProvider:      "openai",
		keyEmbedModel:         "text-embedding-3-large",
		keyEmbedAPIKey:        "sk-test",
		keyEmbedRPS:           2.5,
		keyVectorBackend:      "pgvector",
		keyVectorDSN:          "postgres://localhost/code",
		keyVectorDims:         int64(3072),
	})
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, 512, settings.Indexing.ChunkMaxTokens)
	assert.Equal(t, 0, settings.Indexing.ChunkOverlapTokens)
	assert.Equal(t, []string{"**/*.go"}, settings.Indexing.IncludePatterns)
	assert.Empty(t, settings.Indexing.ExcludePatterns, "an explicit empty exclude list disables defaults")
	assert.Equal(t, domain.DefaultWatchDebounceMs, settings.Indexing.WatchDebounceMs)
	assert.Equal(t, 25, settings.Search.MaxResults)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.InDelta(t, 2.5, settings.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.VectorBackendPgvector, settings.VectorIndex.Backend)
	assert.Equal(t, "postgres://localhost/code", settings.VectorIndex.DSN)
	assert.Equal(t, 3072, settings.VectorIndex.Dimensions)
}

func TestSettingsService_Get_ClampsChunking(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		keyChunkMaxTokens:     100,
		keyChunkOverlapTokens: 5000,
	})
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.MinChunkTokens, settings.Indexing.ChunkMaxTokens)
	assert.Equal(t, domain.MinChunkTokens-1, settings.Indexing.ChunkOverlapTokens)
}

func TestSettingsService_Get_InvalidEnumsFallBack(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		keyEmbedProvider: "bogus",
		keyVectorBackend: "faiss",
	})
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, domain.VectorBackendSQLite, settings.VectorIndex.Backend)
}

func TestSettingsService_NilStore(t *testing.T) {
	svc := NewSettingsService(nil, nil)

	_, err := svc.Get()
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.ErrorIs(t, svc.Set(keyEmbedModel, "x"), domain.ErrNotInitialized)
	assert.ErrorIs(t, svc.Save(&domain.AppSettings{}), domain.ErrNotInitialized)
	assert.Empty(t, svc.ConfigPath())
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil), nil)

	want := domain.DefaultAppSettings()
	want.Indexing.ChunkMaxTokens = 768
	want.Indexing.ChunkOverlapTokens = 128
	want.Indexing.IncludePatterns = []string{"**/*.rs"}
	want.Search.MaxResults = 5
	want.Embedding.RequestsPerSecond = 4

	require.NoError(t, svc.Save(&want))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	assert.ErrorIs(t, svc.Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore(nil)
	svc := NewSettingsService(store, nil)

	require.NoError(t, svc.Set(keyChunkMaxTokens, "512"))
	require.NoError(t, svc.Set(keyChunkOverlapTokens, "0"))
	require.NoError(t, svc.Set(keyIncludePatterns, "**/*.go, **/*.md"))
	require.NoError(t, svc.Set(keyEmbedRPS, "1.5"))
	require.NoError(t, svc.Set(keyVectorBackend, "pgvector"))
	require.NoError(t, svc.Set(keyEmbedProvider, "openai"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 512, settings.Indexing.ChunkMaxTokens)
	assert.Equal(t, 0, settings.Indexing.ChunkOverlapTokens)
	assert.Equal(t, []string{"**/*.go", "**/*.md"}, settings.Indexing.IncludePatterns)
	assert.InDelta(t, 1.5, settings.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.VectorBackendPgvector, settings.VectorIndex.Backend)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)

	// An empty value restores the default.
	require.NoError(t, svc.Set(keyChunkMaxTokens, ""))
	_, exists := store.Get(keyChunkMaxTokens)
	assert.False(t, exists)
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil), nil)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "indexing.nope", "1"},
		{"non-integer", keyChunkMaxTokens, "lots"},
		{"zero max tokens", keyChunkMaxTokens, "0"},
		{"negative overlap", keyChunkOverlapTokens, "-1"},
		{"negative rate", keyEmbedRPS, "-2"},
		{"bad pattern", keyExcludePatterns, "[oops"},
		{"bad provider", keyEmbedProvider, "cohere"},
		{"bad backend", keyVectorBackend, "faiss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Set(tt.key, tt.value), domain.ErrInvalidInput)
		})
	}
}

func TestSettingKeys_Sorted(t *testing.T) {
	keys := SettingKeys()
	assert.Len(t, keys, len(settingKeys))
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, keyEmbedProvider)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	store := memory.NewConfigStore(nil)
	svc := NewSettingsService(store, nil)

	require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "", "sk-test"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, 1536, settings.VectorIndex.Dimensions)

	// Switching back to a keyless provider drops the stored key.
	require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOllama, "all-minilm", "http://gpu:11434", ""))

	settings, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "all-minilm", settings.Embedding.Model)
	assert.Equal(t, "http://gpu:11434", settings.Embedding.BaseURL)
	assert.Empty(t, settings.Embedding.APIKey)
	assert.Equal(t, 384, settings.VectorIndex.Dimensions)
}

func TestSettingsService_SetEmbeddingProvider_Invalid(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(nil), nil)

	assert.ErrorIs(t, svc.SetEmbeddingProvider("cohere", "", "", ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "", ""), domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		svc := NewSettingsService(memory.NewConfigStore(nil), nil)
		assert.NoError(t, svc.Validate())
	})

	t.Run("openai without key", func(t *testing.T) {
		svc := NewSettingsService(memory.NewConfigStore(map[string]any{keyEmbedProvider: "openai"}), nil)
		assert.ErrorIs(t, svc.Validate(), domain.ErrInvalidInput)
	})

	t.Run("pgvector without dsn", func(t *testing.T) {
		svc := NewSettingsService(memory.NewConfigStore(map[string]any{keyVectorBackend: "pgvector"}), nil)
		err := svc.Validate()
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "vector_index.dsn")
	})
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{keyEmbedModel: "all-minilm"})

	assert.NoError(t, NewSettingsService(store, nil).ValidateEmbeddingConfig())

	validator := &mockValidator{}
	require.NoError(t, NewSettingsService(store, validator).ValidateEmbeddingConfig())
	require.NotNil(t, validator.seen)
	assert.Equal(t, "all-minilm", validator.seen.Model)

	validator.err = errors.New("unreachable")
	assert.EqualError(t, NewSettingsService(store, validator).ValidateEmbeddingConfig(), "unreachable")
}
