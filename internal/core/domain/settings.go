package domain

const unknownDescription = "Unknown"

// Chunking bounds and defaults.
const (
	MinChunkTokens            = 256
	MaxChunkTokens            = 2048
	DefaultChunkMaxTokens     = 1024
	DefaultChunkOverlapTokens = 256
	DefaultWatchDebounceMs    = 1000
)

// DefaultIncludePatterns covers common source extensions.
func DefaultIncludePatterns() []string {
	return []string{
		"**/*.{go,rs,c,h,cc,cpp,hpp,cs,java,kt,scala,swift}",
		"**/*.{js,jsx,ts,tsx,mjs,cjs,vue,svelte}",
		"**/*.{py,rb,php,pl,lua,sh,bash,zsh}",
		"**/*.{sql,proto,graphql}",
		"**/*.{md,rst,txt}",
		"**/*.{json,yaml,yml,toml}",
	}
}

// DefaultExcludePatterns skips dependency trees, VCS metadata, build output and lockfiles.
func DefaultExcludePatterns() []string {
	return []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/target/**",
		"**/.next/**",
		"**/__pycache__/**",
		"**/package-lock.json",
		"**/yarn.lock",
		"**/pnpm-lock.yaml",
		"**/go.sum",
		"**/Cargo.lock",
		"**/poetry.lock",
	}
}

// ClampChunkMaxTokens bounds the chunk budget to [MinChunkTokens, MaxChunkTokens].
func ClampChunkMaxTokens(n int) int {
	switch {
	case n < MinChunkTokens:
		return MinChunkTokens
	case n > MaxChunkTokens:
		return MaxChunkTokens
	default:
		return n
	}
}

// ClampChunkOverlap bounds the overlap to [0, maxTokens-1].
func ClampChunkOverlap(overlap, maxTokens int) int {
	switch {
	case overlap < 0:
		return 0
	case overlap > maxTokens-1:
		return maxTokens - 1
	default:
		return overlap
	}
}

// IndexingSettings configures how workspaces are enumerated and chunked.
type IndexingSettings struct {
	// ChunkMaxTokens is the token budget per chunk.
	ChunkMaxTokens int

	// ChunkOverlapTokens is the desired token overlap between adjacent chunks.
	ChunkOverlapTokens int

	// IncludePatterns selects candidate files.
	IncludePatterns []string

	// ExcludePatterns removes candidates; exclude wins over include.
	ExcludePatterns []string

	// WatchDebounceMs coalesces repeated saves of one file.
	WatchDebounceMs int
}

// Normalised returns a copy with chunk sizes clamped and empty fields defaulted.
func (s IndexingSettings) Normalised() IndexingSettings {
	if s.ChunkMaxTokens == 0 {
		s.ChunkMaxTokens = DefaultChunkMaxTokens
	}
	s.ChunkMaxTokens = ClampChunkMaxTokens(s.ChunkMaxTokens)
	s.ChunkOverlapTokens = ClampChunkOverlap(s.ChunkOverlapTokens, s.ChunkMaxTokens)
	if len(s.IncludePatterns) == 0 {
		s.IncludePatterns = DefaultIncludePatterns()
	}
	if s.ExcludePatterns == nil {
		s.ExcludePatterns = DefaultExcludePatterns()
	}
	if s.WatchDebounceMs <= 0 {
		s.WatchDebounceMs = DefaultWatchDebounceMs
	}
	return s
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// MaxResults is the default result limit.
	MaxResults int
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (or a compatible server).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite stores vectors alongside the metadata database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPgvector stores vectors in PostgreSQL with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendSQLite || b == VectorBackendPgvector
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// DSN is the connection string for server backends.
	DSN string

	// Dimensions is the embedding vector size. The embedding provider is
	// authoritative; this value is used when the provider cannot be asked.
	Dimensions int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Indexing    IndexingSettings
	Search      SearchSettings
	Embedding   EmbeddingSettings
	VectorIndex VectorIndexSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Indexing: IndexingSettings{
			ChunkMaxTokens:     DefaultChunkMaxTokens,
			ChunkOverlapTokens: DefaultChunkOverlapTokens,
			IncludePatterns:    DefaultIncludePatterns(),
			ExcludePatterns:    DefaultExcludePatterns(),
			WatchDebounceMs:    DefaultWatchDebounceMs,
		},
		Search: SearchSettings{
			MaxResults: DefaultMaxResults,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
		},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendSQLite,
			Dimensions: 768, // nomic-embed-text default
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
