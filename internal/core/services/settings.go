package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-code/internal/pathmatch"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkMaxTokens     = "indexing.chunk_max_tokens"
	keyChunkOverlapTokens = "indexing.chunk_overlap_tokens"
	keyIncludePatterns    = "indexing.include_patterns"
	keyExcludePatterns    = "indexing.exclude_patterns"
	keyWatchDebounceMs    = "indexing.watch_debounce_ms"
	keySearchMaxResults   = "search.max_results"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyVectorBackend      = "vector_index.backend"
	keyVectorDSN          = "vector_index.dsn"
	keyVectorDims         = "vector_index.dimensions"
)

// keyKind describes how a string value from the command line is parsed.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindPatterns
	kindProvider
	kindBackend
)

var settingKeys = map[string]keyKind{
	keyChunkMaxTokens:     kindInt,
	keyChunkOverlapTokens: kindInt,
	keyIncludePatterns:    kindPatterns,
	keyExcludePatterns:    kindPatterns,
	keyWatchDebounceMs:    kindInt,
	keySearchMaxResults:   kindInt,
	keyEmbedProvider:      kindProvider,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyEmbedRPS:           kindFloat,
	keyVectorBackend:      kindBackend,
	keyVectorDSN:          kindString,
	keyVectorDims:         kindInt,
}

// SettingKeys returns every recognised key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
}

// NewSettingsService creates a new settings service. The validator is
// optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, validator driven.EmbeddingValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get retrieves current application settings with defaults applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	if s.configStore == nil {
		return nil, fmt.Errorf("%w: config store", domain.ErrNotInitialized)
	}
	defaults := domain.DefaultAppSettings()

	indexing := domain.IndexingSettings{
		ChunkMaxTokens:     s.getInt(keyChunkMaxTokens, defaults.Indexing.ChunkMaxTokens),
		ChunkOverlapTokens: s.getIntAllowZero(keyChunkOverlapTokens, defaults.Indexing.ChunkOverlapTokens),
		IncludePatterns:    s.getSlice(keyIncludePatterns, defaults.Indexing.IncludePatterns),
		ExcludePatterns:    s.getSlice(keyExcludePatterns, defaults.Indexing.ExcludePatterns),
		WatchDebounceMs:    s.getInt(keyWatchDebounceMs, defaults.Indexing.WatchDebounceMs),
	}

	settings := &domain.AppSettings{
		Indexing: indexing.Normalised(),
		Search: domain.SearchSettings{
			MaxResults: s.getInt(keySearchMaxResults, defaults.Search.MaxResults),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - adapters pick their own
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			RequestsPerSecond: s.getFloat(keyEmbedRPS),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    s.getBackend(defaults.VectorIndex.Backend),
			DSN:        s.configStore.GetString(keyVectorDSN),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidInput)
	}
	if s.configStore == nil {
		return fmt.Errorf("%w: config store", domain.ErrNotInitialized)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyChunkMaxTokens, settings.Indexing.ChunkMaxTokens},
		{keyChunkOverlapTokens, settings.Indexing.ChunkOverlapTokens},
		{keyIncludePatterns, settings.Indexing.IncludePatterns},
		{keyExcludePatterns, settings.Indexing.ExcludePatterns},
		{keyWatchDebounceMs, settings.Indexing.WatchDebounceMs},
		{keySearchMaxResults, settings.Search.MaxResults},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyVectorBackend, string(settings.VectorIndex.Backend)},
		{keyVectorDSN, settings.VectorIndex.DSN},
		{keyVectorDims, settings.VectorIndex.Dimensions},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// Set parses and stores a single key. An empty value removes the key so
// its default applies again.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return fmt.Errorf("%w: config store", domain.ErrNotInitialized)
	}
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q (known: %s)",
			domain.ErrInvalidInput, key, strings.Join(SettingKeys(), ", "))
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return s.configStore.Unset(key)
	}

	parsed, err := parseSetting(key, kind, value)
	if err != nil {
		return err
	}
	return s.configStore.Set(key, parsed)
}

func parseSetting(key string, kind keyKind, value string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer: %q", domain.ErrInvalidInput, key, value)
		}
		if n < 0 || (n == 0 && key != keyChunkOverlapTokens) {
			return nil, fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, key)
		}
		return n, nil

	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative number: %q", domain.ErrInvalidInput, key, value)
		}
		return f, nil

	case kindPatterns:
		patterns := pathmatch.SplitPatterns(value)
		if _, err := pathmatch.New(patterns, nil); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return patterns, nil

	case kindProvider:
		provider := domain.AIProvider(value)
		if !provider.IsValid() {
			return nil, fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, value)
		}
		return value, nil

	case kindBackend:
		backend := domain.VectorBackend(value)
		if !backend.IsValid() {
			return nil, fmt.Errorf("%w: invalid vector backend: %s", domain.ErrInvalidInput, value)
		}
		return value, nil

	default:
		return value, nil
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, baseURL, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	settings.Embedding.BaseURL = baseURL
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.VectorIndex.Dimensions = d
	}

	if err := s.Save(settings); err != nil {
		return err
	}
	if apiKey == "" {
		return s.configStore.Unset(keyEmbedAPIKey)
	}
	return nil
}

// Validate checks the current settings for consistency.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var problems []error
	if !settings.Embedding.IsConfigured() {
		problems = append(problems, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if settings.VectorIndex.Backend == domain.VectorBackendPgvector && settings.VectorIndex.DSN == "" {
		problems = append(problems, errors.New("vector_index.dsn is required for the pgvector backend"))
	}
	if _, err := pathmatch.New(settings.Indexing.IncludePatterns, settings.Indexing.ExcludePatterns); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(problems...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateEmbedding(&settings.Embedding)
}

// ConfigPath returns the configuration file location.
func (s *SettingsService) ConfigPath() string {
	if s.configStore == nil {
		return ""
	}
	return s.configStore.Path()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetStringSlice(key)
	if val == nil {
		return []string{}
	}
	return val
}

func (s *SettingsService) getFloat(key string) float64 {
	val, _ := s.configStore.Get(key)
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
