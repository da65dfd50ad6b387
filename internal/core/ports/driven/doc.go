// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - MetadataStore: Workspace, folder, file and chunk persistence (SQLite)
//   - VectorIndex: Chunk vector storage and nearest-neighbour search
//   - EmbeddingService: Text to vector (Ollama, OpenAI)
//   - Tokenizer: Token counting for the chunker
//   - Chunker: Token-bounded, line-aligned splitting
//   - ConfigStore: Application configuration
//
// Search refuses to run when MetadataStore, VectorIndex or EmbeddingService
// is nil and returns domain.ErrNotInitialized instead.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
