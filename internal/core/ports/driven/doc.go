// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Processor: Validates, describes and converts one file format
//   - ProcessorRegistry: Selects the processor for a file suffix
//   - ContentStore: Raw upload and converted output persistence
//   - MetadataStore: Document metadata persistence and filtering
//   - CollectionStore: Knowledge context and chat profile persistence
//   - VectorIndex: Chunk vector storage and similarity search
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, documents are
//     chunked but not indexed and vector search is disabled.
//   - ImageDescriber: Describes embedded pictures. Without it, pictures are
//     replaced by the fallback description.
//   - MetadataSearcher: Full-text search over metadata (SQLite backend only).
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, processor or postprocessor package
package driven
