// Package domain defines the core business entities for knowledge-flow.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Metadata: The flexible metadata record of an ingested document
//   - Chunk: A searchable unit of a converted document
//   - ProgressEvent: One line of the ingestion progress stream
//   - Collection: A knowledge context or chat profile
//   - Config: The application configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
