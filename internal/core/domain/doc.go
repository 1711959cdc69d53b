// Package domain defines the core business entities for Vision.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - User: The tenant boundary all queries are scoped to
//   - Document: A registered source of knowledge
//   - Job: One unit of asynchronous ingestion work for a document
//   - Chunk: An indexed, embeddable unit of extracted content
//   - Content: Normalised text plus positional anchors from extraction
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
