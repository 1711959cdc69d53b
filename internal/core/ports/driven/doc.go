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
//   - UserStore, DocumentStore, JobStore, ChunkStore: persistence
//   - Extractor / ExtractorRegistry: turns source bytes into text + anchors
//   - EmbeddingService: maps text to fixed-dimension vectors
//   - LLMService: answer synthesis
//   - BlobStore: byte access for registered source URIs
//   - Dispatcher: hands job IDs to the worker layer (at-least-once)
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
//   - TranscriptionService: only needed when audio sources are ingested
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
