// Package model defines core types used throughout framio.
//
// # Identity Types
//
//   - CollectionID: Stable numeric identifier of a collection within a
//     category, used to cross-reference relations between collections
//   - SchemaVersion: Per-collection version tag selecting how a collection's
//     raw buffers are interpreted by downstream reconstruction
//
// # Versioning
//
//   - Version: Semantic (major, minor, patch) version of the library that
//     wrote a dataset; recorded once per file and exposed by the reader
package model
