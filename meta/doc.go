// Package meta defines the dataset-level metadata records of framio files:
// the writer's library version, the list of categories, the per-category
// collection descriptions, and the serialized datamodel definitions.
//
// Metadata lives in a dedicated single-entry tree (TreeName) inside every
// dataset file. Each category's record describes its collections as parallel
// lists; decoding validates the lists against each other and reports
// mismatches as an InconsistencyError rather than guessing.
package meta
