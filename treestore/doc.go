// Package treestore implements framio's column-oriented tree container.
//
// A file holds named trees; a tree holds named branches (columns); a branch
// holds one variable-length byte cell per entry. Cells are grouped into
// compressed pages (lz4, s2 or zstd) with per-page checksums, and each branch
// carries a presence bitmap so entries with no data resolve to empty cells
// without touching a page.
//
// Files are immutable once written. Multiple files are chained into one
// logical entry space with OpenChain; the chain translates global entry
// indices to (segment, local entry) pairs while each segment keeps its own
// independently-opened page directory.
//
// The package reads through blobstore.BlobStore, so datasets can live on the
// local filesystem, in memory, or on S3-compatible object storage.
package treestore
