package cache

import "context"

// Kind separates key spaces sharing one cache instance.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPage         // decompressed column pages
	KindBlob         // raw blob store blocks
)

// Key identifies an immutable cached block. Keys must be stable for the
// lifetime of the process.
type Key struct {
	Kind Kind
	// Path identifies the source blob (segment file name).
	Path string
	// Branch identifies the column within the source, if any.
	Branch string
	// Offset is a logical block identifier (page index or byte offset).
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. The caller must treat b as immutable afterwards.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns hit/miss counters.
	Stats() (hits, misses int64)
}
