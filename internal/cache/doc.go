// Package cache provides byte-bounded LRU caching for immutable blocks.
//
// The tree store uses it to keep recently decompressed column pages in
// memory, and the caching blob store uses it for raw blob blocks. Keys
// carry the blob path plus a block identifier so one cache instance can be
// shared across files.
package cache
