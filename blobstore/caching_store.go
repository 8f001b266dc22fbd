package blobstore

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/framio/internal/cache"
)

// CachingStore wraps a BlobStore and adds block-level read caching.
// It is intended for remote stores (S3, MinIO) where repeated small reads
// are expensive.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to 64KB if <= 0.
func NewCachingStore(inner BlobStore, blockCache cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}
	return &CachingStore{
		inner:     inner,
		cache:     blockCache,
		blockSize: blockSize,
	}
}

// Open opens a blob for reading with block caching.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create passes through to the inner store. Blobs are immutable once written,
// so writes need no cache interaction.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Put writes through and invalidates any stale cached blocks.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(func(key cache.Key) bool {
		return key.Kind == cache.KindBlob && key.Path == name
	})
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob and its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(func(key cache.Key) bool {
		return key.Kind == cache.KindBlob && key.Path == name
	})
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type cachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) key(blockIdx int64) cache.Key {
	return cache.Key{Kind: cache.KindBlob, Path: b.name, Offset: uint64(blockIdx)}
}

// block returns the given block, reading through the cache.
func (b *cachingBlob) block(ctx context.Context, idx int64) ([]byte, error) {
	if data, ok := b.cache.Get(ctx, b.key(idx)); ok {
		return data, nil
	}

	off := idx * b.blockSize
	size := b.blockSize
	if off+size > b.inner.Size() {
		size = b.inner.Size() - off
	}
	if size <= 0 {
		return nil, io.EOF
	}

	data := make([]byte, size)
	if _, err := b.inner.ReadAt(data, off); err != nil && err != io.EOF {
		return nil, err
	}
	b.cache.Set(ctx, b.key(idx), data)
	return data, nil
}

func (b *cachingBlob) ReadAt(p []byte, off int64) (int, error) {
	ctx := context.Background()
	if off < 0 || off >= b.inner.Size() {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) && off < b.inner.Size() {
		idx := off / b.blockSize
		data, err := b.block(ctx, idx)
		if err != nil {
			return n, err
		}
		inBlock := off - idx*b.blockSize
		c := copy(p[n:], data[inBlock:])
		n += c
		off += int64(c)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Prefetch warms the cache for the byte range [off, off+length).
// Blocks are fetched concurrently.
func (b *cachingBlob) Prefetch(ctx context.Context, off, length int64) error {
	first := off / b.blockSize
	last := (off + length - 1) / b.blockSize

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for idx := first; idx <= last; idx++ {
		idx := idx
		g.Go(func() error {
			_, err := b.block(ctx, idx)
			if err == io.EOF {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func (b *cachingBlob) Close() error { return b.inner.Close() }

func (b *cachingBlob) Size() int64 { return b.inner.Size() }
