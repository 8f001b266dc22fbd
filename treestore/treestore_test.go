package treestore

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/framio/blobstore"
	"github.com/hupe1980/framio/internal/cache"
)

func TestWriteReadRoundTrip(t *testing.T) {
	codecs := []Compression{CompressionNone, CompressionLZ4, CompressionS2, CompressionZstd}
	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()

			w := NewWriter(store, "data.ftre", func(o *WriterOptions) {
				o.Compression = codec
				o.PageEntries = 4
			})

			tw := w.Tree("events")
			for i := 0; i < 10; i++ {
				err := tw.Fill(map[string][]byte{
					"hits":   []byte(fmt.Sprintf("hit-%03d", i)),
					"tracks": []byte(fmt.Sprintf("track-%d", i*i)),
				})
				require.NoError(t, err)
			}
			require.NoError(t, w.Close(ctx))

			f, err := Open(ctx, store, "data.ftre")
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, []string{"events"}, f.Trees())

			tree, ok := f.Tree("events")
			require.True(t, ok)
			assert.Equal(t, uint64(10), tree.Entries())
			assert.ElementsMatch(t, []string{"hits", "tracks"}, tree.Branches())

			hits, ok := tree.Branch("hits")
			require.True(t, ok)

			for i := 0; i < 10; i++ {
				cell, err := hits.Read(ctx, uint64(i))
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("hit-%03d", i), string(cell))
			}
		})
	}
}

func TestWriterDoubleClose(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "data.ftre")
	w.Tree("events")
	require.NoError(t, w.Close(ctx))
	require.ErrorIs(t, w.Close(ctx), ErrWriterClosed)
}

func TestBranchBackfillAndPresence(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "data.ftre", func(o *WriterOptions) {
		o.PageEntries = 2
	})

	tw := w.Tree("events")
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("a0")}))
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("a1")}))
	// Branch b shows up late: entries 0 and 1 must read back empty.
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("a2"), "b": []byte("b2")}))
	// Branch a skipped: entry 3 must read back empty.
	require.NoError(t, tw.Fill(map[string][]byte{"b": []byte("b3")}))

	require.NoError(t, w.Close(ctx))

	f, err := Open(ctx, store, "data.ftre")
	require.NoError(t, err)
	defer f.Close()

	tree, ok := f.Tree("events")
	require.True(t, ok)
	require.Equal(t, uint64(4), tree.Entries())

	a, ok := tree.Branch("a")
	require.True(t, ok)
	b, ok := tree.Branch("b")
	require.True(t, ok)

	for i, want := range []string{"a0", "a1", "a2", ""} {
		cell, err := a.Read(ctx, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, want, string(cell), "branch a entry %d", i)
	}
	for i, want := range []string{"", "", "b2", "b3"} {
		cell, err := b.Read(ctx, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, want, string(cell), "branch b entry %d", i)
	}
}

func TestBranchReadOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "data.ftre")
	tw := w.Tree("events")
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("a0")}))
	require.NoError(t, w.Close(ctx))

	f, err := Open(ctx, store, "data.ftre")
	require.NoError(t, err)
	defer f.Close()

	tree, _ := f.Tree("events")
	a, _ := tree.Branch("a")

	_, err = a.Read(ctx, 1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "data.ftre")
	tw := w.Tree("events")
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("a0")}))
	require.NoError(t, w.Close(ctx))

	blob, err := store.Open(ctx, "data.ftre")
	require.NoError(t, err)
	raw := make([]byte, blob.Size())
	_, err = blob.ReadAt(raw, 0)
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[0] ^= 0xff
		require.NoError(t, store.Put(ctx, "bad.ftre", bad))

		_, err := Open(ctx, store, "bad.ftre")
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("directory checksum", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		// Last 16 bytes are the footer; flip a byte just before it, inside
		// the directory.
		bad[len(bad)-footerSize-1] ^= 0xff
		require.NoError(t, store.Put(ctx, "bad.ftre", bad))

		_, err := Open(ctx, store, "bad.ftre")
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "bad.ftre", raw[:headerSize+3]))

		_, err := Open(ctx, store, "bad.ftre")
		require.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestDecodeDirectoryRejectsHugeEntryCount(t *testing.T) {
	dir, err := encodeDirectory([]treeInfo{{name: "events", entries: math.MaxUint32 + 1}})
	require.NoError(t, err)

	_, err = decodeDirectory(dir)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestPageCache(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "data.ftre", func(o *WriterOptions) {
		o.PageEntries = 2
	})
	tw := w.Tree("events")
	for i := 0; i < 6; i++ {
		require.NoError(t, tw.Fill(map[string][]byte{"a": []byte(fmt.Sprintf("a%d", i))}))
	}
	require.NoError(t, w.Close(ctx))

	lru := cache.NewLRU(1 << 20)
	f, err := Open(ctx, store, "data.ftre", func(o *FileOptions) {
		o.Cache = lru
	})
	require.NoError(t, err)
	defer f.Close()

	tree, _ := f.Tree("events")
	a, _ := tree.Branch("a")

	for i := 0; i < 6; i++ {
		_, err := a.Read(ctx, uint64(i))
		require.NoError(t, err)
	}
	// Same pages again, now from cache.
	for i := 0; i < 6; i++ {
		cell, err := a.Read(ctx, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("a%d", i), string(cell))
	}

	hits, misses := lru.Stats()
	assert.Equal(t, int64(6), hits)
	assert.Equal(t, int64(3), misses)
}

func TestChainEntryTranslation(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	writeSegment := func(name string, values []string) {
		w := NewWriter(store, name)
		tw := w.Tree("events")
		for _, v := range values {
			require.NoError(t, tw.Fill(map[string][]byte{"a": []byte(v)}))
		}
		require.NoError(t, w.Close(ctx))
	}
	writeSegment("seg0.ftre", []string{"e0", "e1", "e2"})
	writeSegment("seg1.ftre", []string{"e3", "e4"})

	chain, err := OpenChain(ctx, store, []string{"seg0.ftre", "seg1.ftre"})
	require.NoError(t, err)
	defer chain.Close()

	assert.Equal(t, 2, chain.Segments())
	assert.Equal(t, []string{"events"}, chain.Trees())

	ct, ok := chain.Tree("events")
	require.True(t, ok)
	require.Equal(t, uint64(5), ct.Entries())

	wantSeg := []int{0, 0, 0, 1, 1}
	wantLocal := []uint64{0, 1, 2, 0, 1}
	for i := 0; i < 5; i++ {
		seg, local, ok := ct.Segment(uint64(i))
		require.True(t, ok)
		assert.Equal(t, wantSeg[i], seg, "entry %d", i)
		assert.Equal(t, wantLocal[i], local, "entry %d", i)

		cell, err := ct.BranchAt(ctx, "a", uint64(i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("e%d", i), string(cell))
	}

	_, _, ok = ct.Segment(5)
	assert.False(t, ok)

	_, err = ct.BranchAt(ctx, "a", 5)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestChainMissingTreeInSegment(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "seg0.ftre")
	tw := w.Tree("events")
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("e0")}))
	require.NoError(t, w.Close(ctx))

	w = NewWriter(store, "seg1.ftre")
	tw = w.Tree("runs")
	require.NoError(t, tw.Fill(map[string][]byte{"r": []byte("r0")}))
	tw = w.Tree("events")
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("e1")}))
	require.NoError(t, w.Close(ctx))

	chain, err := OpenChain(ctx, store, []string{"seg0.ftre", "seg1.ftre"})
	require.NoError(t, err)
	defer chain.Close()

	// runs exists only in segment 1.
	ct, ok := chain.Tree("runs")
	require.True(t, ok)
	require.Equal(t, uint64(1), ct.Entries())

	seg, local, ok := ct.Segment(0)
	require.True(t, ok)
	assert.Equal(t, 1, seg)
	assert.Equal(t, uint64(0), local)

	cell, err := ct.BranchAt(ctx, "r", 0)
	require.NoError(t, err)
	assert.Equal(t, "r0", string(cell))
}

func TestOpenChainMissingFile(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, "seg0.ftre")
	tw := w.Tree("events")
	require.NoError(t, tw.Fill(map[string][]byte{"a": []byte("e0")}))
	require.NoError(t, w.Close(ctx))

	_, err := OpenChain(ctx, store, []string{"seg0.ftre", "nope.ftre"})
	require.Error(t, err)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}
