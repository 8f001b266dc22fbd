package treestore

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/hupe1980/framio/blobstore"
	"github.com/hupe1980/framio/internal/cache"
)

// FileOptions configures how files are opened.
type FileOptions struct {
	// Cache holds decompressed pages across reads. Nil disables caching.
	Cache cache.BlockCache
}

// File is an open, immutable tree container.
type File struct {
	name  string
	blob  blobstore.Blob
	trees []treeInfo
	cache cache.BlockCache
}

// Open reads the directory of the file stored under name in store.
func Open(ctx context.Context, store blobstore.BlobStore, name string, optFns ...func(o *FileOptions)) (*File, error) {
	opts := FileOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("treestore: open %s: %w", name, err)
	}

	f, err := newFile(name, blob, opts)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return f, nil
}

func newFile(name string, blob blobstore.Blob, opts FileOptions) (*File, error) {
	size := blob.Size()
	if size < headerSize+footerSize {
		return nil, fmt.Errorf("%w: %s: file too short (%d bytes)", ErrCorrupt, name, size)
	}

	header := make([]byte, headerSize)
	if _, err := blob.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("treestore: read header of %s: %w", name, err)
	}
	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != fileMagic {
		return nil, fmt.Errorf("%w: %s: bad magic 0x%08x", ErrCorrupt, name, magic)
	}
	if version := binary.LittleEndian.Uint16(header[4:6]); version != formatVersion {
		return nil, fmt.Errorf("treestore: %s: unsupported format version %d", name, version)
	}

	footer := make([]byte, footerSize)
	if _, err := blob.ReadAt(footer, size-footerSize); err != nil {
		return nil, fmt.Errorf("treestore: read footer of %s: %w", name, err)
	}
	dirOffset := int64(binary.LittleEndian.Uint64(footer[0:8]))
	dirLen := binary.LittleEndian.Uint32(footer[8:12])
	dirCRC := binary.LittleEndian.Uint32(footer[12:16])

	if dirOffset < headerSize || dirOffset+int64(dirLen) > size-footerSize {
		return nil, fmt.Errorf("%w: %s: directory out of bounds", ErrCorrupt, name)
	}

	dir := make([]byte, dirLen)
	if _, err := blob.ReadAt(dir, dirOffset); err != nil {
		return nil, fmt.Errorf("treestore: read directory of %s: %w", name, err)
	}
	if got := crc32.ChecksumIEEE(dir); got != dirCRC {
		return nil, fmt.Errorf("%w: %s: directory checksum mismatch", ErrCorrupt, name)
	}

	trees, err := decodeDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("treestore: %s: %w", name, err)
	}

	return &File{
		name:  name,
		blob:  blob,
		trees: trees,
		cache: opts.Cache,
	}, nil
}

// Name returns the store key the file was opened from.
func (f *File) Name() string {
	return f.name
}

// Trees returns the tree names in file order.
func (f *File) Trees() []string {
	out := make([]string, len(f.trees))
	for i := range f.trees {
		out[i] = f.trees[i].name
	}
	return out
}

// Tree returns the named tree, or false if the file has no such tree.
func (f *File) Tree(name string) (*Tree, bool) {
	for i := range f.trees {
		if f.trees[i].name == name {
			return &Tree{file: f, info: &f.trees[i]}, true
		}
	}
	return nil, false
}

// Close releases the underlying blob.
func (f *File) Close() error {
	return f.blob.Close()
}

// Tree is a read handle on one tree of an open file.
type Tree struct {
	file *File
	info *treeInfo
}

// Name returns the tree's name.
func (t *Tree) Name() string {
	return t.info.name
}

// Entries returns the number of entries in the tree.
func (t *Tree) Entries() uint64 {
	return t.info.entries
}

// Branches returns the branch names in file order.
func (t *Tree) Branches() []string {
	out := make([]string, len(t.info.branches))
	for i := range t.info.branches {
		out[i] = t.info.branches[i].name
	}
	return out
}

// HasBranch reports whether the tree carries the named branch.
func (t *Tree) HasBranch(name string) bool {
	_, ok := t.info.byName[name]
	return ok
}

// Branch returns a read handle on the named branch.
func (t *Tree) Branch(name string) (*Branch, bool) {
	idx, ok := t.info.byName[name]
	if !ok {
		return nil, false
	}
	return &Branch{tree: t, info: &t.info.branches[idx]}, true
}

// Branch reads cells of one branch.
type Branch struct {
	tree *Tree
	info *branchInfo
}

// Name returns the branch's name.
func (b *Branch) Name() string {
	return b.info.name
}

// Read returns the cell of one entry. Entries the writer never filled for
// this branch, and entries filled with zero bytes, yield an empty cell.
func (b *Branch) Read(ctx context.Context, entry uint64) ([]byte, error) {
	if entry >= b.tree.info.entries {
		return nil, fmt.Errorf("%w: entry %d of %d (branch %q)", ErrOutOfRange, entry, b.tree.info.entries, b.info.name)
	}

	// The presence bitmap settles empty cells without a page read.
	if !b.info.presence.Contains(uint32(entry)) {
		return []byte{}, nil
	}

	pageIdx := sort.Search(len(b.info.pages), func(i int) bool {
		pg := &b.info.pages[i]
		return pg.firstEntry+uint64(pg.numEntries) > entry
	})
	if pageIdx >= len(b.info.pages) || b.info.pages[pageIdx].firstEntry > entry {
		return nil, fmt.Errorf("%w: no page covers entry %d of branch %q", ErrCorrupt, entry, b.info.name)
	}
	pg := &b.info.pages[pageIdx]

	raw, err := b.page(ctx, pageIdx, pg)
	if err != nil {
		return nil, err
	}

	cell, err := cellAt(raw, int(entry-pg.firstEntry))
	if err != nil {
		return nil, fmt.Errorf("treestore: branch %q: %w", b.info.name, err)
	}
	return cell, nil
}

func (b *Branch) page(ctx context.Context, pageIdx int, pg *pageInfo) ([]byte, error) {
	f := b.tree.file

	var key cache.Key
	if f.cache != nil {
		key = cache.Key{
			Kind:   cache.KindPage,
			Path:   f.name,
			Branch: b.tree.info.name + "/" + b.info.name,
			Offset: uint64(pageIdx),
		}
		if raw, ok := f.cache.Get(ctx, key); ok {
			return raw, nil
		}
	}

	comp := make([]byte, pg.compLen)
	if _, err := f.blob.ReadAt(comp, pg.offset); err != nil {
		return nil, fmt.Errorf("treestore: read page of branch %q: %w", b.info.name, err)
	}
	if got := crc32.ChecksumIEEE(comp); got != pg.crc {
		return nil, fmt.Errorf("%w: page checksum mismatch (branch %q)", ErrCorrupt, b.info.name)
	}

	raw, err := decompressPage(b.info.codec, comp, int(pg.rawLen))
	if err != nil {
		return nil, fmt.Errorf("treestore: decompress page of branch %q: %w", b.info.name, err)
	}

	if f.cache != nil {
		f.cache.Set(ctx, key, raw)
	}
	return raw, nil
}
