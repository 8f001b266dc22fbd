package treestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/framio/blobstore"
)

// Chain presents an ordered list of files as one logical dataset. The tree
// layout is taken from the first file; entry counts are summed per tree
// across all segments.
type Chain struct {
	files []*File
}

// OpenChain opens every named file in store, in parallel, and chains them in
// the given order. On any failure already-opened files are closed.
func OpenChain(ctx context.Context, store blobstore.BlobStore, names []string, optFns ...func(o *FileOptions)) (*Chain, error) {
	if len(names) == 0 {
		return nil, errors.New("treestore: chain needs at least one file")
	}

	files := make([]*File, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			f, err := Open(gctx, store, name, optFns...)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range files {
			if f != nil {
				_ = f.Close()
			}
		}
		return nil, err
	}

	return &Chain{files: files}, nil
}

// Trees returns the tree names of the first file. Later segments may carry
// additional trees; those are only reachable where all segments agree.
func (c *Chain) Trees() []string {
	return c.files[0].Trees()
}

// Segments returns the number of chained files.
func (c *Chain) Segments() int {
	return len(c.files)
}

// File returns the open file of one segment.
func (c *Chain) File(segment int) *File {
	return c.files[segment]
}

// Tree returns the chained view of the named tree. Segments that lack the
// tree contribute zero entries.
func (c *Chain) Tree(name string) (*ChainTree, bool) {
	found := false
	trees := make([]*Tree, len(c.files))
	starts := make([]uint64, len(c.files))

	var total uint64
	for i, f := range c.files {
		starts[i] = total
		if t, ok := f.Tree(name); ok {
			trees[i] = t
			total += t.Entries()
			found = true
		}
	}
	if !found {
		return nil, false
	}

	return &ChainTree{name: name, trees: trees, starts: starts, total: total}, true
}

// Close closes every segment and joins their errors.
func (c *Chain) Close() error {
	errs := make([]error, 0, len(c.files))
	for _, f := range c.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChainTree is the chained view of one tree across all segments.
type ChainTree struct {
	name   string
	trees  []*Tree // nil where a segment lacks the tree
	starts []uint64
	total  uint64
}

// Name returns the tree's name.
func (ct *ChainTree) Name() string {
	return ct.name
}

// Entries returns the total entry count across all segments.
func (ct *ChainTree) Entries() uint64 {
	return ct.total
}

// Segment translates a global entry index to its segment and local index.
// ok is false when entry is past the chained entry count.
func (ct *ChainTree) Segment(entry uint64) (segment int, local uint64, ok bool) {
	if entry >= ct.total {
		return 0, 0, false
	}

	// starts is non-decreasing; the containing segment is the last one
	// starting at or before entry. Zero-entry segments can never win because
	// the next start would equal theirs.
	i := sort.Search(len(ct.starts), func(i int) bool {
		return ct.starts[i] > entry
	}) - 1
	return i, entry - ct.starts[i], true
}

// SegmentTree returns the per-segment tree handle, or nil where the segment
// lacks the tree.
func (ct *ChainTree) SegmentTree(segment int) *Tree {
	return ct.trees[segment]
}

// BranchAt reads the cell of one branch at a global entry index.
func (ct *ChainTree) BranchAt(ctx context.Context, branch string, entry uint64) ([]byte, error) {
	seg, local, ok := ct.Segment(entry)
	if !ok {
		return nil, fmt.Errorf("%w: entry %d of %d (tree %q)", ErrOutOfRange, entry, ct.total, ct.name)
	}

	b, found := ct.trees[seg].Branch(branch)
	if !found {
		return nil, fmt.Errorf("treestore: tree %q has no branch %q in segment %d", ct.name, branch, seg)
	}
	return b.Read(ctx, local)
}
