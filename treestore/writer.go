package treestore

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/framio/blobstore"
)

// WriterOptions configures dataset file authoring.
type WriterOptions struct {
	// Compression is the page codec applied to every branch.
	Compression Compression
	// PageEntries is the number of entries per page before a page is cut.
	PageEntries int
}

// DefaultWriterOptions are used when no option functions are passed.
var DefaultWriterOptions = WriterOptions{
	Compression: CompressionS2,
	PageEntries: 256,
}

// Writer authors a tree container file. Cells are buffered in memory and
// flushed as compressed pages on Close; files are immutable afterwards.
type Writer struct {
	store  blobstore.BlobStore
	name   string
	opts   WriterOptions
	trees  map[string]*TreeWriter
	order  []string
	closed bool
}

// NewWriter creates a writer that will store the file under name in store.
func NewWriter(store blobstore.BlobStore, name string, optFns ...func(o *WriterOptions)) *Writer {
	opts := DefaultWriterOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.PageEntries <= 0 {
		opts.PageEntries = DefaultWriterOptions.PageEntries
	}

	return &Writer{
		store: store,
		name:  name,
		opts:  opts,
		trees: make(map[string]*TreeWriter),
	}
}

// Tree returns the tree writer for name, creating it on first use.
func (w *Writer) Tree(name string) *TreeWriter {
	if tw, ok := w.trees[name]; ok {
		return tw
	}
	tw := &TreeWriter{
		name:     name,
		branches: make(map[string]*branchBuf),
	}
	w.trees[name] = tw
	w.order = append(w.order, name)
	return tw
}

// TreeWriter accumulates entries for one tree.
type TreeWriter struct {
	name     string
	entries  uint64
	branches map[string]*branchBuf
	order    []string
}

type branchBuf struct {
	name     string
	cells    [][]byte
	presence *roaring.Bitmap
}

// Entries returns the number of entries filled so far.
func (tw *TreeWriter) Entries() uint64 {
	return tw.entries
}

// Branches returns the branch names in creation order.
func (tw *TreeWriter) Branches() []string {
	out := make([]string, len(tw.order))
	copy(out, tw.order)
	return out
}

// Fill appends one entry. cells maps branch name to the entry's cell bytes;
// branches absent from cells get an empty cell, and branches first seen here
// are backfilled with empty cells for all prior entries.
func (tw *TreeWriter) Fill(cells map[string][]byte) error {
	if tw.entries >= math.MaxUint32 {
		return fmt.Errorf("treestore: tree %q exceeds entry limit", tw.name)
	}

	for name, cell := range cells {
		bb, ok := tw.branches[name]
		if !ok {
			bb = &branchBuf{
				name:     name,
				cells:    make([][]byte, tw.entries), // backfill
				presence: roaring.New(),
			}
			tw.branches[name] = bb
			tw.order = append(tw.order, name)
		}
		if len(cell) > 0 {
			bb.presence.Add(uint32(tw.entries))
		}
		// Copy so callers may reuse their buffers between Fill calls.
		copied := make([]byte, len(cell))
		copy(copied, cell)
		bb.cells = append(bb.cells, copied)
	}

	tw.entries++
	for _, name := range tw.order {
		bb := tw.branches[name]
		for uint64(len(bb.cells)) < tw.entries {
			bb.cells = append(bb.cells, nil)
		}
	}
	return nil
}

// Close flushes all buffered trees into the blob store.
func (w *Writer) Close(ctx context.Context) error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	wb, err := w.store.Create(ctx, w.name)
	if err != nil {
		return fmt.Errorf("treestore: create %s: %w", w.name, err)
	}

	if err := w.writeTo(wb); err != nil {
		_ = wb.Close()
		return err
	}
	return wb.Close()
}

func (w *Writer) writeTo(wb blobstore.WritableBlob) error {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], fileMagic)
	binary.LittleEndian.PutUint16(header[4:6], formatVersion)
	if _, err := wb.Write(header); err != nil {
		return err
	}
	offset := int64(headerSize)

	trees := make([]treeInfo, 0, len(w.order))
	for _, treeName := range w.order {
		tw := w.trees[treeName]
		ti := treeInfo{name: treeName, entries: tw.entries}

		for _, branchName := range tw.order {
			bb := tw.branches[branchName]
			bi := branchInfo{
				name:     branchName,
				codec:    w.opts.Compression,
				presence: bb.presence,
			}

			for first := 0; first < len(bb.cells); first += w.opts.PageEntries {
				end := first + w.opts.PageEntries
				if end > len(bb.cells) {
					end = len(bb.cells)
				}

				raw := encodePage(bb.cells[first:end])
				comp, err := compressPage(w.opts.Compression, raw)
				if err != nil {
					return fmt.Errorf("treestore: compress page of %s/%s: %w", treeName, branchName, err)
				}

				if _, err := wb.Write(comp); err != nil {
					return err
				}

				bi.pages = append(bi.pages, pageInfo{
					firstEntry: uint64(first),
					numEntries: uint32(end - first),
					offset:     offset,
					compLen:    uint32(len(comp)),
					rawLen:     uint32(len(raw)),
					crc:        crc32.ChecksumIEEE(comp),
				})
				offset += int64(len(comp))
			}

			ti.branches = append(ti.branches, bi)
		}
		trees = append(trees, ti)
	}

	dir, err := encodeDirectory(trees)
	if err != nil {
		return err
	}
	if _, err := wb.Write(dir); err != nil {
		return err
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(footer[0:8], uint64(offset))
	binary.LittleEndian.PutUint32(footer[8:12], uint32(len(dir)))
	binary.LittleEndian.PutUint32(footer[12:16], crc32.ChecksumIEEE(dir))
	if _, err := wb.Write(footer); err != nil {
		return err
	}

	return nil
}
