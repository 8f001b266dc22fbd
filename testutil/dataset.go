package testutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/framio/blobstore"
	"github.com/hupe1980/framio/codec"
	"github.com/hupe1980/framio/meta"
	"github.com/hupe1980/framio/model"
	"github.com/hupe1980/framio/params"
	"github.com/hupe1980/framio/treestore"
)

// CollectionData is the per-frame input of one collection. For subset
// collections only Refs is consulted, and it must hold exactly one buffer.
type CollectionData struct {
	Payload []byte
	Refs    [][]byte
	Vecs    [][]byte
}

// DatasetWriter assembles one dataset file.
type DatasetWriter struct {
	writer     *treestore.Writer
	codec      codec.Codec
	version    model.Version
	datamodels map[string]json.RawMessage
	categories []*CategoryWriter
	byName     map[string]*CategoryWriter
}

// DatasetOption configures a DatasetWriter.
type DatasetOption func(*DatasetWriter)

// WithVersion overrides the library version stamped into the file.
func WithVersion(v model.Version) DatasetOption {
	return func(w *DatasetWriter) { w.version = v }
}

// WithCodec overrides the parameter codec.
func WithCodec(c codec.Codec) DatasetOption {
	return func(w *DatasetWriter) { w.codec = c }
}

// WithDatamodel stores a datamodel definition in the file's metadata.
func WithDatamodel(name string, definition json.RawMessage) DatasetOption {
	return func(w *DatasetWriter) { w.datamodels[name] = definition }
}

// NewDatasetWriter creates a writer that stores the file under name in
// store.
func NewDatasetWriter(store blobstore.BlobStore, name string, optFns ...DatasetOption) *DatasetWriter {
	w := &DatasetWriter{
		writer:     treestore.NewWriter(store, name),
		codec:      codec.Default,
		version:    model.Version{Major: 1},
		datamodels: make(map[string]json.RawMessage),
		byName:     make(map[string]*CategoryWriter),
	}
	for _, fn := range optFns {
		fn(w)
	}
	return w
}

// Category registers a category with its collection records. Calling it
// again with the same name returns the existing category writer.
func (w *DatasetWriter) Category(name string, collections []meta.CollectionMeta) *CategoryWriter {
	if cw, ok := w.byName[name]; ok {
		return cw
	}
	cw := &CategoryWriter{
		dataset: w,
		tree:    w.writer.Tree(name),
		meta:    &meta.CategoryMeta{Name: name, Collections: collections},
	}
	w.categories = append(w.categories, cw)
	w.byName[name] = cw
	return cw
}

// Close writes the metadata tree and flushes the file.
func (w *DatasetWriter) Close(ctx context.Context) error {
	versionCell, err := meta.EncodeVersion(w.version)
	if err != nil {
		return err
	}

	names := make([]string, len(w.categories))
	for i, cw := range w.categories {
		names[i] = cw.meta.Name
	}
	categoriesCell, err := meta.EncodeStringList(names)
	if err != nil {
		return err
	}

	datamodelsCell, err := meta.NewDatamodelHolder(w.datamodels).Encode()
	if err != nil {
		return err
	}

	cells := map[string][]byte{
		meta.BranchVersion:    versionCell,
		meta.BranchCategories: categoriesCell,
		meta.BranchDatamodels: datamodelsCell,
	}
	for _, cw := range w.categories {
		record, err := meta.EncodeCategory(cw.meta)
		if err != nil {
			return err
		}
		cells[meta.CategoryBranch(cw.meta.Name)] = record
	}

	if err := w.writer.Tree(meta.TreeName).Fill(cells); err != nil {
		return err
	}
	return w.writer.Close(ctx)
}

// CategoryWriter appends frames to one category.
type CategoryWriter struct {
	dataset *DatasetWriter
	tree    *treestore.TreeWriter
	meta    *meta.CategoryMeta
}

// Append writes one frame. data maps collection names to their buffers;
// every collection of the category must be present. p may be nil.
func (cw *CategoryWriter) Append(data map[string]CollectionData, p *params.Parameters) error {
	cells := make(map[string][]byte)

	for _, cm := range cw.meta.Collections {
		cd, ok := data[cm.Name]
		if !ok {
			return fmt.Errorf("testutil: frame lacks collection %q", cm.Name)
		}

		if cm.Subset {
			if len(cd.Refs) != 1 {
				return fmt.Errorf("testutil: subset collection %q needs exactly one reference buffer", cm.Name)
			}
			cells[meta.RefBranch(cm.Name, 0)] = cd.Refs[0]
			continue
		}

		if len(cd.Refs) != int(cm.RefCount) || len(cd.Vecs) != int(cm.VecCount) {
			return fmt.Errorf("testutil: collection %q: got %d/%d ref/vec buffers, record says %d/%d",
				cm.Name, len(cd.Refs), len(cd.Vecs), cm.RefCount, cm.VecCount)
		}

		cells[meta.PayloadBranch(cm.Name)] = cd.Payload
		for j, buf := range cd.Refs {
			cells[meta.RefBranch(cm.Name, j)] = buf
		}
		for j, buf := range cd.Vecs {
			cells[meta.VecBranch(cm.Name, j)] = buf
		}
	}

	if p != nil && !p.Empty() {
		cell, err := params.Encode(cw.dataset.codec, p)
		if err != nil {
			return err
		}
		cells[params.Branch] = cell
	} else {
		cells[params.Branch] = nil
	}

	return cw.tree.Fill(cells)
}

// Entries returns the number of frames appended so far.
func (cw *CategoryWriter) Entries() uint64 {
	return cw.tree.Entries()
}
