package framio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/framio/meta"
	"github.com/hupe1980/framio/model"
	"github.com/hupe1980/framio/params"
	"github.com/hupe1980/framio/treestore"
)

// Reader reads frames from an opened dataset. A Reader is safe for
// concurrent use; each category keeps its own sequential cursor.
type Reader struct {
	chain *treestore.Chain
	opts  options

	version    model.Version
	datamodels *meta.DatamodelHolder
	categories []string

	mu     sync.Mutex
	states map[string]*categoryState
	closed bool
}

// categoryState is the lazily initialized per-category read state: the
// decoded collection record, the shared ID table, the chained tree handle,
// the sequential cursor, and the branch handles of the segment the last read
// landed in.
type categoryState struct {
	name string

	initialized bool
	initErr     error

	tree  *treestore.ChainTree
	meta  *meta.CategoryMeta
	table *meta.IDTable

	// entry is the cursor of ReadNext: the next entry to hand out.
	entry uint64

	// slots are resolved for slotSegment; a read landing in a different
	// segment re-resolves them.
	slotSegment int
	slots       []branchSlot
}

// branchSlot holds the resolved column handles of one collection within one
// chain segment. payload is nil for subset collections.
type branchSlot struct {
	payload *treestore.Branch
	refs    []*treestore.Branch
	vecs    []*treestore.Branch
}

// FileVersion returns the library version the first file of the dataset was
// written with.
func (r *Reader) FileVersion() model.Version {
	return r.version
}

// AvailableCategories returns every category with decodable metadata, in
// first-seen file order. Categories whose records fail to decode are
// omitted here but stay addressable: reading them reports the decode error.
func (r *Reader) AvailableCategories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.categories))
	for _, name := range r.categories {
		state := r.states[name]
		if r.closed && !state.initialized {
			continue
		}
		if err := r.initCategory(context.Background(), state); err != nil {
			continue
		}
		out = append(out, name)
	}
	return out
}

// AvailableDatamodels returns the names of the stored datamodel definitions.
func (r *Reader) AvailableDatamodels() []string {
	return r.datamodels.Names()
}

// DatamodelDefinition returns the JSON definition of one datamodel.
func (r *Reader) DatamodelDefinition(name string) (json.RawMessage, bool) {
	return r.datamodels.Definition(name)
}

// Entries returns the number of entries of a category, and false if the
// dataset has no such category.
func (r *Reader) Entries(category string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, false
	}
	state, ok := r.states[category]
	if !ok {
		return 0, false
	}
	if err := r.initCategory(context.Background(), state); err != nil {
		return 0, false
	}
	return state.tree.Entries(), true
}

// ReadNext reads the next frame of a category and advances its cursor.
// It returns (nil, nil) when the category is unknown or exhausted.
func (r *Reader) ReadNext(ctx context.Context, category string) (*FrameData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	state, ok := r.states[category]
	if !ok {
		return nil, nil
	}
	return r.read(ctx, state, state.entry)
}

// ReadAt reads the frame at a specific entry of a category. On success the
// category's cursor moves to entry+1, so ReadNext continues from there; on
// failure the cursor is untouched. It returns (nil, nil) when the category
// is unknown or entry is past its last entry.
func (r *Reader) ReadAt(ctx context.Context, category string, entry uint64) (*FrameData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	state, ok := r.states[category]
	if !ok {
		return nil, nil
	}
	return r.read(ctx, state, entry)
}

// CurrentEntry returns the cursor of a category: the entry the next
// ReadNext will hand out.
func (r *Reader) CurrentEntry(category string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[category]
	if !ok || r.closed {
		return 0, false
	}
	return state.entry, true
}

// Close releases all underlying files. Close is idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.chain.Close()
}

func (r *Reader) read(ctx context.Context, state *categoryState, entry uint64) (*FrameData, error) {
	start := time.Now()

	fd, err := r.readLocked(ctx, state, entry)
	if fd == nil && err == nil {
		// Exhausted; neither a read nor an error.
		return nil, nil
	}

	r.opts.metricsCollector.RecordRead(state.name, time.Since(start), err)
	r.opts.logger.LogRead(ctx, state.name, entry, err)
	return fd, err
}

func (r *Reader) readLocked(ctx context.Context, state *categoryState, entry uint64) (*FrameData, error) {
	if err := r.initCategory(ctx, state); err != nil {
		return nil, err
	}
	if entry >= state.tree.Entries() {
		return nil, nil
	}

	seg, local, ok := state.tree.Segment(entry)
	if !ok {
		return nil, &ReadError{Category: state.name, Entry: entry, cause: treestore.ErrOutOfRange}
	}
	if err := r.resolveSlots(state, seg); err != nil {
		return nil, &ReadError{Category: state.name, Entry: entry, cause: err}
	}

	fd := &FrameData{
		Category:    state.name,
		Entry:       entry,
		Collections: make([]CollectionBuffers, len(state.meta.Collections)),
		IDTable:     state.table,
	}

	for i, cm := range state.meta.Collections {
		slot := &state.slots[i]
		cb := CollectionBuffers{
			Name:          cm.Name,
			ID:            cm.ID,
			SchemaVersion: cm.SchemaVersion,
			Subset:        cm.Subset,
		}

		if slot.payload != nil {
			payload, err := slot.payload.Read(ctx, local)
			if err != nil {
				return nil, &ReadError{Category: state.name, Entry: entry, cause: err}
			}
			cb.Payload = payload
		}

		for _, b := range slot.refs {
			buf, err := b.Read(ctx, local)
			if err != nil {
				return nil, &ReadError{Category: state.name, Entry: entry, cause: err}
			}
			cb.Refs = append(cb.Refs, buf)
		}
		for _, b := range slot.vecs {
			buf, err := b.Read(ctx, local)
			if err != nil {
				return nil, &ReadError{Category: state.name, Entry: entry, cause: err}
			}
			cb.Vecs = append(cb.Vecs, buf)
		}

		fd.Collections[i] = cb
	}
	fd.index()

	p, err := r.readParameters(ctx, state, seg, local)
	if err != nil {
		return nil, &ReadError{Category: state.name, Entry: entry, cause: err}
	}
	fd.Parameters = p

	// Cursor only moves once the whole frame materialized.
	state.entry = entry + 1
	return fd, nil
}

func (r *Reader) readParameters(ctx context.Context, state *categoryState, seg int, local uint64) (*params.Parameters, error) {
	tree := state.tree.SegmentTree(seg)

	b, ok := tree.Branch(params.Branch)
	if !ok {
		// Datasets written without parameters have no such branch.
		return params.New(), nil
	}
	cell, err := b.Read(ctx, local)
	if err != nil {
		return nil, err
	}
	return params.Decode(r.opts.codec, cell)
}

// initCategory decodes the category's metadata record on first use. The
// outcome, success or failure, is cached: a broken category keeps failing
// without disturbing its siblings.
func (r *Reader) initCategory(ctx context.Context, state *categoryState) error {
	if state.initialized {
		return state.initErr
	}
	state.initialized = true

	start := time.Now()
	state.initErr = r.doInitCategory(ctx, state)

	collections := 0
	if state.meta != nil {
		collections = len(state.meta.Collections)
	}
	r.opts.metricsCollector.RecordCategoryInit(state.name, time.Since(start), state.initErr)
	r.opts.logger.LogCategoryInit(ctx, state.name, collections, state.initErr)
	return state.initErr
}

func (r *Reader) doInitCategory(ctx context.Context, state *categoryState) error {
	record, err := r.categoryRecord(ctx, state.name)
	if err != nil {
		return &CategoryInitError{Category: state.name, cause: err}
	}

	tree, ok := r.chain.Tree(state.name)
	if !ok {
		return &CategoryInitError{
			Category: state.name,
			cause:    errors.New("dataset lists the category but no file carries its tree"),
		}
	}

	state.meta = record
	state.table = record.IDTable()
	state.tree = tree
	state.slotSegment = -1
	return nil
}

// categoryRecord finds and decodes the category's metadata record in the
// first segment that carries it.
func (r *Reader) categoryRecord(ctx context.Context, category string) (*meta.CategoryMeta, error) {
	branch := meta.CategoryBranch(category)

	for seg := 0; seg < r.chain.Segments(); seg++ {
		mt, ok := r.chain.File(seg).Tree(meta.TreeName)
		if !ok || !mt.HasBranch(branch) {
			continue
		}
		b, _ := mt.Branch(branch)
		cell, err := b.Read(ctx, 0)
		if err != nil {
			return nil, err
		}
		return meta.DecodeCategory(cell)
	}
	return nil, fmt.Errorf("no metadata record for category %q", category)
}

// resolveSlots points the collection branch handles at one segment's tree.
// Handles are kept until a read lands in a different segment.
func (r *Reader) resolveSlots(state *categoryState, seg int) error {
	if state.slots != nil && state.slotSegment == seg {
		return nil
	}

	tree := state.tree.SegmentTree(seg)
	slots := make([]branchSlot, len(state.meta.Collections))

	for i, cm := range state.meta.Collections {
		var slot branchSlot

		if cm.Subset {
			// Subsets store a single reference column.
			b, ok := tree.Branch(meta.RefBranch(cm.Name, 0))
			if !ok {
				return fmt.Errorf("collection %q: missing subset reference branch", cm.Name)
			}
			slot.refs = []*treestore.Branch{b}
		} else {
			b, ok := tree.Branch(meta.PayloadBranch(cm.Name))
			if !ok {
				return fmt.Errorf("collection %q: missing payload branch", cm.Name)
			}
			slot.payload = b

			for j := 0; j < int(cm.RefCount); j++ {
				rb, ok := tree.Branch(meta.RefBranch(cm.Name, j))
				if !ok {
					return fmt.Errorf("collection %q: missing reference branch %d", cm.Name, j)
				}
				slot.refs = append(slot.refs, rb)
			}
			for j := 0; j < int(cm.VecCount); j++ {
				vb, ok := tree.Branch(meta.VecBranch(cm.Name, j))
				if !ok {
					return fmt.Errorf("collection %q: missing vector member branch %d", cm.Name, j)
				}
				slot.vecs = append(slot.vecs, vb)
			}
		}

		slots[i] = slot
	}

	state.slots = slots
	state.slotSegment = seg
	return nil
}
