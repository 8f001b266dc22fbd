package framio_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/framio"
	"github.com/hupe1980/framio/blobstore"
	"github.com/hupe1980/framio/meta"
	"github.com/hupe1980/framio/model"
	"github.com/hupe1980/framio/params"
	"github.com/hupe1980/framio/testutil"
	"github.com/hupe1980/framio/treestore"
)

var eventCollections = []meta.CollectionMeta{
	{Name: "hits", ID: 1, SchemaVersion: 2, RefCount: 1, VecCount: 2},
	{Name: "goodHits", ID: 2, Subset: true, SchemaVersion: 2},
	{Name: "tracks", ID: 3, SchemaVersion: 1},
}

func eventFrame(i int) map[string]testutil.CollectionData {
	return map[string]testutil.CollectionData{
		"hits": {
			Payload: []byte(fmt.Sprintf("hits-%d", i)),
			Refs:    [][]byte{[]byte(fmt.Sprintf("hits-ref0-%d", i))},
			Vecs: [][]byte{
				[]byte(fmt.Sprintf("hits-vec0-%d", i)),
				[]byte(fmt.Sprintf("hits-vec1-%d", i)),
			},
		},
		"goodHits": {
			Refs: [][]byte{[]byte(fmt.Sprintf("goodHits-ref0-%d", i))},
		},
		"tracks": {
			Payload: []byte(fmt.Sprintf("tracks-%d", i)),
		},
	}
}

// writeEventFile writes a dataset file with the events category holding
// frames [firstEntry, firstEntry+count).
func writeEventFile(t *testing.T, store blobstore.BlobStore, name string, firstEntry, count int) {
	t.Helper()
	ctx := context.Background()

	w := testutil.NewDatasetWriter(store, name,
		testutil.WithVersion(model.Version{Major: 1, Minor: 4, Patch: 2}),
		testutil.WithDatamodel("edm4hep", json.RawMessage(`{"version":"1.0"}`)),
	)
	events := w.Category("events", eventCollections)
	for i := firstEntry; i < firstEntry+count; i++ {
		p := params.New()
		p.Ints["eventNumber"] = []int64{int64(i)}
		require.NoError(t, events.Append(eventFrame(i), p))
	}
	require.NoError(t, w.Close(ctx))
}

func TestReadNextUntilExhausted(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 3)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 3; i++ {
		frame, err := r.ReadNext(ctx, "events")
		require.NoError(t, err)
		require.NotNil(t, frame, "frame %d", i)

		assert.Equal(t, "events", frame.Category)
		assert.Equal(t, uint64(i), frame.Entry)

		hits, ok := frame.Buffers("hits")
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("hits-%d", i), string(hits.Payload))

		assert.Equal(t, []int64{int64(i)}, frame.Parameters.Ints["eventNumber"])
	}

	// Exhausted: nil frame, nil error, and it stays that way.
	frame, err := r.ReadNext(ctx, "events")
	require.NoError(t, err)
	assert.Nil(t, frame)

	frame, err = r.ReadNext(ctx, "events")
	require.NoError(t, err)
	assert.Nil(t, frame)
}

func TestReadUnknownCategory(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 1)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	frame, err := r.ReadNext(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, frame)

	frame, err = r.ReadAt(ctx, "nope", 0)
	require.NoError(t, err)
	assert.Nil(t, frame)

	_, ok := r.Entries("nope")
	assert.False(t, ok)
}

func TestReadAtSeekThenSequential(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 4)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	frame, err := r.ReadAt(ctx, "events", 2)
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, uint64(2), frame.Entry)

	// ReadNext continues right after the seek target.
	frame, err = r.ReadNext(ctx, "events")
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, uint64(3), frame.Entry)
}

func TestReadAtIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 3)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	first, err := r.ReadAt(ctx, "events", 1)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := r.ReadAt(ctx, "events", 1)
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.Entry, second.Entry)
	assert.Equal(t, first.Collections, second.Collections)
	assert.Equal(t, first.Parameters, second.Parameters)
}

func TestReadAtIsIdempotentAcrossSegments(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 3)
	writeEventFile(t, store, "run2.ftre", 3, 2)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre", "run2.ftre"})
	require.NoError(t, err)
	defer r.Close()

	first, err := r.ReadAt(ctx, "events", 1)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Hop into the second file so the branch handles resolve there.
	mid, err := r.ReadAt(ctx, "events", 4)
	require.NoError(t, err)
	require.NotNil(t, mid)
	hits, ok := mid.Buffers("hits")
	require.True(t, ok)
	assert.Equal(t, "hits-4", string(hits.Payload))

	// Re-reading the first-file entry forces the handles back to the first
	// segment and must yield the identical frame.
	second, err := r.ReadAt(ctx, "events", 1)
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.Entry, second.Entry)
	assert.Equal(t, first.Collections, second.Collections)
	assert.Equal(t, first.Parameters, second.Parameters)
}

func TestReadAtPastEnd(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 2)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	frame, err := r.ReadAt(ctx, "events", 2)
	require.NoError(t, err)
	assert.Nil(t, frame)

	// The failed seek must not move the cursor.
	entry, ok := r.CurrentEntry("events")
	require.True(t, ok)
	assert.Equal(t, uint64(0), entry)
}

func TestChainedFiles(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 3)
	writeEventFile(t, store, "run2.ftre", 3, 2)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre", "run2.ftre"})
	require.NoError(t, err)
	defer r.Close()

	n, ok := r.Entries("events")
	require.True(t, ok)
	assert.Equal(t, uint64(5), n)

	// Sequential reads cross the file boundary in order.
	for i := 0; i < 5; i++ {
		frame, err := r.ReadNext(ctx, "events")
		require.NoError(t, err)
		require.NotNil(t, frame, "frame %d", i)

		hits, ok := frame.Buffers("hits")
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("hits-%d", i), string(hits.Payload))
	}

	frame, err := r.ReadNext(ctx, "events")
	require.NoError(t, err)
	assert.Nil(t, frame)

	// Direct access into the second file.
	frame, err = r.ReadAt(ctx, "events", 4)
	require.NoError(t, err)
	require.NotNil(t, frame)
	tracks, ok := frame.Buffers("tracks")
	require.True(t, ok)
	assert.Equal(t, "tracks-4", string(tracks.Payload))
}

func TestCollectionBufferShapes(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 1)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	frame, err := r.ReadNext(ctx, "events")
	require.NoError(t, err)
	require.NotNil(t, frame)

	// Full collection: payload plus the declared ref and vec columns.
	hits, ok := frame.Buffers("hits")
	require.True(t, ok)
	assert.False(t, hits.Subset)
	assert.Equal(t, "hits-0", string(hits.Payload))
	require.Len(t, hits.Refs, 1)
	assert.Equal(t, "hits-ref0-0", string(hits.Refs[0]))
	require.Len(t, hits.Vecs, 2)
	assert.Equal(t, "hits-vec0-0", string(hits.Vecs[0]))
	assert.Equal(t, "hits-vec1-0", string(hits.Vecs[1]))

	// Subset collection: no payload, exactly one reference buffer.
	good, ok := frame.Buffers("goodHits")
	require.True(t, ok)
	assert.True(t, good.Subset)
	assert.Nil(t, good.Payload)
	require.Len(t, good.Refs, 1)
	assert.Equal(t, "goodHits-ref0-0", string(good.Refs[0]))
	assert.Empty(t, good.Vecs)

	// ID table is shared and consistent with the buffers.
	id, ok := frame.IDTable.ID("hits")
	require.True(t, ok)
	assert.Equal(t, model.CollectionID(1), id)
	assert.Equal(t, []string{"hits", "goodHits", "tracks"}, frame.CollectionNames())
}

func TestDatasetMetadata(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 1)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, model.Version{Major: 1, Minor: 4, Patch: 2}, r.FileVersion())
	assert.Equal(t, []string{"events"}, r.AvailableCategories())
	assert.Equal(t, []string{"edm4hep"}, r.AvailableDatamodels())

	def, ok := r.DatamodelDefinition("edm4hep")
	require.True(t, ok)
	assert.JSONEq(t, `{"version":"1.0"}`, string(def))

	_, ok = r.DatamodelDefinition("nope")
	assert.False(t, ok)
}

func TestCategoriesUnionAcrossFiles(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 1)

	// Second file carries an additional category.
	w := testutil.NewDatasetWriter(store, "run2.ftre")
	events := w.Category("events", eventCollections)
	require.NoError(t, events.Append(eventFrame(1), nil))
	runs := w.Category("runs", []meta.CollectionMeta{
		{Name: "runInfo", ID: 1, SchemaVersion: 1},
	})
	require.NoError(t, runs.Append(map[string]testutil.CollectionData{
		"runInfo": {Payload: []byte("run-0")},
	}, nil))
	require.NoError(t, w.Close(ctx))

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre", "run2.ftre"})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"events", "runs"}, r.AvailableCategories())

	n, ok := r.Entries("runs")
	require.True(t, ok)
	assert.Equal(t, uint64(1), n)

	frame, err := r.ReadNext(ctx, "runs")
	require.NoError(t, err)
	require.NotNil(t, frame)

	runInfo, ok := frame.Buffers("runInfo")
	require.True(t, ok)
	assert.Equal(t, "run-0", string(runInfo.Payload))
}

func TestFramesWithoutParameters(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := testutil.NewDatasetWriter(store, "run1.ftre")
	events := w.Category("events", eventCollections)
	require.NoError(t, events.Append(eventFrame(0), nil))
	require.NoError(t, w.Close(ctx))

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	frame, err := r.ReadNext(ctx, "events")
	require.NoError(t, err)
	require.NotNil(t, frame)

	require.NotNil(t, frame.Parameters)
	assert.True(t, frame.Parameters.Empty())
}

func TestBrokenCategoryIsolated(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	// Assemble a file with one healthy and one broken category record.
	w := treestore.NewWriter(store, "run1.ftre")

	events := w.Tree("events")
	require.NoError(t, events.Fill(map[string][]byte{
		meta.PayloadBranch("tracks"): []byte("tracks-0"),
	}))
	broken := w.Tree("broken")
	require.NoError(t, broken.Fill(map[string][]byte{"x": []byte("x0")}))

	versionCell, err := meta.EncodeVersion(model.Version{Major: 1})
	require.NoError(t, err)
	categoriesCell, err := meta.EncodeStringList([]string{"events", "broken"})
	require.NoError(t, err)
	datamodelsCell, err := meta.NewDatamodelHolder(nil).Encode()
	require.NoError(t, err)
	goodRecord, err := meta.EncodeCategory(&meta.CategoryMeta{
		Name:        "events",
		Collections: []meta.CollectionMeta{{Name: "tracks", ID: 1, SchemaVersion: 1}},
	})
	require.NoError(t, err)
	badRecord, err := meta.EncodeCategory(&meta.CategoryMeta{
		Name:        "broken",
		Collections: []meta.CollectionMeta{{Name: "x", ID: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, w.Tree(meta.TreeName).Fill(map[string][]byte{
		meta.BranchVersion:             versionCell,
		meta.BranchCategories:          categoriesCell,
		meta.BranchDatamodels:          datamodelsCell,
		meta.CategoryBranch("events"):  goodRecord,
		meta.CategoryBranch("broken"):  badRecord[:len(badRecord)-3], // truncated record
	}))
	require.NoError(t, w.Close(ctx))

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	// The broken category fails, consistently.
	_, err = r.ReadNext(ctx, "broken")
	require.Error(t, err)
	var initErr *framio.CategoryInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "broken", initErr.Category)

	_, err2 := r.ReadNext(ctx, "broken")
	require.Error(t, err2)
	assert.Equal(t, err.Error(), err2.Error())

	// The broken category is not advertised, but the healthy one is.
	assert.Equal(t, []string{"events"}, r.AvailableCategories())

	// The healthy one is unaffected.
	frame, err := r.ReadNext(ctx, "events")
	require.NoError(t, err)
	require.NotNil(t, frame)
	tracks, ok := frame.Buffers("tracks")
	require.True(t, ok)
	assert.Equal(t, "tracks-0", string(tracks.Payload))
}

func TestFailedReadKeepsCursor(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	// The record declares a collection whose branches do not exist.
	w := treestore.NewWriter(store, "run1.ftre")
	events := w.Tree("events")
	require.NoError(t, events.Fill(map[string][]byte{"other": []byte("o0")}))

	versionCell, err := meta.EncodeVersion(model.Version{Major: 1})
	require.NoError(t, err)
	categoriesCell, err := meta.EncodeStringList([]string{"events"})
	require.NoError(t, err)
	datamodelsCell, err := meta.NewDatamodelHolder(nil).Encode()
	require.NoError(t, err)
	record, err := meta.EncodeCategory(&meta.CategoryMeta{
		Name:        "events",
		Collections: []meta.CollectionMeta{{Name: "hits", ID: 1, SchemaVersion: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, w.Tree(meta.TreeName).Fill(map[string][]byte{
		meta.BranchVersion:            versionCell,
		meta.BranchCategories:         categoriesCell,
		meta.BranchDatamodels:         datamodelsCell,
		meta.CategoryBranch("events"): record,
	}))
	require.NoError(t, w.Close(ctx))

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadNext(ctx, "events")
	require.Error(t, err)
	var readErr *framio.ReadError
	require.ErrorAs(t, err, &readErr)

	entry, ok := r.CurrentEntry("events")
	require.True(t, ok)
	assert.Equal(t, uint64(0), entry)
}

func TestOpenLocalFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := blobstore.NewLocalStore(dir)
	require.NoError(t, err)
	writeEventFile(t, store, "run1.ftre", 0, 2)
	writeEventFile(t, store, "run2.ftre", 2, 1)

	r, err := framio.OpenFiles(ctx, []string{
		filepath.Join(dir, "run1.ftre"),
		filepath.Join(dir, "run2.ftre"),
	})
	require.NoError(t, err)
	defer r.Close()

	n, ok := r.Entries("events")
	require.True(t, ok)
	assert.Equal(t, uint64(3), n)

	for i := 0; i < 3; i++ {
		frame, err := r.ReadNext(ctx, "events")
		require.NoError(t, err)
		require.NotNil(t, frame)
		assert.Equal(t, uint64(i), frame.Entry)
	}
}

func TestOpenMissingFile(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := framio.OpenStore(ctx, store, []string{"nope.ftre"})
	require.Error(t, err)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestClosedReader(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 1)

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close()) // idempotent

	_, err = r.ReadNext(ctx, "events")
	require.ErrorIs(t, err, framio.ErrClosed)

	_, err = r.ReadAt(ctx, "events", 0)
	require.ErrorIs(t, err, framio.ErrClosed)
}

func TestReaderMetrics(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeEventFile(t, store, "run1.ftre", 0, 2)

	mc := &framio.BasicMetricsCollector{}
	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"},
		framio.WithMetricsCollector(mc),
	)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 2; i++ {
		_, err := r.ReadNext(ctx, "events")
		require.NoError(t, err)
	}

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Equal(t, int64(2), stats.ReadCount)
	assert.Equal(t, int64(0), stats.ReadErrors)
	assert.Equal(t, int64(1), stats.InitCount)
}
