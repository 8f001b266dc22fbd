package framio_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/framio"
	"github.com/hupe1980/framio/blobstore"
	"github.com/hupe1980/framio/meta"
	"github.com/hupe1980/framio/testutil"
)

// Example_readAll demonstrates draining one category of a dataset.
func Example_readAll() {
	ctx := context.Background()

	// Datasets normally live on disk or object storage; an in-memory store
	// keeps the example self-contained.
	store := blobstore.NewMemoryStore()
	w := testutil.NewDatasetWriter(store, "run1.ftre")
	events := w.Category("events", []meta.CollectionMeta{
		{Name: "hits", ID: 1, SchemaVersion: 1},
	})
	for i := 0; i < 2; i++ {
		if err := events.Append(map[string]testutil.CollectionData{
			"hits": {Payload: []byte(fmt.Sprintf("hits-%d", i))},
		}, nil); err != nil {
			log.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		log.Fatal(err)
	}

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	for {
		frame, err := r.ReadNext(ctx, "events")
		if err != nil {
			log.Fatal(err)
		}
		if frame == nil {
			break // category exhausted
		}
		hits, _ := frame.Buffers("hits")
		fmt.Printf("entry %d: %s\n", frame.Entry, hits.Payload)
	}
	// Output:
	// entry 0: hits-0
	// entry 1: hits-1
}

// Example_randomAccess demonstrates seeking to an entry and continuing
// sequentially from there.
func Example_randomAccess() {
	ctx := context.Background()

	store := blobstore.NewMemoryStore()
	w := testutil.NewDatasetWriter(store, "run1.ftre")
	events := w.Category("events", []meta.CollectionMeta{
		{Name: "hits", ID: 1, SchemaVersion: 1},
	})
	for i := 0; i < 4; i++ {
		if err := events.Append(map[string]testutil.CollectionData{
			"hits": {Payload: []byte(fmt.Sprintf("hits-%d", i))},
		}, nil); err != nil {
			log.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		log.Fatal(err)
	}

	r, err := framio.OpenStore(ctx, store, []string{"run1.ftre"})
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	frame, err := r.ReadAt(ctx, "events", 2)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("seeked to entry", frame.Entry)

	// ReadNext continues after the seek target.
	frame, err = r.ReadNext(ctx, "events")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("next entry is", frame.Entry)
	// Output:
	// seeked to entry 2
	// next entry is 3
}
