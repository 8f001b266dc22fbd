// Package testutil provides testing utilities for framio.
//
// This package is intended for use in tests only. Its dataset writer
// produces the exact file layout the reader expects: category trees with one
// branch per collection column, a parameters branch, and the single-entry
// metadata tree.
//
//	store := blobstore.NewMemoryStore()
//	w := testutil.NewDatasetWriter(store, "run1.ftre")
//	events := w.Category("events", []meta.CollectionMeta{
//	    {Name: "hits", ID: 1, SchemaVersion: 2},
//	})
//	_ = events.Append(map[string]testutil.CollectionData{
//	    "hits": {Payload: []byte("...")},
//	}, nil)
//	_ = w.Close(ctx)
package testutil
