// Package framio reads frame-oriented, column-stored datasets.
//
// A dataset is one or more immutable files, each holding categorized entry
// streams ("events", "runs", ...). Every entry of a category is a frame: the
// raw buffers of its collections plus free-form parameters. framio hands
// those buffers out untouched; interpreting them is the caller's concern.
//
// Open a dataset from local files, or from any blob store (S3, MinIO,
// in-memory) via OpenStore, then pull frames per category:
//
//	r, err := framio.OpenFiles(ctx, []string{"run1.ftre", "run2.ftre"})
//	if err != nil { ... }
//	defer r.Close()
//
//	for {
//	    frame, err := r.ReadNext(ctx, "events")
//	    if err != nil { ... }
//	    if frame == nil {
//	        break // category exhausted
//	    }
//	    ...
//	}
//
// ReadNext and ReadAt return a nil frame, not an error, when the category is
// unknown or its entries are exhausted; errors are reserved for I/O and
// corruption.
package framio
