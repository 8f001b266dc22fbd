package framio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/framio/blobstore"
	"github.com/hupe1980/framio/internal/cache"
	"github.com/hupe1980/framio/meta"
	"github.com/hupe1980/framio/model"
	"github.com/hupe1980/framio/treestore"
)

// Open opens a dataset consisting of a single local file.
func Open(ctx context.Context, path string, optFns ...Option) (*Reader, error) {
	return OpenFiles(ctx, []string{path}, optFns...)
}

// OpenFiles opens a dataset chained from local files, in the given order.
func OpenFiles(ctx context.Context, paths []string, optFns ...Option) (*Reader, error) {
	if len(paths) == 0 {
		return nil, errors.New("framio: no files given")
	}

	names := make([]string, len(paths))
	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("framio: resolve %s: %w", path, err)
		}
		names[i] = strings.TrimPrefix(filepath.ToSlash(abs), "/")
	}

	store, err := blobstore.NewLocalStore("/")
	if err != nil {
		return nil, err
	}
	return OpenStore(ctx, store, names, optFns...)
}

// OpenStore opens a dataset chained from blobs of any store, in the given
// order. Use this for S3, MinIO or in-memory datasets.
func OpenStore(ctx context.Context, store blobstore.BlobStore, names []string, optFns ...Option) (*Reader, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()
	r, err := openStore(ctx, store, names, opts)

	opts.metricsCollector.RecordOpen(len(names), time.Since(start), err)
	opts.logger.LogOpen(ctx, len(names), err)
	return r, err
}

func openStore(ctx context.Context, store blobstore.BlobStore, names []string, opts options) (*Reader, error) {
	if len(names) == 0 {
		return nil, errors.New("framio: no files given")
	}

	var fileOpts []func(o *treestore.FileOptions)
	if opts.pageCacheBytes > 0 {
		pageCache := cache.NewLRU(opts.pageCacheBytes)
		fileOpts = append(fileOpts, func(o *treestore.FileOptions) {
			o.Cache = pageCache
		})
	}

	chain, err := treestore.OpenChain(ctx, store, names, fileOpts...)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		chain:  chain,
		opts:   opts,
		states: make(map[string]*categoryState),
	}
	if err := r.loadMetadata(ctx); err != nil {
		_ = chain.Close()
		return nil, err
	}
	return r, nil
}

// loadMetadata reads the dataset-level records: version and datamodel
// definitions from the first file, the category list as the first-seen-order
// union across all files.
func (r *Reader) loadMetadata(ctx context.Context) error {
	first, ok := r.chain.File(0).Tree(meta.TreeName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoMetadata, r.chain.File(0).Name())
	}

	cell, err := readMetaCell(ctx, first, meta.BranchVersion)
	if err != nil {
		return err
	}
	version, err := meta.DecodeVersion(cell)
	if err != nil {
		return err
	}
	r.version = version

	cell, err = readMetaCell(ctx, first, meta.BranchDatamodels)
	if err != nil {
		return err
	}
	datamodels, err := meta.DecodeDatamodels(cell)
	if err != nil {
		return err
	}
	r.datamodels = datamodels

	seen := make(map[string]bool)
	for seg := 0; seg < r.chain.Segments(); seg++ {
		mt, ok := r.chain.File(seg).Tree(meta.TreeName)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoMetadata, r.chain.File(seg).Name())
		}

		cell, err := readMetaCell(ctx, mt, meta.BranchCategories)
		if err != nil {
			return err
		}
		categories, err := meta.DecodeStringList(cell)
		if err != nil {
			return err
		}

		for _, category := range categories {
			if seen[category] {
				continue
			}
			seen[category] = true
			r.categories = append(r.categories, category)
			r.states[category] = &categoryState{name: category, slotSegment: -1}
		}
	}
	return nil
}

func readMetaCell(ctx context.Context, mt *treestore.Tree, branch string) ([]byte, error) {
	b, ok := mt.Branch(branch)
	if !ok {
		return nil, fmt.Errorf("framio: metadata tree has no %q branch", branch)
	}
	return b.Read(ctx, 0)
}

// Version is the library version stamped into files written by this build.
var Version = model.Version{Major: 1, Minor: 0, Patch: 0}
