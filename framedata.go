package framio

import (
	"github.com/hupe1980/framio/meta"
	"github.com/hupe1980/framio/model"
	"github.com/hupe1980/framio/params"
)

// CollectionBuffers are the raw column buffers of one collection at one
// entry. Payload, Refs and Vecs are handed out as read from disk; framio
// never interprets them.
type CollectionBuffers struct {
	Name          string
	ID            model.CollectionID
	SchemaVersion model.SchemaVersion

	// Subset marks subset collections. A subset carries exactly one
	// reference buffer and no payload or vector-member buffers.
	Subset bool

	// Payload is the main column buffer. Nil for subset collections.
	Payload []byte

	// Refs holds one buffer per reference column.
	Refs [][]byte

	// Vecs holds one buffer per vector-member column.
	Vecs [][]byte
}

// FrameData is one fully materialized frame: every collection buffer of a
// category entry, the frame parameters, and the category's collection ID
// table.
type FrameData struct {
	// Category is the entry stream this frame came from.
	Category string

	// Entry is the global (chain-wide) entry index of the frame.
	Entry uint64

	// Collections holds the buffers in the category's table order.
	Collections []CollectionBuffers

	// Parameters are the frame's key/value annotations. Never nil.
	Parameters *params.Parameters

	// IDTable maps collection names to IDs. Shared by all frames of the
	// category; treat as read-only.
	IDTable *meta.IDTable

	byName map[string]int
}

// Buffers returns the buffers of one collection by name.
func (fd *FrameData) Buffers(name string) (*CollectionBuffers, bool) {
	idx, ok := fd.byName[name]
	if !ok {
		return nil, false
	}
	return &fd.Collections[idx], true
}

// CollectionNames returns the collection names in table order.
func (fd *FrameData) CollectionNames() []string {
	out := make([]string, len(fd.Collections))
	for i := range fd.Collections {
		out[i] = fd.Collections[i].Name
	}
	return out
}

func (fd *FrameData) index() {
	fd.byName = make(map[string]int, len(fd.Collections))
	for i := range fd.Collections {
		fd.byName[fd.Collections[i].Name] = i
	}
}
