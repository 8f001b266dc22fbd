package meta

import "github.com/hupe1980/framio/model"

// IDTable maps collection names to their stable numeric IDs and back.
// Tables are immutable once built and safe for concurrent use; all frames of
// a category share the same table.
type IDTable struct {
	names  []string
	ids    []model.CollectionID
	byName map[string]model.CollectionID
	byID   map[model.CollectionID]string
}

// NewIDTable builds a table from parallel name and ID lists.
func NewIDTable(names []string, ids []model.CollectionID) *IDTable {
	t := &IDTable{
		names:  append([]string(nil), names...),
		ids:    append([]model.CollectionID(nil), ids...),
		byName: make(map[string]model.CollectionID, len(names)),
		byID:   make(map[model.CollectionID]string, len(names)),
	}
	for i, name := range t.names {
		t.byName[name] = t.ids[i]
		t.byID[t.ids[i]] = name
	}
	return t
}

// Names returns the collection names in table order.
func (t *IDTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// ID returns the collection ID of name.
func (t *IDTable) ID(name string) (model.CollectionID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the collection name of id.
func (t *IDTable) Name(id model.CollectionID) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// Has reports whether the table contains name.
func (t *IDTable) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Len returns the number of collections in the table.
func (t *IDTable) Len() int {
	return len(t.names)
}
