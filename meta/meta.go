package meta

import (
	"fmt"

	"github.com/hupe1980/framio/internal/binenc"
	"github.com/hupe1980/framio/model"
)

// Branch layout of the metadata tree. The tree has exactly one entry;
// category records live in one branch per category.
const (
	// TreeName is the name of the metadata tree inside every dataset file.
	TreeName = "framio_meta"

	// BranchVersion holds the encoded library version of the writer.
	BranchVersion = "version"

	// BranchCategories holds the encoded list of available categories.
	BranchCategories = "categories"

	// BranchDatamodels holds the encoded datamodel definitions.
	BranchDatamodels = "datamodels"
)

// CategoryBranch returns the metadata branch name of one category's record.
func CategoryBranch(category string) string {
	return "category_" + category
}

// Branch naming of collection columns inside a category tree. Full
// collections carry a payload branch plus one branch per reference and
// vector-member column; subset collections carry a single reference branch
// and no payload.

// PayloadBranch returns the payload column name of a collection.
func PayloadBranch(collection string) string {
	return collection
}

// RefBranch returns the name of reference column i of a collection.
func RefBranch(collection string, i int) string {
	return fmt.Sprintf("%s_ref%d", collection, i)
}

// VecBranch returns the name of vector-member column i of a collection.
func VecBranch(collection string, i int) string {
	return fmt.Sprintf("%s_vec%d", collection, i)
}

// CollectionMeta describes one collection of a category as stored on disk.
type CollectionMeta struct {
	Name          string
	ID            model.CollectionID
	Subset        bool
	SchemaVersion model.SchemaVersion
	// RefCount and VecCount are the number of reference and vector-member
	// columns the collection's type carries.
	RefCount uint32
	VecCount uint32
}

// CategoryMeta is the decoded per-category record.
type CategoryMeta struct {
	Name        string
	Collections []CollectionMeta
}

// IDTable builds the category's collection ID table. Table order follows
// the stored collection order.
func (cm *CategoryMeta) IDTable() *IDTable {
	names := make([]string, len(cm.Collections))
	ids := make([]model.CollectionID, len(cm.Collections))
	for i, c := range cm.Collections {
		names[i] = c.Name
		ids[i] = c.ID
	}
	return NewIDTable(names, ids)
}

// EncodeVersion serializes a library version.
func EncodeVersion(v model.Version) ([]byte, error) {
	pb := binenc.New(make([]byte, 0, 6))
	pb.WriteUint16(v.Major)
	pb.WriteUint16(v.Minor)
	pb.WriteUint16(v.Patch)
	return pb.Bytes()
}

// DecodeVersion reverses EncodeVersion.
func DecodeVersion(payload []byte) (model.Version, error) {
	pb := binenc.New(payload)
	v := model.Version{
		Major: pb.ReadUint16(),
		Minor: pb.ReadUint16(),
		Patch: pb.ReadUint16(),
	}
	if err := pb.Err(); err != nil {
		return model.Version{}, fmt.Errorf("meta: decode version: %w", err)
	}
	return v, nil
}

// EncodeStringList serializes a list of strings, used for the category list.
func EncodeStringList(values []string) ([]byte, error) {
	pb := binenc.New(make([]byte, 0, 64))
	pb.WriteUint32(uint32(len(values)))
	for _, v := range values {
		pb.WriteString(v)
	}
	return pb.Bytes()
}

// DecodeStringList reverses EncodeStringList.
func DecodeStringList(payload []byte) ([]string, error) {
	pb := binenc.New(payload)
	n := pb.ReadUint32()
	out := make([]string, 0, n)
	for i := uint32(0); i < n && pb.Err() == nil; i++ {
		out = append(out, pb.ReadString())
	}
	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("meta: decode string list: %w", err)
	}
	return out, nil
}

// EncodeCategory serializes a category record. Collections are stored as
// parallel lists, one per field.
func EncodeCategory(cm *CategoryMeta) ([]byte, error) {
	pb := binenc.New(make([]byte, 0, 256))
	pb.WriteString(cm.Name)

	pb.WriteUint32(uint32(len(cm.Collections)))
	for _, c := range cm.Collections {
		pb.WriteString(c.Name)
	}
	pb.WriteUint32(uint32(len(cm.Collections)))
	for _, c := range cm.Collections {
		pb.WriteUint32(uint32(c.ID))
	}
	pb.WriteUint32(uint32(len(cm.Collections)))
	for _, c := range cm.Collections {
		pb.WriteBool(c.Subset)
	}
	pb.WriteUint32(uint32(len(cm.Collections)))
	for _, c := range cm.Collections {
		pb.WriteUint32(uint32(c.SchemaVersion))
	}
	pb.WriteUint32(uint32(len(cm.Collections)))
	for _, c := range cm.Collections {
		pb.WriteUint32(c.RefCount)
	}
	pb.WriteUint32(uint32(len(cm.Collections)))
	for _, c := range cm.Collections {
		pb.WriteUint32(c.VecCount)
	}

	return pb.Bytes()
}

// DecodeCategory reverses EncodeCategory. The parallel lists must agree on
// their length; a mismatch yields an *InconsistencyError.
func DecodeCategory(payload []byte) (*CategoryMeta, error) {
	pb := binenc.New(payload)

	cm := &CategoryMeta{Name: pb.ReadString()}

	names := int(pb.ReadUint32())
	cm.Collections = make([]CollectionMeta, 0, names)
	for i := 0; i < names && pb.Err() == nil; i++ {
		cm.Collections = append(cm.Collections, CollectionMeta{Name: pb.ReadString()})
	}

	check := func(field string, n int) error {
		if pb.Err() == nil && n != names {
			return &InconsistencyError{
				Category: cm.Name,
				Field:    field,
				Want:     names,
				Got:      n,
			}
		}
		return nil
	}

	ids := int(pb.ReadUint32())
	if err := check("ids", ids); err != nil {
		return nil, err
	}
	for i := 0; i < ids && pb.Err() == nil; i++ {
		cm.Collections[i].ID = model.CollectionID(pb.ReadUint32())
	}

	subsets := int(pb.ReadUint32())
	if err := check("subsets", subsets); err != nil {
		return nil, err
	}
	for i := 0; i < subsets && pb.Err() == nil; i++ {
		cm.Collections[i].Subset = pb.ReadBool()
	}

	versions := int(pb.ReadUint32())
	if err := check("schema versions", versions); err != nil {
		return nil, err
	}
	for i := 0; i < versions && pb.Err() == nil; i++ {
		cm.Collections[i].SchemaVersion = model.SchemaVersion(pb.ReadUint32())
	}

	refs := int(pb.ReadUint32())
	if err := check("reference counts", refs); err != nil {
		return nil, err
	}
	for i := 0; i < refs && pb.Err() == nil; i++ {
		cm.Collections[i].RefCount = pb.ReadUint32()
	}

	vecs := int(pb.ReadUint32())
	if err := check("vector member counts", vecs); err != nil {
		return nil, err
	}
	for i := 0; i < vecs && pb.Err() == nil; i++ {
		cm.Collections[i].VecCount = pb.ReadUint32()
	}

	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("meta: decode category record: %w", err)
	}
	return cm, nil
}
