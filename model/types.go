package model

import "fmt"

// CollectionID is the stable numeric identifier of a collection within a
// category. IDs are assigned when a dataset is written and never change for
// the lifetime of the dataset.
type CollectionID uint32

// SchemaVersion is the on-disk schema version of a single collection.
// It is consumed as a dispatch key by downstream reconstruction; the reader
// itself never interprets buffer layouts.
type SchemaVersion uint32

// Version is a semantic version triple.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// String returns the version in "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v is strictly older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}
