// Package mmap provides memory-mapped read access to dataset segment files.
//
// Memory mapping allows direct access to file contents without copying data
// through kernel buffers, which matters for large columnar dataset files that
// are read with random access patterns.
//
//	m, err := mmap.Open("run01.ftre")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // zero-copy view of the whole file
//	m.Advise(mmap.AccessRandom)
//
// Unix platforms use mmap(2) with madvise(2) hints; Windows uses
// CreateFileMapping/MapViewOfFile (advise is a no-op there).
//
// Mapping is safe for concurrent reads. Close is idempotent, but callers must
// ensure no goroutine touches Bytes() after Close returns.
package mmap
