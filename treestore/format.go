package treestore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/framio/internal/binenc"
)

// File layout:
//
//	header:  magic (4) | format version (2)
//	pages:   concatenated compressed branch pages
//	dir:     encoded directory (see encodeDirectory)
//	footer:  dir offset (8) | dir length (4) | dir CRC32 (4)
//
// All integers little-endian. The footer is fixed-size at the end of the
// file so a reader can locate the directory with two reads.
const (
	fileMagic     uint32 = 0x45525446 // "FTRE"
	formatVersion uint16 = 1
	headerSize           = 6
	footerSize           = 16
)

// pageInfo locates one compressed page of a branch.
type pageInfo struct {
	firstEntry uint64
	numEntries uint32
	offset     int64
	compLen    uint32
	rawLen     uint32
	crc        uint32
}

// branchInfo is the directory record of one branch.
type branchInfo struct {
	name     string
	codec    Compression
	presence *roaring.Bitmap
	pages    []pageInfo
}

// treeInfo is the directory record of one tree.
type treeInfo struct {
	name     string
	entries  uint64
	branches []branchInfo
	byName   map[string]int
}

func (t *treeInfo) index() {
	t.byName = make(map[string]int, len(t.branches))
	for i := range t.branches {
		t.byName[t.branches[i].name] = i
	}
}

func encodeDirectory(trees []treeInfo) ([]byte, error) {
	pb := binenc.New(make([]byte, 0, 256))

	pb.WriteUint32(uint32(len(trees)))
	for _, t := range trees {
		pb.WriteString(t.name)
		pb.WriteUint64(t.entries)
		pb.WriteUint32(uint32(len(t.branches)))
		for _, b := range t.branches {
			pb.WriteString(b.name)
			pb.WriteUint8(uint8(b.codec))

			presence, err := b.presence.ToBytes()
			if err != nil {
				return nil, fmt.Errorf("treestore: serialize presence bitmap: %w", err)
			}
			pb.WriteBytes(presence)

			pb.WriteUint32(uint32(len(b.pages)))
			for _, pg := range b.pages {
				pb.WriteUint64(pg.firstEntry)
				pb.WriteUint32(pg.numEntries)
				pb.WriteUint64(uint64(pg.offset))
				pb.WriteUint32(pg.compLen)
				pb.WriteUint32(pg.rawLen)
				pb.WriteUint32(pg.crc)
			}
		}
	}

	return pb.Bytes()
}

func decodeDirectory(payload []byte) ([]treeInfo, error) {
	pb := binenc.New(payload)

	numTrees := pb.ReadUint32()
	trees := make([]treeInfo, 0, numTrees)
	for i := uint32(0); i < numTrees; i++ {
		var t treeInfo
		t.name = pb.ReadString()
		t.entries = pb.ReadUint64()
		// Presence bitmaps index entries as uint32; larger counts cannot
		// have been written by any writer of this format.
		if pb.Err() == nil && t.entries > math.MaxUint32 {
			return nil, fmt.Errorf("%w: tree %q claims %d entries", ErrCorrupt, t.name, t.entries)
		}

		numBranches := pb.ReadUint32()
		t.branches = make([]branchInfo, 0, numBranches)
		for j := uint32(0); j < numBranches; j++ {
			var b branchInfo
			b.name = pb.ReadString()
			b.codec = Compression(pb.ReadUint8())
			if pb.Err() == nil && !b.codec.valid() {
				return nil, fmt.Errorf("%w: %d (branch %q)", ErrUnknownCodec, b.codec, b.name)
			}

			b.presence = roaring.New()
			presence := pb.ReadBytes()
			if pb.Err() == nil && len(presence) > 0 {
				if err := b.presence.UnmarshalBinary(presence); err != nil {
					return nil, fmt.Errorf("%w: presence bitmap of branch %q: %v", ErrCorrupt, b.name, err)
				}
			}

			numPages := pb.ReadUint32()
			b.pages = make([]pageInfo, 0, numPages)
			for k := uint32(0); k < numPages; k++ {
				var pg pageInfo
				pg.firstEntry = pb.ReadUint64()
				pg.numEntries = pb.ReadUint32()
				pg.offset = int64(pb.ReadUint64())
				pg.compLen = pb.ReadUint32()
				pg.rawLen = pb.ReadUint32()
				pg.crc = pb.ReadUint32()
				b.pages = append(b.pages, pg)
			}
			t.branches = append(t.branches, b)
		}

		t.index()
		trees = append(trees, t)
	}

	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("%w: directory: %v", ErrCorrupt, err)
	}
	return trees, nil
}

// encodePage serializes a run of cells into a raw (uncompressed) page:
// cell count, per-cell lengths, then the concatenated cell bytes.
func encodePage(cells [][]byte) []byte {
	size := 4 + 4*len(cells)
	for _, c := range cells {
		size += len(c)
	}

	raw := make([]byte, 0, size)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(cells)))
	for _, c := range cells {
		raw = binary.LittleEndian.AppendUint32(raw, uint32(len(c)))
	}
	for _, c := range cells {
		raw = append(raw, c...)
	}
	return raw
}

// cellAt extracts cell idx from a raw page produced by encodePage.
// The returned slice aliases the page and must be treated as read-only.
func cellAt(raw []byte, idx int) ([]byte, error) {
	pb := binenc.New(raw)
	count := int(pb.ReadUint32())
	if idx < 0 || idx >= count {
		return nil, fmt.Errorf("%w: cell %d of %d", ErrCorrupt, idx, count)
	}

	var start, length int
	for i := 0; i < count && pb.Err() == nil; i++ {
		l := int(pb.ReadUint32())
		if i < idx {
			start += l
		} else if i == idx {
			length = l
		}
	}
	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("%w: page cell table: %v", ErrCorrupt, err)
	}

	dataStart := 4 + 4*count + start
	if dataStart+length > len(raw) {
		return nil, fmt.Errorf("%w: cell %d exceeds page bounds", ErrCorrupt, idx)
	}
	return raw[dataStart : dataStart+length], nil
}
