// Package binenc provides the little-endian payload buffer used by framio's
// binary sections (tree directories, category metadata).
//
// The buffer carries a sticky error so encode/decode sequences read linearly
// and are checked once at the end.
package binenc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Buffer encodes and decodes little-endian payloads with a sticky error.
type Buffer struct {
	buf []byte
	pos int
	err error
}

// New creates a Buffer over b. Pass nil (or a pre-allocated slice) for
// writing; pass encoded bytes for reading.
func New(b []byte) *Buffer {
	return &Buffer{buf: b}
}

// Err returns the first error encountered, if any.
func (p *Buffer) Err() error { return p.err }

// Bytes returns the encoded payload and the sticky error.
func (p *Buffer) Bytes() ([]byte, error) { return p.buf, p.err }

func (p *Buffer) WriteUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

func (p *Buffer) WriteUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *Buffer) WriteUint16(v uint16) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, v)
}

func (p *Buffer) WriteUint8(v uint8) {
	if p.err != nil {
		return
	}
	p.buf = append(p.buf, v)
}

func (p *Buffer) WriteBool(v bool) {
	if v {
		p.WriteUint8(1)
	} else {
		p.WriteUint8(0)
	}
}

func (p *Buffer) WriteString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > 65535 {
		p.err = fmt.Errorf("binenc: string too long: %d", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
}

// WriteBytes writes a uint32 length-prefixed byte slice.
func (p *Buffer) WriteBytes(b []byte) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(len(b)))
	p.buf = append(p.buf, b...)
}

func (p *Buffer) ReadUint64() uint64 {
	if p.err != nil {
		return 0
	}
	if p.pos+8 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *Buffer) ReadUint32() uint32 {
	if p.err != nil {
		return 0
	}
	if p.pos+4 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *Buffer) ReadUint16() uint16 {
	if p.err != nil {
		return 0
	}
	if p.pos+2 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v
}

func (p *Buffer) ReadUint8() uint8 {
	if p.err != nil {
		return 0
	}
	if p.pos+1 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := p.buf[p.pos]
	p.pos++
	return v
}

func (p *Buffer) ReadBool() bool {
	return p.ReadUint8() != 0
}

func (p *Buffer) ReadString() string {
	if p.err != nil {
		return ""
	}
	if p.pos+2 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	l := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2

	if p.pos+int(l) > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	s := string(p.buf[p.pos : p.pos+int(l)])
	p.pos += int(l)
	return s
}

// ReadBytes reads a uint32 length-prefixed byte slice. The returned slice is
// a copy and safe to retain.
func (p *Buffer) ReadBytes() []byte {
	if p.err != nil {
		return nil
	}
	if p.pos+4 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return nil
	}
	l := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4

	if p.pos+int(l) > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return nil
	}
	b := make([]byte, l)
	copy(b, p.buf[p.pos:p.pos+int(l)])
	p.pos += int(l)
	return b
}
