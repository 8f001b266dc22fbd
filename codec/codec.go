// Package codec centralizes value encoding for framio's self-describing
// side data (per-entry parameters and datamodel definitions).
//
// Codec selection is a compatibility boundary: datasets record the codec
// name next to the encoded bytes, and the reader selects the codec by name
// when decoding. Changing codecs does not invalidate existing files.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// This is used by self-describing sections of the file format that store the
// codec name next to the payload.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
