// Package params holds the free-form key/value parameters attached to each
// frame: integers, floats, doubles and strings, each keyed by name and
// holding a list of values.
//
// Parameters are serialized with the configured codec and stored in a
// dedicated branch of the category tree, one cell per entry.
package params

import (
	"fmt"

	"github.com/hupe1980/framio/codec"
)

// Branch is the name of the category-tree branch holding frame parameters.
const Branch = "framio_params"

// Parameters are the per-frame key/value annotations. A zero value is ready
// to use after New; maps may be nil when empty.
type Parameters struct {
	Ints    map[string][]int64   `json:"ints,omitempty"`
	Floats  map[string][]float32 `json:"floats,omitempty"`
	Doubles map[string][]float64 `json:"doubles,omitempty"`
	Strings map[string][]string  `json:"strings,omitempty"`
}

// New returns empty parameters with all maps allocated.
func New() *Parameters {
	return &Parameters{
		Ints:    make(map[string][]int64),
		Floats:  make(map[string][]float32),
		Doubles: make(map[string][]float64),
		Strings: make(map[string][]string),
	}
}

// Empty reports whether no parameter of any type is set.
func (p *Parameters) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.Ints) == 0 && len(p.Floats) == 0 && len(p.Doubles) == 0 && len(p.Strings) == 0
}

// Encode serializes the parameters with c. Empty parameters encode to an
// empty cell so readers can skip the codec entirely.
func Encode(c codec.Codec, p *Parameters) ([]byte, error) {
	if p.Empty() {
		return nil, nil
	}

	payload, err := c.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("params: encode: %w", err)
	}
	return payload, nil
}

// Decode reverses Encode. An empty cell yields empty parameters.
func Decode(c codec.Codec, payload []byte) (*Parameters, error) {
	p := New()
	if len(payload) == 0 {
		return p, nil
	}

	if err := c.Unmarshal(payload, p); err != nil {
		return nil, fmt.Errorf("params: decode: %w", err)
	}
	return p, nil
}
