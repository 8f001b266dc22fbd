package meta

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hupe1980/framio/internal/binenc"
)

// DatamodelHolder keeps the serialized datamodel definitions a dataset was
// written with. Definitions are JSON documents keyed by datamodel name and
// are handed out verbatim.
type DatamodelHolder struct {
	definitions map[string]json.RawMessage
}

// NewDatamodelHolder builds a holder from a name-to-definition map.
func NewDatamodelHolder(definitions map[string]json.RawMessage) *DatamodelHolder {
	defs := make(map[string]json.RawMessage, len(definitions))
	for name, def := range definitions {
		defs[name] = append(json.RawMessage(nil), def...)
	}
	return &DatamodelHolder{definitions: defs}
}

// Names returns the stored datamodel names, sorted.
func (h *DatamodelHolder) Names() []string {
	out := make([]string, 0, len(h.definitions))
	for name := range h.definitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definition returns the JSON definition of one datamodel.
func (h *DatamodelHolder) Definition(name string) (json.RawMessage, bool) {
	def, ok := h.definitions[name]
	return def, ok
}

// Encode serializes the holder for the metadata tree.
func (h *DatamodelHolder) Encode() ([]byte, error) {
	names := h.Names()

	pb := binenc.New(make([]byte, 0, 256))
	pb.WriteUint32(uint32(len(names)))
	for _, name := range names {
		pb.WriteString(name)
		pb.WriteBytes(h.definitions[name])
	}
	return pb.Bytes()
}

// DecodeDatamodels reverses DatamodelHolder.Encode.
func DecodeDatamodels(payload []byte) (*DatamodelHolder, error) {
	pb := binenc.New(payload)

	n := pb.ReadUint32()
	defs := make(map[string]json.RawMessage, n)
	for i := uint32(0); i < n && pb.Err() == nil; i++ {
		name := pb.ReadString()
		defs[name] = json.RawMessage(pb.ReadBytes())
	}
	if err := pb.Err(); err != nil {
		return nil, fmt.Errorf("meta: decode datamodel definitions: %w", err)
	}
	return &DatamodelHolder{definitions: defs}, nil
}
