// Package indexaccess implements primary and secondary index access on
// top of pkg/kvengine: encoding key/value tuples via pkg/codec into a
// grow-retry scratch buffer, performing content_get/put/delete/scan, and
// translating KV-engine statuses into the error taxonomy of pkg/rerr.
package indexaccess

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/cuemby/relkv/pkg/rerr"
)

// FieldSpec pairs a field's codec type with its ordering direction
// within a particular key or value tuple layout.
type FieldSpec struct {
	Type      codec.FieldType
	Direction codec.Direction
}

// maxEncodePasses bounds the grow-retry loop: one pass at the caller's
// starting capacity, one after growing, per spec §4.3 "at most two
// passes are required."
const maxEncodePasses = 2

// EncodeTuple encodes values (one per spec in specs, in order) into buf,
// growing buf and retrying the whole tuple on overflow. On success,
// buf.Size() equals the written length and the written bytes are
// returned; buf itself is also left positioned at that length.
func EncodeTuple(buf *record.AlignedBuffer, specs []FieldSpec, values []codec.Value) ([]byte, error) {
	if len(specs) != len(values) {
		return nil, rerr.New(rerr.CodeInternal, "tuple arity mismatch: %d specs, %d values", len(specs), len(values))
	}
	for pass := 0; pass < maxEncodePasses; pass++ {
		sink := codec.NewSliceSink(buf.Scratch())
		ok := true
		for i, spec := range specs {
			wrote, err := codec.EncodeValue(sink, spec.Type, spec.Direction, values[i])
			if err != nil {
				return nil, err
			}
			if !wrote {
				ok = false
				break
			}
		}
		if ok {
			buf.Resize(sinkLen(sink))
			return buf.Bytes(), nil
		}
		buf.Grow(buf.Capacity()*2 + 64)
	}
	return nil, rerr.New(rerr.CodeInternal, "key/value buffer still overflows after grow-retry")
}

func sinkLen(s *codec.SliceSink) int { return s.Len() }

// DecodeTuple decodes len(specs) values in order from src, allocating
// varlen content via arena.
func DecodeTuple(src codec.Source, specs []FieldSpec, arena codec.Arena) ([]codec.Value, bool) {
	out := make([]codec.Value, len(specs))
	for i, spec := range specs {
		v, ok := codec.DecodeValue(src, spec.Type, spec.Direction, arena)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
