package operator

import (
	"math"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/rerr"
)

// KeyRange is a scan's (begin, end) bound, each with its own endpoint
// kind (spec §3 "Key range").
type KeyRange struct {
	BeginKey  []byte
	BeginKind kvengine.EndpointKind
	EndKey    []byte
	EndKind   kvengine.EndpointKind
}

// Scan opens an iterator on a primary index (optionally via a secondary
// mapping) restricted by a key range, decoding each row's requested
// fields into the block variable table and invoking the downstream
// kernel. Obeys an optional row limit.
type Scan struct {
	Primary    *indexaccess.PrimaryTarget
	Mapper     *indexaccess.IndexFieldMapper // non-nil when scanning through a secondary index
	Range      KeyRange
	RowLimit   int
	KeyVars    []process.VarID // output vars for decoded key fields, in KeySpecs order
	ValueVars  []process.VarID // output vars for decoded value fields, in ValueSpecs order
	Downstream Kernel
}

func (s *Scan) Execute(ctx *Context) Status {
	storage := s.Primary.Storage
	if s.Mapper != nil {
		storage = s.Mapper.Secondary.Storage
	}
	iter, status := storage.ContentScan(ctx.KVTx, s.Range.BeginKey, s.Range.BeginKind, s.Range.EndKey, s.Range.EndKind, s.RowLimit, false)
	if err := translateKVStatus(status, "scan"); err != nil {
		return ctx.fail(err)
	}
	defer iter.Close()

	count := 0
	for {
		st := iter.Next()
		if st == kvengine.StatusNotFound {
			break
		}
		if err := translateKVStatus(st, "scan.next"); err != nil {
			return ctx.fail(err)
		}

		var keyVals, valVals []codec.Value
		if s.Mapper != nil {
			out, err := s.Mapper.Resolve(ctx.KVTx, iter.ReadKey(), ctx.Task.Varlen)
			if err != nil {
				return ctx.fail(err)
			}
			// Mapper output is flat per its Outputs list and is bound to
			// ValueVars; callers that scan through a secondary index supply
			// matching ValueVars only.
			valVals = out
		} else {
			k, ok := indexaccess.DecodeTuple(codec.NewSliceSource(iter.ReadKey()), s.Primary.KeySpecs, ctx.Task.Varlen)
			if !ok {
				return ctx.fail(rerr.New(rerr.CodeDataCorruption, "scan: failed to decode primary key"))
			}
			v, ok := indexaccess.DecodeTuple(codec.NewSliceSource(iter.ReadValue()), s.Primary.ValueSpecs, ctx.Task.Varlen)
			if !ok {
				return ctx.fail(rerr.New(rerr.CodeDataCorruption, "scan: failed to decode primary value"))
			}
			keyVals, valVals = k, v
		}

		bindVars(ctx.Scope, s.KeyVars, keyVals)
		bindVars(ctx.Scope, s.ValueVars, valVals)

		res := s.Downstream.Execute(ctx)
		if res != StatusContinue {
			return res
		}

		count++
		if s.RowLimit > 0 && count >= s.RowLimit {
			break
		}
	}
	return StatusContinue
}

func bindVars(scope *process.BlockScope, vars []process.VarID, values []codec.Value) {
	for i, v := range vars {
		if i >= len(values) {
			break
		}
		idx, ok := scope.Vars.FieldIndex(v)
		if !ok {
			continue
		}
		val := values[i]
		scope.Current.SetNull(idx, val.Null)
		if val.Null {
			continue
		}
		switch val.Kind {
		case codec.KindInt8, codec.KindInt16, codec.KindInt32, codec.KindInt64, codec.KindBool, codec.KindDate:
			scope.Current.SetInt64(idx, val.I64)
		case codec.KindFloat32, codec.KindFloat64:
			scope.Current.SetFloat64Bits(idx, math.Float64bits(val.F64))
		}
	}
}

// ParallelScanRanges splits [beginKey, endKey) into len(pivots)+1
// sub-ranges using C4 pivots. With zero pivots it returns the original
// range unchanged, matching the "parallel-scan completeness" invariant
// (spec §8): the union of returned ranges always covers exactly the
// original range, for any pivot count including zero.
func ParallelScanRanges(pivots [][]byte, full KeyRange) []KeyRange {
	if len(pivots) == 0 {
		return []KeyRange{full}
	}
	out := make([]KeyRange, 0, len(pivots)+1)
	prevKey := full.BeginKey
	prevKind := full.BeginKind
	for _, p := range pivots {
		out = append(out, KeyRange{BeginKey: prevKey, BeginKind: prevKind, EndKey: p, EndKind: kvengine.EndpointExclusive})
		prevKey = p
		prevKind = kvengine.EndpointInclusive
	}
	out = append(out, KeyRange{BeginKey: prevKey, BeginKind: prevKind, EndKey: full.EndKey, EndKind: full.EndKind})
	return out
}
