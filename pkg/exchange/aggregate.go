package exchange

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cuemby/relkv/pkg/codec"
)

// AggKind is one of the supported aggregator functions.
type AggKind int

const (
	AggMin AggKind = iota
	AggMax
	AggSum
	AggCount
	AggAvg
	AggCountDistinct
)

// Accumulator holds the running state for one (key, aggregator) slot.
// Add folds in one source row's value (the incremental phase); Merge
// folds in another partition's partial accumulator (the final phase).
// Both phases share the same associative combine rule per aggregator,
// per §4.7's "incremental (per-partition partials) / final (merge
// partials)" two-phase contract.
type Accumulator struct {
	kind     AggKind
	count    int64
	sum      float64
	sumIsInt bool
	sumI64   int64
	min, max codec.Value
	have     bool
	distinct map[string]bool // AggCountDistinct only
}

// NewAccumulator creates an empty accumulator for kind.
func NewAccumulator(kind AggKind) *Accumulator {
	a := &Accumulator{kind: kind, sumIsInt: true}
	if kind == AggCountDistinct {
		a.distinct = map[string]bool{}
	}
	return a
}

// Add folds one source value into the accumulator (incremental phase).
func (a *Accumulator) Add(v codec.Value) {
	if v.Null {
		return
	}
	a.count++
	switch a.kind {
	case AggMin:
		if !a.have || less(v, a.min) {
			a.min = v
		}
	case AggMax:
		if !a.have || less(a.max, v) {
			a.max = v
		}
	case AggSum, AggAvg:
		addNumeric(a, v)
	case AggCountDistinct:
		a.distinct[encodeForDistinct(v)] = true
	}
	a.have = true
}

// Merge folds another partition's partial accumulator of the same kind
// into this one (final phase).
func (a *Accumulator) Merge(other *Accumulator) {
	if !other.have {
		return
	}
	switch a.kind {
	case AggMin:
		if !a.have || less(other.min, a.min) {
			a.min = other.min
		}
	case AggMax:
		if !a.have || less(a.max, other.max) {
			a.max = other.max
		}
	case AggSum, AggAvg:
		if other.sumIsInt && a.sumIsInt {
			a.sumI64 += other.sumI64
		} else {
			if a.sumIsInt {
				a.sum = float64(a.sumI64)
			}
			a.sum += asFloat(*other)
			a.sumIsInt = false
		}
	case AggCountDistinct:
		for k := range other.distinct {
			a.distinct[k] = true
		}
	}
	a.count += other.count
	a.have = true
}

// Result produces the final aggregated value.
func (a *Accumulator) Result() codec.Value {
	switch a.kind {
	case AggMin:
		if !a.have {
			return codec.Value{Null: true}
		}
		return a.min
	case AggMax:
		if !a.have {
			return codec.Value{Null: true}
		}
		return a.max
	case AggCount:
		return codec.Value{Kind: codec.KindInt64, I64: a.count}
	case AggCountDistinct:
		return codec.Value{Kind: codec.KindInt64, I64: int64(len(a.distinct))}
	case AggSum:
		if !a.have {
			return codec.Value{Null: true}
		}
		if a.sumIsInt {
			return codec.Value{Kind: codec.KindInt64, I64: a.sumI64}
		}
		return codec.Value{Kind: codec.KindFloat64, F64: a.sum}
	case AggAvg:
		if a.count == 0 {
			return codec.Value{Null: true}
		}
		total := a.sum
		if a.sumIsInt {
			total = float64(a.sumI64)
		}
		return codec.Value{Kind: codec.KindFloat64, F64: total / float64(a.count)}
	}
	return codec.Value{Null: true}
}

func addNumeric(a *Accumulator, v codec.Value) {
	if a.sumIsInt && v.Kind == codec.KindInt64 {
		a.sumI64 += v.I64
		return
	}
	if a.sumIsInt {
		a.sum = float64(a.sumI64)
		a.sumIsInt = false
	}
	a.sum += numericAsFloat(v)
}

func numericAsFloat(v codec.Value) float64 {
	switch v.Kind {
	case codec.KindInt64:
		return float64(v.I64)
	case codec.KindFloat64:
		return v.F64
	default:
		return math.Float64frombits(uint64(v.I64))
	}
}

func asFloat(a Accumulator) float64 {
	if a.sumIsInt {
		return float64(a.sumI64)
	}
	return a.sum
}

func less(x, y codec.Value) bool {
	switch x.Kind {
	case codec.KindInt64:
		return x.I64 < y.I64
	case codec.KindFloat64:
		return x.F64 < y.F64
	default:
		return bytes.Compare(x.Bytes, y.Bytes) < 0
	}
}

func encodeForDistinct(v codec.Value) string {
	var buf [9]byte
	switch v.Kind {
	case codec.KindInt64:
		buf[0] = 'i'
		binary.BigEndian.PutUint64(buf[1:], uint64(v.I64))
		return string(buf[:])
	case codec.KindFloat64:
		buf[0] = 'f'
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.F64))
		return string(buf[:])
	default:
		return "b:" + string(v.Bytes)
	}
}

// Aggregate is a per-key accumulator table: the incremental phase per
// partition feeds Add, the final phase merges each partition's
// accumulator for a key via Merge.
type Aggregate struct {
	kinds []AggKind
	byKey map[string][]*Accumulator
}

// NewAggregate creates an aggregate exchange computing one accumulator
// per kind, for every distinct key.
func NewAggregate(kinds []AggKind) *Aggregate {
	return &Aggregate{kinds: kinds, byKey: map[string][]*Accumulator{}}
}

func (ag *Aggregate) accumulators(key []byte) []*Accumulator {
	k := string(key)
	accs, ok := ag.byKey[k]
	if !ok {
		accs = make([]*Accumulator, len(ag.kinds))
		for i, kind := range ag.kinds {
			accs[i] = NewAccumulator(kind)
		}
		ag.byKey[k] = accs
	}
	return accs
}

// AddRow folds values (one per aggregator kind, in the same order as
// NewAggregate's kinds) into key's accumulators.
func (ag *Aggregate) AddRow(key []byte, values []codec.Value) {
	accs := ag.accumulators(key)
	for i, v := range values {
		accs[i].Add(v)
	}
}

// MergePartial folds another partition's per-key partials into this
// aggregate's accumulators (the final phase).
func (ag *Aggregate) MergePartial(other *Aggregate) {
	for k, otherAccs := range other.byKey {
		accs, ok := ag.byKey[k]
		if !ok {
			accs = make([]*Accumulator, len(ag.kinds))
			for i, kind := range ag.kinds {
				accs[i] = NewAccumulator(kind)
			}
			ag.byKey[k] = accs
		}
		for i, oa := range otherAccs {
			accs[i].Merge(oa)
		}
	}
}

// Results returns, for every key seen, the final aggregated row.
func (ag *Aggregate) Results() map[string][]codec.Value {
	out := make(map[string][]codec.Value, len(ag.byKey))
	for k, accs := range ag.byKey {
		row := make([]codec.Value, len(accs))
		for i, a := range accs {
			row[i] = a.Result()
		}
		out[k] = row
	}
	return out
}
