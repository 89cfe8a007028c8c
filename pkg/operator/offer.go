package operator

import (
	"math"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/exchange"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/process"
)

// OfferFlat encodes the current record's block variables and offers
// them to one partition of a forward exchange. A false return from
// Offer means the partition's arena is full; per §4.7's back-pressure
// contract the task yields rather than blocking.
type OfferFlat struct {
	Writer     *exchange.ForwardWriter
	Specs      []indexaccess.FieldSpec
	InputVars  []process.VarID
	Downstream Kernel
}

func (o *OfferFlat) Execute(ctx *Context) Status {
	values := readVars(ctx.Scope, o.InputVars)
	encoded, err := indexaccess.EncodeTuple(ctx.ValBuf, o.Specs, values)
	if err != nil {
		return ctx.fail(err)
	}
	rec := append([]byte(nil), encoded...)
	if !o.Writer.Offer(rec) {
		return StatusYield
	}
	if o.Downstream != nil {
		return o.Downstream.Execute(ctx)
	}
	return StatusContinue
}

// OfferKeyed encodes a (key, value) pair and offers it to one partition
// of a group exchange, for a downstream take_group/take_cogroup or
// aggregate step.
type OfferKeyed struct {
	Group      *exchange.Group
	Partition  int
	KeySpecs   []indexaccess.FieldSpec
	ValueSpecs []indexaccess.FieldSpec
	KeyVars    []process.VarID
	ValueVars  []process.VarID
	Downstream Kernel
}

func (o *OfferKeyed) Execute(ctx *Context) Status {
	keyValues := readVars(ctx.Scope, o.KeyVars)
	valueValues := readVars(ctx.Scope, o.ValueVars)

	keyEncoded, err := indexaccess.EncodeTuple(ctx.KeyBuf, o.KeySpecs, keyValues)
	if err != nil {
		return ctx.fail(err)
	}
	key := append([]byte(nil), keyEncoded...)

	valueEncoded, err := indexaccess.EncodeTuple(ctx.ValBuf, o.ValueSpecs, valueValues)
	if err != nil {
		return ctx.fail(err)
	}
	value := append([]byte(nil), valueEncoded...)

	o.Group.Offer(o.Partition, exchange.KeyedRecord{Key: key, Value: value})
	if o.Downstream != nil {
		return o.Downstream.Execute(ctx)
	}
	return StatusContinue
}

func readVars(scope *process.BlockScope, vars []process.VarID) []codec.Value {
	out := make([]codec.Value, len(vars))
	for i, v := range vars {
		idx, ok := scope.Vars.FieldIndex(v)
		if !ok {
			continue
		}
		if scope.Current.IsNull(idx) {
			out[i] = codec.Value{Null: true}
			continue
		}
		field := scope.Vars.Meta().Field(idx)
		out[i] = readField(scope, idx, field.Type.Kind)
	}
	return out
}

func readField(scope *process.BlockScope, idx int, kind codec.Kind) codec.Value {
	if isInt(kind) || kind == codec.KindBool || kind == codec.KindDate {
		return codec.Value{Kind: kind, I64: scope.Current.GetInt64(idx)}
	}
	if isReal(kind) {
		return codec.Value{Kind: kind, F64: math.Float64frombits(scope.Current.GetFloat64Bits(idx))}
	}
	return codec.Value{Kind: kind, Bytes: scope.Current.ValueBytes(idx)}
}
