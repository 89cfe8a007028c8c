package operator

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/exchange"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/process"
)

// AggregateAdd folds the current record's block variables into the
// incremental phase of an aggregate exchange, keyed by GroupKeyVars.
type AggregateAdd struct {
	Target       *exchange.Aggregate
	GroupKeySpec []indexaccess.FieldSpec
	GroupKeyVars []process.VarID
	ValueVars    []process.VarID // one source value per accumulator kind, in NewAggregate's kind order
	Downstream   Kernel
}

func (a *AggregateAdd) Execute(ctx *Context) Status {
	keyValues := readVars(ctx.Scope, a.GroupKeyVars)
	keyEncoded, err := indexaccess.EncodeTuple(ctx.KeyBuf, a.GroupKeySpec, keyValues)
	if err != nil {
		return ctx.fail(err)
	}
	key := append([]byte(nil), keyEncoded...)

	values := readVars(ctx.Scope, a.ValueVars)
	a.Target.AddRow(key, values)

	if a.Downstream != nil {
		return a.Downstream.Execute(ctx)
	}
	return StatusContinue
}

// AggregateGroup emits one output row per distinct key accumulated in
// Target, binding the group key and every aggregator's final result
// into block variables before invoking the downstream kernel (the
// aggregate exchange's final phase, spec §4.7).
type AggregateGroup struct {
	Target       *exchange.Aggregate
	GroupKeySpec []indexaccess.FieldSpec
	GroupKeyVars []process.VarID
	ResultVars   []process.VarID // one per accumulator kind, matching ValueVars order in AggregateAdd
	Downstream   Kernel
}

func (a *AggregateGroup) Execute(ctx *Context) Status {
	for key, row := range a.Target.Results() {
		keyValues, decoded := indexaccess.DecodeTuple(codec.NewSliceSource([]byte(key)), a.GroupKeySpec, ctx.Task.Varlen)
		if !decoded {
			continue
		}
		bindVars(ctx.Scope, a.GroupKeyVars, keyValues)
		bindVars(ctx.Scope, a.ResultVars, row)

		res := a.Downstream.Execute(ctx)
		if res != StatusContinue {
			return res
		}
	}
	return StatusContinue
}
