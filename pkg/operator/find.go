package operator

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/process"
)

// Find encodes a key from the block variables and performs a single
// get. On not-found, the downstream branch is skipped entirely.
type Find struct {
	Primary    *indexaccess.PrimaryTarget
	KeyVars    []process.VarID
	KeyVals    func(scope *process.BlockScope) []codec.Value // reads current key values out of scope
	ValueVars  []process.VarID
	Downstream Kernel
}

func (f *Find) Execute(ctx *Context) Status {
	keyValues := f.KeyVals(ctx.Scope)
	key, value, found, err := f.Primary.EncodeFind(ctx.KVTx, keyValues, ctx.KeyBuf, ctx.Task.Varlen)
	if err != nil {
		return ctx.fail(err)
	}
	if !found {
		return StatusContinue
	}
	bindVars(ctx.Scope, f.KeyVars, key)
	bindVars(ctx.Scope, f.ValueVars, value)
	return f.Downstream.Execute(ctx)
}
