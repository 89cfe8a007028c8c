package operator

import (
	"math"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/process"
)

// Project evaluates scalar expressions into new block-variable slots.
type Project struct {
	Catalog    *plan.ExpressionCatalog
	Exprs      []plan.ExprID
	OutputVars []process.VarID
	Downstream Kernel
}

func (p *Project) Execute(ctx *Context) Status {
	for i, exprID := range p.Exprs {
		v, err := Eval(p.Catalog, exprID, ctx.Scope)
		if err != nil {
			return ctx.fail(err)
		}
		idx, ok := ctx.Scope.Vars.FieldIndex(p.OutputVars[i])
		if !ok {
			continue
		}
		ctx.Scope.Current.SetNull(idx, v.Null)
		if v.Null {
			continue
		}
		if isInt(v.Kind) || v.Kind == codec.KindBool {
			ctx.Scope.Current.SetInt64(idx, v.I64)
		} else {
			ctx.Scope.Current.SetFloat64Bits(idx, math.Float64bits(v.F64))
		}
	}
	return p.Downstream.Execute(ctx)
}
