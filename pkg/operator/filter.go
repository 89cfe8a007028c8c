package operator

import (
	"github.com/cuemby/relkv/pkg/plan"
)

// Filter evaluates a boolean expression over block variables; the
// downstream kernel only runs when the result is true (null or false
// skip the row).
type Filter struct {
	Catalog    *plan.ExpressionCatalog
	Expr       plan.ExprID
	Downstream Kernel
}

func (f *Filter) Execute(ctx *Context) Status {
	v, err := Eval(f.Catalog, f.Expr, ctx.Scope)
	if err != nil {
		return ctx.fail(err)
	}
	if v.Null || v.I64 == 0 {
		return StatusContinue
	}
	return f.Downstream.Execute(ctx)
}
