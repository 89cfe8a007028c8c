package operator

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/process"
)

// JoinMode selects join_find/join_scan semantics: inner, semi
// (existence, no right-side binding), anti (non-existence), or outer
// (right-side vars null when unmatched, left row kept either way). An
// alias of plan.JoinMode so a compiled plan's mode feeds these kernels
// directly with no translation step.
type JoinMode = plan.JoinMode

const (
	JoinInner = plan.JoinInner
	JoinSemi  = plan.JoinSemi
	JoinAnti  = plan.JoinAnti
	JoinOuter = plan.JoinOuter
)

// JoinFind combines left-side block variables with a single lookup on
// the right-side primary or secondary index.
type JoinFind struct {
	Primary    *indexaccess.PrimaryTarget
	Mode       JoinMode
	KeyVals    func(scope *process.BlockScope) []codec.Value
	RightKeyVars   []process.VarID
	RightValueVars []process.VarID
	Downstream Kernel
}

func (j *JoinFind) Execute(ctx *Context) Status {
	keyValues := j.KeyVals(ctx.Scope)
	key, value, found, err := j.Primary.EncodeFind(ctx.KVTx, keyValues, ctx.KeyBuf, ctx.Task.Varlen)
	if err != nil {
		return ctx.fail(err)
	}

	switch j.Mode {
	case JoinAnti:
		if found {
			return StatusContinue
		}
		return j.Downstream.Execute(ctx)
	case JoinSemi:
		if !found {
			return StatusContinue
		}
		return j.Downstream.Execute(ctx)
	case JoinOuter:
		if found {
			bindVars(ctx.Scope, j.RightKeyVars, key)
			bindVars(ctx.Scope, j.RightValueVars, value)
		} else {
			bindNulls(ctx.Scope, j.RightKeyVars)
			bindNulls(ctx.Scope, j.RightValueVars)
		}
		return j.Downstream.Execute(ctx)
	default: // JoinInner
		if !found {
			return StatusContinue
		}
		bindVars(ctx.Scope, j.RightKeyVars, key)
		bindVars(ctx.Scope, j.RightValueVars, value)
		return j.Downstream.Execute(ctx)
	}
}

func bindNulls(scope *process.BlockScope, vars []process.VarID) {
	for _, v := range vars {
		idx, ok := scope.Vars.FieldIndex(v)
		if !ok {
			continue
		}
		scope.Current.SetNull(idx, true)
	}
}

// JoinScan combines left-side block variables with a range lookup on
// the right-side index, re-deriving the scan range per left row.
type JoinScan struct {
	RangeFor func(scope *process.BlockScope) KeyRange
	Scan     *Scan // Scan.Range is overwritten per invocation from RangeFor
	Mode     JoinMode
	Downstream Kernel
}

func (j *JoinScan) Execute(ctx *Context) Status {
	j.Scan.Range = j.RangeFor(ctx.Scope)
	matched := false
	inner := j.Scan.Downstream
	j.Scan.Downstream = markerKernel{func() Status {
		matched = true
		if j.Mode == JoinSemi || j.Mode == JoinAnti {
			return StatusContinue
		}
		return inner.Execute(ctx)
	}}
	defer func() { j.Scan.Downstream = inner }()

	res := j.Scan.Execute(ctx)
	if res != StatusContinue {
		return res
	}
	switch j.Mode {
	case JoinAnti:
		if matched {
			return StatusContinue
		}
		return j.Downstream.Execute(ctx)
	case JoinSemi:
		if !matched {
			return StatusContinue
		}
		return j.Downstream.Execute(ctx)
	case JoinOuter:
		if !matched {
			bindNulls(ctx.Scope, j.Scan.KeyVars)
			bindNulls(ctx.Scope, j.Scan.ValueVars)
			return j.Downstream.Execute(ctx)
		}
		return StatusContinue
	default:
		return StatusContinue
	}
}

// markerKernel adapts a closure to the Kernel interface, used by
// JoinScan to observe whether its inner scan produced any row.
type markerKernel struct {
	fn func() Status
}

func (m markerKernel) Execute(ctx *Context) Status { return m.fn() }
