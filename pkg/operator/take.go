package operator

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/exchange"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/rerr"
)

// TakeFlat drains a forward exchange in partition-concatenated order,
// decoding each record's value tuple into block variables.
type TakeFlat struct {
	Reader     *exchange.ForwardReader
	Specs      []indexaccess.FieldSpec
	OutputVars []process.VarID
	Downstream Kernel
}

func (t *TakeFlat) Execute(ctx *Context) Status {
	for {
		rec, ok := t.Reader.Next()
		if !ok {
			return StatusContinue
		}
		values, decoded := indexaccess.DecodeTuple(codec.NewSliceSource(rec), t.Specs, ctx.Task.Varlen)
		if !decoded {
			return ctx.fail(rerr.New(rerr.CodeDataCorruption, "take_flat: failed to decode record"))
		}
		bindVars(ctx.Scope, t.OutputVars, values)

		res := t.Downstream.Execute(ctx)
		if res != StatusContinue {
			return res
		}
	}
}

// TakeGroup walks a group exchange's next_group/get_group/next_member/
// get_member contract: the group key is bound once per group, each
// member's value tuple is bound in turn, and the downstream kernel runs
// once per member.
type TakeGroup struct {
	Reader      *exchange.Reader
	KeySpecs    []indexaccess.FieldSpec
	MemberSpecs []indexaccess.FieldSpec
	KeyVars     []process.VarID
	MemberVars  []process.VarID
	Downstream  Kernel
}

func (t *TakeGroup) Execute(ctx *Context) Status {
	for t.Reader.NextGroup() {
		keyVals, decoded := indexaccess.DecodeTuple(codec.NewSliceSource(t.Reader.GetGroup()), t.KeySpecs, ctx.Task.Varlen)
		if !decoded {
			return ctx.fail(rerr.New(rerr.CodeDataCorruption, "take_group: failed to decode group key"))
		}
		bindVars(ctx.Scope, t.KeyVars, keyVals)

		for t.Reader.NextMember() {
			member := t.Reader.GetMember()
			memberVals, decoded := indexaccess.DecodeTuple(codec.NewSliceSource(member.Value), t.MemberSpecs, ctx.Task.Varlen)
			if !decoded {
				return ctx.fail(rerr.New(rerr.CodeDataCorruption, "take_group: failed to decode group member"))
			}
			bindVars(ctx.Scope, t.MemberVars, memberVals)

			res := t.Downstream.Execute(ctx)
			if res != StatusContinue {
				return res
			}
		}
	}
	return StatusContinue
}

// TakeCoGroup merge-joins two group exchanges sharing the same key type,
// synchronizing on matching keys: for each key present on the left, the
// right side's same-key members (if any) are located and every left
// member is paired with every right member (and with a null right side
// when the key is absent on the right, when Outer is set). This is a
// two-way specialization of cogroup; this core's compiled plans never
// cogroup more than two exchanges in one step.
type TakeCoGroup struct {
	Left, Right *exchange.Reader
	KeySpecs    []indexaccess.FieldSpec
	LeftSpecs   []indexaccess.FieldSpec
	RightSpecs  []indexaccess.FieldSpec
	KeyVars     []process.VarID
	LeftVars    []process.VarID
	RightVars   []process.VarID
	Outer       bool
	Downstream  Kernel
}

func (t *TakeCoGroup) Execute(ctx *Context) Status {
	rightGroups := map[string][]exchange.KeyedRecord{}
	for t.Right.NextGroup() {
		key := string(t.Right.GetGroup())
		var members []exchange.KeyedRecord
		for t.Right.NextMember() {
			members = append(members, t.Right.GetMember())
		}
		rightGroups[key] = members
	}

	for t.Left.NextGroup() {
		groupKey := t.Left.GetGroup()
		keyVals, decoded := indexaccess.DecodeTuple(codec.NewSliceSource(groupKey), t.KeySpecs, ctx.Task.Varlen)
		if !decoded {
			return ctx.fail(rerr.New(rerr.CodeDataCorruption, "take_cogroup: failed to decode group key"))
		}

		var leftMembers []exchange.KeyedRecord
		for t.Left.NextMember() {
			leftMembers = append(leftMembers, t.Left.GetMember())
		}
		rightMembers := rightGroups[string(groupKey)]

		if len(rightMembers) == 0 && !t.Outer {
			continue
		}

		bindVars(ctx.Scope, t.KeyVars, keyVals)

		if len(rightMembers) == 0 {
			for _, lm := range leftMembers {
				res, err := t.emit(ctx, lm, nil)
				if err != nil {
					return ctx.fail(err)
				}
				if res != StatusContinue {
					return res
				}
			}
			continue
		}

		for _, lm := range leftMembers {
			for _, rm := range rightMembers {
				res, err := t.emit(ctx, lm, &rm)
				if err != nil {
					return ctx.fail(err)
				}
				if res != StatusContinue {
					return res
				}
			}
		}
	}
	return StatusContinue
}

func (t *TakeCoGroup) emit(ctx *Context, left exchange.KeyedRecord, right *exchange.KeyedRecord) (Status, error) {
	leftVals, decoded := indexaccess.DecodeTuple(codec.NewSliceSource(left.Value), t.LeftSpecs, ctx.Task.Varlen)
	if !decoded {
		return StatusCompleteWithErrors, rerr.New(rerr.CodeDataCorruption, "take_cogroup: failed to decode left member")
	}
	bindVars(ctx.Scope, t.LeftVars, leftVals)

	if right == nil {
		bindNulls(ctx.Scope, t.RightVars)
	} else {
		rightVals, decoded := indexaccess.DecodeTuple(codec.NewSliceSource(right.Value), t.RightSpecs, ctx.Task.Varlen)
		if !decoded {
			return StatusCompleteWithErrors, rerr.New(rerr.CodeDataCorruption, "take_cogroup: failed to decode right member")
		}
		bindVars(ctx.Scope, t.RightVars, rightVals)
	}

	return t.Downstream.Execute(ctx), nil
}
