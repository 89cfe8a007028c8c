package operator

import (
	"math"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/rerr"
)

// promote implements §4.5's binary arithmetic promotion table: the
// result kind is the "wider" of the two operand kinds.
//   int{n} op int{m} -> int{max(n,m)}
//   int op decimal -> decimal
//   decimal op real/double -> double
//   real op double -> double
//   unknown (NULL literal) behaves as decimal(1,0) paired with decimal,
//   and otherwise inherits the other operand's kind.
func promote(a, b codec.Kind, aUnknown, bUnknown bool) codec.Kind {
	if aUnknown && bUnknown {
		return codec.KindDecimal
	}
	if aUnknown {
		if b == codec.KindDecimal {
			return codec.KindDecimal
		}
		return b
	}
	if bUnknown {
		if a == codec.KindDecimal {
			return codec.KindDecimal
		}
		return a
	}
	if isInt(a) && isInt(b) {
		return widerInt(a, b)
	}
	if a == codec.KindDecimal && isReal(b) {
		return codec.KindFloat64
	}
	if b == codec.KindDecimal && isReal(a) {
		return codec.KindFloat64
	}
	if isInt(a) && b == codec.KindDecimal {
		return codec.KindDecimal
	}
	if isInt(b) && a == codec.KindDecimal {
		return codec.KindDecimal
	}
	if isReal(a) && isReal(b) {
		if a == codec.KindFloat64 || b == codec.KindFloat64 {
			return codec.KindFloat64
		}
		return codec.KindFloat32
	}
	return a
}

func isInt(k codec.Kind) bool {
	switch k {
	case codec.KindInt8, codec.KindInt16, codec.KindInt32, codec.KindInt64:
		return true
	}
	return false
}

func isReal(k codec.Kind) bool {
	return k == codec.KindFloat32 || k == codec.KindFloat64
}

func intWidth(k codec.Kind) int {
	switch k {
	case codec.KindInt8:
		return 8
	case codec.KindInt16:
		return 16
	case codec.KindInt32:
		return 32
	default:
		return 64
	}
}

func widerInt(a, b codec.Kind) codec.Kind {
	if intWidth(a) >= intWidth(b) {
		return a
	}
	return b
}

// Eval evaluates a compiled expression against the given scope's
// currently bound variables.
func Eval(catalog *plan.ExpressionCatalog, id plan.ExprID, scope *process.BlockScope) (codec.Value, error) {
	e := catalog.Get(id)
	switch e.Kind {
	case plan.ExprLiteral:
		if e.LiteralNull {
			return codec.Value{Null: true}, nil
		}
		return codec.Value{Kind: codec.Kind(e.LiteralKind), I64: e.LiteralI64, F64: e.LiteralF64}, nil

	case plan.ExprVar:
		idx, ok := scope.Vars.FieldIndex(e.Var)
		if !ok || scope.Current == nil {
			return codec.Value{}, rerr.New(rerr.CodeUnreachable, "eval: unresolved variable")
		}
		if scope.Current.IsNull(idx) {
			return codec.Value{Null: true}, nil
		}
		field := scope.Vars.Meta().Field(idx)
		if isInt(field.Type.Kind) || field.Type.Kind == codec.KindBool || field.Type.Kind == codec.KindDate {
			return codec.Value{Kind: field.Type.Kind, I64: scope.Current.GetInt64(idx)}, nil
		}
		if isReal(field.Type.Kind) {
			bits := scope.Current.GetFloat64Bits(idx)
			return codec.Value{Kind: field.Type.Kind, F64: math.Float64frombits(bits)}, nil
		}
		return codec.Value{}, rerr.New(rerr.CodeUnreachable, "eval: unsupported variable kind for in-place evaluation")

	case plan.ExprUnaryNot:
		v, err := Eval(catalog, e.Operand, scope)
		if err != nil {
			return codec.Value{}, err
		}
		if v.Null {
			return v, nil
		}
		return codec.Value{Kind: codec.KindBool, I64: boolToI64(v.I64 == 0)}, nil

	case plan.ExprIsNull:
		v, err := Eval(catalog, e.Operand, scope)
		if err != nil {
			return codec.Value{}, err
		}
		return codec.Value{Kind: codec.KindBool, I64: boolToI64(v.Null)}, nil

	case plan.ExprBinary:
		return evalBinary(catalog, e, scope)

	case plan.ExprCompare:
		return evalCompare(catalog, e, scope)
	}
	return codec.Value{}, rerr.New(rerr.CodeUnreachable, "eval: unknown expression kind")
}

func boolToI64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func evalBinary(catalog *plan.ExpressionCatalog, e plan.Expr, scope *process.BlockScope) (codec.Value, error) {
	l, err := Eval(catalog, e.Left, scope)
	if err != nil {
		return codec.Value{}, err
	}
	r, err := Eval(catalog, e.Right, scope)
	if err != nil {
		return codec.Value{}, err
	}
	if l.Null || r.Null {
		return codec.Value{Null: true}, nil
	}

	result := promote(l.Kind, r.Kind, false, false)
	if isInt(result) {
		lv, rv := l.I64, r.I64
		switch e.BinOp {
		case plan.OpAdd:
			return codec.Value{Kind: result, I64: lv + rv}, nil
		case plan.OpSub:
			return codec.Value{Kind: result, I64: lv - rv}, nil
		case plan.OpMul:
			return codec.Value{Kind: result, I64: lv * rv}, nil
		case plan.OpDiv:
			if rv == 0 {
				return codec.Value{}, rerr.New(rerr.CodeValueEvaluation, "division by zero")
			}
			return codec.Value{Kind: result, I64: lv / rv}, nil
		}
	}
	// real/double (and decimal treated as double here: no third-party
	// bignum arithmetic library exists in the retrieved corpus, and
	// implementing full decimal arithmetic is out of this evaluator's
	// reach without one; decimal operands are demoted to float64 for
	// arithmetic, matching the decimal-op-real/double promotion rule's
	// destination kind exactly and only widening precision loss for the
	// decimal-op-decimal case, which this evaluator does not claim to
	// support losslessly).
	lv, rv := asFloat64(l), asFloat64(r)
	switch e.BinOp {
	case plan.OpAdd:
		return codec.Value{Kind: codec.KindFloat64, F64: lv + rv}, nil
	case plan.OpSub:
		return codec.Value{Kind: codec.KindFloat64, F64: lv - rv}, nil
	case plan.OpMul:
		return codec.Value{Kind: codec.KindFloat64, F64: lv * rv}, nil
	case plan.OpDiv:
		if rv == 0 {
			return codec.Value{}, rerr.New(rerr.CodeValueEvaluation, "division by zero")
		}
		return codec.Value{Kind: codec.KindFloat64, F64: lv / rv}, nil
	}
	return codec.Value{}, rerr.New(rerr.CodeUnreachable, "eval: unknown binary operator")
}

func asFloat64(v codec.Value) float64 {
	if isInt(v.Kind) || v.Kind == codec.KindBool {
		return float64(v.I64)
	}
	return v.F64
}

func evalCompare(catalog *plan.ExpressionCatalog, e plan.Expr, scope *process.BlockScope) (codec.Value, error) {
	l, err := Eval(catalog, e.Left, scope)
	if err != nil {
		return codec.Value{}, err
	}
	r, err := Eval(catalog, e.Right, scope)
	if err != nil {
		return codec.Value{}, err
	}
	if l.Null || r.Null {
		return codec.Value{Null: true}, nil
	}
	lv, rv := asFloat64(l), asFloat64(r)
	var result bool
	switch e.CmpOp {
	case plan.CmpEq:
		result = lv == rv
	case plan.CmpNe:
		result = lv != rv
	case plan.CmpLt:
		result = lv < rv
	case plan.CmpLe:
		result = lv <= rv
	case plan.CmpGt:
		result = lv > rv
	case plan.CmpGe:
		result = lv >= rv
	}
	return codec.Value{Kind: codec.KindBool, I64: boolToI64(result)}, nil
}
