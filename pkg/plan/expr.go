package plan

import "github.com/cuemby/relkv/pkg/process"

// ExprID indexes into a Plan's ExpressionCatalog.
type ExprID int

// ExprKind is the shape of one compiled expression node.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprVar
	ExprBinary
	ExprUnaryNot
	ExprIsNull
	ExprCompare
)

// BinOp is a binary arithmetic operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
)

// CompareOp is a binary comparison operator.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Expr is one compiled expression node referencing other nodes by
// ExprID for its operands, matching the planner's compiled-expression
// catalog shape (already type-resolved; this core only evaluates it).
type Expr struct {
	Kind ExprKind

	// ExprLiteral
	LiteralKind  int // a codec.Kind value stored as a plain int
	LiteralI64   int64
	LiteralF64   float64
	LiteralNull  bool

	// ExprVar
	Var process.VarID

	// ExprBinary
	BinOp       BinOp
	Left, Right ExprID

	// ExprUnaryNot / ExprIsNull
	Operand ExprID

	// ExprCompare
	CmpOp CompareOp
}

// ExpressionCatalog holds every compiled expression a plan's operators
// reference by id.
type ExpressionCatalog struct {
	exprs []Expr
}

// NewExpressionCatalog wraps a slice of already-compiled expressions,
// indexed by their position (ExprID == index).
func NewExpressionCatalog(exprs []Expr) *ExpressionCatalog {
	return &ExpressionCatalog{exprs: exprs}
}

// Get resolves id to its expression node.
func (c *ExpressionCatalog) Get(id ExprID) Expr {
	return c.exprs[id]
}

// Add appends a new expression, returning its id.
func (c *ExpressionCatalog) Add(e Expr) ExprID {
	c.exprs = append(c.exprs, e)
	return ExprID(len(c.exprs) - 1)
}
