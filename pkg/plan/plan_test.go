package plan

import (
	"testing"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressionCatalogAddAndGetRoundTrip(t *testing.T) {
	catalog := NewExpressionCatalog(nil)
	lit := catalog.Add(Expr{Kind: ExprLiteral, LiteralKind: int(codec.KindInt64), LiteralI64: 42})
	v := catalog.Add(Expr{Kind: ExprVar, Var: process.VarID(1)})
	sum := catalog.Add(Expr{Kind: ExprBinary, BinOp: OpAdd, Left: lit, Right: v})

	require.Equal(t, ExprID(2), sum)
	got := catalog.Get(sum)
	assert.Equal(t, ExprBinary, got.Kind)
	assert.Equal(t, lit, got.Left)
	assert.Equal(t, v, got.Right)

	assert.Equal(t, int64(42), catalog.Get(lit).LiteralI64)
	assert.Equal(t, process.VarID(1), catalog.Get(v).Var)
}

func TestNewExpressionCatalogWrapsExistingSlice(t *testing.T) {
	exprs := []Expr{
		{Kind: ExprLiteral, LiteralNull: true},
		{Kind: ExprIsNull, Operand: 0},
	}
	catalog := NewExpressionCatalog(exprs)
	assert.True(t, catalog.Get(0).LiteralNull)
	assert.Equal(t, ExprIsNull, catalog.Get(1).Kind)

	next := catalog.Add(Expr{Kind: ExprUnaryNot, Operand: 1})
	assert.Equal(t, ExprID(2), next)
}

func TestOperatorNodeAndProcessStepConstruction(t *testing.T) {
	scan := &OperatorNode{
		ID:   process.OperatorID(1),
		Kind: OpScan,
		Index: &IndexRef{StorageName: "t1_primary", Primary: true},
	}
	filter := &OperatorNode{
		ID:       process.OperatorID(2),
		Kind:     OpFilter,
		Children: []*OperatorNode{scan},
	}
	step := &ProcessStep{
		ID: 0,
		BlockVars: []BlockVarInfo{
			{ID: process.VarID(1), Name: "c0", Type: codec.FieldType{Kind: codec.KindInt64}},
		},
		Root:       filter,
		Partitions: 4,
	}

	require.Len(t, step.BlockVars, 1)
	assert.Equal(t, "c0", step.BlockVars[0].Name)
	assert.Equal(t, OpFilter, step.Root.Kind)
	assert.Same(t, scan, step.Root.Children[0])
	assert.Equal(t, 4, step.Partitions)
}

func TestPlanBundlesStepsAndExpressions(t *testing.T) {
	catalog := NewExpressionCatalog(nil)
	p := &Plan{
		Steps:       []*ProcessStep{{ID: 0}, {ID: 1}},
		Expressions: catalog,
	}
	assert.Len(t, p.Steps, 2)
	assert.Same(t, catalog, p.Expressions)
}
