package operator

import (
	"sort"
	"testing"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is a minimal in-memory kvengine.Storage for operator tests.
type memStorage struct {
	data map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{data: map[string][]byte{}} }

func (m *memStorage) ContentGet(tx kvengine.Transaction, key []byte) ([]byte, kvengine.Status) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, kvengine.StatusNotFound
	}
	return v, kvengine.StatusOK
}

func (m *memStorage) ContentPut(tx kvengine.Transaction, key, value []byte, opt kvengine.PutOption) kvengine.Status {
	_, exists := m.data[string(key)]
	if opt == kvengine.PutCreate && exists {
		return kvengine.StatusErrUniqueConstraintViolation
	}
	if opt == kvengine.PutUpdate && !exists {
		return kvengine.StatusNotFound
	}
	m.data[string(key)] = append([]byte(nil), value...)
	return kvengine.StatusOK
}

func (m *memStorage) ContentDelete(tx kvengine.Transaction, key []byte) kvengine.Status {
	if _, ok := m.data[string(key)]; !ok {
		return kvengine.StatusNotFound
	}
	delete(m.data, string(key))
	return kvengine.StatusOK
}

func (m *memStorage) ContentScan(tx kvengine.Transaction, beginKey []byte, beginKind kvengine.EndpointKind, endKey []byte, endKind kvengine.EndpointKind, limit int, reverse bool) (kvengine.Iterator, kvengine.Status) {
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memIterator{storage: m, keys: keys, pos: -1}, kvengine.StatusOK
}

type memIterator struct {
	storage *memStorage
	keys    []string
	pos     int
}

func (it *memIterator) Next() kvengine.Status {
	it.pos++
	if it.pos >= len(it.keys) {
		return kvengine.StatusNotFound
	}
	return kvengine.StatusOK
}
func (it *memIterator) ReadKey() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) ReadValue() []byte { return it.storage.data[it.keys[it.pos]] }
func (it *memIterator) Close()            {}

type noopTx struct{}

func (noopTx) Commit(kvengine.CommitOption, func(kvengine.Status)) kvengine.Status { return kvengine.StatusOK }
func (noopTx) Abort() kvengine.Status                                             { return kvengine.StatusOK }
func (noopTx) WaitForCommit(int64) kvengine.Status                                { return kvengine.StatusOK }

func i32KeySpec() []indexaccess.FieldSpec {
	return []indexaccess.FieldSpec{{Type: codec.FieldType{Kind: codec.KindInt32}, Direction: codec.Asc}}
}

func i64ValueSpec() []indexaccess.FieldSpec {
	return []indexaccess.FieldSpec{{Type: codec.FieldType{Kind: codec.KindInt64}, Direction: codec.Asc}}
}

const (
	varKey process.VarID = iota
	varValue
)

func newTestScope() *process.BlockScope {
	meta := record.NewMeta([]record.Field{
		{Type: codec.FieldType{Kind: codec.KindInt32}},
		{Type: codec.FieldType{Kind: codec.KindInt64}},
	})
	vars := process.NewVariableTable(meta, []process.VarID{varKey, varValue})
	return &process.BlockScope{Vars: vars, Current: record.NewRecord(meta)}
}

func newTestContext(scope *process.BlockScope) *Context {
	return &Context{
		Task:   &process.TaskContext{Varlen: record.NewVarlenArena()},
		Scope:  scope,
		KVTx:   noopTx{},
		KeyBuf: record.NewAlignedBuffer(1, 16),
		ValBuf: record.NewAlignedBuffer(1, 16),
	}
}

// collectKernel records every row's (key, value) seen by the chain.
type collectKernel struct {
	rows [][2]int64
}

func (c *collectKernel) Execute(ctx *Context) Status {
	k, _, _ := ctx.Scope.GetInt64(varKey)
	v, _, _ := ctx.Scope.GetInt64(varValue)
	c.rows = append(c.rows, [2]int64{k, v})
	return StatusContinue
}

func TestScanDecodesRowsInOrder(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	for i := int64(0); i < 3; i++ {
		key := []codec.Value{{Kind: codec.KindInt32, I64: i}}
		value := []codec.Value{{Kind: codec.KindInt64, I64: i * 10}}
		require.NoError(t, primary.EncodePut(noopTx{}, key, value, kvengine.PutCreate, keyBuf, valBuf, nil))
	}

	collector := &collectKernel{}
	scope := newTestScope()
	ctx := newTestContext(scope)
	s := &Scan{
		Primary:    primary,
		KeyVars:    []process.VarID{varKey},
		ValueVars:  []process.VarID{varValue},
		Downstream: collector,
	}
	res := s.Execute(ctx)
	require.Equal(t, StatusContinue, res)
	require.Len(t, collector.rows, 3)
	assert.ElementsMatch(t, [][2]int64{{0, 0}, {1, 10}, {2, 20}}, collector.rows)
}

func TestScanRespectsRowLimit(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	for i := int64(0); i < 5; i++ {
		key := []codec.Value{{Kind: codec.KindInt32, I64: i}}
		value := []codec.Value{{Kind: codec.KindInt64, I64: i}}
		require.NoError(t, primary.EncodePut(noopTx{}, key, value, kvengine.PutCreate, keyBuf, valBuf, nil))
	}

	collector := &collectKernel{}
	ctx := newTestContext(newTestScope())
	s := &Scan{Primary: primary, RowLimit: 2, KeyVars: []process.VarID{varKey}, ValueVars: []process.VarID{varValue}, Downstream: collector}
	require.Equal(t, StatusContinue, s.Execute(ctx))
	assert.Len(t, collector.rows, 2)
}

func TestFindReturnsSingleRow(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	require.NoError(t, primary.EncodePut(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 9}}, []codec.Value{{Kind: codec.KindInt64, I64: 81}}, kvengine.PutCreate, keyBuf, valBuf, nil))

	collector := &collectKernel{}
	ctx := newTestContext(newTestScope())
	f := &Find{
		Primary:    primary,
		KeyVals:    func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 9}} },
		KeyVars:    []process.VarID{varKey},
		ValueVars:  []process.VarID{varValue},
		Downstream: collector,
	}
	require.Equal(t, StatusContinue, f.Execute(ctx))
	require.Len(t, collector.rows, 1)
	assert.Equal(t, [2]int64{9, 81}, collector.rows[0])
}

func TestFindMissReturnsContinueWithoutInvokingDownstream(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	collector := &collectKernel{}
	ctx := newTestContext(newTestScope())
	f := &Find{
		Primary:    primary,
		KeyVals:    func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 404}} },
		Downstream: collector,
	}
	require.Equal(t, StatusContinue, f.Execute(ctx))
	assert.Empty(t, collector.rows)
}

func literalInt64(catalog *plan.ExpressionCatalog, v int64) plan.ExprID {
	return catalog.Add(plan.Expr{Kind: plan.ExprLiteral, LiteralKind: int(codec.KindInt64), LiteralI64: v})
}

func TestFilterSkipsRowsWhereExpressionIsFalse(t *testing.T) {
	catalog := plan.NewExpressionCatalog(nil)
	varExpr := catalog.Add(plan.Expr{Kind: plan.ExprVar, Var: varValue})
	threshold := literalInt64(catalog, 15)
	cmp := catalog.Add(plan.Expr{Kind: plan.ExprCompare, Left: varExpr, Right: threshold, CmpOp: plan.CmpGt})

	scope := newTestScope()
	ctx := newTestContext(scope)
	collector := &collectKernel{}
	filter := &Filter{Catalog: catalog, Expr: cmp, Downstream: collector}

	scope.SetInt64(varValue, 10)
	require.Equal(t, StatusContinue, filter.Execute(ctx))
	assert.Empty(t, collector.rows)

	scope.SetInt64(varValue, 20)
	require.Equal(t, StatusContinue, filter.Execute(ctx))
	require.Len(t, collector.rows, 1)
}

func TestProjectComputesExpressionIntoOutputVar(t *testing.T) {
	catalog := plan.NewExpressionCatalog(nil)
	varExpr := catalog.Add(plan.Expr{Kind: plan.ExprVar, Var: varKey})
	one := literalInt64(catalog, 1)
	sum := catalog.Add(plan.Expr{Kind: plan.ExprBinary, Left: varExpr, Right: one, BinOp: plan.OpAdd})

	scope := newTestScope()
	scope.SetInt64(varKey, 4)
	ctx := newTestContext(scope)
	collector := &collectKernel{}
	p := &Project{Catalog: catalog, Exprs: []plan.ExprID{sum}, OutputVars: []process.VarID{varValue}, Downstream: collector}

	require.Equal(t, StatusContinue, p.Execute(ctx))
	require.Len(t, collector.rows, 1)
	assert.Equal(t, int64(5), collector.rows[0][1])
}

func TestWriteInsertThenFind(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	w := &Write{
		Primary:      primary,
		Mode:         plan.WriteInsert,
		NewKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 3}} },
		NewValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 30}} },
	}
	ctx := newTestContext(newTestScope())
	require.Equal(t, StatusContinue, w.Execute(ctx))

	_, value, found, err := primary.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 3}}, record.NewAlignedBuffer(1, 16), record.NewVarlenArena())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(30), value[0].I64)
}

func TestWriteUpdateInPlaceWhenPKUnchanged(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	require.NoError(t, primary.EncodePut(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 5}}, []codec.Value{{Kind: codec.KindInt64, I64: 50}}, kvengine.PutCreate, keyBuf, valBuf, nil))

	w := &Write{
		Primary:      primary,
		Mode:         plan.WriteUpdate,
		OldKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 5}} },
		OldValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 50}} },
		NewKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 5}} },
		NewValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 500}} },
	}
	ctx := newTestContext(newTestScope())
	require.Equal(t, StatusContinue, w.Execute(ctx))

	_, value, found, err := primary.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 5}}, record.NewAlignedBuffer(1, 16), record.NewVarlenArena())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(500), value[0].I64)
}

func TestWriteUpdateMovesRowWhenPKChanges(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	require.NoError(t, primary.EncodePut(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 0}}, []codec.Value{{Kind: codec.KindInt64, I64: 0}}, kvengine.PutCreate, keyBuf, valBuf, nil))

	w := &Write{
		Primary:      primary,
		Mode:         plan.WriteUpdate,
		OldKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 0}} },
		OldValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 0}} },
		NewKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 1}} },
		NewValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 0}} },
	}
	ctx := newTestContext(newTestScope())
	require.Equal(t, StatusContinue, w.Execute(ctx))

	arena := record.NewVarlenArena()
	_, _, oldFound, err := primary.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 0}}, record.NewAlignedBuffer(1, 16), arena)
	require.NoError(t, err)
	assert.False(t, oldFound)

	_, _, newFound, err := primary.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 1}}, record.NewAlignedBuffer(1, 16), arena)
	require.NoError(t, err)
	assert.True(t, newFound)
}

func TestWriteUpsertCreatesThenUpdates(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	w := &Write{
		Primary:      primary,
		Mode:         plan.WriteUpsert,
		NewKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 7}} },
		NewValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 1}} },
	}
	ctx := newTestContext(newTestScope())
	require.Equal(t, StatusContinue, w.Execute(ctx))

	w.NewValueVals = func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 2}} }
	require.Equal(t, StatusContinue, w.Execute(ctx))

	_, value, found, err := primary.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 7}}, record.NewAlignedBuffer(1, 16), record.NewVarlenArena())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), value[0].I64)
}

func TestWriteDeleteRemovesRow(t *testing.T) {
	primary := &indexaccess.PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: i64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	require.NoError(t, primary.EncodePut(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 2}}, []codec.Value{{Kind: codec.KindInt64, I64: 20}}, kvengine.PutCreate, keyBuf, valBuf, nil))

	w := &Write{
		Primary:      primary,
		Mode:         plan.WriteDelete,
		OldKeyVals:   func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt32, I64: 2}} },
		OldValueVals: func(*process.BlockScope) []codec.Value { return []codec.Value{{Kind: codec.KindInt64, I64: 20}} },
	}
	ctx := newTestContext(newTestScope())
	require.Equal(t, StatusContinue, w.Execute(ctx))

	_, _, found, err := primary.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 2}}, record.NewAlignedBuffer(1, 16), record.NewVarlenArena())
	require.NoError(t, err)
	assert.False(t, found)
}
