package process

import (
	"testing"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() *record.Meta {
	return record.NewMeta([]record.Field{
		{Name: "a", Type: codec.FieldType{Kind: codec.KindInt64}},
		{Name: "b", Type: codec.FieldType{Kind: codec.KindInt64, Nullable: true}},
	})
}

func TestVariableTableLocateAndFieldIndex(t *testing.T) {
	meta := testMeta()
	vt := NewVariableTable(meta, []VarID{100, 200})

	idx, ok := vt.FieldIndex(200)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = vt.FieldIndex(999)
	assert.False(t, ok)
}

func TestBlockScopeGetSetInt64(t *testing.T) {
	meta := testMeta()
	vt := NewVariableTable(meta, []VarID{100, 200})
	rec := record.NewRecord(meta)
	scope := &BlockScope{Vars: vt, Current: rec}

	ok := scope.SetInt64(100, 42)
	require.True(t, ok)

	v, null, ok := scope.GetInt64(100)
	require.True(t, ok)
	assert.False(t, null)
	assert.Equal(t, int64(42), v)
}

func TestOperatorContextContainerGetSetDeleteReset(t *testing.T) {
	c := newOperatorContextContainer()
	c.Set(1, "scan-iter")
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "scan-iter", v)

	c.Delete(1)
	_, ok = c.Get(1)
	assert.False(t, ok)

	c.Set(2, "state")
	c.Reset()
	_, ok = c.Get(2)
	assert.False(t, ok)
}

func TestTaskContextPoolReusesReleasedContext(t *testing.T) {
	pool := NewTaskContextPool(2)
	tc := pool.Acquire()
	tc.Operators.Set(OperatorID(1), "scan-state")
	tc.EmptyInputFromShuffle = true
	tc.Main.Append([]byte("scratch"))

	pool.Release(tc)
	assert.Equal(t, 1, pool.Outstanding())

	reused := pool.Acquire()
	assert.Same(t, tc, reused)
	_, ok := reused.Operators.Get(OperatorID(1))
	assert.False(t, ok, "released context must be reset before reuse")
	assert.False(t, reused.EmptyInputFromShuffle)
	assert.Equal(t, 0, reused.Main.Size())
}

func TestTaskContextPoolAllocatesWhenEmpty(t *testing.T) {
	pool := NewTaskContextPool(1)
	tc := pool.Acquire()
	require.NotNil(t, tc)
	assert.Len(t, tc.Scopes, 1)
}
