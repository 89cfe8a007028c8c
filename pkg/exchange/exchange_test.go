package exchange

import (
	"testing"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardConcatenatesPartitionsInOrder(t *testing.T) {
	f := NewForward(2, 10)
	w0 := f.Writer(0)
	w1 := f.Writer(1)

	require.True(t, w0.Offer([]byte("a0")))
	require.True(t, w0.Offer([]byte("a1")))
	require.True(t, w1.Offer([]byte("b0")))
	w0.Close()
	w1.Close()

	r := f.NewReader()
	var got []string
	for {
		rec, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, string(rec))
	}
	assert.Equal(t, []string{"a0", "a1", "b0"}, got)
}

func TestForwardOfferFailsWhenArenaFull(t *testing.T) {
	f := NewForward(1, 1)
	w := f.Writer(0)
	require.True(t, w.Offer([]byte("x")))
	assert.False(t, w.Offer([]byte("y")), "writer must stall, not block, when the arena is full")
	assert.False(t, w.Drained())
}

func TestGroupMergesSortedPartitionsGlobally(t *testing.T) {
	g := NewGroup(2, 0)
	g.Offer(0, KeyedRecord{Key: []byte("b"), Value: []byte("b-p0")})
	g.Offer(0, KeyedRecord{Key: []byte("d"), Value: []byte("d-p0")})
	g.Offer(1, KeyedRecord{Key: []byte("a"), Value: []byte("a-p1")})
	g.Offer(1, KeyedRecord{Key: []byte("b"), Value: []byte("b-p1")})
	g.Close(0)
	g.Close(1)

	r := g.NewReader()
	var groups []string
	for r.NextGroup() {
		key := string(r.GetGroup())
		var members []string
		for r.NextMember() {
			members = append(members, string(r.GetMember().Value))
		}
		groups = append(groups, key+":"+fmtMembers(members))
	}
	assert.Equal(t, []string{"a:[a-p1]", "b:[b-p0 b-p1]", "d:[d-p0]"}, groups)
}

func fmtMembers(m []string) string {
	out := "["
	for i, s := range m {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out + "]"
}

func TestGroupPerGroupLimit(t *testing.T) {
	g := NewGroup(1, 1)
	g.Offer(0, KeyedRecord{Key: []byte("k"), Value: []byte("v0")})
	g.Offer(0, KeyedRecord{Key: []byte("k"), Value: []byte("v1")})
	g.Close(0)

	r := g.NewReader()
	require.True(t, r.NextGroup())
	require.True(t, r.NextMember())
	assert.Equal(t, "v0", string(r.GetMember().Value))
	assert.False(t, r.NextMember(), "limit of 1 must stop after the first member")
	assert.False(t, r.NextGroup(), "no further distinct keys exist")
}

func TestAccumulatorSumCountAvg(t *testing.T) {
	sum := NewAccumulator(AggSum)
	sum.Add(codec.Value{Kind: codec.KindInt64, I64: 10})
	sum.Add(codec.Value{Kind: codec.KindInt64, I64: 20})
	assert.Equal(t, codec.Value{Kind: codec.KindInt64, I64: 30}, sum.Result())

	avg := NewAccumulator(AggAvg)
	avg.Add(codec.Value{Kind: codec.KindInt64, I64: 10})
	avg.Add(codec.Value{Kind: codec.KindInt64, I64: 20})
	assert.Equal(t, 15.0, avg.Result().F64)

	count := NewAccumulator(AggCount)
	count.Add(codec.Value{Kind: codec.KindInt64, I64: 1})
	count.Add(codec.Value{Null: true})
	assert.Equal(t, int64(1), count.Result().I64)
}

func TestAccumulatorMinMax(t *testing.T) {
	min := NewAccumulator(AggMin)
	min.Add(codec.Value{Kind: codec.KindInt64, I64: 5})
	min.Add(codec.Value{Kind: codec.KindInt64, I64: 2})
	min.Add(codec.Value{Kind: codec.KindInt64, I64: 9})
	assert.Equal(t, int64(2), min.Result().I64)

	max := NewAccumulator(AggMax)
	max.Add(codec.Value{Kind: codec.KindInt64, I64: 5})
	max.Add(codec.Value{Kind: codec.KindInt64, I64: 9})
	assert.Equal(t, int64(9), max.Result().I64)
}

func TestAccumulatorCountDistinct(t *testing.T) {
	cd := NewAccumulator(AggCountDistinct)
	cd.Add(codec.Value{Kind: codec.KindInt64, I64: 1})
	cd.Add(codec.Value{Kind: codec.KindInt64, I64: 1})
	cd.Add(codec.Value{Kind: codec.KindInt64, I64: 2})
	assert.Equal(t, int64(2), cd.Result().I64)
}

func TestAccumulatorMergePartials(t *testing.T) {
	// incremental phase: one accumulator per partition
	p0 := NewAccumulator(AggSum)
	p0.Add(codec.Value{Kind: codec.KindInt64, I64: 3})
	p1 := NewAccumulator(AggSum)
	p1.Add(codec.Value{Kind: codec.KindInt64, I64: 4})

	// final phase: merge partials
	final := NewAccumulator(AggSum)
	final.Merge(p0)
	final.Merge(p1)
	assert.Equal(t, int64(7), final.Result().I64)
}

func TestAggregateAddRowAndMergePartial(t *testing.T) {
	agA := NewAggregate([]AggKind{AggSum, AggCount})
	agA.AddRow([]byte("k1"), []codec.Value{{Kind: codec.KindInt64, I64: 10}, {Kind: codec.KindInt64, I64: 1}})
	agA.AddRow([]byte("k1"), []codec.Value{{Kind: codec.KindInt64, I64: 5}, {Kind: codec.KindInt64, I64: 1}})

	agB := NewAggregate([]AggKind{AggSum, AggCount})
	agB.AddRow([]byte("k1"), []codec.Value{{Kind: codec.KindInt64, I64: 100}, {Kind: codec.KindInt64, I64: 1}})
	agB.AddRow([]byte("k2"), []codec.Value{{Kind: codec.KindInt64, I64: 1}, {Kind: codec.KindInt64, I64: 1}})

	agA.MergePartial(agB)
	results := agA.Results()
	require.Contains(t, results, "k1")
	assert.Equal(t, int64(115), results["k1"][0].I64)
	assert.Equal(t, int64(3), results["k1"][1].I64)
	require.Contains(t, results, "k2")
	assert.Equal(t, int64(1), results["k2"][0].I64)
}
