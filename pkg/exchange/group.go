package exchange

import (
	"bytes"
	"container/heap"
	"sort"
	"sync"
)

// KeyedRecord is one (key, value) pair flowing through a group or
// aggregate exchange; value is the encoded record payload.
type KeyedRecord struct {
	Key   []byte
	Value []byte
}

// Group is a keyed, per-partition-sorted exchange. Readers merge every
// partition's sorted stream in global key order via a priority queue.
type Group struct {
	partitions []*groupPartition
	limit      int // optional per-group member limit; 0 = unbounded
}

// NewGroup creates a group exchange with the given partition count and
// an optional per-group member limit (0 disables the limit).
func NewGroup(partitionCount, limit int) *Group {
	g := &Group{partitions: make([]*groupPartition, partitionCount), limit: limit}
	for i := range g.partitions {
		g.partitions[i] = &groupPartition{}
	}
	return g
}

// PartitionCount reports how many writer partitions this exchange has.
func (g *Group) PartitionCount() int { return len(g.partitions) }

type groupPartition struct {
	mu      sync.Mutex
	records []KeyedRecord
	sorted  bool
}

// Offer appends rec to its partition; partitions accumulate unsorted
// until Close, when they are sorted once (sort-then-scan strategy).
func (g *Group) Offer(partition int, rec KeyedRecord) {
	p := g.partitions[partition]
	p.mu.Lock()
	p.records = append(p.records, rec)
	p.mu.Unlock()
}

// Close finalizes a partition: no further Offer calls are valid, and its
// records are sorted by key for the merge reader.
func (g *Group) Close(partition int) {
	p := g.partitions[partition]
	p.mu.Lock()
	defer p.mu.Unlock()
	sort.Slice(p.records, func(i, j int) bool {
		return bytes.Compare(p.records[i].Key, p.records[j].Key) < 0
	})
	p.sorted = true
}

// groupHeapItem is one partition's current head, tracked in the merge
// heap keyed by record key.
type groupHeapItem struct {
	key         []byte
	value       []byte
	partition   int
	posInPart   int
}

type groupHeap []groupHeapItem

func (h groupHeap) Len() int { return len(h) }
func (h groupHeap) Less(i, j int) bool {
	c := bytes.Compare(h[i].key, h[j].key)
	if c != 0 {
		return c < 0
	}
	// equal keys: break ties by partition index so the merge is
	// deterministic instead of depending on heap internals.
	return h[i].partition < h[j].partition
}
func (h groupHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *groupHeap) Push(x any)         { *h = append(*h, x.(groupHeapItem)) }
func (h *groupHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Reader is the group exchange's merge-reader contract: next_group /
// get_group / next_member / get_member.
type Reader struct {
	g          *Group
	h          groupHeap
	curKey     []byte
	curMember  KeyedRecord
	haveGroup  bool
	haveMember bool
	memberSeen int
}

// NewReader builds a reader that merges every (already-closed)
// partition's sorted stream in global key order. Every partition must
// have been closed (and therefore sorted) before the reader is built.
func (g *Group) NewReader() *Reader {
	r := &Reader{g: g}
	for pi, p := range g.partitions {
		p.mu.Lock()
		if len(p.records) > 0 {
			heap.Push(&r.h, groupHeapItem{key: p.records[0].Key, value: p.records[0].Value, partition: pi, posInPart: 0})
		}
		p.mu.Unlock()
	}
	heap.Init(&r.h)
	return r
}

// NextGroup advances to the next distinct key, reporting false once the
// merge is exhausted.
func (r *Reader) NextGroup() bool {
	if r.h.Len() == 0 {
		r.haveGroup = false
		return false
	}
	r.curKey = append([]byte(nil), r.h[0].key...)
	r.haveGroup = true
	r.haveMember = false
	r.memberSeen = 0
	return true
}

// GetGroup returns the current group's key.
func (r *Reader) GetGroup() []byte { return r.curKey }

// NextMember advances to the next member of the current group,
// reporting false once the group is exhausted (or its optional limit is
// reached).
func (r *Reader) NextMember() bool {
	if !r.haveGroup {
		return false
	}
	if r.g.limit > 0 && r.memberSeen >= r.g.limit {
		r.drainCurrentGroup()
		return false
	}
	if r.h.Len() == 0 || !bytes.Equal(r.h[0].key, r.curKey) {
		r.haveMember = false
		return false
	}
	top := heap.Pop(&r.h).(groupHeapItem)
	r.curMember = KeyedRecord{Key: top.key, Value: top.value}
	r.haveMember = true
	r.memberSeen++
	r.advancePartition(top.partition, top.posInPart)
	return true
}

// GetMember returns the current group member.
func (r *Reader) GetMember() KeyedRecord { return r.curMember }

func (r *Reader) advancePartition(partition, posInPart int) {
	p := r.g.partitions[partition]
	p.mu.Lock()
	next := posInPart + 1
	if next < len(p.records) {
		heap.Push(&r.h, groupHeapItem{key: p.records[next].Key, value: p.records[next].Value, partition: partition, posInPart: next})
	}
	p.mu.Unlock()
}

// drainCurrentGroup discards any remaining members of the current key
// once the per-group limit is hit, so the next NextGroup call starts
// clean.
func (r *Reader) drainCurrentGroup() {
	for r.h.Len() > 0 && bytes.Equal(r.h[0].key, r.curKey) {
		top := heap.Pop(&r.h).(groupHeapItem)
		r.advancePartition(top.partition, top.posInPart)
	}
}
