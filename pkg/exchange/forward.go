// Package exchange implements the three exchange kinds that carry
// records across a process boundary: forward (order-preserving,
// unkeyed), group (sorted-merge by key), and aggregate (incremental +
// final accumulation). Grounded on the teacher's pkg/events/events.go
// Broker, generalized from single-topic fan-out to per-partition,
// back-pressured record streams; the heap-based group merge and
// aggregate accumulators are built fresh, since no example repo
// implements a sort-merge exchange.
package exchange

import (
	"sync"

	"github.com/cuemby/relkv/pkg/rmetrics"
)

// Forward is an order-preserving, unkeyed exchange: N writer partitions,
// concatenated (not interleaved) on read.
type Forward struct {
	partitions []*forwardPartition
}

// NewForward creates a forward exchange with the given partition count,
// each buffering up to arenaCapacity records before the writer stalls.
func NewForward(partitionCount, arenaCapacity int) *Forward {
	f := &Forward{partitions: make([]*forwardPartition, partitionCount)}
	for i := range f.partitions {
		f.partitions[i] = newForwardPartition(arenaCapacity)
	}
	return f
}

// PartitionCount reports how many writer partitions this exchange has.
func (f *Forward) PartitionCount() int { return len(f.partitions) }

// Writer returns the writer handle for the given partition.
func (f *Forward) Writer(partition int) *ForwardWriter {
	return &ForwardWriter{p: f.partitions[partition]}
}

// NewReader returns a reader that concatenates every partition in
// partition order.
func (f *Forward) NewReader() *ForwardReader {
	return &ForwardReader{f: f}
}

type forwardPartition struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      [][]byte
	capacity int
	closed   bool
}

func newForwardPartition(capacity int) *forwardPartition {
	p := &forwardPartition{capacity: capacity}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// ForwardWriter is the producer handle for one forward-exchange
// partition.
type ForwardWriter struct {
	p *forwardPartition
}

// Offer appends rec to the partition. It returns false without blocking
// if the partition's arena is full; the caller (a scheduler task) should
// yield and retry later, per §4.7's back-pressure contract.
func (w *ForwardWriter) Offer(rec []byte) bool {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	if len(w.p.buf) >= w.p.capacity {
		rmetrics.ExchangeStalls.WithLabelValues("forward").Inc()
		return false
	}
	w.p.buf = append(w.p.buf, rec)
	w.p.cond.Broadcast()
	return true
}

// Close signals no more records will be offered on this partition.
func (w *ForwardWriter) Close() {
	w.p.mu.Lock()
	w.p.closed = true
	w.p.mu.Unlock()
	w.p.cond.Broadcast()
}

// ForwardReader consumes every partition of a Forward exchange in
// partition order.
type ForwardReader struct {
	f   *Forward
	idx int
}

// Next blocks until a record is available, returning (nil, false) once
// every partition is closed and drained.
func (r *ForwardReader) Next() ([]byte, bool) {
	for r.idx < len(r.f.partitions) {
		p := r.f.partitions[r.idx]
		p.mu.Lock()
		for len(p.buf) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.buf) > 0 {
			rec := p.buf[0]
			p.buf = p.buf[1:]
			p.mu.Unlock()
			return rec, true
		}
		p.mu.Unlock()
		r.idx++
	}
	return nil, false
}

// Drained reports whether this writer's partition has room for another
// Offer to succeed without stalling, for the scheduler's wakeup check
// after a yield.
func (w *ForwardWriter) Drained() bool {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	return len(w.p.buf) < w.p.capacity
}
