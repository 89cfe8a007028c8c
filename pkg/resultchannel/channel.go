package resultchannel

import (
	"context"
	"sync"
)

// discarded marks a staged slot whose buffer was returned unused, so an
// ordered channel's consumption order can skip past it without blocking
// forever on a buffer that will never arrive.
var discarded = &Buffer{}

// DataChannel is a row data channel within a response. Ordered channels
// preserve acquire order across concurrent producers; unordered channels
// deliver staged buffers in stage order. Grounded on the teacher's
// events.Broker buffered-channel-plus-mutex shape, generalized from
// fan-out broadcast to a single-consumer staged-buffer queue.
type DataChannel struct {
	mu       sync.Mutex
	cond     *sync.Cond
	ordered  bool
	nextIdx  int
	consumed int
	staged   map[int]*Buffer
	fifo     []*Buffer
	closed   bool
}

// NewDataChannel creates a channel with the given ordering discipline.
func NewDataChannel(ordered bool) *DataChannel {
	c := &DataChannel{ordered: ordered, staged: map[int]*Buffer{}}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Acquire vends a fresh fixed-capacity buffer carrying the next
// acquisition index.
func (c *DataChannel) Acquire(size int) *Buffer {
	c.mu.Lock()
	idx := c.nextIdx
	c.nextIdx++
	c.mu.Unlock()
	return NewBuffer(size, idx)
}

// Stage publishes buf to the consumer. For ordered channels, buffers are
// held until every lower-indexed slot has been staged or discarded.
func (c *DataChannel) Stage(buf *Buffer) {
	c.mu.Lock()
	defer c.cond.Broadcast()
	defer c.mu.Unlock()
	if c.ordered {
		c.staged[buf.index] = buf
		return
	}
	c.fifo = append(c.fifo, buf)
}

// Discard returns buf's resource unused. On an ordered channel this
// still advances the consumption order past buf's slot.
func (c *DataChannel) Discard(buf *Buffer) {
	c.mu.Lock()
	defer c.cond.Broadcast()
	defer c.mu.Unlock()
	if c.ordered {
		c.staged[buf.index] = discarded
	}
	// unordered: nothing was queued yet, so there is nothing to undo
}

// Close signals that no further buffers will be acquired; a blocked Pull
// returns (nil, false) once all remaining staged buffers are drained.
func (c *DataChannel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Pull blocks until the next buffer in consumption order is available,
// the channel closes with nothing left to deliver, or ctx is canceled.
func (c *DataChannel) Pull(ctx context.Context) (*Buffer, bool) {
	done := make(chan struct{})
	if ctx != nil {
		stop := context.AfterFunc(ctx, func() {
			c.mu.Lock()
			close(done)
			c.mu.Unlock()
			c.cond.Broadcast()
		})
		defer stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case <-done:
			return nil, false
		default:
		}
		if c.ordered {
			buf, ok := c.staged[c.consumed]
			if ok {
				delete(c.staged, c.consumed)
				c.consumed++
				if buf == discarded {
					continue
				}
				return buf, true
			}
		} else if len(c.fifo) > 0 {
			buf := c.fifo[0]
			c.fifo = c.fifo[1:]
			return buf, true
		}
		if c.closed {
			return nil, false
		}
		c.cond.Wait()
	}
}
