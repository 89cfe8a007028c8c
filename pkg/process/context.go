package process

import (
	"sync"

	"github.com/cuemby/relkv/pkg/record"
	"github.com/cuemby/relkv/pkg/txn"
	"github.com/cuemby/relkv/pkg/writerpool"
)

// OperatorID identifies an operator node within a process's sub-DAG.
type OperatorID int

// OperatorContextContainer stores arbitrary per-task, per-operator state
// (scan iterators, write buffers, aggregate accumulators) indexed by
// operator id. Operators type-assert what they stored themselves.
type OperatorContextContainer struct {
	mu    sync.Mutex
	state map[OperatorID]any
}

func newOperatorContextContainer() *OperatorContextContainer {
	return &OperatorContextContainer{state: map[OperatorID]any{}}
}

// Get returns the stored state for id, if any.
func (c *OperatorContextContainer) Get(id OperatorID) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.state[id]
	return v, ok
}

// Set stores state for id, overwriting any previous value.
func (c *OperatorContextContainer) Set(id OperatorID, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[id] = v
}

// Delete clears stored state for id.
func (c *OperatorContextContainer) Delete(id OperatorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.state, id)
}

// Reset clears every operator's stored state, for reuse from a pool.
func (c *OperatorContextContainer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.state {
		delete(c.state, k)
	}
}

// TaskContext is the full bundle of state one running task owns: its
// block scopes, per-operator state, arenas, and the shared transaction
// (plus optional strand and writer seat).
type TaskContext struct {
	Scopes   []*BlockScope
	Operators *OperatorContextContainer
	Main     *record.AlignedBuffer
	Varlen   *record.VarlenArena
	Tx       *txn.Transaction
	Strand   *txn.Strand
	Seat     *writerpool.Seat

	// EmptyInputFromShuffle reports that every upstream shuffle partition
	// feeding this task was empty; operators may short-circuit.
	EmptyInputFromShuffle bool
	// InTransactionAndNonSticky reports that this task may migrate
	// between workers (no worker-local state its correctness depends on).
	InTransactionAndNonSticky bool
}

func newTaskContext(scopeCount int) *TaskContext {
	return &TaskContext{
		Scopes:    make([]*BlockScope, scopeCount),
		Operators: newOperatorContextContainer(),
		Main:      record.NewAlignedBuffer(8, 4096),
		Varlen:    record.NewVarlenArena(),
	}
}

// reset clears per-run state before returning to the pool, but keeps the
// allocated Scopes slice, arenas, and operator container for reuse.
func (tc *TaskContext) reset() {
	for i := range tc.Scopes {
		tc.Scopes[i] = nil
	}
	tc.Operators.Reset()
	tc.Main.Shrink(0)
	tc.Varlen.Reset()
	tc.Tx = nil
	tc.Strand = nil
	tc.Seat = nil
	tc.EmptyInputFromShuffle = false
	tc.InTransactionAndNonSticky = false
}

// TaskContextPool is the thread-safe queue the process executor draws
// task contexts from and returns them to. Yield/sleep return a context
// to the pool so another worker may resume the same logical task later
// by re-acquiring one and re-populating its scopes.
type TaskContextPool struct {
	mu         sync.Mutex
	scopeCount int
	free       []*TaskContext
}

// NewTaskContextPool creates a pool whose contexts carry scopeCount
// block scopes each.
func NewTaskContextPool(scopeCount int) *TaskContextPool {
	return &TaskContextPool{scopeCount: scopeCount}
}

// Acquire returns a reset context from the free list, allocating a new
// one if the pool is empty.
func (p *TaskContextPool) Acquire() *TaskContext {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		return newTaskContext(p.scopeCount)
	}
	tc := p.free[n-1]
	p.free = p.free[:n-1]
	p.mu.Unlock()
	return tc
}

// Release resets tc and returns it to the free list.
func (p *TaskContextPool) Release(tc *TaskContext) {
	tc.reset()
	p.mu.Lock()
	p.free = append(p.free, tc)
	p.mu.Unlock()
}

// Outstanding reports how many contexts are currently idle in the pool,
// for diagnostics.
func (p *TaskContextPool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
