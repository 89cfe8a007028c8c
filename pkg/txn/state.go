// Package txn implements the transaction lifecycle state machine (spec
// §4.9): explicit transition methods validated against the allowed-
// transition table, plus strand lifecycle. Grounded structurally on the
// teacher's pkg/manager/fsm.go "validate then apply" dispatch idiom,
// generalized from raft-log replay to direct state-transition calls —
// raft itself is not kept (see DESIGN.md).
package txn

import (
	"sync"

	"github.com/cuemby/relkv/pkg/rerr"
	"github.com/cuemby/relkv/pkg/rmetrics"
)

// State is one node of the transaction lifecycle.
type State string

const (
	StateUndefined        State = "undefined"
	StateInit             State = "init"
	StateActive           State = "active"
	StateGoingToCommit    State = "going_to_commit"
	StateGoingToAbort     State = "going_to_abort"
	StateAbortedDirectly  State = "aborted_directly"
	StateCCCommitting     State = "cc_committing"
	StateCommittedAvailable State = "committed_available"
	StateCommittedStored  State = "committed_stored"
	StateAborted          State = "aborted"
	StateUnknown          State = "unknown" // CC-engine reported the tx lost
)

// allowed is the positive transition table of spec §4.9. A transition
// not listed here is rejected.
var allowed = map[State]map[State]bool{
	StateInit:            {StateActive: true, StateAborted: true},
	StateActive:          {StateGoingToCommit: true, StateGoingToAbort: true, StateAborted: true, StateUnknown: true},
	StateGoingToCommit:   {StateCCCommitting: true},
	StateGoingToAbort:    {StateAborted: true},
	StateAbortedDirectly: {StateAborted: true},
	StateCCCommitting:    {StateCommittedAvailable: true, StateCommittedStored: true, StateAborted: true},
	StateCommittedAvailable: {StateCommittedStored: true},
}

// Options carries the transaction context fields of spec §3: identity,
// flags, and write-preserve list.
type Options struct {
	ReadOnly      bool
	Long          bool
	WritePreserve []string
	Label         string
}

// Transaction is a single transaction's lifecycle and associated state
// (pending error, strands); it holds no storage-manager lock.
type Transaction struct {
	mu    sync.Mutex
	id    string
	opts  Options
	state State

	pendingError error
	strands      map[string]*Strand
}

// New creates a transaction in state init.
func New(id string, opts Options) *Transaction {
	return &Transaction{id: id, opts: opts, state: StateInit, strands: map[string]*Strand{}}
}

func (t *Transaction) ID() string      { return t.id }
func (t *Transaction) Options() Options { return t.opts }

// State returns the current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// transition validates and applies from -> to, counting each applied
// move via rmetrics. Must be called with t.mu held.
func (t *Transaction) transition(to State) error {
	from := t.state
	if !allowed[from][to] {
		return rerr.New(rerr.CodeInternal, "illegal transaction state transition %s -> %s", from, to)
	}
	t.state = to
	rmetrics.TransactionStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	return nil
}

// Activate moves init -> active.
func (t *Transaction) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StateActive)
}

// RequestCommit moves active -> going_to_commit. A commit requested from
// any other state is a no-op that reports the state's terminal status
// rather than erroring, per spec §4.9 "Commit and abort requests in
// non-active states are no-ops that return the appropriate status."
func (t *Transaction) RequestCommit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return t.noopStatus()
	}
	return t.transition(StateGoingToCommit)
}

// RequestAbort moves active -> going_to_abort (or init -> aborted). A
// no-op in any other state.
func (t *Transaction) RequestAbort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateActive:
		return t.transition(StateGoingToAbort)
	case StateInit:
		return t.transition(StateAborted)
	default:
		return t.noopStatus()
	}
}

// AbortDirectly moves active -> aborted immediately, used for CC-engine
// early aborts detected mid-statement (spec §7 "CC early aborts…cause
// both immediate operator failure and tx state transition").
func (t *Transaction) AbortDirectly() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return t.noopStatus()
	}
	return t.transition(StateAborted)
}

// MarkLost transitions active -> unknown when the CC engine reports the
// transaction as lost.
func (t *Transaction) MarkLost() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return t.noopStatus()
	}
	return t.transition(StateUnknown)
}

// OnCCCommitStarted moves going_to_commit -> cc_committing, invoked once
// the KV engine has accepted the commit request.
func (t *Transaction) OnCCCommitStarted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StateCCCommitting)
}

// OnCCCommitted moves cc_committing -> committed_available, invoked when
// the KV engine reports the commit as logically visible.
func (t *Transaction) OnCCCommitted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StateCommittedAvailable)
}

// OnCCStored moves {cc_committing, committed_available} -> committed_stored.
func (t *Transaction) OnCCStored() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StateCommittedStored)
}

// OnCCAborted moves going_to_abort or cc_committing -> aborted.
func (t *Transaction) OnCCAborted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StateAborted)
}

// noopStatus reports the status a commit/abort no-op should return:
// err_inactive_transaction once the tx has left active, success if it
// already reached a committed state.
func (t *Transaction) noopStatus() error {
	switch t.state {
	case StateCommittedAvailable, StateCommittedStored:
		return nil
	default:
		return rerr.New(rerr.CodeInactiveTransaction, "transaction %s is not active (state %s)", t.id, t.state)
	}
}

// SetPendingError attaches the first error observed on this
// transaction's request context, and aborts the transaction if the
// error's code is fatal (spec §7 propagation policy).
func (t *Transaction) SetPendingError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pendingError == nil {
		t.pendingError = err
	}
	if code, ok := rerr.CodeOf(err); ok && rerr.IsFatal(code) && t.state == StateActive {
		_ = t.transition(StateAborted)
	}
}

// PendingError returns the first error recorded on this transaction, if any.
func (t *Transaction) PendingError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingError
}
