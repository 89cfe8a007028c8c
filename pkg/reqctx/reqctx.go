// Package reqctx bundles one request's cross-component state (spec §3
// "Request context"): the transaction, the result channel, the writer
// pool, the scheduler handle, session info, accumulated error info, and
// configuration. Grounded on the resource-bundling idiom of the
// teacher's pkg/manager.Manager struct (one handle wrapping the raft
// store, event broker, DNS/ingress subsystems, etc. behind a single
// object other packages are handed), generalized from a long-lived
// cluster-manager handle to a short-lived per-request one.
package reqctx

import (
	"sync"
	"time"

	"github.com/cuemby/relkv/pkg/config"
	"github.com/cuemby/relkv/pkg/rerr"
	"github.com/cuemby/relkv/pkg/resultchannel"
	"github.com/cuemby/relkv/pkg/scheduler"
	"github.com/cuemby/relkv/pkg/txn"
	"github.com/cuemby/relkv/pkg/writerpool"
	"github.com/google/uuid"
)

// Session carries the client-identifying info attached to a request
// (spec §3 "session info"): the authenticated user (checked against
// storagemgr.Entry's authorized-action sets) and a free-form client
// label for logging.
type Session struct {
	User   string
	Client string
}

// Context is one request's bundle of cross-component state. Built once
// per request by whatever assembles a compiled plan into a running DAG,
// then threaded through scheduler tasks via process.TaskContext.
type Context struct {
	ID        string
	Tx        *txn.Transaction
	Results   *resultchannel.ResultChannel
	Writers   *writerpool.Pool
	Scheduler *scheduler.Scheduler
	Session   Session
	Config    *config.Config

	deadline time.Time // zero means no deadline

	mu       sync.Mutex
	canceled bool
	pending  error
}

// New builds a request context bound to tx, with no deadline and no
// cancellation yet requested. ID is generated fresh per request, for
// correlating log lines and metrics across a request's lifetime.
func New(tx *txn.Transaction, results *resultchannel.ResultChannel, writers *writerpool.Pool, sched *scheduler.Scheduler, session Session, cfg *config.Config) *Context {
	return &Context{
		ID:        uuid.New().String(),
		Tx:        tx,
		Results:   results,
		Writers:   writers,
		Scheduler: sched,
		Session:   session,
		Config:    cfg,
	}
}

// WithDeadline attaches an absolute deadline, which DeadlineExceeded and
// CheckSuspensionPoint test against. A zero deadline means none.
func (c *Context) WithDeadline(d time.Time) *Context {
	c.deadline = d
	return c
}

// Cancel sets the request's cancel flag (spec §5 "Cancellation"). Safe
// to call more than once or concurrently with operators checking it.
func (c *Context) Cancel() {
	c.mu.Lock()
	c.canceled = true
	c.mu.Unlock()
}

// Canceled reports whether Cancel has been called. The operator kernels
// do not read it; callers check it through CheckSuspensionPoint.
func (c *Context) Canceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// DeadlineExceeded reports whether the request's deadline (if any) has
// passed. The scheduler does not consult it before starting a task;
// callers check it through CheckSuspensionPoint.
func (c *Context) DeadlineExceeded() bool {
	return !c.deadline.IsZero() && time.Now().After(c.deadline)
}

// CheckSuspensionPoint returns an rerr.Info with code request_canceled if
// the request was canceled, sql_request_timeout if its deadline has
// passed, or nil otherwise; neither code is fatal under rerr.IsFatal.
// The operator kernels and the scheduler do not call it: checks happen
// where a caller places them (cmd/relkv-bench checks before its write
// workload and again before committing). A commit already in flight is never unwound this way —
// callers at a commit boundary must not call this (spec §5 "Commit in
// progress continues to a definite state").
func (c *Context) CheckSuspensionPoint() error {
	if c.Canceled() {
		return rerr.New(rerr.CodeRequestCanceled, "request canceled")
	}
	if c.DeadlineExceeded() {
		return rerr.New(rerr.CodeRequestTimeout, "request deadline exceeded")
	}
	return nil
}

// SetPendingError records err as the request's accumulated error info
// (spec §3 "accumulated error info") and forwards it to the bound
// transaction, which aborts itself if the error is fatal.
func (c *Context) SetPendingError(err error) {
	c.mu.Lock()
	if c.pending == nil {
		c.pending = err
	}
	c.mu.Unlock()
	if c.Tx != nil {
		c.Tx.SetPendingError(err)
	}
}

// PendingError returns the first error recorded on this request, if any.
func (c *Context) PendingError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
