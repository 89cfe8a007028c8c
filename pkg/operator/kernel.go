// Package operator implements the per-relational-operator executors
// (scan, find, join_find/join_scan, filter, project, emit, write,
// take_flat/take_group/take_cogroup, offer, aggregate/aggregate_group)
// that a process's task runs as a cooperative chain (spec §4.5). Every
// kernel is constructed once per compile and invoked at run time on a
// Context carrying its block variable table, arena, transaction, and a
// pointer to its downstream kernel; kernels return a Status telling the
// process runtime whether to continue, yield, sleep, or complete.
package operator

import (
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/cuemby/relkv/pkg/rerr"
)

// Status is the cooperative result a kernel hands back to its caller.
type Status int

const (
	StatusContinue Status = iota
	StatusYield
	StatusSleep
	StatusComplete
	StatusCompleteWithErrors
)

// Kernel is the uniform shape every operator presents.
type Kernel interface {
	Execute(ctx *Context) Status
}

// Context is the per-invocation state threaded through one operator
// chain call. It is cheap to construct per task and reused across every
// row the chain processes.
type Context struct {
	Task   *process.TaskContext
	Scope  *process.BlockScope
	KVTx   kvengine.Transaction
	KeyBuf *record.AlignedBuffer
	ValBuf *record.AlignedBuffer

	// Err carries the first fatal error observed by any kernel in this
	// chain invocation, for the process runtime to attach to the request
	// context and, if fatal, transition the owning transaction to
	// aborted (spec §7 "Propagation policy").
	Err error
}

// fail records err on ctx and returns complete-with-errors, the
// kernel-level half of §7's propagation policy (the process runtime
// does the tx-abort half by inspecting ctx.Err's code via rerr.IsFatal).
func (ctx *Context) fail(err error) Status {
	if ctx.Err == nil {
		ctx.Err = err
	}
	return StatusCompleteWithErrors
}

func translateKVStatus(status kvengine.Status, context string) error {
	switch status {
	case kvengine.StatusOK, kvengine.StatusNotFound:
		return nil
	case kvengine.StatusConcurrentOperation:
		return rerr.New(rerr.CodeBlockedByConcurrentOperation, "%s: concurrent operation", context).WithOriginStatus(string(status))
	case kvengine.StatusSerializationFailure:
		return rerr.New(rerr.CodeOCCWrite, "%s: serialization failure", context).WithOriginStatus(string(status))
	case kvengine.StatusErrUniqueConstraintViolation:
		return rerr.New(rerr.CodeUniqueConstraintViolation, "%s: unique constraint violation", context).WithOriginStatus(string(status))
	case kvengine.StatusErrIntegrityConstraintViolation:
		return rerr.New(rerr.CodeNotNullConstraintViolation, "%s: integrity constraint violation", context).WithOriginStatus(string(status))
	case kvengine.StatusErrInactiveTransaction:
		return rerr.New(rerr.CodeInactiveTransaction, "%s: inactive transaction", context).WithOriginStatus(string(status))
	case kvengine.StatusErrIllegalOperation:
		return rerr.New(rerr.CodeUnsupportedRuntimeFeature, "%s: illegal operation", context).WithOriginStatus(string(status))
	case kvengine.StatusAlreadyExists:
		return rerr.New(rerr.CodeTargetAlreadyExists, "%s: already exists", context).WithOriginStatus(string(status))
	default:
		return rerr.New(rerr.CodeInternal, "%s: unrecognized KV status %q", context, status)
	}
}
