package scheduler

import (
	"time"

	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/operator"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/cuemby/relkv/pkg/writerpool"
)

// Task is one schedulable unit of work: a step's operator chain bound
// to a task context and (for parallel-scan strands) a key range
// already fixed at submission time. A task's Root is whatever operator
// sits at the top of its sub-DAG for this partition; Execute drives it
// to completion, yield, or sleep.
type Task struct {
	Step  *Step
	Root  operator.Kernel
	Ctx   *process.TaskContext
	Scope *process.BlockScope
	KVTx  kvengine.Transaction

	KeyBuf *record.AlignedBuffer
	ValBuf *record.AlignedBuffer
	opCtx  *operator.Context

	// NeedsWriterSeat is true when this task's chain contains an emit
	// operator (spec §4.8 "Writer-seat admission"): the scheduler must
	// hold a seat from the writer pool before invoking Root.
	NeedsWriterSeat bool
	seat            *writerpool.Seat
	seatWaitStart   time.Time // first failed acquire attempt, zero until then

	// wake is not used by the scheduler: Scheduler.Wake resumes a
	// sleeping task (exchange buffer drained, seat released, strand
	// complete — spec §4.8 "parked until a wakeup") by re-enqueuing it.
	wake chan struct{}
}

// NewTask builds a task for one step partition, with fresh key/value
// scratch buffers.
func NewTask(step *Step, root operator.Kernel, taskCtx *process.TaskContext, scope *process.BlockScope, kvtx kvengine.Transaction, needsWriterSeat bool) *Task {
	return &Task{
		Step:            step,
		Root:            root,
		Ctx:             taskCtx,
		Scope:           scope,
		KVTx:            kvtx,
		KeyBuf:          record.NewAlignedBuffer(8, 256),
		ValBuf:          record.NewAlignedBuffer(8, 256),
		NeedsWriterSeat: needsWriterSeat,
	}
}

// Result mirrors operator.Status at the scheduler's granularity.
type Result int

const (
	ResultComplete Result = iota
	ResultCompleteWithErrors
	ResultYield
	ResultSleep
)

// opContext builds (once) and returns the operator.Context this task
// reuses across every Execute call (a task's chain may run more than
// once across yields, each time against the same Task/Scope but a
// fresh Err slot).
func (t *Task) opContext() *operator.Context {
	if t.opCtx == nil {
		t.opCtx = &operator.Context{
			Task:   t.Ctx,
			Scope:  t.Scope,
			KVTx:   t.KVTx,
			KeyBuf: t.KeyBuf,
			ValBuf: t.ValBuf,
		}
	}
	t.opCtx.Err = nil
	return t.opCtx
}

// run invokes the task's operator chain once and translates the
// resulting operator.Status into a scheduler Result, per spec §4.8's
// {complete, complete-with-errors, yield, sleep} result set.
func (t *Task) run() (Result, error) {
	ctx := t.opContext()
	switch t.Root.Execute(ctx) {
	case operator.StatusContinue, operator.StatusComplete:
		return ResultComplete, nil
	case operator.StatusCompleteWithErrors:
		return ResultCompleteWithErrors, ctx.Err
	case operator.StatusYield:
		return ResultYield, nil
	case operator.StatusSleep:
		return ResultSleep, nil
	default:
		return ResultCompleteWithErrors, ctx.Err
	}
}
