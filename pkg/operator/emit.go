package operator

import (
	"github.com/cuemby/relkv/pkg/resultchannel"
	"github.com/cuemby/relkv/pkg/rerr"
)

// Emit writes the current record to the result channel. Per §4.12, a
// task containing an emit operator must already hold a writer seat
// (admitted by the scheduler before the chain was invoked); Emit itself
// only checks the seat is present, since acquiring one mid-chain would
// violate the "acquire before invoking operators" admission contract.
type Emit struct {
	Channel  *resultchannel.DataChannel
	Ordered  bool
	Capacity int // buffer size passed to Channel.Acquire
}

func (e *Emit) Execute(ctx *Context) Status {
	if ctx.Task.Seat == nil {
		return ctx.fail(rerr.New(rerr.CodeUnreachable, "emit invoked without a writer seat held"))
	}
	buf := e.Channel.Acquire(e.Capacity)
	body := ctx.Scope.Current.Bytes()
	if err := buf.Write(body); err != nil {
		e.Channel.Discard(buf)
		return ctx.fail(rerr.Wrap(rerr.CodeValueTooLong, err, "emit: record exceeds output buffer capacity"))
	}
	e.Channel.Stage(buf)
	return StatusContinue
}
