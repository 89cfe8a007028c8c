package scheduler

import (
	"sync"
	"time"

	"github.com/cuemby/relkv/pkg/config"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/rlog"
	"github.com/cuemby/relkv/pkg/rmetrics"
	"github.com/cuemby/relkv/pkg/writerpool"
	"github.com/rs/zerolog"
)

// Scheduler runs a plan's step DAG to completion against a pool of
// workers, per spec §4.8. Grounded on the teacher's
// pkg/scheduler.Scheduler Start/Stop/run-loop shape, re-targeted from a
// 5-second reconciliation ticker to a run-queue the scheduler drains as
// fast as tasks become available, waking idle workers on submission.
type Scheduler struct {
	cfg     *config.Config
	writers *writerpool.Pool
	logger  zerolog.Logger

	workers []*worker
	nextW   int // round-robin cursor, guarded by mu
	mu      sync.Mutex

	sleeping map[*Task]bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a scheduler with one worker per cfg.ThreadPoolSize (or a
// single worker, with stealing disabled, when cfg.SingleThread is set).
func New(cfg *config.Config, writers *writerpool.Pool) *Scheduler {
	n := cfg.ThreadPoolSize
	if cfg.SingleThread || n < 1 {
		n = 1
	}
	s := &Scheduler{
		cfg:      cfg,
		writers:  writers,
		logger:   rlog.WithComponent("scheduler"),
		workers:  make([]*worker, n),
		sleeping: make(map[*Task]bool),
		stopCh:   make(chan struct{}),
	}
	core := cfg.InitialCore
	for i := range s.workers {
		s.workers[i] = newWorker(i, core)
		if cfg.AssignNUMANodesUniformly {
			core++
		}
	}
	return s
}

// Start launches one goroutine per worker.
func (s *Scheduler) Start() {
	for _, w := range s.workers {
		s.wg.Add(1)
		go s.runWorker(w)
	}
}

// Stop signals every worker to exit and waits for them to drain.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Submit dispatches n tasks belonging to the same step's running
// phase: it records the dispatch count on the step and spreads the
// tasks round-robin across workers (serial mode simply has one
// worker). The step must already be in state running: the task that
// retires last completes it through Step.TaskDone, which only succeeds
// from running.
func (s *Scheduler) Submit(tasks []*Task) {
	if len(tasks) == 0 {
		return
	}
	tasks[0].Step.AddTasks(len(tasks))
	for _, t := range tasks {
		s.enqueue(t)
	}
}

func (s *Scheduler) enqueue(t *Task) {
	s.mu.Lock()
	w := s.workers[s.nextW%len(s.workers)]
	s.nextW++
	s.mu.Unlock()
	w.queue.pushBack(t)
	w.notify()
	rmetrics.TasksScheduled.WithLabelValues(string(stepKind(t))).Inc()
}

func stepKind(t *Task) plan.OpKind {
	if t.Step.Process != nil && t.Step.Process.Root != nil {
		return t.Step.Process.Root.Kind
	}
	return ""
}

// Wake resumes a sleeping task (spec §4.8: "parked until a wakeup —
// exchange buffer drained, seat released, strand complete"). A no-op if
// t is not currently parked.
func (s *Scheduler) Wake(t *Task) {
	s.mu.Lock()
	if !s.sleeping[t] {
		s.mu.Unlock()
		return
	}
	delete(s.sleeping, t)
	s.mu.Unlock()
	s.enqueue(t)
}

// runWorker is one worker's main loop: pop its own queue, steal if
// empty and allowed, otherwise block until woken or stopped.
func (s *Scheduler) runWorker(w *worker) {
	defer s.wg.Done()
	for {
		task, ok := w.queue.popBack()
		if !ok && s.cfg.StealingEnabled {
			task, ok = s.steal(w)
		}
		if !ok {
			select {
			case <-w.wakeCh:
				continue
			case <-s.stopCh:
				return
			}
		}
		s.execute(w, task)

		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}

// steal scans every other worker's queue for work, taking from its
// front (the oldest-queued task) so the thief and the owner converge on
// disjoint ends of the deque.
func (s *Scheduler) steal(self *worker) (*Task, bool) {
	for _, w := range s.workers {
		if w == self {
			continue
		}
		if t, ok := w.queue.stealFront(); ok {
			return t, true
		}
	}
	return nil, false
}

// execute runs one scheduling cycle for task: admission gate (if it
// needs a writer seat and doesn't hold one), the operator chain itself,
// and result handling.
func (s *Scheduler) execute(w *worker, t *Task) {
	if t.NeedsWriterSeat && t.seat == nil {
		seat, ok := s.writers.TryAcquire()
		if !ok {
			if t.seatWaitStart.IsZero() {
				t.seatWaitStart = time.Now()
			}
			rmetrics.TaskResult.WithLabelValues("yield").Inc()
			w.queue.pushBack(t)
			w.notify()
			return
		}
		if !t.seatWaitStart.IsZero() {
			rmetrics.WriterSeatWaitDuration.Observe(time.Since(t.seatWaitStart).Seconds())
		}
		t.seat = seat
		t.Ctx.Seat = seat
		rmetrics.WriterSeatsInUse.Inc()
	}

	result, err := t.run()
	switch result {
	case ResultComplete:
		rmetrics.TaskResult.WithLabelValues("complete").Inc()
		s.retire(t)
	case ResultCompleteWithErrors:
		rmetrics.TaskResult.WithLabelValues("complete_with_errors").Inc()
		if err != nil && t.Ctx.Tx != nil {
			t.Ctx.Tx.SetPendingError(err)
		}
		s.logger.Error().Err(err).Msg("task completed with errors")
		s.retire(t)
	case ResultYield:
		rmetrics.TaskResult.WithLabelValues("yield").Inc()
		s.releaseSeat(t)
		w.queue.pushBack(t)
		w.notify()
	case ResultSleep:
		rmetrics.TaskResult.WithLabelValues("sleep").Inc()
		s.releaseSeat(t)
		s.mu.Lock()
		s.sleeping[t] = true
		s.mu.Unlock()
	}
}

// releaseSeat returns a held writer seat to the pool when a task yields
// or sleeps (spec §4.12/§5: "on task yield/sleep the seat is released;
// on resume it must reacquire" — this bounds how many suspended emit
// tasks can hoard seats they aren't actively using). The next call to
// execute for this task re-enters the admission gate at the top, since
// NeedsWriterSeat is still true and t.seat is now nil.
func (s *Scheduler) releaseSeat(t *Task) {
	if t.seat == nil {
		return
	}
	t.seat.Release()
	rmetrics.WriterSeatsInUse.Dec()
	t.seat = nil
	t.Ctx.Seat = nil
}

// retire releases a finished task's writer seat (if held) and notifies
// its step, which transitions to completed once every dispatched task
// for it has retired.
func (s *Scheduler) retire(t *Task) {
	s.releaseSeat(t)
	t.Step.TaskDone()
}
