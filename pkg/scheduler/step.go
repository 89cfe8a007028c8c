// Package scheduler runs a compiled plan's step DAG against a worker
// pool (spec §4.8). Grounded structurally on the teacher's
// pkg/scheduler.Scheduler (a long-lived object wrapping a run loop
// behind Start/Stop) and pkg/worker's goroutine-pool shape, but
// re-targeted from a ticker-driven container reconciliation cycle to a
// run-queue-driven one: steps become runnable as their upstream
// exchanges finish, tasks are pulled off per-worker queues (optionally
// stealing from neighbors), and a task's result (complete,
// complete-with-errors, yield, sleep) decides whether it is re-queued,
// parked, or retired.
package scheduler

import (
	"sync"

	"github.com/cuemby/relkv/pkg/plan"
)

// StepState is one node of a step's lifecycle (spec §4.8).
type StepState string

const (
	StepCreated      StepState = "created"
	StepPrepared     StepState = "prepared"
	StepRunning      StepState = "running"
	StepCompleted    StepState = "completed"
	StepDeactivated  StepState = "deactivated"
)

var stepAllowed = map[StepState]map[StepState]bool{
	StepCreated:   {StepPrepared: true, StepDeactivated: true},
	StepPrepared:  {StepRunning: true, StepDeactivated: true},
	StepRunning:   {StepCompleted: true, StepDeactivated: true},
	StepCompleted: {StepDeactivated: true},
}

// Step is one node of the plan's step DAG: a compiled process plus the
// upstream/downstream wiring the scheduler needs to know when it may
// run and what it unblocks once it finishes.
type Step struct {
	mu    sync.Mutex
	state StepState

	Process  *plan.ProcessStep
	Upstream []*Step // steps whose output this step's input ports read

	pendingUpstream int // upstream steps not yet Completed
	onReady         []func()
	activeTasks     int // main tasks dispatched but not yet finished
}

// NewStep wraps a compiled process step as a scheduler-tracked node,
// created in state StepCreated with its upstream dependency count
// derived from upstream.
func NewStep(process *plan.ProcessStep, upstream []*Step) *Step {
	return &Step{
		state:           StepCreated,
		Process:         process,
		Upstream:        upstream,
		pendingUpstream: len(upstream),
	}
}

// attachUpstream sets the step's upstream list after construction, for
// builders (BuildDAG) that must create every node before any edge
// referencing a not-yet-built node can be resolved.
func (s *Step) attachUpstream(upstream []*Step) {
	s.mu.Lock()
	s.Upstream = upstream
	s.pendingUpstream = len(upstream)
	s.mu.Unlock()
}

// State returns the step's current lifecycle state.
func (s *Step) State() StepState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Step) transition(to StepState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !stepAllowed[s.state][to] {
		return false
	}
	s.state = to
	return true
}

// Prepare moves created -> prepared once pre-tasks (if any) have run.
func (s *Step) Prepare() bool { return s.transition(StepPrepared) }

// Run moves prepared -> running.
func (s *Step) Run() bool { return s.transition(StepRunning) }

// Complete moves running -> completed and notifies every downstream
// step registered via wireReady, decrementing their pending-upstream
// count and firing their readiness callback once it reaches zero.
func (s *Step) Complete() bool {
	if !s.transition(StepCompleted) {
		return false
	}
	s.mu.Lock()
	callbacks := s.onReady
	s.onReady = nil
	s.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
	return true
}

// Deactivate retires the step from any state, freeing its resources.
func (s *Step) Deactivate() bool { return s.transition(StepDeactivated) }

// AddTasks records n more main tasks dispatched for this step's running
// phase, dispatched before any of them can report done.
func (s *Step) AddTasks(n int) {
	s.mu.Lock()
	s.activeTasks += n
	s.mu.Unlock()
}

// TaskDone records one dispatched task finishing (by any result that
// retires it: complete or complete-with-errors). Once every dispatched
// task for this step has finished, the step transitions to completed
// and reports true.
func (s *Step) TaskDone() bool {
	s.mu.Lock()
	s.activeTasks--
	done := s.activeTasks <= 0
	s.mu.Unlock()
	if done {
		return s.Complete()
	}
	return false
}

// Runnable reports whether every upstream step has produced (spec
// §4.8: "A step becomes runnable when all its upstream exchanges have
// produced").
func (s *Step) Runnable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingUpstream == 0
}

// notifyUpstreamDone decrements the pending-upstream count and invokes
// ready, if supplied, exactly once pendingUpstream reaches zero.
func (s *Step) notifyUpstreamDone(ready func()) {
	s.mu.Lock()
	s.pendingUpstream--
	fire := s.pendingUpstream == 0 && ready != nil
	s.mu.Unlock()
	if fire {
		ready()
	}
}

// wireReady links every upstream step's completion to this step's
// readiness check, invoking ready once all upstreams have completed.
// Called once at DAG build time.
func (s *Step) wireReady(ready func()) {
	if len(s.Upstream) == 0 {
		ready()
		return
	}
	for _, up := range s.Upstream {
		up.mu.Lock()
		alreadyDone := up.state == StepCompleted
		if !alreadyDone {
			up.onReady = append(up.onReady, func() { s.notifyUpstreamDone(ready) })
		}
		up.mu.Unlock()
		if alreadyDone {
			s.notifyUpstreamDone(ready)
		}
	}
}
