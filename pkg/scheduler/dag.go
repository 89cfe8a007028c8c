package scheduler

import "github.com/cuemby/relkv/pkg/plan"

// Dependencies maps a plan step's index (into plan.Plan.Steps) to the
// indexes of the steps whose output it reads. The compiled-plan shape
// (spec §6) does not itself carry step-to-step edges — a ProcessStep's
// SourceExchanges names exchange slots, not producing steps — so the
// planner's external driver is expected to supply this alongside the
// plan; BuildDAG is the scheduler-side half of wiring it up.
type Dependencies map[int][]int

// BuildDAG wraps every step of p in a scheduler Step, wired to its
// upstream steps per deps, and returns them in the same order as
// p.Steps. A step with no dependency entry is treated as a root (no
// upstream).
func BuildDAG(p *plan.Plan, deps Dependencies) []*Step {
	nodes := make([]*Step, len(p.Steps))
	for i, ps := range p.Steps {
		nodes[i] = NewStep(ps, nil)
	}
	for i := range p.Steps {
		var upstream []*Step
		for _, dep := range deps[i] {
			if dep >= 0 && dep < len(nodes) {
				upstream = append(upstream, nodes[dep])
			}
		}
		nodes[i].attachUpstream(upstream)
	}
	return nodes
}

// Dispatch wires every step's readiness to onRunnable (typically the
// driver's "submit this step's tasks" callback), invoking it
// immediately for steps with no pending upstream. Called once after
// BuildDAG.
func Dispatch(steps []*Step, onRunnable func(*Step)) {
	for _, s := range steps {
		step := s
		step.wireReady(func() { onRunnable(step) })
	}
}
