package scheduler

import (
	"github.com/cuemby/relkv/pkg/config"
	"github.com/cuemby/relkv/pkg/distribution"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/rmetrics"
)

// WriterCount computes the maximum partition fanout for a parallel
// scan (spec §4.8 "Parallel-scan fanout" and SPEC_FULL's writer-count
// calculator supplement): it inspects the compiled subtree rooted at
// root for emit operators, since each concurrent strand that emits
// needs its own writer seat, and caps the requested partition count at
// however many seats a fully emit-bearing fanout could ever use. A
// read-only transaction never blocks on writer admission (emit targets
// a result channel rather than mutating storage) so it is not capped by
// seat availability; a read-write transaction's strands instead share
// the fixed per-process writer pool, so fanout beyond its capacity
// would only yield without ever running.
func WriterCount(root *plan.OperatorNode, requested int, readOnly bool, writerCapacity int) int {
	if requested <= 0 {
		return 1
	}
	if !hasEmit(root) {
		return requested
	}
	if readOnly {
		return requested
	}
	if writerCapacity <= 0 {
		return 1
	}
	if requested > writerCapacity {
		return writerCapacity
	}
	return requested
}

// ScanPivots computes the interior pivots a parallel scan fans its
// strands out against (spec §4.8: "dispatches that many strand tasks
// against C4 pivots"), using the key-distribution strategy named by
// cfg.KeyDistribution (spec §6 "key_distribution"). strandCount-1
// pivots split [low, high) into strandCount key ranges; an empty pivot
// list (sampler found nothing in range) means the caller should fall
// back to a single strand, per C4's own documented fallback.
func ScanPivots(cfg *config.Config, sampler distribution.RangeSampler, low, high []byte, strandCount int) [][]byte {
	if strandCount < 2 {
		return nil
	}
	compute := distribution.Select(string(cfg.KeyDistribution), sampler)
	pivots := compute(low, high, strandCount-1)
	rmetrics.ScanPivotCount.Observe(float64(len(pivots)))
	return pivots
}

// hasEmit reports whether root's subtree contains an emit operator,
// which is what forces a strand to hold a writer seat before running.
func hasEmit(root *plan.OperatorNode) bool {
	if root == nil {
		return false
	}
	if root.Kind == plan.OpEmit {
		return true
	}
	for _, c := range root.Children {
		if hasEmit(c) {
			return true
		}
	}
	return false
}
