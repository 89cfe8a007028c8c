package scheduler

import (
	"testing"

	"github.com/cuemby/relkv/pkg/config"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/stretchr/testify/assert"
)

type fixedSampler struct{ small, large []byte }

func (f fixedSampler) SmallestKey(low, high []byte) ([]byte, bool) { return f.small, f.small != nil }
func (f fixedSampler) LargestKey(low, high []byte) ([]byte, bool)  { return f.large, f.large != nil }

func TestScanPivotsRequestsOneFewerThanStrandCount(t *testing.T) {
	cfg := config.Default()
	cfg.KeyDistribution = config.KeyDistributionSimple
	pivots := ScanPivots(cfg, fixedSampler{}, nil, nil, 4)
	assert.Len(t, pivots, 3)
}

func TestScanPivotsSingleStrandNeedsNone(t *testing.T) {
	cfg := config.Default()
	assert.Empty(t, ScanPivots(cfg, fixedSampler{}, nil, nil, 1))
}

func TestScanPivotsEmptyRangeFallsBackToNone(t *testing.T) {
	cfg := config.Default()
	cfg.KeyDistribution = config.KeyDistributionUniform
	pivots := ScanPivots(cfg, fixedSampler{small: []byte{1}, large: []byte{1}}, nil, nil, 4)
	assert.Empty(t, pivots)
}

func TestWriterCountUnaffectedByPivotComputation(t *testing.T) {
	root := &plan.OperatorNode{Kind: plan.OpScan}
	assert.Equal(t, 4, WriterCount(root, 4, true, 2))
}
