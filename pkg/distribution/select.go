package distribution

// PivotFunc computes pivots for a range; both Uniform and Simple are
// adapted to this shape so callers can select a strategy by name
// without depending on either concrete type.
type PivotFunc func(low, high []byte, n int) [][]byte

// Select returns the pivot function named by strategy ("uniform" or
// "simple", matching pkg/config.KeyDistributionStrategy's string
// values), falling back to Simple for any unrecognized name.
func Select(strategy string, sampler RangeSampler) PivotFunc {
	switch strategy {
	case "uniform":
		u := Uniform{Sampler: sampler}
		return u.Compute
	default:
		s := Simple{}
		return s.Compute
	}
}
