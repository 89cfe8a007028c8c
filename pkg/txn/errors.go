package txn

import "github.com/cuemby/relkv/pkg/rerr"

func strandWriteRejected(strandID string) error {
	return rerr.New(rerr.CodeUnsupportedRuntimeFeature, "strand %s is read-only: writes from a parallel-scan strand are not supported", strandID)
}
