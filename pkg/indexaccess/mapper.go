package indexaccess

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/rerr"
)

// OutputField selects one projected output column's source: the primary
// key tuple or the primary value tuple, at SourceIndex. Same shape as
// FieldMapping, kept distinct since it describes a different direction
// of projection (index hit -> output row, not primary row -> index key).
type OutputField struct {
	FromKey     bool
	SourceIndex int
}

// IndexFieldMapper resolves a secondary-index hit back to a primary row
// and projects the requested output fields.
type IndexFieldMapper struct {
	Secondary *SecondaryTarget
	Primary   *PrimaryTarget
	Outputs   []OutputField
}

// Resolve takes a secondary key hit and produces the requested output
// values. A primary row missing for an embedded primary key is reported
// as secondary_index_corruption: that combination only arises from a
// maintenance bug, since a concurrently deleted primary row instead
// fails the whole content_get with a concurrent-operation status (see
// DESIGN.md Open Question decisions).
func (m *IndexFieldMapper) Resolve(tx kvengine.Transaction, secKey []byte, arena codec.Arena) ([]codec.Value, error) {
	n, ok := m.Secondary.IndexedFieldsLen(secKey, arena)
	if !ok {
		return nil, rerr.New(rerr.CodeSecondaryIndexCorruption, "cannot decode indexed-field prefix of secondary key")
	}
	primaryKeyBytes := secKey[n:]

	valBytes, status := m.Primary.Storage.ContentGet(tx, primaryKeyBytes)
	if status == kvengine.StatusNotFound {
		return nil, rerr.New(rerr.CodeSecondaryIndexCorruption, "secondary index points at a missing primary row")
	}
	if info := translateStatus(status); info != nil {
		return nil, info
	}

	primaryKey, ok := DecodeTuple(codec.NewSliceSource(primaryKeyBytes), m.Primary.KeySpecs, arena)
	if !ok {
		return nil, rerr.New(rerr.CodeDataCorruption, "failed to decode primary key embedded in secondary index")
	}
	primaryValue, ok := DecodeTuple(codec.NewSliceSource(valBytes), m.Primary.ValueSpecs, arena)
	if !ok {
		return nil, rerr.New(rerr.CodeDataCorruption, "failed to decode primary value for secondary hit")
	}

	out := make([]codec.Value, len(m.Outputs))
	for i, o := range m.Outputs {
		if o.FromKey {
			out[i] = primaryKey[o.SourceIndex]
		} else {
			out[i] = primaryValue[o.SourceIndex]
		}
	}
	return out, nil
}
