package indexaccess

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/record"
)

// FieldMapping selects one secondary-index key field's source: either
// the primary key tuple or the primary value tuple, at SourceIndex.
type FieldMapping struct {
	FromKey     bool
	SourceIndex int
}

// BuildIndexValues projects a secondary index's key fields out of a
// primary row's decoded key and value tuples per mapping.
func BuildIndexValues(mapping []FieldMapping, primaryKey, primaryValue []codec.Value) []codec.Value {
	out := make([]codec.Value, len(mapping))
	for i, m := range mapping {
		if m.FromKey {
			out[i] = primaryKey[m.SourceIndex]
		} else {
			out[i] = primaryValue[m.SourceIndex]
		}
	}
	return out
}

// SecondaryTarget mirrors PrimaryTarget for a secondary index: its KV
// value is always empty, and its key is the indexed fields followed by
// the full primary key bytes (so a hit carries enough to fetch the row).
type SecondaryTarget struct {
	Storage  kvengine.Storage
	KeySpecs []FieldSpec // the indexed fields only, excluding the primary-key suffix
	Mapping  []FieldMapping
}

// EncodePut builds and stores (indexKey ++ primaryKeyBytes, "").
func (t *SecondaryTarget) EncodePut(tx kvengine.Transaction, indexValues []codec.Value, primaryKeyBytes []byte, keyBuf *record.AlignedBuffer) error {
	secKey, err := t.encodeSecondaryKey(indexValues, primaryKeyBytes, keyBuf)
	if err != nil {
		return err
	}
	status := t.Storage.ContentPut(tx, secKey, nil, kvengine.PutCreateOrUpdate)
	if info := translateStatus(status); info != nil {
		return info
	}
	return nil
}

// EncodeRemove builds the same composite key and deletes it.
func (t *SecondaryTarget) EncodeRemove(tx kvengine.Transaction, indexValues []codec.Value, primaryKeyBytes []byte, keyBuf *record.AlignedBuffer) error {
	secKey, err := t.encodeSecondaryKey(indexValues, primaryKeyBytes, keyBuf)
	if err != nil {
		return err
	}
	status := t.Storage.ContentDelete(tx, secKey)
	if info := translateStatus(status); info != nil {
		return info
	}
	return nil
}

func (t *SecondaryTarget) encodeSecondaryKey(indexValues []codec.Value, primaryKeyBytes []byte, keyBuf *record.AlignedBuffer) ([]byte, error) {
	prefix, err := EncodeTuple(keyBuf, t.KeySpecs, indexValues)
	if err != nil {
		return nil, err
	}
	// EncodeTuple left keyBuf sized to the indexed-fields prefix; append
	// the primary key suffix directly onto the same scratch buffer.
	keyBuf.Resize(len(prefix) + len(primaryKeyBytes))
	full := keyBuf.Bytes()
	copy(full[len(prefix):], primaryKeyBytes)
	return full, nil
}

// IndexedFieldsLen returns how many leading bytes of a secondary key belong
// to the indexed fields, by decoding those fields from the raw key; the
// primary-key suffix begins at the returned offset.
func (t *SecondaryTarget) IndexedFieldsLen(secKey []byte, arena codec.Arena) (int, bool) {
	src := codec.NewSliceSource(secKey)
	if _, ok := DecodeTuple(src, t.KeySpecs, arena); !ok {
		return 0, false
	}
	consumed := len(secKey) - remaining(src)
	return consumed, true
}

func remaining(src codec.Source) int { return src.Remaining() }
