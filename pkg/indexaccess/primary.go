package indexaccess

import (
	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/cuemby/relkv/pkg/rerr"
)

// LOBSession assigns ids to unresolved BLOB/CLOB content and registers
// them with the owning transaction's BLOB session container (spec §3
// "Transaction context … BLOB session container"). A LOB value.Bytes
// with value.I64 == 0 is unresolved; Resolve mints and returns its id.
type LOBSession interface {
	Resolve(kind codec.Kind, content []byte) (id int64, err error)
}

// PrimaryTarget knows one primary index's key/value layout and the
// underlying KV storage, and performs encode+content_* round trips.
type PrimaryTarget struct {
	Storage    kvengine.Storage
	KeySpecs   []FieldSpec
	ValueSpecs []FieldSpec
}

// EncodeFind encodes keyValues, performs content_get, and decodes both
// the (possibly re-derived) key and the stored value. keyBuf is scratch
// space reused across calls; varlen content is allocated from arena.
func (t *PrimaryTarget) EncodeFind(tx kvengine.Transaction, keyValues []codec.Value, keyBuf *record.AlignedBuffer, arena codec.Arena) (key, value []codec.Value, found bool, err error) {
	keyBytes, encErr := EncodeTuple(keyBuf, t.KeySpecs, keyValues)
	if encErr != nil {
		return nil, nil, false, encErr
	}
	valBytes, status := t.Storage.ContentGet(tx, keyBytes)
	if status == kvengine.StatusNotFound {
		return nil, nil, false, nil
	}
	if info := translateStatus(status); info != nil {
		return nil, nil, false, info
	}

	decodedKey, ok := DecodeTuple(codec.NewSliceSource(keyBytes), t.KeySpecs, arena)
	if !ok {
		return nil, nil, false, rerr.New(rerr.CodeDataCorruption, "failed to re-decode primary key after content_get")
	}
	decodedValue, ok := DecodeTuple(codec.NewSliceSource(valBytes), t.ValueSpecs, arena)
	if !ok {
		return nil, nil, false, rerr.New(rerr.CodeDataCorruption, "failed to decode primary value")
	}
	return decodedKey, decodedValue, true, nil
}

// EncodePut resolves any unresolved LOB fields in valueValues against
// session (if non-nil), encodes key and value, and performs content_put
// with the given option.
func (t *PrimaryTarget) EncodePut(tx kvengine.Transaction, keyValues, valueValues []codec.Value, opt kvengine.PutOption, keyBuf, valBuf *record.AlignedBuffer, session LOBSession) error {
	if session != nil {
		if err := resolveLOBFields(t.ValueSpecs, valueValues, session); err != nil {
			return err
		}
	}
	keyBytes, err := EncodeTuple(keyBuf, t.KeySpecs, keyValues)
	if err != nil {
		return err
	}
	valBytes, err := EncodeTuple(valBuf, t.ValueSpecs, valueValues)
	if err != nil {
		return err
	}
	status := t.Storage.ContentPut(tx, keyBytes, valBytes, opt)
	if info := translateStatus(status); info != nil {
		return info
	}
	return nil
}

// EncodeRemove encodes keyValues and performs content_delete.
func (t *PrimaryTarget) EncodeRemove(tx kvengine.Transaction, keyValues []codec.Value, keyBuf *record.AlignedBuffer) error {
	keyBytes, err := EncodeTuple(keyBuf, t.KeySpecs, keyValues)
	if err != nil {
		return err
	}
	status := t.Storage.ContentDelete(tx, keyBytes)
	if info := translateStatus(status); info != nil {
		return info
	}
	return nil
}

func resolveLOBFields(specs []FieldSpec, values []codec.Value, session LOBSession) error {
	for i, spec := range specs {
		if spec.Type.Kind != codec.KindBlobRef && spec.Type.Kind != codec.KindClobRef {
			continue
		}
		if values[i].Null || values[i].I64 != 0 {
			continue // already resolved, or legitimately null
		}
		id, err := session.Resolve(spec.Type.Kind, values[i].Bytes)
		if err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "resolving LOB field %d", i)
		}
		values[i].I64 = id
	}
	return nil
}
