package operator

import (
	"bytes"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/indexaccess"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/process"
)

// Write performs insert/update/delete/upsert on a table, cascading to
// every secondary index of that table (spec §4.5).
//
// A caller driving Write for UPDATE from a concurrent scan over the same
// primary index must materialize the scanned rows before issuing writes:
// mutating a primary key the scan's own cursor is walking, within the
// same transaction, can otherwise revisit or skip rows (the "PK update
// preserves scan" invariant, spec §8 scenario 2).
type Write struct {
	Primary     *indexaccess.PrimaryTarget
	Secondaries []*indexaccess.SecondaryTarget
	Mode        plan.WriteMode

	// OldKeyVals/OldValueVals read the row's current values out of scope
	// (already bound by an upstream scan/find); used by update and delete.
	OldKeyVals   func(scope *process.BlockScope) []codec.Value
	OldValueVals func(scope *process.BlockScope) []codec.Value
	// NewKeyVals/NewValueVals compute the row's values after the
	// statement's assignments; used by insert, update, and upsert.
	NewKeyVals   func(scope *process.BlockScope) []codec.Value
	NewValueVals func(scope *process.BlockScope) []codec.Value

	Downstream Kernel
}

func (w *Write) Execute(ctx *Context) Status {
	var err error
	switch w.Mode {
	case plan.WriteInsert:
		err = w.insert(ctx)
	case plan.WriteDelete:
		err = w.delete(ctx)
	case plan.WriteUpdate:
		err = w.update(ctx)
	case plan.WriteUpsert:
		err = w.upsert(ctx)
	}
	if err != nil {
		return ctx.fail(err)
	}
	if w.Downstream != nil {
		return w.Downstream.Execute(ctx)
	}
	return StatusContinue
}

func (w *Write) insert(ctx *Context) error {
	keyValues := w.NewKeyVals(ctx.Scope)
	valueValues := w.NewValueVals(ctx.Scope)
	if err := w.Primary.EncodePut(ctx.KVTx, keyValues, valueValues, kvengine.PutCreate, ctx.KeyBuf, ctx.ValBuf, nil); err != nil {
		return err
	}
	primaryKeyBytes, err := w.encodedPrimaryKey(keyValues, ctx)
	if err != nil {
		return err
	}
	return w.putSecondaries(ctx, keyValues, valueValues, primaryKeyBytes)
}

func (w *Write) delete(ctx *Context) error {
	oldKey := w.OldKeyVals(ctx.Scope)
	oldValue := w.OldValueVals(ctx.Scope)
	primaryKeyBytes, err := w.encodedPrimaryKey(oldKey, ctx)
	if err != nil {
		return err
	}
	if err := w.removeSecondaries(ctx, oldKey, oldValue, primaryKeyBytes); err != nil {
		return err
	}
	return w.Primary.EncodeRemove(ctx.KVTx, oldKey, ctx.KeyBuf)
}

func (w *Write) update(ctx *Context) error {
	oldKey := w.OldKeyVals(ctx.Scope)
	oldValue := w.OldValueVals(ctx.Scope)
	newKey := w.NewKeyVals(ctx.Scope)
	newValue := w.NewValueVals(ctx.Scope)

	oldPKBytes, err := w.encodedPrimaryKey(oldKey, ctx)
	if err != nil {
		return err
	}
	if err := w.removeSecondaries(ctx, oldKey, oldValue, oldPKBytes); err != nil {
		return err
	}

	newPKBytes, err := w.encodedPrimaryKey(newKey, ctx)
	if err != nil {
		return err
	}
	if bytes.Equal(oldPKBytes, newPKBytes) {
		if err := w.Primary.EncodePut(ctx.KVTx, newKey, newValue, kvengine.PutUpdate, ctx.KeyBuf, ctx.ValBuf, nil); err != nil {
			return err
		}
	} else {
		if err := w.Primary.EncodeRemove(ctx.KVTx, oldKey, ctx.KeyBuf); err != nil {
			return err
		}
		if err := w.Primary.EncodePut(ctx.KVTx, newKey, newValue, kvengine.PutCreate, ctx.KeyBuf, ctx.ValBuf, nil); err != nil {
			return err
		}
	}
	return w.putSecondaries(ctx, newKey, newValue, newPKBytes)
}

func (w *Write) upsert(ctx *Context) error {
	newKey := w.NewKeyVals(ctx.Scope)
	newValue := w.NewValueVals(ctx.Scope)

	existingKey, existingValue, found, err := w.Primary.EncodeFind(ctx.KVTx, newKey, ctx.KeyBuf, ctx.Task.Varlen)
	if err != nil {
		return err
	}

	if !found {
		if err := w.Primary.EncodePut(ctx.KVTx, newKey, newValue, kvengine.PutCreate, ctx.KeyBuf, ctx.ValBuf, nil); err != nil {
			return err
		}
		newPKBytes, err := w.encodedPrimaryKey(newKey, ctx)
		if err != nil {
			return err
		}
		return w.putSecondaries(ctx, newKey, newValue, newPKBytes)
	}

	// row exists and its primary key bytes equal the new primary key
	// bytes (EncodeFind re-derived them from the same newKey values):
	// secondary maintenance is only required for changed columns.
	if err := w.Primary.EncodePut(ctx.KVTx, newKey, newValue, kvengine.PutUpdate, ctx.KeyBuf, ctx.ValBuf, nil); err != nil {
		return err
	}
	newPKBytes, err := w.encodedPrimaryKey(newKey, ctx)
	if err != nil {
		return err
	}
	for _, sec := range w.Secondaries {
		oldIdx := indexaccess.BuildIndexValues(sec.Mapping, existingKey, existingValue)
		newIdx := indexaccess.BuildIndexValues(sec.Mapping, newKey, newValue)
		if valuesEqual(oldIdx, newIdx) {
			continue
		}
		if err := sec.EncodeRemove(ctx.KVTx, oldIdx, newPKBytes, ctx.KeyBuf); err != nil {
			return err
		}
		if err := sec.EncodePut(ctx.KVTx, newIdx, newPKBytes, ctx.KeyBuf); err != nil {
			return err
		}
	}
	return nil
}

func (w *Write) putSecondaries(ctx *Context, key, value []codec.Value, primaryKeyBytes []byte) error {
	for _, sec := range w.Secondaries {
		idxVals := indexaccess.BuildIndexValues(sec.Mapping, key, value)
		if err := sec.EncodePut(ctx.KVTx, idxVals, primaryKeyBytes, ctx.KeyBuf); err != nil {
			return err
		}
	}
	return nil
}

func (w *Write) removeSecondaries(ctx *Context, key, value []codec.Value, primaryKeyBytes []byte) error {
	for _, sec := range w.Secondaries {
		idxVals := indexaccess.BuildIndexValues(sec.Mapping, key, value)
		if err := sec.EncodeRemove(ctx.KVTx, idxVals, primaryKeyBytes, ctx.KeyBuf); err != nil {
			return err
		}
	}
	return nil
}

func (w *Write) encodedPrimaryKey(keyValues []codec.Value, ctx *Context) ([]byte, error) {
	encoded, err := indexaccess.EncodeTuple(ctx.KeyBuf, w.Primary.KeySpecs, keyValues)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), encoded...), nil
}

func valuesEqual(a, b []codec.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Null != b[i].Null {
			return false
		}
		if a[i].Null {
			continue
		}
		if a[i].Kind != b[i].Kind || a[i].I64 != b[i].I64 || a[i].F64 != b[i].F64 || !bytes.Equal(a[i].Bytes, b[i].Bytes) {
			return false
		}
	}
	return true
}
