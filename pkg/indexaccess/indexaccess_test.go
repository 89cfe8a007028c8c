package indexaccess

import (
	"sort"
	"testing"

	"github.com/cuemby/relkv/pkg/codec"
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/record"
	"github.com/cuemby/relkv/pkg/rerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is a minimal in-memory kvengine.Storage for exercising
// indexaccess without a real KV engine.
type memStorage struct {
	data map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{data: map[string][]byte{}} }

func (m *memStorage) ContentGet(tx kvengine.Transaction, key []byte) ([]byte, kvengine.Status) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, kvengine.StatusNotFound
	}
	return v, kvengine.StatusOK
}

func (m *memStorage) ContentPut(tx kvengine.Transaction, key, value []byte, opt kvengine.PutOption) kvengine.Status {
	_, exists := m.data[string(key)]
	if opt == kvengine.PutCreate && exists {
		return kvengine.StatusErrUniqueConstraintViolation
	}
	if opt == kvengine.PutUpdate && !exists {
		return kvengine.StatusNotFound
	}
	m.data[string(key)] = append([]byte(nil), value...)
	return kvengine.StatusOK
}

func (m *memStorage) ContentDelete(tx kvengine.Transaction, key []byte) kvengine.Status {
	if _, ok := m.data[string(key)]; !ok {
		return kvengine.StatusNotFound
	}
	delete(m.data, string(key))
	return kvengine.StatusOK
}

func (m *memStorage) ContentScan(tx kvengine.Transaction, beginKey []byte, beginKind kvengine.EndpointKind, endKey []byte, endKind kvengine.EndpointKind, limit int, reverse bool) (kvengine.Iterator, kvengine.Status) {
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memIterator{storage: m, keys: keys, pos: -1}, kvengine.StatusOK
}

type memIterator struct {
	storage *memStorage
	keys    []string
	pos     int
}

func (it *memIterator) Next() kvengine.Status {
	it.pos++
	if it.pos >= len(it.keys) {
		return kvengine.StatusNotFound
	}
	return kvengine.StatusOK
}
func (it *memIterator) ReadKey() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) ReadValue() []byte { return it.storage.data[it.keys[it.pos]] }
func (it *memIterator) Close()            {}

type noopTx struct{}

func (noopTx) Commit(kvengine.CommitOption, func(kvengine.Status)) kvengine.Status { return kvengine.StatusOK }
func (noopTx) Abort() kvengine.Status                                             { return kvengine.StatusOK }
func (noopTx) WaitForCommit(int64) kvengine.Status                                { return kvengine.StatusOK }

func i32KeySpec() []FieldSpec {
	return []FieldSpec{{Type: codec.FieldType{Kind: codec.KindInt32}, Direction: codec.Asc}}
}

func f64ValueSpec() []FieldSpec {
	return []FieldSpec{{Type: codec.FieldType{Kind: codec.KindFloat64}, Direction: codec.Asc}}
}

func TestPrimaryTargetPutAndFindRoundTrip(t *testing.T) {
	target := &PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: f64ValueSpec()}
	tx := noopTx{}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	arena := record.NewVarlenArena()

	key := []codec.Value{{Kind: codec.KindInt32, I64: 7}}
	value := []codec.Value{{Kind: codec.KindFloat64, F64: 3.25}}
	require.NoError(t, target.EncodePut(tx, key, value, kvengine.PutCreate, keyBuf, valBuf, nil))

	foundKey, foundValue, found, err := target.EncodeFind(tx, key, keyBuf, arena)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7), foundKey[0].I64)
	assert.Equal(t, 3.25, foundValue[0].F64)
}

func TestPrimaryTargetFindNotFound(t *testing.T) {
	target := &PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: f64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	arena := record.NewVarlenArena()
	_, _, found, err := target.EncodeFind(noopTx{}, []codec.Value{{Kind: codec.KindInt32, I64: 99}}, keyBuf, arena)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPrimaryTargetCreateDuplicateRejected(t *testing.T) {
	target := &PrimaryTarget{Storage: newMemStorage(), KeySpecs: i32KeySpec(), ValueSpecs: f64ValueSpec()}
	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	key := []codec.Value{{Kind: codec.KindInt32, I64: 1}}
	value := []codec.Value{{Kind: codec.KindFloat64, F64: 1.0}}
	require.NoError(t, target.EncodePut(noopTx{}, key, value, kvengine.PutCreate, keyBuf, valBuf, nil))
	err := target.EncodePut(noopTx{}, key, value, kvengine.PutCreate, keyBuf, valBuf, nil)
	require.Error(t, err)
}

func TestSecondaryIndexConsistencyAndMapper(t *testing.T) {
	primaryStorage := newMemStorage()
	secondaryStorage := newMemStorage()

	primary := &PrimaryTarget{Storage: primaryStorage, KeySpecs: i32KeySpec(), ValueSpecs: f64ValueSpec()}
	secondary := &SecondaryTarget{Storage: secondaryStorage, KeySpecs: f64ValueSpec()}

	keyBuf := record.NewAlignedBuffer(1, 16)
	valBuf := record.NewAlignedBuffer(1, 16)
	secKeyBuf := record.NewAlignedBuffer(1, 16)
	arena := record.NewVarlenArena()

	key := []codec.Value{{Kind: codec.KindInt32, I64: 42}}
	value := []codec.Value{{Kind: codec.KindFloat64, F64: 9.5}}
	require.NoError(t, primary.EncodePut(noopTx{}, key, value, kvengine.PutCreate, keyBuf, valBuf, nil))

	primaryKeyBytes, err := EncodeTuple(record.NewAlignedBuffer(1, 16), i32KeySpec(), key)
	require.NoError(t, err)
	indexValues := BuildIndexValues([]FieldMapping{{FromKey: false, SourceIndex: 0}}, key, value)
	require.NoError(t, secondary.EncodePut(noopTx{}, indexValues, primaryKeyBytes, secKeyBuf))

	// exactly one secondary entry for the one primary row (spec §8 "Index consistency")
	assert.Len(t, secondaryStorage.data, 1)
	var secKey []byte
	for k := range secondaryStorage.data {
		secKey = []byte(k)
	}
	assert.Len(t, secondaryStorage.data[string(secKey)], 0)

	mapper := &IndexFieldMapper{
		Secondary: secondary,
		Primary:   primary,
		Outputs:   []OutputField{{FromKey: true, SourceIndex: 0}, {FromKey: false, SourceIndex: 0}},
	}
	out, err := mapper.Resolve(noopTx{}, secKey, arena)
	require.NoError(t, err)
	assert.Equal(t, int64(42), out[0].I64)
	assert.Equal(t, 9.5, out[1].F64)
}

func TestSecondaryIndexCorruptionOnMissingPrimary(t *testing.T) {
	primaryStorage := newMemStorage()
	secondaryStorage := newMemStorage()
	primary := &PrimaryTarget{Storage: primaryStorage, KeySpecs: i32KeySpec(), ValueSpecs: f64ValueSpec()}
	secondary := &SecondaryTarget{Storage: secondaryStorage, KeySpecs: f64ValueSpec()}

	primaryKeyBytes, err := EncodeTuple(record.NewAlignedBuffer(1, 16), i32KeySpec(), []codec.Value{{Kind: codec.KindInt32, I64: 1}})
	require.NoError(t, err)
	indexValues := []codec.Value{{Kind: codec.KindFloat64, F64: 1.0}}
	secKeyBuf := record.NewAlignedBuffer(1, 16)
	require.NoError(t, secondary.EncodePut(noopTx{}, indexValues, primaryKeyBytes, secKeyBuf))

	var secKey []byte
	for k := range secondaryStorage.data {
		secKey = []byte(k)
	}
	mapper := &IndexFieldMapper{Secondary: secondary, Primary: primary}
	_, err = mapper.Resolve(noopTx{}, secKey, record.NewVarlenArena())
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeSecondaryIndexCorruption, code)
}
