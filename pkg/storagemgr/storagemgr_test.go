package storagemgr

import (
	"testing"

	"github.com/cuemby/relkv/pkg/rerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFindRemoveEntry(t *testing.T) {
	reg := New()
	e, err := reg.AddEntry(1, "accounts", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)

	found, ok := reg.FindEntry(1)
	require.True(t, ok)
	assert.Same(t, e, found)

	byName, ok := reg.FindByName("accounts")
	require.True(t, ok)
	assert.Same(t, e, byName)

	require.NoError(t, reg.RemoveEntry(1))
	_, ok = reg.FindEntry(1)
	assert.False(t, ok)
}

func TestAddEntryDuplicateIDRejected(t *testing.T) {
	reg := New()
	_, err := reg.AddEntry(1, "accounts", "")
	require.NoError(t, err)
	_, err = reg.AddEntry(1, "other", "")
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeTargetAlreadyExists, code)
}

func TestAddEntryDuplicateNameRejected(t *testing.T) {
	reg := New()
	_, err := reg.AddEntry(1, "accounts", "")
	require.NoError(t, err)
	_, err = reg.AddEntry(2, "accounts", "")
	require.Error(t, err)
	code, _ := rerr.CodeOf(err)
	assert.Equal(t, rerr.CodeTargetAlreadyExists, code)
}

func TestRemoveEntryNotFound(t *testing.T) {
	reg := New()
	err := reg.RemoveEntry(99)
	require.Error(t, err)
	code, _ := rerr.CodeOf(err)
	assert.Equal(t, rerr.CodeTargetNotFound, code)
}

func TestAllowsUserActionsUnionOfAuthorizedAndPublic(t *testing.T) {
	e := &Entry{
		Authorized: map[string]ActionSet{"alice": {ActionSelect: true, ActionUpdate: true}},
		Public:     ActionSet{ActionSelect: true},
	}
	assert.True(t, e.AllowsUserActions("alice", ActionSet{ActionSelect: true, ActionUpdate: true}))
	assert.False(t, e.AllowsUserActions("alice", ActionSet{ActionDelete: true}))
	// bob has no per-user grant, only the public grant
	assert.True(t, e.AllowsUserActions("bob", ActionSet{ActionSelect: true}))
	assert.False(t, e.AllowsUserActions("bob", ActionSet{ActionUpdate: true}))
}

// TestLockConflictScenario implements spec §8 scenario 6: tx A opens a
// shared lock on {T}; tx B's add_locked_storages({T}, unique_lock_B)
// fails while A holds it; after A releases, B succeeds.
func TestLockConflictScenario(t *testing.T) {
	reg := New()
	_, err := reg.AddEntry(10, "t", "")
	require.NoError(t, err)

	sharedA, err := reg.CreateSharedLock([]int64{10}, nil)
	require.NoError(t, err)

	uniqueB := reg.CreateUniqueLock("txB")
	err = reg.AddLockedStorages([]int64{10}, uniqueB)
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeBlockedByConcurrentOperation, code)

	reg.ReleaseShared(sharedA)

	err = reg.AddLockedStorages([]int64{10}, uniqueB)
	require.NoError(t, err)
}

func TestUniqueLockBlocksSharedFromOtherOwner(t *testing.T) {
	reg := New()
	uniqueA := reg.CreateUniqueLock("txA")
	require.NoError(t, reg.AddLockedStorages([]int64{20}, uniqueA))

	_, err := reg.CreateSharedLock([]int64{20}, nil)
	require.Error(t, err)
	code, _ := rerr.CodeOf(err)
	assert.Equal(t, rerr.CodeBlockedByConcurrentOperation, code)
}

func TestSharedLockSelfCompatibleThroughOwningUniqueLock(t *testing.T) {
	reg := New()
	uniqueA := reg.CreateUniqueLock("txA")
	require.NoError(t, reg.AddLockedStorages([]int64{30}, uniqueA))

	// a shared lock created "through" the same unique lock that already
	// owns the storage is always granted
	shared, err := reg.CreateSharedLock([]int64{30}, uniqueA)
	require.NoError(t, err)
	require.NotNil(t, shared)

	// and the unique lock may extend its own cover while that shared lock
	// it granted itself is outstanding
	require.NoError(t, reg.AddLockedStorages([]int64{31}, uniqueA))
}

func TestMetadataRoundTripCurrentVersion(t *testing.T) {
	m := Metadata{
		TableName:    "accounts",
		IndexName:    "accounts_pk",
		Authorized:   map[string]ActionSet{"alice": {ActionSelect: true}},
		Public:       ActionSet{ActionSelect: true},
		SurrogateKey: "srg-123",
	}
	blob := EncodeMetadata(m)
	got, err := DecodeMetadata(blob)
	require.NoError(t, err)
	assert.Equal(t, m.TableName, got.TableName)
	assert.Equal(t, m.IndexName, got.IndexName)
	assert.Equal(t, m.SurrogateKey, got.SurrogateKey)
	assert.True(t, got.Public[ActionSelect])
	assert.True(t, got.Authorized["alice"][ActionSelect])
}

func TestMetadataLegacyVersionWithoutSurrogateKey(t *testing.T) {
	m := Metadata{TableName: "legacy", IndexName: "legacy_pk", Authorized: map[string]ActionSet{}, Public: ActionSet{}}
	blob := EncodeMetadata(m)
	blob[0] = byte(legacyMessageVersionNoSurrogateKey) // rewrite version to 1, little-endian low byte

	got, err := DecodeMetadata(blob)
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.TableName)
	assert.Equal(t, "", got.SurrogateKey)
}

func TestMetadataUnknownVersionRejected(t *testing.T) {
	m := Metadata{TableName: "t", IndexName: "i", Authorized: map[string]ActionSet{}, Public: ActionSet{}}
	blob := EncodeMetadata(m)
	blob[0] = 99

	_, err := DecodeMetadata(blob)
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeSQLExecutionException, code)
}

func TestMetadataTruncatedBlobRejected(t *testing.T) {
	_, err := DecodeMetadata([]byte{1, 0})
	require.Error(t, err)
	code, _ := rerr.CodeOf(err)
	assert.Equal(t, rerr.CodeSQLExecutionException, code)
}
