package txn

import (
	"testing"

	"github.com/cuemby/relkv/pkg/rerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateThenCommitPath(t *testing.T) {
	tx := New("tx1", Options{})
	require.NoError(t, tx.Activate())
	assert.Equal(t, StateActive, tx.State())

	require.NoError(t, tx.RequestCommit())
	assert.Equal(t, StateGoingToCommit, tx.State())

	require.NoError(t, tx.OnCCCommitStarted())
	assert.Equal(t, StateCCCommitting, tx.State())

	require.NoError(t, tx.OnCCCommitted())
	assert.Equal(t, StateCommittedAvailable, tx.State())

	require.NoError(t, tx.OnCCStored())
	assert.Equal(t, StateCommittedStored, tx.State())
}

func TestIllegalTransitionRejected(t *testing.T) {
	tx := New("tx2", Options{})
	// init -> cc_committing is not in the allowed table
	tx.mu.Lock()
	err := tx.transition(StateCCCommitting)
	tx.mu.Unlock()
	require.Error(t, err)
	assert.Equal(t, StateInit, tx.State())
}

func TestCommitNoopInNonActiveState(t *testing.T) {
	tx := New("tx3", Options{})
	// still in init, not active: commit is a no-op reporting inactive
	err := tx.RequestCommit()
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeInactiveTransaction, code)
}

func TestEarlyAbortThenCommitReturnsInactiveTransaction(t *testing.T) {
	// spec §8 scenario 7: CC early abort leaves tx aborted; a subsequent
	// commit returns err_inactive_transaction; a subsequent abort is a no-op.
	tx := New("tx4", Options{})
	require.NoError(t, tx.Activate())
	require.NoError(t, tx.AbortDirectly())
	assert.Equal(t, StateAborted, tx.State())

	err := tx.RequestCommit()
	require.Error(t, err)
	code, _ := rerr.CodeOf(err)
	assert.Equal(t, rerr.CodeInactiveTransaction, code)

	// subsequent abort is a no-op, not an error about illegal transition
	err = tx.RequestAbort()
	require.Error(t, err)
	code, _ = rerr.CodeOf(err)
	assert.Equal(t, rerr.CodeInactiveTransaction, code)
	assert.Equal(t, StateAborted, tx.State())
}

func TestSetPendingErrorAbortsOnFatalCode(t *testing.T) {
	tx := New("tx5", Options{})
	require.NoError(t, tx.Activate())
	tx.SetPendingError(rerr.New(rerr.CodeUniqueConstraintViolation, "dup"))
	assert.Equal(t, StateAborted, tx.State())
}

func TestSetPendingErrorDoesNotAbortOnNonFatalCode(t *testing.T) {
	tx := New("tx6", Options{})
	require.NoError(t, tx.Activate())
	tx.SetPendingError(rerr.New(rerr.CodeTargetNotFound, "missing"))
	assert.Equal(t, StateActive, tx.State())
}

func TestReadOnlyStrandRejectsWrite(t *testing.T) {
	tx := New("tx7", Options{})
	strand := tx.NewStrand("s1", true)
	assert.Error(t, strand.ValidateWrite())

	writable := tx.NewStrand("s2", false)
	assert.NoError(t, writable.ValidateWrite())
}
