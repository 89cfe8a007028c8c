package reqctx

import (
	"testing"
	"time"

	"github.com/cuemby/relkv/pkg/config"
	"github.com/cuemby/relkv/pkg/resultchannel"
	"github.com/cuemby/relkv/pkg/rerr"
	"github.com/cuemby/relkv/pkg/txn"
	"github.com/cuemby/relkv/pkg/writerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	tx := txn.New("t1", txn.Options{})
	require.NoError(t, tx.Activate())
	return New(tx, resultchannel.New(), writerpool.New(1), nil, Session{User: "alice"}, config.Default())
}

func TestCheckSuspensionPointClean(t *testing.T) {
	c := newTestContext(t)
	assert.NoError(t, c.CheckSuspensionPoint())
}

func TestCancelReportsRequestCanceled(t *testing.T) {
	c := newTestContext(t)
	c.Cancel()
	err := c.CheckSuspensionPoint()
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeRequestCanceled, code)
}

func TestDeadlineExceededReportsRequestTimeout(t *testing.T) {
	c := newTestContext(t)
	c.WithDeadline(time.Now().Add(-time.Second))
	err := c.CheckSuspensionPoint()
	require.Error(t, err)
	code, ok := rerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rerr.CodeRequestTimeout, code)
}

func TestFutureDeadlineDoesNotExceed(t *testing.T) {
	c := newTestContext(t)
	c.WithDeadline(time.Now().Add(time.Hour))
	assert.False(t, c.DeadlineExceeded())
}

func TestSetPendingErrorAbortsTransactionOnFatalCode(t *testing.T) {
	c := newTestContext(t)
	c.SetPendingError(rerr.New(rerr.CodeUniqueConstraintViolation, "dup"))
	assert.Equal(t, txn.StateAborted, c.Tx.State())
	require.Error(t, c.PendingError())
}

func TestSetPendingErrorKeepsFirstError(t *testing.T) {
	c := newTestContext(t)
	first := rerr.New(rerr.CodeValueOutOfRange, "first")
	second := rerr.New(rerr.CodeValueTooLong, "second")
	c.SetPendingError(first)
	c.SetPendingError(second)
	assert.Equal(t, first, c.PendingError())
}
