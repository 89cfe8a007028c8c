package resultchannel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterBodyAndComplete(t *testing.T) {
	rc := New()
	w := rc.AcquireWriter("status")
	require.NoError(t, w.WriteBody([]byte("ok")))
	w.Complete()
	assert.Equal(t, []byte("ok"), w.Body())
	assert.True(t, w.Completed())
	assert.Error(t, w.WriteBody([]byte("more")))
}

func TestAcquireWriterReturnsSameInstance(t *testing.T) {
	rc := New()
	a := rc.AcquireWriter("rows")
	b := rc.AcquireWriter("rows")
	assert.Same(t, a, b)
}

func TestOrderedDataChannelPreservesAcquireOrder(t *testing.T) {
	ch := NewDataChannel(true)
	b0 := ch.Acquire(16)
	b1 := ch.Acquire(16)
	b2 := ch.Acquire(16)
	require.NoError(t, b0.Write([]byte("zero")))
	require.NoError(t, b1.Write([]byte("one")))
	require.NoError(t, b2.Write([]byte("two")))

	// stage out of acquisition order; consumer must still see 0,1,2
	ch.Stage(b2)
	ch.Stage(b0)
	ch.Stage(b1)
	ch.Close()

	ctx := context.Background()
	got0, ok := ch.Pull(ctx)
	require.True(t, ok)
	assert.Equal(t, "zero", string(got0.Bytes()))

	got1, ok := ch.Pull(ctx)
	require.True(t, ok)
	assert.Equal(t, "one", string(got1.Bytes()))

	got2, ok := ch.Pull(ctx)
	require.True(t, ok)
	assert.Equal(t, "two", string(got2.Bytes()))

	_, ok = ch.Pull(ctx)
	assert.False(t, ok)
}

func TestOrderedDataChannelDiscardSkipsSlot(t *testing.T) {
	ch := NewDataChannel(true)
	b0 := ch.Acquire(8)
	b1 := ch.Acquire(8)
	require.NoError(t, b1.Write([]byte("kept")))

	ch.Discard(b0)
	ch.Stage(b1)
	ch.Close()

	got, ok := ch.Pull(context.Background())
	require.True(t, ok)
	assert.Equal(t, "kept", string(got.Bytes()))

	_, ok = ch.Pull(context.Background())
	assert.False(t, ok)
}

func TestUnorderedDataChannelDeliversInStageOrder(t *testing.T) {
	ch := NewDataChannel(false)
	a := ch.Acquire(8)
	b := ch.Acquire(8)
	require.NoError(t, a.Write([]byte("a")))
	require.NoError(t, b.Write([]byte("b")))

	ch.Stage(b)
	ch.Stage(a)
	ch.Close()

	got1, ok := ch.Pull(context.Background())
	require.True(t, ok)
	assert.Equal(t, "b", string(got1.Bytes()))

	got2, ok := ch.Pull(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", string(got2.Bytes()))
}

func TestPullBlocksUntilStaged(t *testing.T) {
	ch := NewDataChannel(true)
	result := make(chan *Buffer, 1)
	go func() {
		buf, ok := ch.Pull(context.Background())
		if ok {
			result <- buf
		}
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-result:
		t.Fatal("pull returned before any buffer was staged")
	default:
	}

	buf := ch.Acquire(8)
	require.NoError(t, buf.Write([]byte("late")))
	ch.Stage(buf)

	select {
	case got := <-result:
		assert.Equal(t, "late", string(got.Bytes()))
	case <-time.After(time.Second):
		t.Fatal("pull did not wake up after stage")
	}
}

func TestPullRespectsContextCancellation(t *testing.T) {
	ch := NewDataChannel(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := ch.Pull(ctx)
	assert.False(t, ok)
}

func TestBufferWriteRejectsOverflow(t *testing.T) {
	buf := NewBuffer(4, 0)
	assert.Error(t, buf.Write([]byte("toolong")))
	require.NoError(t, buf.Write([]byte("ok")))
	assert.Equal(t, "ok", string(buf.Bytes()))
}
