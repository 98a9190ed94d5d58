package verr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreErrorIs(t *testing.T) {
	err := New(KindInvalidHandle, "stale xid on block %d", 7)
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidHandle))
	assert.False(t, Is(err, KindOutOfBufferSpace))
	assert.Contains(t, err.Error(), "stale xid on block 7")
}

func TestCoreErrorStackTrace(t *testing.T) {
	err := New(KindOutOfBufferSpace, "buffer exhausted")
	assert.NotEmpty(t, StackTrace(err))
}

func TestErrorQueuePushFlushesToSink(t *testing.T) {
	var buf bytes.Buffer
	eq := NewErrorQueue(4)
	eq.RegisterSink(&WriterSink{W: &buf, Accept: []Level{LevelWarning}})

	eq.Push(Entry{Level: LevelWarning, Kind: KindSchemaConflict, Message: "duplicate table"})
	eq.Push(Entry{Level: LevelDebug, Kind: KindSchemaConflict, Message: "ignored by sink"})

	assert.Contains(t, buf.String(), "duplicate table")
	assert.NotContains(t, buf.String(), "ignored by sink")
	assert.Equal(t, 2, eq.Len())
}

func TestErrorQueueHistoryBounded(t *testing.T) {
	eq := NewErrorQueue(2)
	for i := 0; i < 5; i++ {
		eq.Push(Entry{Level: LevelInfo, Message: "m"})
	}
	assert.Len(t, eq.History(), 2)
}
