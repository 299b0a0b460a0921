package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "audit", "bypass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestSQLiteSink_AppendAndQuery(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, method := range []string{"cmd_q_blocked", "mouse_blocked_click", "escape_key"} {
		err := sink.LogBypassAttempt(ctx, Attempt{
			SessionID: "session-1",
			Method:    method,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	require.NoError(t, sink.LogBypassAttempt(ctx, Attempt{
		SessionID: "session-2",
		Method:    "cmd_w_blocked",
		Timestamp: base,
	}))

	attempts, err := sink.AttemptsForSession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, "cmd_q_blocked", attempts[0].Method)
	assert.Equal(t, "escape_key", attempts[2].Method)

	attempts, err = sink.AttemptsForSession(ctx, "session-2")
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSQLiteSink_RecorderIntegration(t *testing.T) {
	sink := newTestSink(t)
	recorder := NewRecorder(sink, nil)
	recorder.BeginSession("session-9")

	recorder.Record("cmd_tab_blocked")
	recorder.Flush()

	attempts, err := sink.AttemptsForSession(context.Background(), "session-9")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "cmd_tab_blocked", attempts[0].Method)
}
