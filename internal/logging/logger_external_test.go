package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/logging"
)

type bufCloser struct {
	bytes.Buffer
}

func (b *bufCloser) Close() error { return nil }

func TestLoggerDispatchesAboveMinLevel(t *testing.T) {
	buf := &bufCloser{}
	w := logging.NewTextWriter(buf, "")
	l := logging.New(logging.LevelWarn, w)

	l.Debug("probe.tcp", "probe_start", "ignored", nil)
	l.Info("probe.tcp", "probe_start", "also ignored", nil)
	l.Warn("probe.tcp", "retry", "elevated", map[string]any{"port": 80})
	l.Error("dispatcher", "bad_query", "rejected", map[string]any{"attack": true})

	require.NoError(t, l.Close())

	out := buf.String()
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "retry")
	assert.Contains(t, out, "ATTACK?=true")
}

func TestParseLevelRoundTrip(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "warning", "error"} {
		lvl, err := logging.ParseLevel(s)
		require.NoError(t, err)
		assert.NotEmpty(t, lvl.String())
	}

	_, err := logging.ParseLevel("bogus")
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)
}

func TestLogEventWithMeta(t *testing.T) {
	e := logging.NewLogEvent(logging.LevelInfo, "store", "session_written", "ok")
	e2 := e.WithMeta("session_id", "abc")
	assert.Empty(t, e.Metadata)
	assert.Equal(t, "abc", e2.Metadata["session_id"])
}
