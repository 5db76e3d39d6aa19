package session_test

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/session"
)

func TestKeyAddrRoundTrip(t *testing.T) {
	addr := netip.MustParseAddr("2001:db8::1")
	key, err := session.NewKey(addr, 1700000000, 42)
	require.NoError(t, err)

	assert.Equal(t, addr, key.Addr())
	assert.Contains(t, key.String(), ":1700000000:")
}

func TestNewKeyRejectsIPv4(t *testing.T) {
	_, err := session.NewKey(netip.MustParseAddr("192.0.2.1"), 1, 1)
	assert.Error(t, err)
}

func TestNewSessionIDIsNonZero(t *testing.T) {
	id, err := session.NewSessionID()
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestApplySuccessfulCompletionOverridesEverything(t *testing.T) {
	s := session.Running | session.OtherError
	got := s.Apply(session.FetchSuccessfulCompletion, false)
	assert.Equal(t, session.Complete, got)
}

func TestApplyOrsInErrorBits(t *testing.T) {
	s := session.Running
	got := s.Apply(session.FetchHTTPTimeout, false)
	assert.True(t, got&session.Running != 0)
	assert.True(t, got&session.HTTPTimeout != 0)
}

func TestApplyUnrecognizedFetchSetsOtherError(t *testing.T) {
	got := session.Running.Apply(session.FetchCode(999), false)
	assert.True(t, got&session.OtherError != 0)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, session.Complete.Terminal())
	assert.True(t, (session.Running | session.BadComplete).Terminal())
	assert.False(t, session.Running.Terminal())
}

func TestWaitThenDeleteStopsOnCompletion(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (session.TestState, error) {
		calls++
		if calls >= 2 {
			return session.Complete, nil
		}
		return session.Running, nil
	}
	deleted := false
	del := func(context.Context) error {
		deleted = true
		return nil
	}

	state, err := session.WaitThenDelete(context.Background(), time.Second, 5*time.Millisecond, 5*time.Millisecond, fetch, del)
	require.NoError(t, err)
	assert.Equal(t, session.Complete, state)
	assert.True(t, deleted)
}

func TestWaitThenDeleteRespectsTimeout(t *testing.T) {
	fetch := func(context.Context) (session.TestState, error) {
		return session.Running, nil
	}
	deleted := false
	del := func(context.Context) error {
		deleted = true
		return nil
	}

	_, err := session.WaitThenDelete(context.Background(), 10*time.Millisecond, 5*time.Millisecond, 1*time.Millisecond, fetch, del)
	require.NoError(t, err)
	assert.True(t, deleted)
}
